package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params is a normalized page request. Page starts at 1; Limit is capped at MaxLimit.
type Params struct {
	Page  int
	Limit int
}

// New clamps page and limit into their valid ranges.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// FromQuery reads ?page= and ?limit= from the request.
func FromQuery(c *fiber.Ctx) Params {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return New(page, limit)
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one slice of a filtered result set.
type Page[T any] struct {
	Items []T
	Total int64
	Params
}

// Meta is the pagination block returned in the response metadata.
type Meta struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	Total           int64 `json:"total"`
	TotalPages      int64 `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

func (p Page[T]) Meta() Meta {
	totalPages := (p.Total + int64(p.Limit) - 1) / int64(p.Limit)
	return Meta{
		Page:            p.Page,
		Limit:           p.Limit,
		Total:           p.Total,
		TotalPages:      totalPages,
		HasNextPage:     int64(p.Offset()+p.Limit) < p.Total,
		HasPreviousPage: p.Page > 1,
	}
}
