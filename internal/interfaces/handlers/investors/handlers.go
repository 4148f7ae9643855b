package investors

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	investorsvc "shares-backend/internal/application/investors"
	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *investorsvc.Service
}

// selfOrStaff reads :id and refuses investors other than the one named.
func selfOrStaff(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if p, ok := middleware.GetPerformer(c); ok && p.Type == domain.PerformerInvestor && p.ID != id {
		return uuid.Nil, apperrors.Forbidden("Investors can only access their own profile")
	}
	return id, nil
}

// Create POST /api/v1/investors. A password also creates the investor's login.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in investorsvc.CreateInput
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	inv, user, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Investor created successfully", fiber.Map{
		"investor": inv,
		"user":     user,
	}, nil)
}

// List GET /api/v1/investors?keyword=
func (h *Handlers) List(c *fiber.Ctx) error {
	page, err := h.Service.List(c.UserContext(), c.Query("keyword"), pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Investors fetched successfully", page)
}

// Get GET /api/v1/investors/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := selfOrStaff(c)
	if err != nil {
		return response.FromError(c, err)
	}
	inv, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investor fetched successfully", inv, nil)
}

// Portfolio GET /api/v1/investors/:id/portfolio
func (h *Handlers) Portfolio(c *fiber.Ctx) error {
	id, err := selfOrStaff(c)
	if err != nil {
		return response.FromError(c, err)
	}
	pf, err := h.Service.Portfolio(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Portfolio fetched successfully", pf, nil)
}

type statusBody struct {
	IsActive *bool `json:"isActive"`
}

// SetStatus PATCH /api/v1/investors/:id/status
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body statusBody
	if err := request.Body(c, &body); err != nil {
		return response.FromError(c, err)
	}
	if body.IsActive == nil {
		return response.FromError(c, apperrors.Validation("isActive", "isActive must be a boolean"))
	}
	user, err := h.Service.SetActive(c.UserContext(), id, *body.IsActive)
	if err != nil {
		return response.FromError(c, err)
	}
	msg := "Investor login enabled"
	if !user.IsActive {
		msg = "Investor login disabled and sessions revoked"
	}
	return response.Success(c, msg, fiber.Map{"user": user}, nil)
}
