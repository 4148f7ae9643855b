// Package request parses path, query and body input for handlers, reporting
// bad input as apperrors validation errors.
package request

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
)

// UUIDParam parses the named path parameter.
func UUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation(name, "Invalid UUID format for "+name)
	}
	return id, nil
}

// UUIDQuery parses an optional query parameter; an absent value returns uuid.Nil.
func UUIDQuery(c *fiber.Ctx, name string) (uuid.UUID, error) {
	v := c.Query(name)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, apperrors.Validation(name, "Invalid UUID format for "+name)
	}
	return id, nil
}

// Body decodes the JSON body into out.
func Body(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return apperrors.Validation("body", "Request body is required")
	}
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return apperrors.Validation("body", "Invalid request body")
	}
	return nil
}

// OnlyKeys rejects JSON object bodies carrying keys outside allowed.
func OnlyKeys(c *fiber.Ctx, allowed ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return apperrors.Validation("body", "Invalid request body")
	}
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	var unknown []string
	for k := range raw {
		if !ok[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return apperrors.Validation(unknown[0], "Unsupported fields: "+strings.Join(unknown, ", "))
}

// HolderTypeQuery parses an optional holderType query parameter.
func HolderTypeQuery(c *fiber.Ctx, name string) (domain.HolderType, error) {
	v := c.Query(name)
	if v == "" {
		return "", nil
	}
	t, err := domain.ParseHolderType(v)
	if err != nil {
		return "", apperrors.Validation(name, name+" must be investor, fund or company")
	}
	return t, nil
}

// AssetTypeQuery parses an optional assetType query parameter.
func AssetTypeQuery(c *fiber.Ctx, name string) (domain.AssetType, error) {
	v := c.Query(name)
	if v == "" {
		return "", nil
	}
	t, err := domain.ParseAssetType(v)
	if err != nil {
		return "", apperrors.Validation(name, name+" must be company or fund")
	}
	return t, nil
}
