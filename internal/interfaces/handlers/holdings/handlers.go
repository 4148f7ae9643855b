package holdings

import (
	"github.com/gofiber/fiber/v2"

	holdingsvc "shares-backend/internal/application/holdings"
	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *holdingsvc.Service
}

func filterFromQuery(c *fiber.Ctx) (holdingsvc.Filter, error) {
	var f holdingsvc.Filter
	var err error
	if f.HolderType, err = request.HolderTypeQuery(c, "holderType"); err != nil {
		return f, err
	}
	if f.HolderID, err = request.UUIDQuery(c, "holderId"); err != nil {
		return f, err
	}
	if f.AssetType, err = request.AssetTypeQuery(c, "assetType"); err != nil {
		return f, err
	}
	if f.AssetID, err = request.UUIDQuery(c, "assetId"); err != nil {
		return f, err
	}
	f.NonZero = c.QueryBool("nonZero", false)
	return f, nil
}

// List GET /api/v1/holdings?holderType=&holderId=&assetType=&assetId=&nonZero=
// Investors only ever see their own rows.
func (h *Handlers) List(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	if p, ok := middleware.GetPerformer(c); ok && p.Type == domain.PerformerInvestor {
		f.HolderType, f.HolderID = domain.HolderInvestor, p.ID
	}
	page, err := h.Service.List(c.UserContext(), f, pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Holdings fetched successfully", page)
}
