package transactions

import (
	"github.com/gofiber/fiber/v2"

	txsvc "shares-backend/internal/application/transactions"
	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *txsvc.Service
}

func filterFromQuery(c *fiber.Ctx) (txsvc.Filter, error) {
	var f txsvc.Filter
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
	if f.TradeRequestID, err = request.UUIDQuery(c, "tradeRequestId"); err != nil {
		return f, err
	}
	if v := c.Query("type"); v != "" {
		f.Type = domain.TransactionType(v)
		if !f.Type.Valid() {
			return f, apperrors.Validation("type", "type must be ISSUE, TRANSFER, ADJUST or REDEEM")
		}
	}
	return f, nil
}

// List GET /api/v1/transactions
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
	return response.Paginated(c, "Transactions fetched successfully", page)
}
