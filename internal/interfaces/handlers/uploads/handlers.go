package uploads

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	tradesvc "shares-backend/internal/application/trading"
	uploadsvc "shares-backend/internal/application/uploads"
	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

// Handlers bundles upload handlers with the services they need.
type Handlers struct {
	Service *uploadsvc.Service
	Trading *tradesvc.Service
}

type paymentDocRequest struct {
	TradeRequestID uuid.UUID `json:"tradeRequestId"`
	FileName       string    `json:"fileName"`
}

// PaymentDoc POST /api/v1/uploads/payment-doc
func (h *Handlers) PaymentDoc(c *fiber.Ctx) error {
	var req paymentDocRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.TradeRequestID == uuid.Nil {
		return response.FromError(c, apperrors.Validation("tradeRequestId", "tradeRequestId is required"))
	}

	d, err := h.Trading.Get(c.UserContext(), req.TradeRequestID)
	if err != nil {
		return response.FromError(c, err)
	}
	if p, ok := middleware.GetPerformer(c); ok && p.Type == domain.PerformerInvestor && p.ID != d.Request.InvestorID {
		return response.FromError(c, apperrors.Forbidden("Investors can only upload documents for their own trade requests"))
	}
	if d.Request.RequestStatus == domain.StatusConfirmed || d.Request.RequestStatus == domain.StatusRejected {
		return response.FromError(c, apperrors.InvalidTransition("Trade request is closed"))
	}

	res, err := h.Service.PaymentDocumentURL(c.UserContext(), req.TradeRequestID, req.FileName)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return response.FromError(c, err)
		}
		log.Error().Err(err).Str("trade_request_id", req.TradeRequestID.String()).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
