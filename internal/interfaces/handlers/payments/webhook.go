package payments

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	paymentsvc "shares-backend/internal/application/payments"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *paymentsvc.Service
}

// CreateIntent POST /api/v1/trade-requests/:id/payment-intent
func (h *Handlers) CreateIntent(c *fiber.Ctx) error {
	p, ok := middleware.GetPerformer(c)
	if !ok {
		return response.FromError(c, apperrors.Forbidden("Session is missing a performer identity"))
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	intent, err := h.Service.CreateIntent(c.UserContext(), id, p)
	if errors.Is(err, paymentsvc.ErrNotConfigured) {
		return response.Error(c, err.Error(), fiber.StatusNotImplemented, nil)
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment intent created", intent, nil)
}

// Webhook POST /api/v1/stripe/webhook. Reads the raw body; no JSON parsing happens before verification.
func (h *Handlers) Webhook(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) == 0 {
		log.Warn().Msg("stripe webhook: empty body")
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: empty body")
	}
	sig := c.Get("Stripe-Signature")
	if err := h.Service.HandleWebhook(c.UserContext(), payload, sig); err != nil {
		if errors.Is(err, paymentsvc.ErrInvalidSignature) {
			log.Warn().Err(err).Bool("has_sig", sig != "").Msg("stripe webhook: signature verification failed")
			return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: " + err.Error())
		}
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
