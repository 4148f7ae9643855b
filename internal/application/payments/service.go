package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shares-backend/internal/application/trading"
	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/metrics"
	"shares-backend/internal/pkg/apperrors"
)

const metadataTradeRequestID = "trade_request_id"

// ErrInvalidSignature wraps every webhook verification failure.
var ErrInvalidSignature = errors.New("invalid webhook signature")

type Service struct {
	DB            *gorm.DB
	Trading       *trading.Service
	Intents       IntentCreator
	Currency      string
	WebhookSecret string
}

// AmountCents is numberOfShares * pricePerShare in the currency's minor unit.
func AmountCents(req *domain.TradeRequest) int64 {
	return req.TotalAmount().Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateIntent opens a Stripe PaymentIntent for the investor's own unpaid buy request.
func (s *Service) CreateIntent(ctx context.Context, requestID uuid.UUID, performer domain.Performer) (*Intent, error) {
	var req domain.TradeRequest
	err := s.DB.WithContext(ctx).Where("id = ?", requestID).Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Trade request not found")
	}
	if err != nil {
		return nil, err
	}
	if performer.Type != domain.PerformerInvestor || performer.ID != req.InvestorID {
		return nil, apperrors.Forbidden("Only the requesting investor can pay for this trade request")
	}
	if req.TradeType != domain.SideBuy {
		return nil, apperrors.InvalidTransition("Payments are only collected for buy requests")
	}
	if req.RequestStatus.Terminal() {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("Trade request is %s and can no longer be paid", req.RequestStatus))
	}
	if req.PaymentStatus == domain.PaymentPaid {
		return nil, apperrors.Conflict("Trade request is already paid")
	}
	amount := AmountCents(&req)
	if amount <= 0 {
		return nil, apperrors.Validation("pricePerShare", "Trade request total must be greater than zero")
	}
	if s.Intents == nil {
		return nil, ErrNotConfigured
	}

	intent, err := s.Intents.Create(ctx, amount, s.Currency, map[string]string{
		metadataTradeRequestID: req.ID.String(),
		"investor_id":          req.InvestorID.String(),
		"number_of_shares":     fmt.Sprint(req.NumberOfShares),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Trading.AttachPaymentIntent(ctx, req.ID, intent.ID); err != nil {
		return nil, err
	}
	return intent, nil
}

// HandleWebhook verifies a Stripe event and applies it. Only signature and parse
// failures are returned; processing failures are logged so Stripe stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	eventType := string(event.Type)
	if eventType != "payment_intent.succeeded" {
		metrics.StripeWebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return nil
	}
	var pi stripe.PaymentIntent
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &pi) != nil {
		metrics.StripeWebhookEvents.WithLabelValues(eventType, "malformed").Inc()
		log.Warn().Str("event_id", event.ID).Msg("stripe webhook: payment intent could not be decoded")
		return nil
	}

	outcome, err := s.paymentSucceeded(ctx, event.ID, &pi, payload)
	if err != nil {
		outcome = "error"
		log.Error().Err(err).Str("event_id", event.ID).Str("payment_intent_id", pi.ID).Msg("stripe webhook: processing failed")
	}
	metrics.StripeWebhookEvents.WithLabelValues(eventType, outcome).Inc()
	return nil
}

func (s *Service) paymentSucceeded(ctx context.Context, eventID string, pi *stripe.PaymentIntent, raw []byte) (string, error) {
	requestID, err := uuid.Parse(pi.Metadata[metadataTradeRequestID])
	if err != nil {
		return "skipped", nil
	}
	var req domain.TradeRequest
	err = s.DB.WithContext(ctx).Where("id = ?", requestID).Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().Str("trade_request_id", requestID.String()).Msg("stripe webhook: trade request not found")
		return "skipped", nil
	}
	if err != nil {
		return "", err
	}

	payment := &domain.Payment{
		StripePaymentIntentID: pi.ID,
		StripeEventID:         eventID,
		TradeRequestID:        req.ID,
		InvestorID:            req.InvestorID,
		AmountPaidCents:       pi.AmountReceived,
		Currency:              string(pi.Currency),
		Status:                string(pi.Status),
		RawPaymentIntent:      datatypes.JSON(raw),
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(payment)
	if res.Error != nil {
		return "", res.Error
	}
	duplicate := res.RowsAffected == 0

	if expected := AmountCents(&req); pi.AmountReceived < expected {
		log.Warn().
			Str("trade_request_id", req.ID.String()).
			Int64("expected_cents", expected).
			Int64("received_cents", pi.AmountReceived).
			Msg("stripe webhook: underpaid, payment status left unpaid")
		return "underpaid", nil
	}

	_, changed, err := s.Trading.MarkPaid(ctx, req.ID, "Stripe payment "+pi.ID+" succeeded")
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		log.Warn().
			Str("trade_request_id", req.ID.String()).
			Str("request_status", string(req.RequestStatus)).
			Msg("stripe webhook: request is terminal, payment recorded only")
		return "terminal", nil
	}
	if err != nil {
		return "", err
	}
	if !changed || duplicate {
		return "duplicate", nil
	}
	return "paid", nil
}
