package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shares-backend/internal/application/holdings"
	"shares-backend/internal/application/notifications"
	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/metrics"
	"shares-backend/internal/pkg/apperrors"
)

// Notifier delivers investor notifications after a change has committed.
type Notifier interface {
	NotifyInvestor(ctx context.Context, investorID uuid.UUID, msg notifications.Message) error
}

// Service runs the trade request workflow and its settlement.
type Service struct {
	DB       *gorm.DB
	Resolver holdings.Resolver
	Notifier Notifier
}

type CreateInput struct {
	InvestorID     uuid.UUID
	TradeType      string
	AssetType      string
	AssetID        uuid.UUID
	NumberOfShares int64
	PricePerShare  *decimal.Decimal // defaults to the asset's sharePrice
	Description    string
}

// Create records a pending request. Only the investor may create a request for themselves.
func (s *Service) Create(ctx context.Context, in CreateInput, performer domain.Performer) (*domain.TradeRequest, error) {
	if performer.Type != domain.PerformerInvestor || performer.ID != in.InvestorID {
		return nil, apperrors.Forbidden("Investors can only create trade requests for themselves")
	}
	side := domain.TradeSide(in.TradeType)
	if side != domain.SideBuy && side != domain.SideSell {
		return nil, apperrors.Validation("tradeType", "tradeType must be buy or sell")
	}
	assetType, err := domain.ParseAssetType(in.AssetType)
	if err != nil {
		return nil, apperrors.Validation("assetType", "assetType must be company or fund")
	}
	if in.AssetID == uuid.Nil {
		return nil, apperrors.Validation("assetId", "assetId is required")
	}
	if in.NumberOfShares < 1 {
		return nil, apperrors.Validation("numberOfShares", "numberOfShares must be an integer >= 1")
	}
	if in.PricePerShare != nil && in.PricePerShare.IsNegative() {
		return nil, apperrors.Validation("pricePerShare", "pricePerShare must be >= 0")
	}

	asset := domain.Asset{Type: assetType, ID: in.AssetID}
	req := &domain.TradeRequest{
		InvestorID:     in.InvestorID,
		TradeType:      side,
		AssetType:      asset.Type,
		AssetID:        asset.ID,
		NumberOfShares: in.NumberOfShares,
		PaymentStatus:  domain.PaymentUnpaid,
		RequestStatus:  domain.StatusPending,
		Description:    strings.TrimSpace(in.Description),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Resolver.Holder(tx, domain.InvestorHolder(in.InvestorID)); err != nil {
			return err
		}
		issuer, err := s.Resolver.Issuer(tx, asset)
		if err != nil {
			return err
		}
		terms := issuer.Terms()
		if !terms.ShareIssued {
			return apperrors.InvalidTransition("Shares have not been issued for " + issuer.DisplayName())
		}
		if side == domain.SideBuy && (in.NumberOfShares < terms.MinInvestShare || in.NumberOfShares > terms.MaxInvestShare) {
			return apperrors.Validation("numberOfShares",
				fmt.Sprintf("numberOfShares must be between %d and %d", terms.MinInvestShare, terms.MaxInvestShare))
		}
		if side == domain.SideSell {
			held, err := holdings.On(tx).Balance(domain.InvestorHolder(in.InvestorID), asset)
			if err != nil {
				return err
			}
			if held < in.NumberOfShares {
				return apperrors.InsufficientBalance(held, in.NumberOfShares)
			}
		}
		req.PricePerShare = terms.SharePrice
		if in.PricePerShare != nil {
			req.PricePerShare = *in.PricePerShare
		}

		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return appendLog(tx, req.ID, domain.ActionCreated, performer, nil, domain.StatusPending, "")
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateInput patches a request through the generic update path. Nil fields are kept.
type UpdateInput struct {
	RequestStatus               *string
	PaymentStatus               *string
	RejectionReason             *string
	PaymentConfirmationDocument *string
	Description                 *string
}

// Update applies staff edits and non-confirm status transitions.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, performer domain.Performer) (*domain.TradeRequest, error) {
	var req domain.TradeRequest
	var previous domain.RequestStatus
	statusChanged := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRequest(tx, id, &req); err != nil {
			return err
		}
		previous = req.RequestStatus
		if previous == domain.StatusConfirmed {
			return apperrors.InvalidTransition("Confirmed trade requests cannot be edited")
		}

		next := previous
		if in.RequestStatus != nil {
			next = domain.RequestStatus(*in.RequestStatus)
			if next == domain.StatusConfirmed {
				return apperrors.InvalidTransition("Use the confirm endpoint to confirm a trade request")
			}
			if !next.Valid() {
				return apperrors.Validation("requestStatus", "Invalid requestStatus: "+*in.RequestStatus)
			}
		}
		statusChanged = next != previous
		if statusChanged && !previous.CanTransitionTo(next) {
			return apperrors.InvalidTransition(fmt.Sprintf("Invalid status transition: %s -> %s", previous, next))
		}
		if !statusChanged && previous.Terminal() {
			return apperrors.InvalidTransition("Rejected trade requests cannot be edited")
		}

		updates := map[string]interface{}{}
		note := ""
		if next == domain.StatusRejected && statusChanged {
			reason := ""
			if in.RejectionReason != nil {
				reason = strings.TrimSpace(*in.RejectionReason)
			}
			if reason == "" {
				return apperrors.Validation("rejectionReason", "rejectionReason is required when rejecting")
			}
			updates["rejection_reason"] = reason
			note = reason
		} else if in.RejectionReason != nil {
			return apperrors.Validation("rejectionReason", "rejectionReason can only be set when rejecting")
		}
		if in.PaymentStatus != nil {
			ps := domain.PaymentStatus(*in.PaymentStatus)
			if !ps.Valid() {
				return apperrors.Validation("paymentStatus", "paymentStatus must be unpaid or paid")
			}
			updates["payment_status"] = ps
		}
		if in.PaymentConfirmationDocument != nil {
			updates["payment_confirmation_document"] = strings.TrimSpace(*in.PaymentConfirmationDocument)
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if statusChanged {
			updates["request_status"] = next
		}
		if len(updates) == 0 {
			return apperrors.Validation("body", "No updatable fields provided")
		}

		// Guarded on the validated status; a concurrent transition leaves 0 rows.
		res := tx.Model(&domain.TradeRequest{}).
			Where("id = ? AND request_status = ?", id, previous).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("Trade request was modified concurrently, retry")
		}

		action := domain.ActionUpdated
		if statusChanged {
			action = domain.ActionFor(next)
		}
		if err := appendLog(tx, id, action, performer, &previous, next, note); err != nil {
			return err
		}
		return loadRequest(tx, id, &req)
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		reason := ""
		if req.RejectionReason != nil {
			reason = *req.RejectionReason
		}
		s.notify(ctx, req.InvestorID, notifications.Message{
			Event:   domain.NotificationSharesRequestUpdated,
			Kind:    domain.NotificationKindWarning,
			Title:   "Trade request updated",
			Message: fmt.Sprintf("Your %s request for %d shares is now %s.", req.TradeType, req.NumberOfShares, req.RequestStatus),
			Meta: map[string]interface{}{
				"tradeId":        req.ID,
				"reason":         reason,
				"previousStatus": previous,
				"newStatus":      req.RequestStatus,
			},
		})
	}
	return &req, nil
}

// Delete removes a request that has not been confirmed. Its log rows are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req domain.TradeRequest
		if err := loadRequest(tx, id, &req); err != nil {
			return err
		}
		if req.RequestStatus == domain.StatusConfirmed {
			return apperrors.InvalidTransition("Confirmed trade requests cannot be deleted")
		}
		res := tx.Where("id = ? AND request_status <> ?", id, domain.StatusConfirmed).Delete(&domain.TradeRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.InvalidTransition("Confirmed trade requests cannot be deleted")
		}
		return nil
	})
}

// AttachPaymentIntent stores the Stripe payment intent created for a request.
func (s *Service) AttachPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	return s.DB.WithContext(ctx).Model(&domain.TradeRequest{}).
		Where("id = ?", id).
		Update("stripe_payment_intent_id", intentID).Error
}

// MarkPaid sets paymentStatus=paid and logs it. Already-paid requests are left as they are;
// confirmed or rejected requests are refused with InvalidTransition.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, note string) (*domain.TradeRequest, bool, error) {
	var req domain.TradeRequest
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadRequest(tx, id, &req); err != nil {
			return err
		}
		if req.PaymentStatus == domain.PaymentPaid {
			return nil
		}
		if req.RequestStatus.Terminal() {
			return apperrors.InvalidTransition(fmt.Sprintf("Trade request is %s and can no longer be changed", req.RequestStatus))
		}
		res := tx.Model(&domain.TradeRequest{}).
			Where("id = ? AND payment_status = ?", id, domain.PaymentUnpaid).
			Update("payment_status", domain.PaymentPaid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		status := req.RequestStatus
		if err := appendLog(tx, id, domain.ActionUpdated, domain.SystemPerformer, &status, status, note); err != nil {
			return err
		}
		return loadRequest(tx, id, &req)
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.notify(ctx, req.InvestorID, notifications.Message{
			Event:   domain.NotificationSharesRequestPaid,
			Kind:    domain.NotificationKindInfo,
			Title:   "Payment received",
			Message: fmt.Sprintf("We received your payment for %d shares.", req.NumberOfShares),
			Meta:    map[string]interface{}{"tradeId": req.ID},
		})
	}
	return &req, changed, nil
}

func loadRequest(tx *gorm.DB, id uuid.UUID, req *domain.TradeRequest) error {
	err := tx.Where("id = ?", id).Take(req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("Trade request not found")
	}
	return err
}

func appendLog(tx *gorm.DB, requestID uuid.UUID, action domain.RequestAction, p domain.Performer, previous *domain.RequestStatus, next domain.RequestStatus, note string) error {
	return tx.Create(&domain.TradeRequestLog{
		TradeRequestID: requestID,
		Action:         action,
		PerformerType:  p.Type,
		PerformerID:    p.ID,
		PreviousStatus: previous,
		NewStatus:      next,
		Note:           note,
	}).Error
}

// notify runs after commit; a delivery failure is logged and never returned.
func (s *Service) notify(ctx context.Context, investorID uuid.UUID, msg notifications.Message) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyInvestor(ctx, investorID, msg); err != nil {
		metrics.NotificationFailures.Inc()
		log.Warn().Err(err).
			Str("investor_id", investorID.String()).
			Str("event", msg.Event).
			Msg("notification failed after commit")
	}
}
