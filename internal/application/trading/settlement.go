package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"shares-backend/internal/application/holdings"
	"shares-backend/internal/application/notifications"
	"shares-backend/internal/application/transactions"
	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/metrics"
	"shares-backend/internal/pkg/apperrors"
)

// Settlement is the outcome of a confirm call.
type Settlement struct {
	Request          *domain.TradeRequest     `json:"request"`
	SellTx           *domain.ShareTransaction `json:"sellTx"`
	BuyTx            *domain.ShareTransaction `json:"buyTx"`
	AlreadyConfirmed bool                     `json:"alreadyConfirmed"`
}

// parties returns giver and receiver for a request. A buy moves shares from the
// asset treasury to the investor; a sell moves them back.
func parties(req *domain.TradeRequest) (giver, receiver domain.Holder) {
	investor := domain.InvestorHolder(req.InvestorID)
	treasury := req.Asset().Treasury()
	if req.TradeType == domain.SideSell {
		return investor, treasury
	}
	return treasury, investor
}

// Confirm settles an approved or check_payment request: it moves the shares,
// writes the mirrored ledger rows, flips the request to confirmed and logs it,
// all in one transaction. Confirming an already confirmed request returns the
// existing settlement without touching the ledger.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, performer domain.Performer) (*Settlement, error) {
	result, err := s.confirm(ctx, id, performer)
	switch {
	case err == nil && result.AlreadyConfirmed:
		metrics.SettlementsTotal.WithLabelValues("already_confirmed").Inc()
		return result.Settlement, nil
	case err == nil:
		metrics.SettlementsTotal.WithLabelValues("confirmed").Inc()
		metrics.SharesSettled.WithLabelValues(string(result.Request.AssetType)).Add(float64(result.Request.NumberOfShares))
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		metrics.SettlementsTotal.WithLabelValues("insufficient_balance").Inc()
		return nil, err
	case errors.Is(err, apperrors.ErrInvalidTransition):
		metrics.SettlementsTotal.WithLabelValues("invalid_transition").Inc()
		return nil, err
	default:
		metrics.SettlementsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	req := result.Request
	log.Info().
		Str("trade_request_id", req.ID.String()).
		Str("asset", req.Asset().String()).
		Int64("quantity", req.NumberOfShares).
		Msg("trade request confirmed")

	s.notify(ctx, req.InvestorID, notifications.Message{
		Event:   domain.NotificationSharesRequestConfirmed,
		Kind:    domain.NotificationKindSuccess,
		Title:   "Trade request confirmed",
		Message: fmt.Sprintf("Your %s of %d shares has been confirmed and transferred.", req.TradeType, req.NumberOfShares),
		Meta: map[string]interface{}{
			"tradeId":        req.ID,
			"previousStatus": result.previous,
			"newStatus":      domain.StatusConfirmed,
		},
	})
	return result.Settlement, nil
}

type confirmResult struct {
	*Settlement
	previous domain.RequestStatus
}

func (s *Service) confirm(ctx context.Context, id uuid.UUID, performer domain.Performer) (*confirmResult, error) {
	out := &confirmResult{Settlement: &Settlement{}}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req domain.TradeRequest
		if err := loadRequest(tx, id, &req); err != nil {
			return err
		}
		if req.RequestStatus == domain.StatusConfirmed {
			return s.existing(tx, &req, out.Settlement)
		}
		if !req.RequestStatus.Confirmable() {
			return apperrors.InvalidTransition(fmt.Sprintf("Cannot confirm a trade request in status %s", req.RequestStatus))
		}
		previous := req.RequestStatus

		// Claim the request first. Only one concurrent confirm can move it out of
		// its current status; the others reload and see it confirmed.
		res := tx.Model(&domain.TradeRequest{}).
			Where("id = ? AND request_status = ?", id, previous).
			Update("request_status", domain.StatusConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := loadRequest(tx, id, &req); err != nil {
				return err
			}
			if req.RequestStatus == domain.StatusConfirmed {
				return s.existing(tx, &req, out.Settlement)
			}
			return apperrors.InvalidTransition(fmt.Sprintf("Cannot confirm a trade request in status %s", req.RequestStatus))
		}

		asset := req.Asset()
		giver, receiver := parties(&req)
		ledger := holdings.On(tx)
		if err := ledger.Ensure(giver, asset); err != nil {
			return err
		}
		if err := ledger.Ensure(receiver, asset); err != nil {
			return err
		}
		if err := ledger.Lock(asset, giver, receiver); err != nil {
			return err
		}
		ok, err := ledger.GuardedDecrement(giver, asset, req.NumberOfShares)
		if err != nil {
			return err
		}
		if !ok {
			available, err := ledger.Balance(giver, asset)
			if err != nil {
				return err
			}
			return apperrors.InsufficientBalance(available, req.NumberOfShares)
		}
		if err := ledger.Increment(receiver, asset, req.NumberOfShares); err != nil {
			return err
		}

		sellNote, buyNote := "Confirmed trade - fund sold shares", "Confirmed trade - investor bought shares"
		if asset.Type == domain.AssetCompany {
			sellNote = "Confirmed trade - company sold shares"
		}
		if req.TradeType == domain.SideSell {
			sellNote, buyNote = "Confirmed trade - investor sold shares", "Confirmed trade - treasury bought back shares"
		}
		reqID := req.ID
		sellTx, buyTx, err := transactions.AppendTransferPair(tx, transactions.Transfer{
			From:           giver,
			To:             receiver,
			Asset:          asset,
			Quantity:       req.NumberOfShares,
			PricePerShare:  req.PricePerShare,
			TradeRequestID: &reqID,
			SellNote:       sellNote,
			BuyNote:        buyNote,
		})
		if err != nil {
			return err
		}

		if err := appendLog(tx, req.ID, domain.ActionConfirmed, performer, &previous, domain.StatusConfirmed, ""); err != nil {
			return err
		}
		if err := loadRequest(tx, id, &req); err != nil {
			return err
		}
		out.Request, out.SellTx, out.BuyTx = &req, sellTx, buyTx
		out.previous = previous
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// existing fills a settlement from the rows a previous confirm wrote.
func (s *Service) existing(tx *gorm.DB, req *domain.TradeRequest, out *Settlement) error {
	var rows []domain.ShareTransaction
	if err := tx.Where("trade_request_id = ? AND type = ?", req.ID, domain.TxTransfer).Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		switch {
		case rows[i].Side == nil:
		case *rows[i].Side == domain.SideSell:
			out.SellTx = &rows[i]
		case *rows[i].Side == domain.SideBuy:
			out.BuyTx = &rows[i]
		}
	}
	out.Request = req
	out.AlreadyConfirmed = true
	return nil
}
