package transactions

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/pagination"
)

type Service struct {
	DB *gorm.DB
}

// Filter narrows transaction history. Zero fields are ignored.
type Filter struct {
	HolderType     domain.HolderType
	HolderID       uuid.UUID
	AssetType      domain.AssetType
	AssetID        uuid.UUID
	Type           domain.TransactionType
	TradeRequestID uuid.UUID
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.HolderType != "" {
		db = db.Where("holder_type = ?", f.HolderType)
	}
	if f.HolderID != uuid.Nil {
		db = db.Where("holder_id = ?", f.HolderID)
	}
	if f.AssetType != "" {
		db = db.Where("asset_type = ?", f.AssetType)
	}
	if f.AssetID != uuid.Nil {
		db = db.Where("asset_id = ?", f.AssetID)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.TradeRequestID != uuid.Nil {
		db = db.Where("trade_request_id = ?", f.TradeRequestID)
	}
	return db
}

// List returns one page of history, newest first.
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) (pagination.Page[domain.ShareTransaction], error) {
	page := pagination.Page[domain.ShareTransaction]{Params: p, Items: []domain.ShareTransaction{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&domain.ShareTransaction{}).Scopes(f.scope).Count(&page.Total).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Scopes(f.scope).
			Order(`"createdAt" DESC`).
			Limit(p.Limit).Offset(p.Offset()).
			Find(&page.Items).Error
	})
	return page, g.Wait()
}

// ForTradeRequest returns the settlement rows of a request, sell first.
func (s *Service) ForTradeRequest(ctx context.Context, requestID uuid.UUID) ([]domain.ShareTransaction, error) {
	var rows []domain.ShareTransaction
	err := s.DB.WithContext(ctx).
		Where("trade_request_id = ?", requestID).
		Order("side DESC").
		Find(&rows).Error
	return rows, err
}

// History returns every entry of an investor in chronological order.
func (s *Service) History(ctx context.Context, investorID uuid.UUID) ([]domain.ShareTransaction, error) {
	var rows []domain.ShareTransaction
	err := s.DB.WithContext(ctx).
		Where("holder_type = ? AND holder_id = ?", domain.HolderInvestor, investorID).
		Order(`"createdAt" ASC`).
		Find(&rows).Error
	return rows, err
}
