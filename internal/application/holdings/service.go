package holdings

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/pagination"
)

// Service encapsulates holdings reads outside of a settlement transaction.
type Service struct {
	DB *gorm.DB
}

// Filter narrows a holdings listing. Zero fields are ignored.
type Filter struct {
	HolderType domain.HolderType
	HolderID   uuid.UUID
	AssetType  domain.AssetType
	AssetID    uuid.UUID
	NonZero    bool
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
	if f.NonZero {
		db = db.Where("shares > 0")
	}
	return db
}

// List returns one page of holdings matching f, largest balances first.
func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) (pagination.Page[domain.Holding], error) {
	page := pagination.Page[domain.Holding]{Params: p, Items: []domain.Holding{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&domain.Holding{}).Scopes(f.scope).Count(&page.Total).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Scopes(f.scope).
			Order("shares DESC").Order(`"createdAt" ASC`).
			Limit(p.Limit).Offset(p.Offset()).
			Find(&page.Items).Error
	})
	if err := g.Wait(); err != nil {
		return page, err
	}
	return page, nil
}

// Balance reads the current balance of one pair.
func (s *Service) Balance(ctx context.Context, h domain.Holder, a domain.Asset) (int64, error) {
	return On(s.DB.WithContext(ctx)).Balance(h, a)
}

// ForAsset returns every non-zero holding of an asset.
func (s *Service) ForAsset(ctx context.Context, a domain.Asset) ([]domain.Holding, error) {
	var rows []domain.Holding
	err := s.DB.WithContext(ctx).
		Scopes(Filter{AssetType: a.Type, AssetID: a.ID, NonZero: true}.scope).
		Order("shares DESC").
		Find(&rows).Error
	return rows, err
}
