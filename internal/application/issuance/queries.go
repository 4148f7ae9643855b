package issuance

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shares-backend/internal/application/holdings"
	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
)

// FundView is a fund with its current treasury balance.
type FundView struct {
	domain.Fund
	TreasuryShares int64 `json:"treasuryShares"`
}

// CompanyView is a company with its current treasury balance.
type CompanyView struct {
	domain.Company
	TreasuryShares int64 `json:"treasuryShares"`
}

func (s *Service) GetFund(ctx context.Context, id uuid.UUID) (*FundView, error) {
	var f domain.Fund
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Fund not found")
		}
		return nil, err
	}
	bal, err := holdings.On(s.DB.WithContext(ctx)).Balance(f.AssetRef().Treasury(), f.AssetRef())
	if err != nil {
		return nil, err
	}
	return &FundView{Fund: f, TreasuryShares: bal}, nil
}

func (s *Service) GetCompany(ctx context.Context, id uuid.UUID) (*CompanyView, error) {
	var c domain.Company
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Company not found")
		}
		return nil, err
	}
	bal, err := holdings.On(s.DB.WithContext(ctx)).Balance(c.AssetRef().Treasury(), c.AssetRef())
	if err != nil {
		return nil, err
	}
	return &CompanyView{Company: c, TreasuryShares: bal}, nil
}

func keywordScope(keyword string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		k := strings.TrimSpace(keyword)
		if k == "" {
			return db
		}
		return db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(k)+"%")
	}
}

func listPage[T any](ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, p pagination.Params) (pagination.Page[T], error) {
	page := pagination.Page[T]{Params: p, Items: []T{}}
	var model T
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.WithContext(gctx).Model(&model).Scopes(scope).Count(&page.Total).Error
	})
	g.Go(func() error {
		return db.WithContext(gctx).Scopes(scope).
			Order(`"createdAt" DESC`).
			Limit(p.Limit).Offset(p.Offset()).
			Find(&page.Items).Error
	})
	return page, g.Wait()
}

func (s *Service) ListFunds(ctx context.Context, keyword string, p pagination.Params) (pagination.Page[domain.Fund], error) {
	return listPage[domain.Fund](ctx, s.DB, keywordScope(keyword), p)
}

func (s *Service) ListCompanies(ctx context.Context, keyword string, p pagination.Params) (pagination.Page[domain.Company], error) {
	return listPage[domain.Company](ctx, s.DB, keywordScope(keyword), p)
}

// EntityLogFilter narrows the entity log listing. Zero fields are ignored.
type EntityLogFilter struct {
	EntityType domain.AssetType
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	Action     string
}

func (f EntityLogFilter) scope(db *gorm.DB) *gorm.DB {
	if f.EntityType != "" {
		db = db.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != uuid.Nil {
		db = db.Where("entity_id = ?", f.EntityID)
	}
	if f.ActorID != uuid.Nil {
		db = db.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	return db
}

func (s *Service) ListEntityLogs(ctx context.Context, f EntityLogFilter, p pagination.Params) (pagination.Page[domain.EntityLog], error) {
	return listPage[domain.EntityLog](ctx, s.DB, f.scope, p)
}
