package trading

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shares-backend/internal/application/holdings"
	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/pagination"
)

// Filter narrows a trade request listing. Zero fields are ignored.
type Filter struct {
	InvestorID    uuid.UUID
	TradeType     string
	RequestStatus string
	PaymentStatus string
	AssetType     string
	AssetID       uuid.UUID
	Keyword       string // matched against description
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.InvestorID != uuid.Nil {
		db = db.Where("investor_id = ?", f.InvestorID)
	}
	if f.TradeType != "" {
		db = db.Where("trade_type = ?", f.TradeType)
	}
	if f.RequestStatus != "" {
		db = db.Where("request_status = ?", f.RequestStatus)
	}
	if f.PaymentStatus != "" {
		db = db.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.AssetType != "" {
		db = db.Where("asset_type = ?", f.AssetType)
	}
	if f.AssetID != uuid.Nil {
		db = db.Where("asset_id = ?", f.AssetID)
	}
	if k := strings.TrimSpace(f.Keyword); k != "" {
		db = db.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(k)+"%")
	}
	return db
}

func (s *Service) List(ctx context.Context, f Filter, p pagination.Params) (pagination.Page[domain.TradeRequest], error) {
	page := pagination.Page[domain.TradeRequest]{Params: p, Items: []domain.TradeRequest{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&domain.TradeRequest{}).Scopes(f.scope).Count(&page.Total).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Scopes(f.scope).
			Order(`"createdAt" DESC`).
			Limit(p.Limit).Offset(p.Offset()).
			Find(&page.Items).Error
	})
	return page, g.Wait()
}

func (s *Service) ListByInvestor(ctx context.Context, investorID uuid.UUID, f Filter, p pagination.Params) (pagination.Page[domain.TradeRequest], error) {
	f.InvestorID = investorID
	return s.List(ctx, f, p)
}

// Detail is a request with its audit trail, settlement rows and the giver's current balance.
type Detail struct {
	Request      domain.TradeRequest       `json:"request"`
	Logs         []domain.TradeRequestLog  `json:"logs"`
	Transactions []domain.ShareTransaction `json:"transactions"`
	GiverHolding int64                     `json:"giverHolding"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	db := s.DB.WithContext(ctx)
	d := &Detail{Logs: []domain.TradeRequestLog{}, Transactions: []domain.ShareTransaction{}}
	if err := loadRequest(db, id, &d.Request); err != nil {
		return nil, err
	}
	if err := db.Where("trade_request_id = ?", id).Order(`"createdAt" ASC`).Find(&d.Logs).Error; err != nil {
		return nil, err
	}
	if err := db.Where("trade_request_id = ?", id).Order("side DESC").Find(&d.Transactions).Error; err != nil {
		return nil, err
	}
	giver, _ := parties(&d.Request)
	bal, err := holdings.On(db).Balance(giver, d.Request.Asset())
	if err != nil {
		return nil, err
	}
	d.GiverHolding = bal
	return d, nil
}
