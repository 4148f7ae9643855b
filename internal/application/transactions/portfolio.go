package transactions

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shares-backend/internal/domain"
)

// AssetQuote is the current price and display name of an asset.
type AssetQuote struct {
	Name       string
	SharePrice decimal.Decimal
}

type PortfolioAsset struct {
	AssetType    domain.AssetType `json:"assetType"`
	AssetID      uuid.UUID        `json:"assetId"`
	Name         string           `json:"name"`
	Quantity     int64            `json:"quantity"`
	AvgCost      decimal.Decimal  `json:"avgCost"`
	Invested     decimal.Decimal  `json:"invested"`
	SharePrice   decimal.Decimal  `json:"sharePrice"`
	Value        decimal.Decimal  `json:"value"`
	PnL          decimal.Decimal  `json:"pnl"`
	RealizedPnL  decimal.Decimal  `json:"realizedPnL"`
	Transactions int              `json:"transactions"`
}

type PortfolioSummary struct {
	TotalValue    decimal.Decimal `json:"totalValue"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	PnL           decimal.Decimal `json:"pnl"`
	RealizedPnL   decimal.Decimal `json:"realizedPnL"`
}

type Portfolio struct {
	Summary PortfolioSummary `json:"summary"`
	Assets  []PortfolioAsset `json:"assets"`
}

type position struct {
	qty      int64
	cost     decimal.Decimal
	realized decimal.Decimal
	count    int
}

// BuildPortfolio folds an investor's history into weighted average-cost positions.
// Buys (and ISSUE credits) add quantity and cost; sells remove at most the held
// quantity at the running average cost and accrue realized PnL.
func BuildPortfolio(history []domain.ShareTransaction, quotes map[domain.Asset]AssetQuote) Portfolio {
	positions := map[domain.Asset]*position{}
	var order []domain.Asset

	for _, tx := range history {
		a := tx.Asset()
		p, ok := positions[a]
		if !ok {
			p = &position{}
			positions[a] = p
			order = append(order, a)
		}
		p.count++
		qty := decimal.NewFromInt(tx.Quantity)

		if isInflow(tx) {
			p.qty += tx.Quantity
			p.cost = p.cost.Add(qty.Mul(tx.PricePerShare))
			continue
		}

		sellQty := tx.Quantity
		if sellQty > p.qty {
			sellQty = p.qty
		}
		if sellQty > 0 {
			avg := p.cost.Div(decimal.NewFromInt(p.qty))
			sq := decimal.NewFromInt(sellQty)
			p.realized = p.realized.Add(sq.Mul(tx.PricePerShare.Sub(avg)))
			p.cost = p.cost.Sub(sq.Mul(avg))
			p.qty -= sellQty
		}
		if p.qty <= 0 {
			p.qty = 0
			p.cost = decimal.Zero
		}
	}

	out := Portfolio{Assets: []PortfolioAsset{}}
	for _, a := range order {
		p := positions[a]
		q := quotes[a]
		value := q.SharePrice.Mul(decimal.NewFromInt(p.qty))
		avg := decimal.Zero
		if p.qty > 0 {
			avg = p.cost.Div(decimal.NewFromInt(p.qty)).Round(4)
		}
		out.Assets = append(out.Assets, PortfolioAsset{
			AssetType:    a.Type,
			AssetID:      a.ID,
			Name:         q.Name,
			Quantity:     p.qty,
			AvgCost:      avg,
			Invested:     p.cost,
			SharePrice:   q.SharePrice,
			Value:        value,
			PnL:          value.Sub(p.cost),
			RealizedPnL:  p.realized,
			Transactions: p.count,
		})
		out.Summary.TotalValue = out.Summary.TotalValue.Add(value)
		out.Summary.TotalInvested = out.Summary.TotalInvested.Add(p.cost)
		out.Summary.RealizedPnL = out.Summary.RealizedPnL.Add(p.realized)
	}
	out.Summary.PnL = out.Summary.TotalValue.Sub(out.Summary.TotalInvested)

	sort.SliceStable(out.Assets, func(i, j int) bool {
		return out.Assets[i].Value.GreaterThan(out.Assets[j].Value)
	})
	return out
}

func isInflow(tx domain.ShareTransaction) bool {
	switch tx.Type {
	case domain.TxIssue:
		return true
	case domain.TxRedeem:
		return false
	}
	return tx.Side == nil || *tx.Side == domain.SideBuy
}

// Portfolio loads an investor's history and prices it at current share prices.
func (s *Service) Portfolio(ctx context.Context, investorID uuid.UUID) (Portfolio, error) {
	history, err := s.History(ctx, investorID)
	if err != nil {
		return Portfolio{}, err
	}

	var fundIDs, companyIDs []uuid.UUID
	for _, tx := range history {
		switch tx.AssetType {
		case domain.AssetFund:
			fundIDs = append(fundIDs, tx.AssetID)
		case domain.AssetCompany:
			companyIDs = append(companyIDs, tx.AssetID)
		}
	}

	quotes := map[domain.Asset]AssetQuote{}
	if len(fundIDs) > 0 {
		var funds []domain.Fund
		if err := s.DB.WithContext(ctx).Unscoped().Where("id IN ?", fundIDs).Find(&funds).Error; err != nil {
			return Portfolio{}, err
		}
		for _, f := range funds {
			quotes[domain.FundAsset(f.ID)] = AssetQuote{Name: f.Name, SharePrice: f.SharePrice}
		}
	}
	if len(companyIDs) > 0 {
		var companies []domain.Company
		if err := s.DB.WithContext(ctx).Unscoped().Where("id IN ?", companyIDs).Find(&companies).Error; err != nil {
			return Portfolio{}, err
		}
		for _, c := range companies {
			quotes[domain.CompanyAsset(c.ID)] = AssetQuote{Name: c.Name, SharePrice: c.SharePrice}
		}
	}

	return BuildPortfolio(history, quotes), nil
}
