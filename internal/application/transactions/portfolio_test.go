package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shares-backend/internal/domain"
	"shares-backend/internal/testutil"
)

func leg(a domain.Asset, side domain.TradeSide, qty, price int64) domain.ShareTransaction {
	s := side
	return domain.ShareTransaction{
		AssetType: a.Type, AssetID: a.ID,
		Type: domain.TxTransfer, Side: &s,
		Quantity: qty, PricePerShare: decimal.NewFromInt(price),
	}
}

func TestBuildPortfolioAverageCost(t *testing.T) {
	a := domain.FundAsset(uuid.New())
	b := domain.CompanyAsset(uuid.New())
	history := []domain.ShareTransaction{
		leg(a, domain.SideBuy, 10, 4),  // cost 40
		leg(a, domain.SideBuy, 10, 6),  // cost 100, avg 5
		leg(a, domain.SideSell, 5, 8),  // realized 15, cost 75
		leg(b, domain.SideBuy, 2, 10),
		leg(b, domain.SideSell, 5, 12), // sells only the 2 held
	}
	quotes := map[domain.Asset]AssetQuote{
		a: {Name: "Alpha", SharePrice: decimal.NewFromInt(7)},
		b: {Name: "Beta", SharePrice: decimal.NewFromInt(9)},
	}

	p := BuildPortfolio(history, quotes)
	require.Len(t, p.Assets, 2)

	alpha := p.Assets[0]
	assert.Equal(t, "Alpha", alpha.Name)
	assert.Equal(t, int64(15), alpha.Quantity)
	assert.Equal(t, "75", alpha.Invested.String())
	assert.Equal(t, "5", alpha.AvgCost.String())
	assert.Equal(t, "105", alpha.Value.String())
	assert.Equal(t, "15", alpha.RealizedPnL.String())
	assert.Equal(t, "30", alpha.PnL.String())

	beta := p.Assets[1]
	assert.Equal(t, int64(0), beta.Quantity)
	assert.True(t, beta.Invested.IsZero())
	assert.Equal(t, "4", beta.RealizedPnL.String())

	assert.Equal(t, "105", p.Summary.TotalValue.String())
	assert.Equal(t, "75", p.Summary.TotalInvested.String())
	assert.Equal(t, "30", p.Summary.PnL.String())
	assert.Equal(t, "19", p.Summary.RealizedPnL.String())
}

func TestBuildPortfolioEmpty(t *testing.T) {
	p := BuildPortfolio(nil, nil)
	assert.Empty(t, p.Assets)
	assert.True(t, p.Summary.TotalValue.IsZero())
}

func TestServicePortfolioUsesCurrentPrices(t *testing.T) {
	db := testutil.NewDB(t)
	fund := testutil.SeedIssuedFund(t, db, 1000, 900)
	inv := testutil.SeedInvestor(t, db)
	_, _, err := AppendTransferPair(db, Transfer{
		From: domain.FundHolder(fund.ID), To: domain.InvestorHolder(inv.ID),
		Asset: domain.FundAsset(fund.ID), Quantity: 100, PricePerShare: decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	svc := &Service{DB: db}
	p, err := svc.Portfolio(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, p.Assets, 1)
	assert.Equal(t, fund.Name, p.Assets[0].Name)
	assert.Equal(t, "500", p.Assets[0].Value.String())
	assert.Equal(t, "100", p.Summary.PnL.String())
}
