package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/testutil"
)

var staff = domain.Performer{Type: domain.PerformerEmployee, ID: uuid.New()}

func TestCreateFundCreditsTreasury(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	fund, res, err := svc.CreateFund(ctx, CreateFundInput{Name: "Growth", Terms: testutil.Terms(1000)}, staff)
	require.NoError(t, err)
	assert.True(t, fund.ShareIssued)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, domain.FundHolder(fund.ID), res.Allocations[0].Holder)

	asset := domain.FundAsset(fund.ID)
	assert.Equal(t, int64(1000), testutil.Balance(t, db, asset.Treasury(), asset))

	var txs []domain.ShareTransaction
	require.NoError(t, db.Where("asset_id = ?", fund.ID).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxIssue, txs[0].Type)
	assert.Equal(t, int64(1000), txs[0].Quantity)

	var logs []domain.EntityLog
	require.NoError(t, db.Where("entity_id = ?", fund.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.EntityActionIssueShares, logs[0].Action)
	var changes map[string]domain.FieldChange
	require.NoError(t, json.Unmarshal(logs[0].Changes, &changes))
	assert.Equal(t, true, changes["shareIssued"].To)

	view, err := svc.GetFund(ctx, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), view.TreasuryShares)
	assert.True(t, view.ShareIssued)
}

func TestCreateFundValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}

	cases := []struct {
		field string
		mut   func(*domain.InvestTerms)
	}{
		{"sharePrice", func(t *domain.InvestTerms) { t.SharePrice = decimal.Zero }},
		{"initialShares", func(t *domain.InvestTerms) { t.InitialShares = 0 }},
		{"minInvestShare", func(t *domain.InvestTerms) { t.MinInvestShare = 0 }},
		{"minInvestShare", func(t *domain.InvestTerms) { t.MinInvestShare = 50; t.MaxInvestShare = 10 }},
		{"maxInvestShare", func(t *domain.InvestTerms) { t.MaxInvestShare = 2000 }},
	}
	for _, tc := range cases {
		terms := testutil.Terms(1000)
		tc.mut(&terms)
		_, _, err := svc.CreateFund(context.Background(), CreateFundInput{Name: "F-" + uuid.NewString(), Terms: terms}, staff)
		e, ok := apperrors.As(err)
		require.True(t, ok, tc.field)
		assert.Equal(t, apperrors.KindValidation, e.Kind)
		assert.Equal(t, tc.field, e.Details["field"])
	}

	var count int64
	require.NoError(t, db.Model(&domain.Fund{}).Count(&count).Error)
	assert.Zero(t, count, "no partial writes")
}

func TestCreateFundDuplicateNameConflicts(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	_, _, err := svc.CreateFund(context.Background(), CreateFundInput{Name: "Dup", Terms: testutil.Terms(10)}, staff)
	require.NoError(t, err)
	_, _, err = svc.CreateFund(context.Background(), CreateFundInput{Name: "Dup", Terms: testutil.Terms(10)}, staff)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestIssueCompanyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	owner := testutil.SeedInvestor(t, db)

	company, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Acme", CountryCode: "us"}, staff)
	require.NoError(t, err)
	assert.False(t, company.ShareIssued)
	assert.Equal(t, "US", company.CountryCode)

	owners := []OwnerAllocation{{InvestorID: owner.ID, Shares: 300}}
	issued, res, err := svc.IssueCompany(ctx, company.ID, testutil.Terms(1000), owners, staff)
	require.NoError(t, err)
	assert.True(t, issued.ShareIssued)
	assert.Len(t, res.Allocations, 2)

	asset := domain.CompanyAsset(company.ID)
	assert.Equal(t, int64(300), testutil.Balance(t, db, domain.InvestorHolder(owner.ID), asset))
	assert.Equal(t, int64(700), testutil.Balance(t, db, domain.CompanyHolder(company.ID), asset))

	_, _, err = svc.IssueCompany(ctx, company.ID, testutil.Terms(5000), nil, staff)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, int64(700), testutil.Balance(t, db, domain.CompanyHolder(company.ID), asset), "first issuance untouched")

	var issueTxs int64
	require.NoError(t, db.Model(&domain.ShareTransaction{}).Where("asset_id = ? AND type = ?", company.ID, domain.TxIssue).Count(&issueTxs).Error)
	assert.Equal(t, int64(2), issueTxs)
}

func TestIssueCompanyRollsBackOnUnknownOwner(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	company, err := svc.CreateCompany(ctx, CreateCompanyInput{Name: "Ghost"}, staff)
	require.NoError(t, err)

	_, _, err = svc.IssueCompany(ctx, company.ID, testutil.Terms(100), []OwnerAllocation{{InvestorID: uuid.New(), Shares: 10}}, staff)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	view, err := svc.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.False(t, view.ShareIssued)
	assert.Zero(t, view.TreasuryShares)
}

func TestIssueCompanyOwnerValidation(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	id := uuid.New()
	_, _, err := svc.IssueCompany(context.Background(), uuid.New(), testutil.Terms(10), []OwnerAllocation{{InvestorID: id, Shares: 11}}, staff)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, _, err = svc.IssueCompany(context.Background(), uuid.New(), testutil.Terms(10), []OwnerAllocation{{InvestorID: id, Shares: 1}, {InvestorID: id, Shares: 1}}, staff)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, _, err = svc.IssueCompany(context.Background(), uuid.New(), testutil.Terms(10), nil, staff)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUpdateInvestInfo(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	fund, _, err := svc.CreateFund(ctx, CreateFundInput{Name: "Income", Terms: testutil.Terms(100)}, staff)
	require.NoError(t, err)
	asset := domain.FundAsset(fund.ID)

	price := decimal.NewFromInt(9)
	max := int64(50)
	updated, err := svc.UpdateInvestInfo(ctx, asset, InvestInfoPatch{SharePrice: &price, MaxInvestShare: &max}, staff)
	require.NoError(t, err)
	assert.True(t, updated.Terms().SharePrice.Equal(price))
	assert.Equal(t, int64(50), updated.Terms().MaxInvestShare)

	_, err = svc.UpdateInvestInfo(ctx, asset, InvestInfoPatch{SharePrice: &price}, staff)
	require.NoError(t, err)

	logs, err := svc.ListEntityLogs(ctx, EntityLogFilter{EntityID: fund.ID, Action: domain.EntityActionUpdateInvestInfo}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), logs.Total, "no-op patch writes no log")

	tooBig := int64(101)
	_, err = svc.UpdateInvestInfo(ctx, asset, InvestInfoPatch{MaxInvestShare: &tooBig}, staff)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestListFundsKeyword(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()
	for _, name := range []string{"Alpha Growth", "Beta Income", "alpha value"} {
		_, _, err := svc.CreateFund(ctx, CreateFundInput{Name: name, Terms: testutil.Terms(10)}, staff)
		require.NoError(t, err)
	}
	page, err := svc.ListFunds(ctx, "ALPHA", pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
