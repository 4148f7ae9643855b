package holdings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/testutil"
)

func TestEnsureIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	h := domain.InvestorHolder(uuid.New())
	a := domain.FundAsset(uuid.New())

	l := On(db)
	require.NoError(t, l.Ensure(h, a))
	require.NoError(t, l.Increment(h, a, 7))
	require.NoError(t, l.Ensure(h, a))

	bal, err := l.Balance(h, a)
	require.NoError(t, err)
	assert.Equal(t, int64(7), bal)

	var count int64
	require.NoError(t, db.Model(&domain.Holding{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreditInitialConflictsOnExistingRow(t *testing.T) {
	db := testutil.NewDB(t)
	fundID := uuid.New()
	h, a := domain.FundHolder(fundID), domain.FundAsset(fundID)

	l := On(db)
	require.NoError(t, l.CreditInitial(h, a, 1000))
	err := l.CreditInitial(h, a, 1000)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	bal, _ := l.Balance(h, a)
	assert.Equal(t, int64(1000), bal)
}

func TestGuardedDecrement(t *testing.T) {
	db := testutil.NewDB(t)
	fundID := uuid.New()
	h, a := domain.FundHolder(fundID), domain.FundAsset(fundID)
	testutil.SeedHolding(t, db, h, a, 50)
	l := On(db)

	ok, err := l.GuardedDecrement(h, a, 100)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(50), testutil.Balance(t, db, h, a))

	ok, err = l.GuardedDecrement(h, a, 50)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), testutil.Balance(t, db, h, a))

	ok, err = l.GuardedDecrement(h, a, 1)
	require.NoError(t, err)
	assert.False(t, ok, "never goes below zero")

	ok, err = l.GuardedDecrement(domain.InvestorHolder(uuid.New()), a, 1)
	require.NoError(t, err)
	assert.False(t, ok, "missing row is a failed decrement")
}

func TestGuardedDecrementRejectsNonPositive(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := On(db).GuardedDecrement(domain.FundHolder(uuid.New()), domain.FundAsset(uuid.New()), 0)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestIncrementRequiresRow(t *testing.T) {
	db := testutil.NewDB(t)
	err := On(db).Increment(domain.InvestorHolder(uuid.New()), domain.FundAsset(uuid.New()), 3)
	assert.Error(t, err)
}

func TestLockOrderIsDirectionIndependent(t *testing.T) {
	fund := domain.FundHolder(uuid.New())
	investor := domain.InvestorHolder(uuid.New())
	other := domain.InvestorHolder(uuid.New())

	buy := LockOrder(fund, investor)
	sell := LockOrder(investor, fund)
	assert.Equal(t, buy, sell)
	assert.Equal(t, fund, buy[0])
	assert.Equal(t, LockOrder(investor, other), LockOrder(other, investor))

	db := testutil.NewDB(t)
	a := domain.FundAsset(uuid.New())
	l := On(db)
	require.NoError(t, l.Ensure(fund, a))
	require.NoError(t, l.Ensure(investor, a))
	assert.NoError(t, l.Lock(a, investor, fund))
}

func TestLedgerRollsBackWithTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	fundID := uuid.New()
	h, a := domain.FundHolder(fundID), domain.FundAsset(fundID)
	testutil.SeedHolding(t, db, h, a, 10)

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		ok, err := On(tx).GuardedDecrement(h, a, 4)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(10), testutil.Balance(t, db, h, a))
}

func TestServiceListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := &Service{DB: db}
	fund := domain.FundAsset(uuid.New())
	other := domain.CompanyAsset(uuid.New())
	inv := domain.InvestorHolder(uuid.New())

	testutil.SeedHolding(t, db, domain.FundHolder(fund.ID), fund, 900)
	testutil.SeedHolding(t, db, inv, fund, 100)
	testutil.SeedHolding(t, db, inv, other, 0)

	page, err := svc.List(context.Background(), Filter{AssetType: fund.Type, AssetID: fund.ID}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(900), page.Items[0].Shares)

	page, err = svc.List(context.Background(), Filter{HolderType: inv.Type, HolderID: inv.ID, NonZero: true}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	rows, err := svc.ForAsset(context.Background(), fund)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestResolver(t *testing.T) {
	db := testutil.NewDB(t)
	inv := testutil.SeedInvestor(t, db)
	fund := testutil.SeedIssuedFund(t, db, 100, 100)
	r := Resolver{}

	assert.NoError(t, r.Holder(db, domain.InvestorHolder(inv.ID)))
	assert.NoError(t, r.Asset(db, domain.FundAsset(fund.ID)))
	assert.True(t, errors.Is(r.Asset(db, domain.CompanyAsset(fund.ID)), apperrors.ErrNotFound))
	assert.True(t, errors.Is(r.Holder(db, domain.Holder{Type: "bank", ID: inv.ID}), apperrors.ErrValidation))

	issuer, err := r.Issuer(db, domain.FundAsset(fund.ID))
	require.NoError(t, err)
	assert.Equal(t, fund.Name, issuer.DisplayName())
	assert.True(t, issuer.Terms().ShareIssued)
}
