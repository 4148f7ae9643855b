package trading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/testutil"
)

func (f *fixture) treasury(t *testing.T) int64 {
	return testutil.Balance(t, f.db, domain.FundHolder(f.fund.ID), domain.FundAsset(f.fund.ID))
}

func (f *fixture) investorShares(t *testing.T) int64 {
	return testutil.Balance(t, f.db, domain.InvestorHolder(f.investor.ID), domain.FundAsset(f.fund.ID))
}

func (f *fixture) countTransfers(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&domain.ShareTransaction{}).Where("type = ?", domain.TxTransfer).Count(&n).Error)
	return n
}

func TestConfirmBuyMovesSharesFromTreasury(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	req := f.buy(t, 100)
	f.setStatus(t, req.ID, "approved")

	res, err := f.svc.Confirm(context.Background(), req.ID, employee)
	require.NoError(t, err)
	assert.False(t, res.AlreadyConfirmed)
	assert.Equal(t, domain.StatusConfirmed, res.Request.RequestStatus)

	assert.Equal(t, int64(900), f.treasury(t))
	assert.Equal(t, int64(100), f.investorShares(t))

	require.NotNil(t, res.SellTx)
	require.NotNil(t, res.BuyTx)
	assert.Equal(t, domain.FundHolder(f.fund.ID), res.SellTx.Holder())
	assert.Equal(t, domain.InvestorHolder(f.investor.ID), res.BuyTx.Holder())
	assert.Equal(t, req.ID, *res.SellTx.TradeRequestID)
	assert.Equal(t, req.ID, *res.BuyTx.TradeRequestID)
	assert.Equal(t, int64(100), res.SellTx.Quantity)
	assert.True(t, res.SellTx.PricePerShare.Equal(res.BuyTx.PricePerShare))
	assert.Equal(t, "Confirmed trade - fund sold shares", res.SellTx.Note)
	assert.Equal(t, int64(2), f.countTransfers(t))

	logs := f.logs(t, req.ID)
	last := logs[len(logs)-1]
	assert.Equal(t, domain.ActionConfirmed, last.Action)
	assert.Equal(t, domain.StatusApproved, *last.PreviousStatus)
	assert.Equal(t, employee.ID, last.PerformerID)

	assert.Contains(t, f.notifier.events(), domain.NotificationSharesRequestConfirmed)
}

func TestConfirmFromCheckPayment(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	req := f.buy(t, 10)
	f.setStatus(t, req.ID, "approved")
	f.setStatus(t, req.ID, "check_payment")

	_, err := f.svc.Confirm(context.Background(), req.ID, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(990), f.treasury(t))
}

func TestConfirmInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, 1000, 50)
	req := f.buy(t, 100)
	f.setStatus(t, req.ID, "approved")

	_, err := f.svc.Confirm(context.Background(), req.ID, employee)
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInsufficientBalance, e.Kind)
	assert.Equal(t, "Insufficient shares. Available: 50, requested: 100", e.Message)

	assert.Equal(t, int64(50), f.treasury(t))
	assert.Zero(t, f.investorShares(t))
	assert.Zero(t, f.countTransfers(t))

	var stored domain.TradeRequest
	require.NoError(t, f.db.First(&stored, "id = ?", req.ID).Error)
	assert.Equal(t, domain.StatusApproved, stored.RequestStatus)

	var holdingRows int64
	require.NoError(t, f.db.Model(&domain.Holding{}).Count(&holdingRows).Error)
	assert.Equal(t, int64(1), holdingRows, "ensure rolled back with the rest")
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	req := f.buy(t, 100)
	f.setStatus(t, req.ID, "approved")
	ctx := context.Background()

	first, err := f.svc.Confirm(ctx, req.ID, employee)
	require.NoError(t, err)
	second, err := f.svc.Confirm(ctx, req.ID, employee)
	require.NoError(t, err)

	assert.True(t, second.AlreadyConfirmed)
	assert.Equal(t, first.SellTx.ID, second.SellTx.ID)
	assert.Equal(t, first.BuyTx.ID, second.BuyTx.ID)
	assert.Equal(t, int64(900), f.treasury(t))
	assert.Equal(t, int64(2), f.countTransfers(t))
}

func TestConfirmRejectsNonConfirmableStates(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	ctx := context.Background()

	pending := f.buy(t, 10)
	_, err := f.svc.Confirm(ctx, pending.ID, employee)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	rejected := f.buy(t, 10)
	reason := "duplicate"
	status := "rejected"
	_, err = f.svc.Update(ctx, rejected.ID, UpdateInput{RequestStatus: &status, RejectionReason: &reason}, employee)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, rejected.ID, employee)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	_, err = f.svc.Confirm(ctx, uuid.New(), employee)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.Equal(t, int64(1000), f.treasury(t))
	assert.Zero(t, f.countTransfers(t))
}

func TestConfirmedRequestCannotBeRejected(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	req := f.buy(t, 10)
	f.setStatus(t, req.ID, "approved")
	_, err := f.svc.Confirm(context.Background(), req.ID, employee)
	require.NoError(t, err)

	status, reason := "rejected", "changed my mind"
	_, err = f.svc.Update(context.Background(), req.ID, UpdateInput{RequestStatus: &status, RejectionReason: &reason}, employee)
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Confirmed trade requests cannot be edited", e.Message)
}

func TestConcurrentConfirmsNeverOverdraw(t *testing.T) {
	f := newFixture(t, 1000, 150)
	a := f.buy(t, 100)
	b := f.buy(t, 100)
	f.setStatus(t, a.ID, "approved")
	f.setStatus(t, b.ID, "approved")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(context.Background(), id, employee)
		}(i, id)
	}
	wg.Wait()

	succeeded, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, short)
	assert.Equal(t, int64(50), f.treasury(t))
	assert.Equal(t, int64(100), f.investorShares(t))
}

func TestConcurrentDoubleConfirmAppliesOnce(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	req := f.buy(t, 100)
	f.setStatus(t, req.ID, "approved")

	var wg sync.WaitGroup
	results := make([]*Settlement, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Confirm(context.Background(), req.ID, employee)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].AlreadyConfirmed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, int64(900), f.treasury(t))
	assert.Equal(t, int64(2), f.countTransfers(t))
}

func TestConfirmSellReturnsSharesToTreasury(t *testing.T) {
	f := newFixture(t, 1000, 900)
	testutil.SeedHolding(t, f.db, domain.InvestorHolder(f.investor.ID), domain.FundAsset(f.fund.ID), 100)

	req, err := f.svc.Create(context.Background(), CreateInput{
		InvestorID: f.investor.ID, TradeType: "sell", AssetType: "fund", AssetID: f.fund.ID, NumberOfShares: 40,
	}, f.asInvestor())
	require.NoError(t, err)
	f.setStatus(t, req.ID, "approved")

	res, err := f.svc.Confirm(context.Background(), req.ID, employee)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestorHolder(f.investor.ID), res.SellTx.Holder())
	assert.Equal(t, int64(940), f.treasury(t))
	assert.Equal(t, int64(60), f.investorShares(t))
}

func TestConfirmConservesTotalShares(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	total := func() int64 {
		var sum int64
		require.NoError(t, f.db.Model(&domain.Holding{}).
			Where("asset_type = ? AND asset_id = ?", domain.AssetFund, f.fund.ID).
			Select("COALESCE(SUM(shares), 0)").Scan(&sum).Error)
		return sum
	}
	before := total()
	for _, qty := range []int64{10, 250, 35} {
		req := f.buy(t, qty)
		f.setStatus(t, req.ID, "approved")
		_, err := f.svc.Confirm(context.Background(), req.ID, employee)
		require.NoError(t, err)
		assert.Equal(t, before, total())
	}
	assert.Equal(t, int64(705), f.treasury(t))
}

func TestConfirmNotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	f.notifier.err = errors.New("redis down")
	req := f.buy(t, 10)
	f.setStatus(t, req.ID, "approved")

	res, err := f.svc.Confirm(context.Background(), req.ID, employee)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, res.Request.RequestStatus)
	assert.Equal(t, int64(990), f.treasury(t))
}
