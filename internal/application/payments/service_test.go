package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shares-backend/internal/application/trading"
	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/testutil"
)

const testSecret = "whsec_test_secret_123"

type fakeIntents struct {
	amount   int64
	currency string
	metadata map[string]string
}

func (f *fakeIntents) Create(_ context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	f.amount, f.currency, f.metadata = amountCents, currency, metadata
	return &Intent{ID: "pi_test_123", ClientSecret: "pi_test_123_secret_abc"}, nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	intents  *fakeIntents
	investor *domain.Investor
	request  *domain.TradeRequest
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	inv := testutil.SeedInvestor(t, db)
	fund := testutil.SeedIssuedFund(t, db, 1000, 1000)
	tr := &trading.Service{DB: db}
	price := decimal.RequireFromString("5.25")
	req, err := tr.Create(context.Background(), trading.CreateInput{
		InvestorID: inv.ID, TradeType: "buy", AssetType: "fund", AssetID: fund.ID,
		NumberOfShares: 100, PricePerShare: &price,
	}, domain.Performer{Type: domain.PerformerInvestor, ID: inv.ID})
	require.NoError(t, err)

	intents := &fakeIntents{}
	return &fixture{
		db:       db,
		svc:      &Service{DB: db, Trading: tr, Intents: intents, Currency: "usd", WebhookSecret: testSecret},
		intents:  intents,
		investor: inv,
		request:  req,
	}
}

func (f *fixture) owner() domain.Performer {
	return domain.Performer{Type: domain.PerformerInvestor, ID: f.investor.ID}
}

func (f *fixture) reload(t *testing.T) domain.TradeRequest {
	var req domain.TradeRequest
	require.NoError(t, f.db.First(&req, "id = ?", f.request.ID).Error)
	return req
}

func sign(payload []byte, secret string) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func succeededEvent(t *testing.T, eventID string, requestID uuid.UUID, amount int64) []byte {
	b, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"type":        "payment_intent.succeeded",
		"api_version": "2020-08-27",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":              "pi_test_123",
				"object":          "payment_intent",
				"amount_received": amount,
				"currency":        "usd",
				"status":          "succeeded",
				"metadata":        map[string]string{"trade_request_id": requestID.String()},
			},
		},
	})
	require.NoError(t, err)
	return b
}

func TestAmountCents(t *testing.T) {
	req := &domain.TradeRequest{NumberOfShares: 3, PricePerShare: decimal.RequireFromString("0.335")}
	assert.Equal(t, int64(101), AmountCents(req))
}

func TestCreateIntent(t *testing.T) {
	f := newFixture(t)
	intent, err := f.svc.CreateIntent(context.Background(), f.request.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, "pi_test_123", intent.ID)
	assert.Equal(t, int64(52500), f.intents.amount)
	assert.Equal(t, "usd", f.intents.currency)
	assert.Equal(t, f.request.ID.String(), f.intents.metadata["trade_request_id"])

	stored := f.reload(t)
	require.NotNil(t, stored.StripePaymentIntentID)
	assert.Equal(t, "pi_test_123", *stored.StripePaymentIntentID)
}

func TestCreateIntentGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateIntent(ctx, f.request.ID, domain.Performer{Type: domain.PerformerInvestor, ID: uuid.New()})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.CreateIntent(ctx, uuid.New(), f.owner())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, f.db.Model(&domain.TradeRequest{}).Where("id = ?", f.request.ID).
		Update("payment_status", domain.PaymentPaid).Error)
	_, err = f.svc.CreateIntent(ctx, f.request.ID, f.owner())
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	f.svc.Intents = nil
	require.NoError(t, f.db.Model(&domain.TradeRequest{}).Where("id = ?", f.request.ID).
		Update("payment_status", domain.PaymentUnpaid).Error)
	_, err = f.svc.CreateIntent(ctx, f.request.ID, f.owner())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripeIntentsRequiresKey(t *testing.T) {
	_, err := (&StripeIntents{}).Create(context.Background(), 100, "usd", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	payload := succeededEvent(t, "evt_1", f.request.ID, 52500)

	err := f.svc.HandleWebhook(context.Background(), payload, "t=123,v1=invalid")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	err = f.svc.HandleWebhook(context.Background(), payload, sign(payload, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, domain.PaymentUnpaid, f.reload(t).PaymentStatus)
}

func TestWebhookMarksRequestPaidOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payload := succeededEvent(t, "evt_1", f.request.ID, 52500)

	require.NoError(t, f.svc.HandleWebhook(ctx, payload, sign(payload, testSecret)))
	require.NoError(t, f.svc.HandleWebhook(ctx, payload, sign(payload, testSecret)))

	stored := f.reload(t)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domain.StatusPending, stored.RequestStatus)

	var payments []domain.Payment
	require.NoError(t, f.db.Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(52500), payments[0].AmountPaidCents)
	assert.Equal(t, f.investor.ID, payments[0].InvestorID)

	var logs []domain.TradeRequestLog
	require.NoError(t, f.db.Where("trade_request_id = ? AND performer_type = ?", f.request.ID, domain.PerformerSystem).Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestWebhookUnderpaymentLeavesRequestUnpaid(t *testing.T) {
	f := newFixture(t)
	payload := succeededEvent(t, "evt_1", f.request.ID, 100)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sign(payload, testSecret)))
	assert.Equal(t, domain.PaymentUnpaid, f.reload(t).PaymentStatus)

	var n int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestWebhookAfterConfirmRecordsPaymentOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	approved := "approved"
	staff := domain.Performer{Type: domain.PerformerEmployee, ID: uuid.New()}
	_, err := f.svc.Trading.Update(ctx, f.request.ID, trading.UpdateInput{RequestStatus: &approved}, staff)
	require.NoError(t, err)
	_, err = f.svc.Trading.Confirm(ctx, f.request.ID, staff)
	require.NoError(t, err)

	var logsBefore int64
	require.NoError(t, f.db.Model(&domain.TradeRequestLog{}).Where("trade_request_id = ?", f.request.ID).Count(&logsBefore).Error)

	payload := succeededEvent(t, "evt_late", f.request.ID, 52500)
	require.NoError(t, f.svc.HandleWebhook(ctx, payload, sign(payload, testSecret)))

	stored := f.reload(t)
	assert.Equal(t, domain.StatusConfirmed, stored.RequestStatus)
	assert.Equal(t, domain.PaymentUnpaid, stored.PaymentStatus)

	var logsAfter, payments int64
	require.NoError(t, f.db.Model(&domain.TradeRequestLog{}).Where("trade_request_id = ?", f.request.ID).Count(&logsAfter).Error)
	assert.Equal(t, logsBefore, logsAfter)
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&payments).Error)
	assert.Equal(t, int64(1), payments)

	_, err = f.svc.CreateIntent(ctx, f.request.ID, f.owner())
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestWebhookIgnoresOtherEventsAndUnknownRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := []byte(`{"id":"evt_2","object":"event","type":"charge.succeeded","data":{"object":{}}}`)
	require.NoError(t, f.svc.HandleWebhook(ctx, other, sign(other, testSecret)))

	unknown := succeededEvent(t, "evt_3", uuid.New(), 52500)
	require.NoError(t, f.svc.HandleWebhook(ctx, unknown, sign(unknown, testSecret)))

	var n int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
}
