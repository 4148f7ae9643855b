package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	StatusPending      RequestStatus = "pending"
	StatusApproved     RequestStatus = "approved"
	StatusCheckPayment RequestStatus = "check_payment"
	StatusConfirmed    RequestStatus = "confirmed"
	StatusRejected     RequestStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// requestTransitions lists every edge of the trade request workflow.
// confirmed is only reachable through settlement; generic updates filter it out.
var requestTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:      {StatusApproved, StatusRejected},
	StatusApproved:     {StatusCheckPayment, StatusRejected, StatusConfirmed},
	StatusCheckPayment: {StatusRejected, StatusConfirmed},
	StatusConfirmed:    {},
	StatusRejected:     {},
}

func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, n := range requestTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports states with no outgoing edges.
func (s RequestStatus) Terminal() bool {
	return s.Valid() && len(requestTransitions[s]) == 0
}

// Confirmable reports states settlement may start from.
func (s RequestStatus) Confirmable() bool {
	return s.CanTransitionTo(StatusConfirmed)
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid
}

// TradeRequest is an investor's intent to buy or sell shares of one asset.
type TradeRequest struct {
	ID                          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvestorID                  uuid.UUID       `gorm:"column:investor_id;type:uuid;not null;index" json:"investorId"`
	TradeType                   TradeSide       `gorm:"column:trade_type;type:varchar(10);not null" json:"tradeType"`
	AssetType                   AssetType       `gorm:"column:asset_type;type:varchar(20);not null;index:idx_request_asset,priority:1" json:"assetType"`
	AssetID                     uuid.UUID       `gorm:"column:asset_id;type:uuid;not null;index:idx_request_asset,priority:2" json:"assetId"`
	NumberOfShares              int64           `gorm:"column:number_of_shares;not null" json:"numberOfShares"`
	PricePerShare               decimal.Decimal `gorm:"column:price_per_share;type:decimal(18,4);not null;default:0" json:"pricePerShare"`
	PaymentStatus               PaymentStatus   `gorm:"column:payment_status;type:varchar(20);not null;default:'unpaid'" json:"paymentStatus"`
	RequestStatus               RequestStatus   `gorm:"column:request_status;type:varchar(20);not null;default:'pending';index" json:"requestStatus"`
	RejectionReason             *string         `gorm:"column:rejection_reason" json:"rejectionReason"`
	PaymentConfirmationDocument *string         `gorm:"column:payment_confirmation_document" json:"paymentConfirmationDocument"`
	Description                 string          `gorm:"column:description" json:"description"`
	StripePaymentIntentID       *string         `gorm:"column:stripe_payment_intent_id;index" json:"stripePaymentIntentId,omitempty"`
	CreatedAt                   time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt                   time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (TradeRequest) TableName() string {
	return "ShareTradeRequests"
}

func (r *TradeRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r TradeRequest) Asset() Asset { return Asset{Type: r.AssetType, ID: r.AssetID} }

// TotalAmount is numberOfShares * pricePerShare.
func (r TradeRequest) TotalAmount() decimal.Decimal {
	return r.PricePerShare.Mul(decimal.NewFromInt(r.NumberOfShares))
}

type RequestAction string

const (
	ActionCreated   RequestAction = "created"
	ActionApproved  RequestAction = "approved"
	ActionRejected  RequestAction = "rejected"
	ActionConfirmed RequestAction = "confirmed"
	ActionUpdated   RequestAction = "updated"
)

// TradeRequestLog is one immutable audit row per workflow action.
type TradeRequestLog struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TradeRequestID uuid.UUID      `gorm:"column:trade_request_id;type:uuid;not null;index" json:"tradeRequestId"`
	Action         RequestAction  `gorm:"column:action;type:varchar(20);not null" json:"action"`
	PerformerType  PerformerType  `gorm:"column:performer_type;type:varchar(20);not null" json:"performerType"`
	PerformerID    uuid.UUID      `gorm:"column:performer_id;type:uuid" json:"performerId"`
	PreviousStatus *RequestStatus `gorm:"column:previous_status;type:varchar(20)" json:"previousStatus"`
	NewStatus      RequestStatus  `gorm:"column:new_status;type:varchar(20);not null" json:"newStatus"`
	Note           string         `gorm:"column:note" json:"note"`
	CreatedAt      time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (TradeRequestLog) TableName() string {
	return "ShareTradeRequestLogs"
}

func (l *TradeRequestLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ActionFor maps a status change to the log action it produces.
func ActionFor(next RequestStatus) RequestAction {
	switch next {
	case StatusApproved:
		return ActionApproved
	case StatusRejected:
		return ActionRejected
	case StatusConfirmed:
		return ActionConfirmed
	default:
		return ActionUpdated
	}
}
