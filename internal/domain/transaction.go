package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxIssue    TransactionType = "ISSUE"
	TxTransfer TransactionType = "TRANSFER"
	TxAdjust   TransactionType = "ADJUST"
	TxRedeem   TransactionType = "REDEEM"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxIssue, TxTransfer, TxAdjust, TxRedeem:
		return true
	}
	return false
}

type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// ErrImmutableTransaction is returned by the hooks that block updates and deletes.
var ErrImmutableTransaction = errors.New("share transactions are append-only")

// ShareTransaction is one immutable ledger entry. A confirmed trade writes two
// of them (sell and buy) referencing the same trade request.
type ShareTransaction struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	HolderType     HolderType      `gorm:"column:holder_type;type:varchar(20);not null;index:idx_tx_holder,priority:1" json:"holderType"`
	HolderID       uuid.UUID       `gorm:"column:holder_id;type:uuid;not null;index:idx_tx_holder,priority:2" json:"holderId"`
	AssetType      AssetType       `gorm:"column:asset_type;type:varchar(20);not null;index:idx_tx_asset,priority:1" json:"assetType"`
	AssetID        uuid.UUID       `gorm:"column:asset_id;type:uuid;not null;index:idx_tx_asset,priority:2" json:"assetId"`
	Type           TransactionType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Side           *TradeSide      `gorm:"column:side;type:varchar(10)" json:"side"`
	Quantity       int64           `gorm:"column:quantity;not null" json:"quantity"`
	PricePerShare  decimal.Decimal `gorm:"column:price_per_share;type:decimal(18,4);not null;default:0" json:"pricePerShare"`
	TradeRequestID *uuid.UUID      `gorm:"column:trade_request_id;type:uuid;index" json:"tradeRequestId"`
	Note           string          `gorm:"column:note" json:"note"`
	CreatedAt      time.Time       `gorm:"column:createdAt" json:"createdAt"`
}

func (ShareTransaction) TableName() string {
	return "ShareTransactions"
}

func (t *ShareTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return t.Validate()
}

func (t *ShareTransaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (t *ShareTransaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

// Validate checks the row-level rules every ledger entry must satisfy.
func (t *ShareTransaction) Validate() error {
	if t.Quantity <= 0 {
		return errors.New("quantity must be > 0")
	}
	if t.PricePerShare.IsNegative() {
		return errors.New("pricePerShare must be >= 0")
	}
	if t.Type == TxTransfer && t.Side == nil {
		return errors.New("side is required for TRANSFER transactions")
	}
	if !t.Type.Valid() {
		return errors.New("unknown transaction type")
	}
	return nil
}

func (t ShareTransaction) Holder() Holder { return Holder{Type: t.HolderType, ID: t.HolderID} }
func (t ShareTransaction) Asset() Asset   { return Asset{Type: t.AssetType, ID: t.AssetID} }
