package transactions

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
)

// Append inserts one ledger entry on db. Entries are never updated or deleted.
func Append(db *gorm.DB, entry *domain.ShareTransaction) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("append share transaction: %w", err)
	}
	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("append share transaction: %w", err)
	}
	return nil
}

// Transfer describes one settled movement of shares between two holders.
type Transfer struct {
	From           domain.Holder
	To             domain.Holder
	Asset          domain.Asset
	Quantity       int64
	PricePerShare  decimal.Decimal
	TradeRequestID *uuid.UUID
	SellNote       string
	BuyNote        string
}

// AppendTransferPair writes the mirrored sell and buy rows of one transfer.
func AppendTransferPair(db *gorm.DB, t Transfer) (sellTx, buyTx *domain.ShareTransaction, err error) {
	sell, buy := domain.SideSell, domain.SideBuy
	sellTx = &domain.ShareTransaction{
		HolderType:     t.From.Type,
		HolderID:       t.From.ID,
		AssetType:      t.Asset.Type,
		AssetID:        t.Asset.ID,
		Type:           domain.TxTransfer,
		Side:           &sell,
		Quantity:       t.Quantity,
		PricePerShare:  t.PricePerShare,
		TradeRequestID: t.TradeRequestID,
		Note:           t.SellNote,
	}
	buyTx = &domain.ShareTransaction{
		HolderType:     t.To.Type,
		HolderID:       t.To.ID,
		AssetType:      t.Asset.Type,
		AssetID:        t.Asset.ID,
		Type:           domain.TxTransfer,
		Side:           &buy,
		Quantity:       t.Quantity,
		PricePerShare:  t.PricePerShare,
		TradeRequestID: t.TradeRequestID,
		Note:           t.BuyNote,
	}
	if err := Append(db, sellTx); err != nil {
		return nil, nil, err
	}
	if err := Append(db, buyTx); err != nil {
		return nil, nil, err
	}
	return sellTx, buyTx, nil
}

// AppendIssue writes the ISSUE row for one credited holder.
func AppendIssue(db *gorm.DB, h domain.Holder, a domain.Asset, qty int64, price decimal.Decimal, note string) (*domain.ShareTransaction, error) {
	entry := &domain.ShareTransaction{
		HolderType:    h.Type,
		HolderID:      h.ID,
		AssetType:     a.Type,
		AssetID:       a.ID,
		Type:          domain.TxIssue,
		Quantity:      qty,
		PricePerShare: price,
		Note:          note,
	}
	if err := Append(db, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
