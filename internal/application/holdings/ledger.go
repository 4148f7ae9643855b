package holdings

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/database"
	"shares-backend/internal/pkg/apperrors"
)

// Ledger applies balance mutations on one database handle, normally an open transaction.
// Every mutation is a single conditional statement; none of them read before writing.
type Ledger struct {
	db *gorm.DB
}

// On binds a ledger to db. Pass the *gorm.DB given to a Transaction closure.
func On(db *gorm.DB) Ledger {
	return Ledger{db: db}
}

func pairScope(h domain.Holder, a domain.Asset) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("holder_type = ? AND holder_id = ? AND asset_type = ? AND asset_id = ?",
			h.Type, h.ID, a.Type, a.ID)
	}
}

func newRow(h domain.Holder, a domain.Asset, shares int64) *domain.Holding {
	return &domain.Holding{
		HolderType: h.Type,
		HolderID:   h.ID,
		AssetType:  a.Type,
		AssetID:    a.ID,
		Shares:     shares,
	}
}

// Ensure creates a zero-balance row when the pair has none. An existing row,
// including one inserted concurrently, is left untouched.
func (l Ledger) Ensure(h domain.Holder, a domain.Asset) error {
	err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "holder_type"}, {Name: "holder_id"}, {Name: "asset_type"}, {Name: "asset_id"}},
		DoNothing: true,
	}).Create(newRow(h, a, 0)).Error
	if err != nil {
		return fmt.Errorf("ensure holding %s/%s: %w", h, a, err)
	}
	return nil
}

// CreditInitial inserts a brand-new row holding amount shares. It fails with
// Conflict when the pair already has a row.
func (l Ledger) CreditInitial(h domain.Holder, a domain.Asset, amount int64) error {
	if amount <= 0 {
		return apperrors.Validation("shares", "initial credit must be > 0")
	}
	res := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "holder_type"}, {Name: "holder_id"}, {Name: "asset_type"}, {Name: "asset_id"}},
		DoNothing: true,
	}).Create(newRow(h, a, amount))
	if res.Error != nil {
		if database.IsUniqueViolation(res.Error) {
			return apperrors.Conflict("Holding already exists for " + h.String())
		}
		return fmt.Errorf("credit holding %s/%s: %w", h, a, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("Holding already exists for " + h.String())
	}
	return nil
}

// GuardedDecrement subtracts amount only when the balance covers it, in one
// conditional UPDATE. ok is false when the balance was short or the row is missing.
func (l Ledger) GuardedDecrement(h domain.Holder, a domain.Asset, amount int64) (ok bool, err error) {
	if amount <= 0 {
		return false, apperrors.Validation("quantity", "quantity must be > 0")
	}
	res := l.db.Model(&domain.Holding{}).
		Scopes(pairScope(h, a)).
		Where("shares >= ?", amount).
		UpdateColumns(map[string]interface{}{
			"shares":    gorm.Expr("shares - ?", amount),
			"updatedAt": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("decrement holding %s/%s: %w", h, a, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// LockOrder returns holders sorted by (type, id), the order Lock takes row locks in.
func LockOrder(holders ...domain.Holder) []domain.Holder {
	out := append([]domain.Holder(nil), holders...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Lock takes row locks on the holders' rows for a in LockOrder, so two transfers
// touching the same pair of rows in opposite directions queue instead of deadlocking.
// Rows must exist (Ensure them first). On sqlite, where writers are already
// serialized, it is a no-op.
func (l Ledger) Lock(a domain.Asset, holders ...domain.Holder) error {
	if l.db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, h := range LockOrder(holders...) {
		var row domain.Holding
		err := l.db.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(pairScope(h, a)).Take(&row).Error
		if err != nil {
			return fmt.Errorf("lock holding %s/%s: %w", h, a, err)
		}
	}
	return nil
}

// Increment adds amount to an existing row. Callers Ensure the row first.
func (l Ledger) Increment(h domain.Holder, a domain.Asset, amount int64) error {
	if amount <= 0 {
		return apperrors.Validation("quantity", "quantity must be > 0")
	}
	res := l.db.Model(&domain.Holding{}).
		Scopes(pairScope(h, a)).
		UpdateColumns(map[string]interface{}{
			"shares":    gorm.Expr("shares + ?", amount),
			"updatedAt": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return fmt.Errorf("increment holding %s/%s: %w", h, a, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("increment holding %s/%s: row missing", h, a)
	}
	return nil
}

// Balance returns the current shares for the pair, or 0 when no row exists.
func (l Ledger) Balance(h domain.Holder, a domain.Asset) (int64, error) {
	var row domain.Holding
	err := l.db.Scopes(pairScope(h, a)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Shares, nil
}

// Get returns the row for the pair or NotFound.
func (l Ledger) Get(h domain.Holder, a domain.Asset) (*domain.Holding, error) {
	var row domain.Holding
	err := l.db.Scopes(pairScope(h, a)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Holding not found")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
