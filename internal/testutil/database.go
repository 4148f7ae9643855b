// Package testutil opens migrated in-memory databases and seeds ledger fixtures for tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shares-backend/internal/domain"
)

// NewDB returns a migrated in-memory sqlite database. A single connection keeps
// every query on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	return db
}

// Terms returns valid invest terms with the given initial share count.
func Terms(initial int64) domain.InvestTerms {
	return domain.InvestTerms{
		SharePrice:     decimal.NewFromInt(5),
		InitialShares:  initial,
		MinInvestShare: 1,
		MaxInvestShare: initial,
	}
}

// SeedInvestor inserts an investor with a unique email.
func SeedInvestor(t *testing.T, db *gorm.DB) *domain.Investor {
	t.Helper()
	inv := &domain.Investor{Fullname: "Test Investor", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

// SeedIssuedFund inserts a fund already marked issued, with its treasury holding
// credited to treasury shares. Pass treasury < initial to simulate prior sales.
func SeedIssuedFund(t *testing.T, db *gorm.DB, initial, treasury int64) *domain.Fund {
	t.Helper()
	terms := Terms(initial)
	terms.ShareIssued = true
	fund := &domain.Fund{Name: "Fund " + uuid.NewString()[:8], InvestTerms: terms}
	require.NoError(t, db.Create(fund).Error)
	require.NoError(t, db.Create(&domain.Holding{
		HolderType: domain.HolderFund,
		HolderID:   fund.ID,
		AssetType:  domain.AssetFund,
		AssetID:    fund.ID,
		Shares:     treasury,
	}).Error)
	return fund
}

// SeedHolding inserts a holding row with the given balance.
func SeedHolding(t *testing.T, db *gorm.DB, h domain.Holder, a domain.Asset, shares int64) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Holding{
		HolderType: h.Type,
		HolderID:   h.ID,
		AssetType:  a.Type,
		AssetID:    a.ID,
		Shares:     shares,
	}).Error)
}

// Balance reads a holding balance directly, returning 0 when no row exists.
func Balance(t *testing.T, db *gorm.DB, h domain.Holder, a domain.Asset) int64 {
	t.Helper()
	var rows []domain.Holding
	require.NoError(t, db.Where("holder_type = ? AND holder_id = ? AND asset_type = ? AND asset_id = ?",
		h.Type, h.ID, a.Type, a.ID).Find(&rows).Error)
	require.LessOrEqual(t, len(rows), 1)
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Shares
}
