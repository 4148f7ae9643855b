package domain

import (
	"github.com/shopspring/decimal"

	"shares-backend/internal/pkg/apperrors"
)

// InvestTerms are the share fields every issuing entity carries.
type InvestTerms struct {
	SharePrice     decimal.Decimal `gorm:"column:share_price;type:decimal(18,4);not null;default:0" json:"sharePrice"`
	InitialShares  int64           `gorm:"column:initial_shares;not null;default:0" json:"initialShares"`
	MinInvestShare int64           `gorm:"column:min_invest_share;not null;default:1" json:"minInvestShare"`
	MaxInvestShare int64           `gorm:"column:max_invest_share;not null;default:1" json:"maxInvestShare"`
	ShareIssued    bool            `gorm:"column:share_issued;not null;default:false" json:"shareIssued"`
}

// Validate checks the terms in the order a caller fixes them, naming the first bad field.
func (t InvestTerms) Validate() error {
	if !t.SharePrice.IsPositive() {
		return apperrors.Validation("sharePrice", "sharePrice must be > 0")
	}
	if t.InitialShares <= 0 {
		return apperrors.Validation("initialShares", "initialShares must be a positive integer")
	}
	if t.MinInvestShare < 1 {
		return apperrors.Validation("minInvestShare", "minInvestShare/maxInvestShare must be integers >= 1")
	}
	if t.MaxInvestShare < 1 {
		return apperrors.Validation("maxInvestShare", "minInvestShare/maxInvestShare must be integers >= 1")
	}
	if t.MinInvestShare > t.MaxInvestShare {
		return apperrors.Validation("minInvestShare", "minInvestShare cannot be greater than maxInvestShare")
	}
	if t.MaxInvestShare > t.InitialShares {
		return apperrors.Validation("maxInvestShare", "maxInvestShare cannot exceed initialShares")
	}
	return nil
}

// Issuer is implemented by every entity that can issue shares.
type Issuer interface {
	AssetRef() Asset
	Terms() InvestTerms
	DisplayName() string
}
