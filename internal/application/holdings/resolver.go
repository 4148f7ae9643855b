package holdings

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
)

type lookup struct {
	model    func() interface{}
	notFound string
}

var holderLookups = map[domain.HolderType]lookup{
	domain.HolderInvestor: {func() interface{} { return &domain.Investor{} }, "Investor not found"},
	domain.HolderFund:     {func() interface{} { return &domain.Fund{} }, "Fund not found"},
	domain.HolderCompany:  {func() interface{} { return &domain.Company{} }, "Company not found"},
}

var assetLookups = map[domain.AssetType]lookup{
	domain.AssetFund:    {func() interface{} { return &domain.Fund{} }, "Fund not found"},
	domain.AssetCompany: {func() interface{} { return &domain.Company{} }, "Company not found"},
}

// Resolver checks that holder and asset references point at existing rows.
type Resolver struct{}

func (Resolver) exists(db *gorm.DB, l lookup, id uuid.UUID) error {
	err := db.Select("id").Where("id = ?", id).Take(l.model()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(l.notFound)
	}
	return err
}

func (r Resolver) Holder(db *gorm.DB, h domain.Holder) error {
	l, ok := holderLookups[h.Type]
	if !ok {
		return apperrors.Validation("holderType", "holderType must be investor, fund or company")
	}
	return r.exists(db, l, h.ID)
}

func (r Resolver) Asset(db *gorm.DB, a domain.Asset) error {
	l, ok := assetLookups[a.Type]
	if !ok {
		return apperrors.Validation("assetType", "assetType must be company or fund")
	}
	return r.exists(db, l, a.ID)
}

// Issuer loads the fund or company behind an asset reference.
func (r Resolver) Issuer(db *gorm.DB, a domain.Asset) (domain.Issuer, error) {
	l, ok := assetLookups[a.Type]
	if !ok {
		return nil, apperrors.Validation("assetType", "assetType must be company or fund")
	}
	m := l.model()
	err := db.Where("id = ?", a.ID).Take(m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound(l.notFound)
	}
	if err != nil {
		return nil, err
	}
	return m.(domain.Issuer), nil
}
