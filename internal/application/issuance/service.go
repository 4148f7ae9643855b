package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"shares-backend/internal/application/holdings"
	"shares-backend/internal/application/transactions"
	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/database"
	"shares-backend/internal/infrastructure/metrics"
	"shares-backend/internal/pkg/apperrors"
)

// Service creates issuing entities and performs their one-time share issuance.
type Service struct {
	DB       *gorm.DB
	Resolver holdings.Resolver
}

// OwnerAllocation credits part of an issuance directly to an investor.
type OwnerAllocation struct {
	InvestorID uuid.UUID `json:"investorId"`
	Shares     int64     `json:"shares"`
}

// Allocation is one credited holder in a completed issuance.
type Allocation struct {
	Holder      domain.Holder            `json:"holder"`
	Shares      int64                    `json:"shares"`
	Transaction *domain.ShareTransaction `json:"transaction"`
}

type IssueResult struct {
	Asset       domain.Asset `json:"asset"`
	Allocations []Allocation `json:"allocations"`
}

type CreateFundInput struct {
	Name        string
	Description string
	Manager     string
	Currency    string
	Terms       domain.InvestTerms
	Owners      []OwnerAllocation
}

// CreateFund creates a fund and issues its shares in one transaction. Unallocated
// shares go to the fund treasury.
func (s *Service) CreateFund(ctx context.Context, in CreateFundInput, actor domain.Performer) (*domain.Fund, *IssueResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, apperrors.Validation("name", "name is required")
	}
	if err := in.Terms.Validate(); err != nil {
		return nil, nil, err
	}
	if err := validateOwners(in.Owners, in.Terms.InitialShares); err != nil {
		return nil, nil, err
	}

	fund := &domain.Fund{
		Name:        name,
		Description: in.Description,
		Manager:     in.Manager,
		Currency:    in.Currency,
		CreatedBy:   performerID(actor),
	}
	if fund.Currency == "" {
		fund.Currency = "USD"
	}

	var result *IssueResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fund).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.Conflict("A fund with this name already exists")
			}
			return err
		}
		var err error
		result, err = s.issue(tx, fund, in.Terms, in.Owners, actor)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	fund.InvestTerms = in.Terms
	fund.ShareIssued = true

	metrics.IssuancesTotal.WithLabelValues(string(domain.AssetFund)).Inc()
	log.Info().Str("fund_id", fund.ID.String()).Int64("initial_shares", in.Terms.InitialShares).Msg("fund issued")
	return fund, result, nil
}

type CreateCompanyInput struct {
	Name               string
	RegistrationNumber *string
	Industry           string
	CountryCode        string
	Email              *string
	LogoURL            *string
}

// CreateCompany registers a company without shares; IssueCompany issues them later.
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput, actor domain.Performer) (*domain.Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	company := &domain.Company{
		Name:               name,
		RegistrationNumber: in.RegistrationNumber,
		Industry:           in.Industry,
		CountryCode:        strings.ToUpper(in.CountryCode),
		Email:              in.Email,
		LogoURL:            in.LogoURL,
		CreatedBy:          performerID(actor),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.Conflict("A company with this name already exists")
			}
			return err
		}
		return writeEntityLog(tx, company.AssetRef(), domain.EntityActionCreate, actor, map[string]domain.FieldChange{
			"name": {From: nil, To: company.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}

// IssueCompany issues a registered company's shares exactly once. Owner
// allocations go to investors; the remainder goes to the company treasury.
func (s *Service) IssueCompany(ctx context.Context, companyID uuid.UUID, terms domain.InvestTerms, owners []OwnerAllocation, actor domain.Performer) (*domain.Company, *IssueResult, error) {
	if err := terms.Validate(); err != nil {
		return nil, nil, err
	}
	if err := validateOwners(owners, terms.InitialShares); err != nil {
		return nil, nil, err
	}

	var company domain.Company
	var result *IssueResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", companyID).Take(&company).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Company not found")
			}
			return err
		}
		var err error
		result, err = s.issue(tx, &company, terms, owners, actor)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	company.InvestTerms = terms
	company.ShareIssued = true

	metrics.IssuancesTotal.WithLabelValues(string(domain.AssetCompany)).Inc()
	log.Info().Str("company_id", company.ID.String()).Int64("initial_shares", terms.InitialShares).Msg("company issued")
	return &company, result, nil
}

// issue runs inside tx. The share_issued flip is a conditional update so two
// concurrent issuances of the same entity cannot both pass.
func (s *Service) issue(tx *gorm.DB, issuer domain.Issuer, terms domain.InvestTerms, owners []OwnerAllocation, actor domain.Performer) (*IssueResult, error) {
	asset := issuer.AssetRef()
	before := issuer.Terms()

	res := tx.Model(issuer).
		Where("share_issued = ?", false).
		Updates(map[string]interface{}{
			"share_price":      terms.SharePrice,
			"initial_shares":   terms.InitialShares,
			"min_invest_share": terms.MinInvestShare,
			"max_invest_share": terms.MaxInvestShare,
			"share_issued":     true,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Conflict("Shares already issued for " + issuer.DisplayName())
	}

	ledger := holdings.On(tx)
	result := &IssueResult{Asset: asset}
	credit := func(h domain.Holder, qty int64, note string) error {
		if err := ledger.CreditInitial(h, asset, qty); err != nil {
			return err
		}
		entry, err := transactions.AppendIssue(tx, h, asset, qty, terms.SharePrice, note)
		if err != nil {
			return err
		}
		result.Allocations = append(result.Allocations, Allocation{Holder: h, Shares: qty, Transaction: entry})
		return nil
	}

	remaining := terms.InitialShares
	for _, o := range owners {
		h := domain.InvestorHolder(o.InvestorID)
		if err := s.Resolver.Holder(tx, h); err != nil {
			return nil, err
		}
		if err := credit(h, o.Shares, "Issued shares - owner allocation"); err != nil {
			return nil, err
		}
		remaining -= o.Shares
	}
	if remaining > 0 {
		if err := credit(asset.Treasury(), remaining, "Issued shares - treasury"); err != nil {
			return nil, err
		}
	}

	changes := map[string]domain.FieldChange{
		"sharePrice":     {From: before.SharePrice, To: terms.SharePrice},
		"initialShares":  {From: before.InitialShares, To: terms.InitialShares},
		"minInvestShare": {From: before.MinInvestShare, To: terms.MinInvestShare},
		"maxInvestShare": {From: before.MaxInvestShare, To: terms.MaxInvestShare},
		"shareIssued":    {From: false, To: true},
	}
	if err := writeEntityLog(tx, asset, domain.EntityActionIssueShares, actor, changes); err != nil {
		return nil, err
	}
	return result, nil
}

func validateOwners(owners []OwnerAllocation, initial int64) error {
	seen := map[uuid.UUID]bool{}
	var total int64
	for i, o := range owners {
		if o.InvestorID == uuid.Nil {
			return apperrors.Validation(fmt.Sprintf("owners[%d].investorId", i), "investorId is required")
		}
		if o.Shares <= 0 {
			return apperrors.Validation(fmt.Sprintf("owners[%d].shares", i), "owner shares must be a positive integer")
		}
		if seen[o.InvestorID] {
			return apperrors.Validation(fmt.Sprintf("owners[%d].investorId", i), "duplicate owner")
		}
		seen[o.InvestorID] = true
		total += o.Shares
	}
	if total > initial {
		return apperrors.Validation("owners", "owner shares cannot exceed initialShares")
	}
	return nil
}

func writeEntityLog(tx *gorm.DB, a domain.Asset, action string, actor domain.Performer, changes map[string]domain.FieldChange) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	return tx.Create(&domain.EntityLog{
		EntityType: a.Type,
		EntityID:   a.ID,
		Action:     action,
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Changes:    datatypes.JSON(raw),
	}).Error
}

func performerID(p domain.Performer) *uuid.UUID {
	if p.ID == uuid.Nil {
		return nil
	}
	id := p.ID
	return &id
}

// InvestInfoPatch changes the tradable terms of an issued entity. Nil fields are kept.
type InvestInfoPatch struct {
	SharePrice     *decimal.Decimal
	MinInvestShare *int64
	MaxInvestShare *int64
}

// UpdateInvestInfo applies p and writes an UPDATE_INVEST_INFO diff. A patch that
// changes nothing writes nothing.
func (s *Service) UpdateInvestInfo(ctx context.Context, a domain.Asset, p InvestInfoPatch, actor domain.Performer) (domain.Issuer, error) {
	var issuer domain.Issuer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		issuer, err = s.Resolver.Issuer(tx, a)
		if err != nil {
			return err
		}
		before := issuer.Terms()
		if !before.ShareIssued {
			return apperrors.InvalidTransition("Shares have not been issued yet")
		}

		after := before
		if p.SharePrice != nil {
			after.SharePrice = *p.SharePrice
		}
		if p.MinInvestShare != nil {
			after.MinInvestShare = *p.MinInvestShare
		}
		if p.MaxInvestShare != nil {
			after.MaxInvestShare = *p.MaxInvestShare
		}
		if err := after.Validate(); err != nil {
			return err
		}

		changes := map[string]domain.FieldChange{}
		updates := map[string]interface{}{}
		if !after.SharePrice.Equal(before.SharePrice) {
			changes["sharePrice"] = domain.FieldChange{From: before.SharePrice, To: after.SharePrice}
			updates["share_price"] = after.SharePrice
		}
		if after.MinInvestShare != before.MinInvestShare {
			changes["minInvestShare"] = domain.FieldChange{From: before.MinInvestShare, To: after.MinInvestShare}
			updates["min_invest_share"] = after.MinInvestShare
		}
		if after.MaxInvestShare != before.MaxInvestShare {
			changes["maxInvestShare"] = domain.FieldChange{From: before.MaxInvestShare, To: after.MaxInvestShare}
			updates["max_invest_share"] = after.MaxInvestShare
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(issuer).Updates(updates).Error; err != nil {
			return err
		}
		if err := writeEntityLog(tx, a, domain.EntityActionUpdateInvestInfo, actor, changes); err != nil {
			return err
		}
		issuer, err = s.Resolver.Issuer(tx, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issuer, nil
}
