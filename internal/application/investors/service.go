package investors

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shares-backend/internal/application/auth"
	"shares-backend/internal/application/transactions"
	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/database"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/constants"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/validation"
)

type Service struct {
	DB           *gorm.DB
	Redis        *redis.Client // optional; sessions are revoked on deactivation when set
	Transactions *transactions.Service
}

// CreateInput creates an investor. A non-empty Password also creates a login user.
type CreateInput struct {
	Fullname    string  `json:"fullname"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
	CountryCode string  `json:"countryCode"`
	Password    string  `json:"password"`
}

func (in CreateInput) validate() error {
	if !validation.IsValidFullname(in.Fullname) {
		return apperrors.Validation("fullname", "Full name is required and may only contain letters, spaces, hyphens and apostrophes")
	}
	if !validation.IsValidEmail(in.Email) {
		return apperrors.Validation("email", "Invalid email format")
	}
	if in.CountryCode != "" && !validation.IsValidCountryCode(in.CountryCode) {
		return apperrors.Validation("countryCode", "countryCode must be an ISO 3166-1 alpha-2 code")
	}
	if in.Password != "" && !validation.IsValidPassword(in.Password) {
		return apperrors.Validation("password", "Invalid password format")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Investor, *domain.User, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.CountryCode = strings.ToUpper(strings.TrimSpace(in.CountryCode))
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	inv := &domain.Investor{
		Fullname:    in.Fullname,
		Email:       in.Email,
		Phone:       in.Phone,
		CountryCode: in.CountryCode,
	}
	var user *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		if in.Password == "" {
			return nil
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return err
		}
		user = &domain.User{
			Email:      inv.Email,
			Password:   hash,
			Fullname:   inv.Fullname,
			Role:       constants.Investor,
			InvestorID: &inv.ID,
			IsActive:   true,
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, nil, apperrors.Conflict("Email already registered")
		}
		return nil, nil, err
	}
	return inv, user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Investor, error) {
	var inv domain.Investor
	err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Investor not found")
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Service) List(ctx context.Context, keyword string, p pagination.Params) (pagination.Page[domain.Investor], error) {
	page := pagination.Page[domain.Investor]{Params: p, Items: []domain.Investor{}}
	q := s.DB.WithContext(ctx).Model(&domain.Investor{})
	if k := strings.TrimSpace(keyword); k != "" {
		like := "%" + strings.ToLower(k) + "%"
		q = q.Where("LOWER(fullname) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return page, err
	}
	err := q.Order(`"createdAt" DESC`).Limit(p.Limit).Offset(p.Offset()).Find(&page.Items).Error
	return page, err
}

// Portfolio prices the investor's transaction history at current share prices.
func (s *Service) Portfolio(ctx context.Context, id uuid.UUID) (transactions.Portfolio, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return transactions.Portfolio{}, err
	}
	return s.Transactions.Portfolio(ctx, id)
}
