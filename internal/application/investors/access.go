package investors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
)

// SetActive enables or disables the investor's login. Disabling also drops
// every live session so the investor is signed out on the next request.
func (s *Service) SetActive(ctx context.Context, investorID uuid.UUID, active bool) (*domain.User, error) {
	if _, err := s.Get(ctx, investorID); err != nil {
		return nil, err
	}
	var user domain.User
	err := s.DB.WithContext(ctx).Where("investor_id = ?", investorID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Investor has no login")
	}
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&user).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	user.IsActive = active

	if !active && s.Redis != nil {
		if err := middleware.DestroyUserSessions(ctx, s.Redis, user.UserID.String()); err != nil {
			log.Warn().Err(err).Str("user_id", user.UserID.String()).Msg("investors: session revoke failed")
		}
	}
	return &user, nil
}
