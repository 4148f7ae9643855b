package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"shares-backend/internal/application/emails"
	"shares-backend/internal/domain"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
)

// Message is one notification addressed to an investor.
type Message struct {
	Event   string
	Kind    string
	Title   string
	Message string
	Meta    map[string]interface{}
}

// Service persists notifications, publishes them for live clients and emails them.
// Redis and Mailer are optional.
type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Mailer emails.Sender
}

// Channel is the Redis pub/sub channel a user's live clients subscribe to.
func Channel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// NotifyInvestor delivers msg to the investor's login user and email address.
// Every delivery step is attempted; the joined error reports the ones that failed.
func (s *Service) NotifyInvestor(ctx context.Context, investorID uuid.UUID, msg Message) error {
	var inv domain.Investor
	if err := s.DB.WithContext(ctx).Where("id = ?", investorID).Take(&inv).Error; err != nil {
		return fmt.Errorf("notify investor %s: %w", investorID, err)
	}

	var errs []error
	var user domain.User
	err := s.DB.WithContext(ctx).Where("investor_id = ?", investorID).Take(&user).Error
	switch {
	case err == nil:
		n, err := s.store(ctx, user.UserID, msg)
		if err != nil {
			errs = append(errs, err)
		} else if err := s.publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		errs = append(errs, err)
	}

	if s.Mailer != nil && inv.Email != "" {
		if err := s.Mailer.SendNotification(ctx, inv.Email, inv.Fullname, msg.Title, msg.Message); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) store(ctx context.Context, userID uuid.UUID, msg Message) (*domain.Notification, error) {
	meta, err := json.Marshal(msg.Meta)
	if err != nil {
		return nil, err
	}
	kind := msg.Kind
	if kind == "" {
		kind = domain.NotificationKindInfo
	}
	n := &domain.Notification{
		UserID:  userID,
		Event:   msg.Event,
		Kind:    kind,
		Title:   msg.Title,
		Message: msg.Message,
		Meta:    datatypes.JSON(meta),
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, n *domain.Notification) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(ctx, Channel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first. isRead filters when non-nil.
func (s *Service) List(ctx context.Context, userID uuid.UUID, isRead *bool, p pagination.Params) (pagination.Page[domain.Notification], error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if isRead != nil {
			db = db.Where("is_read = ?", *isRead)
		}
		return db
	}
	page := pagination.Page[domain.Notification]{Params: p, Items: []domain.Notification{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&domain.Notification{}).Scopes(scope).Count(&page.Total).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Scopes(scope).
			Order(`"createdAt" DESC`).
			Limit(p.Limit).Offset(p.Offset()).
			Find(&page.Items).Error
	})
	return page, g.Wait()
}

// MarkRead marks one of the user's notifications read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
