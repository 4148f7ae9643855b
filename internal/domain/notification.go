package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationSharesRequestUpdated   = "SHARES_REQUEST_UPDATED"
	NotificationSharesRequestConfirmed = "SHARES_REQUEST_CONFIRMED"
	NotificationSharesRequestPaid      = "SHARES_REQUEST_PAID"
)

const (
	NotificationKindInfo    = "info"
	NotificationKindSuccess = "success"
	NotificationKindWarning = "warning"
)

type Notification struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Event     string         `gorm:"column:event;type:varchar(60);not null" json:"event"`
	Kind      string         `gorm:"column:kind;type:varchar(20);not null;default:'info'" json:"kind"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Message   string         `gorm:"column:message;not null" json:"message"`
	Meta      datatypes.JSON `gorm:"column:meta" json:"meta"`
	IsRead    bool           `gorm:"column:is_read;not null;default:false" json:"isRead"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Notification) TableName() string {
	return "Notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
