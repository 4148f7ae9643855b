package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a login account. Investor users link to their Investor row.
type User struct {
	UserID     uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email      string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Password   string         `gorm:"column:password;not null" json:"-"`
	Fullname   string         `gorm:"column:fullname;not null" json:"fullname"`
	Role       string         `gorm:"column:role;type:varchar(20);not null" json:"role"`
	InvestorID *uuid.UUID     `gorm:"column:investor_id;type:uuid;uniqueIndex" json:"investor_id"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
