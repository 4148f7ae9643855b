package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Investor struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Fullname    string         `gorm:"column:fullname;not null" json:"fullname"`
	Email       string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone       *string        `gorm:"column:phone" json:"phone"`
	CountryCode string         `gorm:"column:country_code;type:char(2)" json:"countryCode"`
	KYCStatus   string         `gorm:"column:kyc_status;type:varchar(20);not null;default:'pending'" json:"kycStatus"`
	CreatedAt   time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Investor) TableName() string {
	return "Investors"
}

func (i *Investor) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
