package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fund is both an asset and the holder of its own treasury.
type Fund struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	Manager     string         `gorm:"column:manager" json:"manager"`
	Currency    string         `gorm:"column:currency;type:varchar(3);not null;default:'USD'" json:"currency"`
	InvestTerms `gorm:"embedded"`
	CreatedBy   *uuid.UUID     `gorm:"column:created_by;type:uuid" json:"createdBy"`
	CreatedAt   time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Fund) TableName() string {
	return "InvestmentFunds"
}

func (f *Fund) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (f *Fund) AssetRef() Asset     { return FundAsset(f.ID) }
func (f *Fund) Terms() InvestTerms  { return f.InvestTerms }
func (f *Fund) DisplayName() string { return f.Name }
