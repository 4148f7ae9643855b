package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a client company whose shares are issued once and then traded
// out of the company treasury.
type Company struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name               string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	RegistrationNumber *string        `gorm:"column:registration_number" json:"registrationNumber"`
	Industry           string         `gorm:"column:industry" json:"industry"`
	CountryCode        string         `gorm:"column:country_code;type:char(2)" json:"countryCode"`
	Email              *string        `gorm:"column:email" json:"email"`
	LogoURL            *string        `gorm:"column:logo_url" json:"logoUrl"`
	InvestTerms        `gorm:"embedded"`
	CreatedBy          *uuid.UUID     `gorm:"column:created_by;type:uuid" json:"createdBy"`
	CreatedAt          time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Company) TableName() string {
	return "ClientCompanies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Company) AssetRef() Asset     { return CompanyAsset(c.ID) }
func (c *Company) Terms() InvestTerms  { return c.InvestTerms }
func (c *Company) DisplayName() string { return c.Name }
