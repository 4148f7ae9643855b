package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Holding is the single authoritative balance row for one (holder, asset) pair.
// Rows are created lazily and never deleted; a zero balance is a valid state.
type Holding struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	HolderType HolderType `gorm:"column:holder_type;type:varchar(20);not null;uniqueIndex:idx_holding_pair,priority:1" json:"holderType"`
	HolderID   uuid.UUID  `gorm:"column:holder_id;type:uuid;not null;uniqueIndex:idx_holding_pair,priority:2" json:"holderId"`
	AssetType  AssetType  `gorm:"column:asset_type;type:varchar(20);not null;uniqueIndex:idx_holding_pair,priority:3;index:idx_holding_asset,priority:1" json:"assetType"`
	AssetID    uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;uniqueIndex:idx_holding_pair,priority:4;index:idx_holding_asset,priority:2" json:"assetId"`
	Shares     int64      `gorm:"column:shares;not null;default:0;check:chk_holdings_shares,shares >= 0" json:"shares"`
	CreatedAt  time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Holding) TableName() string {
	return "Holdings"
}

func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

func (h Holding) Holder() Holder { return Holder{Type: h.HolderType, ID: h.HolderID} }
func (h Holding) Asset() Asset   { return Asset{Type: h.AssetType, ID: h.AssetID} }
