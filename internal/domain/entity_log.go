package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EntityActionIssueShares      = "ISSUE_SHARES"
	EntityActionUpdateInvestInfo = "UPDATE_INVEST_INFO"
	EntityActionCreate           = "CREATE"
)

// FieldChange is one before/after pair in an entity log diff.
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// EntityLog records field-level changes to an issuing entity.
type EntityLog struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EntityType AssetType      `gorm:"column:entity_type;type:varchar(20);not null;index:idx_entity_log_entity,priority:1" json:"entityType"`
	EntityID   uuid.UUID      `gorm:"column:entity_id;type:uuid;not null;index:idx_entity_log_entity,priority:2" json:"entityId"`
	Action     string         `gorm:"column:action;type:varchar(40);not null" json:"action"`
	ActorType  PerformerType  `gorm:"column:actor_type;type:varchar(20);not null" json:"actorType"`
	ActorID    uuid.UUID      `gorm:"column:actor_id;type:uuid;index" json:"actorId"`
	Changes    datatypes.JSON `gorm:"column:changes" json:"changes"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (EntityLog) TableName() string {
	return "EntityLogs"
}

func (l *EntityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
