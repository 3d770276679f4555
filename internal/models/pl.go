package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PLEntityType string

const (
	PLEntityTypeHedgeContract PLEntityType = "hedge_contract"
	PLEntityTypeOrder         PLEntityType = "order"
)

// PLSnapshot is a write-once P&L record for one entity and period. Replays
// with identical values succeed without a second row; divergent replays
// conflict.
type PLSnapshot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	EntityType  PLEntityType `gorm:"type:varchar(32);not null;uniqueIndex:uq_pl_snapshot_entity_period" json:"entity_type"`
	EntityID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uq_pl_snapshot_entity_period" json:"entity_id"`
	PeriodStart time.Time    `gorm:"type:date;not null;uniqueIndex:uq_pl_snapshot_entity_period" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"type:date;not null;uniqueIndex:uq_pl_snapshot_entity_period" json:"period_end"`

	RealizedPL    decimal.Decimal `gorm:"column:realized_pl;type:numeric(18,6);not null" json:"realized_pl"`
	UnrealizedMTM decimal.Decimal `gorm:"column:unrealized_mtm;type:numeric(18,6);not null" json:"unrealized_mtm"`

	CorrelationID string    `gorm:"type:varchar(64);not null" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (PLSnapshot) TableName() string {
	return "pl_snapshots"
}

func (s *PLSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
