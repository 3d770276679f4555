package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MTMObjectType string

const (
	MTMObjectTypeHedgeContract MTMObjectType = "hedge_contract"
	MTMObjectTypeOrder         MTMObjectType = "order"
)

// MTMSnapshot is a write-once point-in-time valuation keyed by
// (object_type, object_id, as_of_date). A replay with matching values is a
// no-op success; a replay with different values is a conflict.
type MTMSnapshot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ObjectType MTMObjectType `gorm:"type:varchar(32);not null;uniqueIndex:uq_mtm_snapshot_object_as_of" json:"object_type"`
	ObjectID   uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uq_mtm_snapshot_object_as_of" json:"object_id"`
	AsOfDate   time.Time     `gorm:"type:date;not null;uniqueIndex:uq_mtm_snapshot_object_as_of" json:"as_of_date"`

	MTMValue   decimal.Decimal `gorm:"column:mtm_value;type:numeric(18,6);not null" json:"mtm_value"`
	PriceD1    decimal.Decimal `gorm:"column:price_d1;type:numeric(18,6);not null" json:"price_d1"`
	EntryPrice decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"entry_price"`
	QuantityMT decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity_mt"`

	CorrelationID string    `gorm:"type:varchar(64);not null" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (MTMSnapshot) TableName() string {
	return "mtm_snapshots"
}

func (s *MTMSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
