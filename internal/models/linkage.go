package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HedgeOrderLinkage allocates part of a hedge contract against an order.
// Multiple linkages per order/contract pair accumulate; the sum per order
// and per contract must never exceed the respective quantity_mt.
type HedgeOrderLinkage struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ContractID uuid.UUID       `gorm:"type:uuid;not null;index" json:"contract_id"`
	QuantityMT decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity_mt"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (HedgeOrderLinkage) TableName() string {
	return "hedge_order_linkages"
}

func (l *HedgeOrderLinkage) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
