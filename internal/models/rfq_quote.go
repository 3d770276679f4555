package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RFQQuote is a counterparty's fixed-price quote on a trade RFQ.
// Immutable once created.
type RFQQuote struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RFQID          uuid.UUID `gorm:"type:uuid;not null;index" json:"rfq_id"`
	CounterpartyID string    `gorm:"type:varchar(64);not null;index" json:"counterparty_id"`

	FixedPriceValue        decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"fixed_price_value"`
	FixedPriceUnit         string          `gorm:"type:varchar(32);not null" json:"fixed_price_unit"`
	FloatPricingConvention string          `gorm:"type:varchar(64);not null" json:"float_pricing_convention"`

	ReceivedAt time.Time `gorm:"type:timestamptz;not null" json:"received_at"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (RFQQuote) TableName() string {
	return "rfq_quotes"
}

func (q *RFQQuote) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
