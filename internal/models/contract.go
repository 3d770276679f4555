package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type HedgeLegSide string

const (
	HedgeLegSideBuy  HedgeLegSide = "buy"
	HedgeLegSideSell HedgeLegSide = "sell"
)

type HedgeClassification string

const (
	HedgeClassificationLong  HedgeClassification = "long"
	HedgeClassificationShort HedgeClassification = "short"
)

type HedgeContractStatus string

const (
	HedgeContractStatusActive    HedgeContractStatus = "active"
	HedgeContractStatusCancelled HedgeContractStatus = "cancelled"
	HedgeContractStatusSettled   HedgeContractStatus = "settled"
)

// HedgeContract pairs one fixed-price leg against one variable-price leg.
// The legs always take opposite sides; classification is long when the
// fixed leg buys, short when it sells.
type HedgeContract struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Commodity string    `gorm:"type:varchar(64);not null" json:"commodity"`

	QuantityMT decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity_mt"`

	RFQID          *uuid.UUID `gorm:"type:uuid;index" json:"rfq_id,omitempty"`
	RFQQuoteID     *uuid.UUID `gorm:"type:uuid" json:"rfq_quote_id,omitempty"`
	CounterpartyID *string    `gorm:"type:varchar(64);index" json:"counterparty_id,omitempty"`

	FixedPriceValue        *decimal.Decimal `gorm:"type:numeric(18,6)" json:"fixed_price_value,omitempty"`
	FixedPriceUnit         *string          `gorm:"type:varchar(32)" json:"fixed_price_unit,omitempty"`
	FloatPricingConvention *string          `gorm:"type:varchar(64)" json:"float_pricing_convention,omitempty"`

	FixedLegSide    HedgeLegSide        `gorm:"type:varchar(8);not null" json:"fixed_leg_side"`
	VariableLegSide HedgeLegSide        `gorm:"type:varchar(8);not null" json:"variable_leg_side"`
	Classification  HedgeClassification `gorm:"type:varchar(8);not null;index" json:"classification"`

	Status HedgeContractStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (HedgeContract) TableName() string {
	return "hedge_contracts"
}

func (c *HedgeContract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ClassificationForFixedSide derives long/short from the fixed leg side.
func ClassificationForFixedSide(side HedgeLegSide) HedgeClassification {
	if side == HedgeLegSideBuy {
		return HedgeClassificationLong
	}
	return HedgeClassificationShort
}
