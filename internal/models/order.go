package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderType string

const (
	OrderTypeSales    OrderType = "sales"
	OrderTypePurchase OrderType = "purchase"
)

type PriceType string

const (
	PriceTypeFixed    PriceType = "fixed"
	PriceTypeVariable PriceType = "variable"
)

type PricingConvention string

const (
	PricingConventionAVG      PricingConvention = "AVG"
	PricingConventionAVGInter PricingConvention = "AVGInter"
	PricingConventionC2R      PricingConvention = "C2R"
)

// MTMEligible reports whether a convention supports mark-to-market valuation.
func (c PricingConvention) MTMEligible() bool {
	switch c {
	case PricingConventionAVG, PricingConventionAVGInter, PricingConventionC2R:
		return true
	}
	return false
}

// Order is a commercial sales or purchase order. Immutable after creation.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderType OrderType `gorm:"type:varchar(16);not null;index" json:"order_type"`
	PriceType PriceType `gorm:"type:varchar(16);not null;index" json:"price_type"`

	QuantityMT decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity_mt"`

	PricingConvention *PricingConvention `gorm:"type:varchar(16)" json:"pricing_convention,omitempty"`
	AvgEntryPrice     *decimal.Decimal   `gorm:"type:numeric(18,6)" json:"avg_entry_price,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
