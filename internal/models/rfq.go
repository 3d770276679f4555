package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RFQIntent string

const (
	RFQIntentCommercialHedge RFQIntent = "COMMERCIAL_HEDGE"
	RFQIntentGlobalPosition  RFQIntent = "GLOBAL_POSITION"
	RFQIntentSpread          RFQIntent = "SPREAD"
)

type RFQDirection string

const (
	RFQDirectionBuy  RFQDirection = "BUY"
	RFQDirectionSell RFQDirection = "SELL"
)

type RFQState string

const (
	RFQStateCreated RFQState = "CREATED"
	RFQStateSent    RFQState = "SENT"
	RFQStateQuoted  RFQState = "QUOTED"
	RFQStateAwarded RFQState = "AWARDED"
	RFQStateClosed  RFQState = "CLOSED"
)

// RFQ is a request for quote. COMMERCIAL_HEDGE ties to one order,
// GLOBAL_POSITION stands alone, SPREAD references two trade RFQs and
// trades their price difference. The commercial exposure snapshot is
// frozen at creation and never recomputed.
type RFQ struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RFQNumber string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"rfq_number"`

	Intent    RFQIntent `gorm:"type:varchar(32);not null;index" json:"intent"`
	Commodity string    `gorm:"type:varchar(64);not null" json:"commodity"`

	QuantityMT          decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"quantity_mt"`
	DeliveryWindowStart time.Time       `gorm:"type:date;not null" json:"delivery_window_start"`
	DeliveryWindowEnd   time.Time       `gorm:"type:date;not null" json:"delivery_window_end"`
	Direction           RFQDirection    `gorm:"type:varchar(8);not null" json:"direction"`

	OrderID     *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	BuyTradeID  *uuid.UUID `gorm:"type:uuid;index" json:"buy_trade_id,omitempty"`
	SellTradeID *uuid.UUID `gorm:"type:uuid;index" json:"sell_trade_id,omitempty"`

	CommercialActiveMT           decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"commercial_active_mt"`
	CommercialPassiveMT          decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"commercial_passive_mt"`
	CommercialNetMT              decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"commercial_net_mt"`
	CommercialReductionAppliedMT decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"commercial_reduction_applied_mt"`
	ExposureSnapshotTimestamp    time.Time       `gorm:"type:timestamptz;not null" json:"exposure_snapshot_timestamp"`

	State RFQState `gorm:"type:varchar(16);not null;index" json:"state"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (RFQ) TableName() string {
	return "rfqs"
}

func (r *RFQ) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RFQSequence backs the globally monotonic RFQ number. A row is inserted
// inside the RFQ creation transaction; the autoincrement id is the sequence
// value, so the store's isolation is the only serialization point.
type RFQSequence struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (RFQSequence) TableName() string {
	return "rfq_sequences"
}
