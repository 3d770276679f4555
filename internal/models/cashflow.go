package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CashFlowBaselineSnapshot freezes the expected-cashflow view for one as_of
// date. snapshot_data carries the ordered item list as serialized JSON.
type CashFlowBaselineSnapshot struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AsOfDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_cashflow_baseline_as_of" json:"as_of_date"`

	SnapshotData     datatypes.JSON  `gorm:"type:jsonb;not null" json:"snapshot_data"`
	TotalNetCashflow decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"total_net_cashflow"`

	CorrelationID string    `gorm:"type:varchar(64);not null" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (CashFlowBaselineSnapshot) TableName() string {
	return "cashflow_baseline_snapshots"
}

func (s *CashFlowBaselineSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HedgeContractSettlementEvent records one processed HEDGE_CONTRACT_SETTLED
// event. The primary key is the caller-supplied source event id, which makes
// replay detection a plain lookup.
type HedgeContractSettlementEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID uuid.UUID `gorm:"type:uuid;not null;index" json:"contract_id"`

	SettlementDate time.Time       `gorm:"type:date;not null" json:"settlement_date"`
	SettledPrice   decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"settled_price"`

	CorrelationID string    `gorm:"type:varchar(64);not null" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (HedgeContractSettlementEvent) TableName() string {
	return "hedge_contract_settlement_events"
}

type CashFlowLeg string

const (
	CashFlowLegFixed CashFlowLeg = "FIXED"
	CashFlowLegFloat CashFlowLeg = "FLOAT"
)

type CashFlowDirection string

const (
	CashFlowDirectionIn  CashFlowDirection = "IN"
	CashFlowDirectionOut CashFlowDirection = "OUT"
)

// CashFlowLedgerEntry is one realized cash leg. The composite unique index
// makes settlement processing idempotent per (event, leg, date).
type CashFlowLedgerEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SourceEventType string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_cashflow_ledger_source_leg_date" json:"source_event_type"`
	SourceEventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_cashflow_ledger_source_leg_date" json:"source_event_id"`
	LegID           string    `gorm:"type:varchar(16);not null;uniqueIndex:uq_cashflow_ledger_source_leg_date" json:"leg_id"`
	CashflowDate    time.Time `gorm:"type:date;not null;uniqueIndex:uq_cashflow_ledger_source_leg_date" json:"cashflow_date"`

	ContractID uuid.UUID         `gorm:"type:uuid;not null;index" json:"contract_id"`
	Leg        CashFlowLeg       `gorm:"type:varchar(16);not null" json:"leg"`
	Direction  CashFlowDirection `gorm:"type:varchar(8);not null" json:"direction"`
	Currency   string            `gorm:"type:varchar(8);not null" json:"currency"`
	Amount     decimal.Decimal   `gorm:"type:numeric(18,6);not null" json:"amount"`

	CorrelationID string    `gorm:"type:varchar(64);not null" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (CashFlowLedgerEntry) TableName() string {
	return "cashflow_ledger_entries"
}

func (e *CashFlowLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
