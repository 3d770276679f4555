package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashSettlementPrice is an ingested daily cash settlement price with full
// fetch provenance. Immutable for a given (source, symbol, settlement_date):
// repeated ingestion skips duplicates and never overwrites.
type CashSettlementPrice struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Source         string    `gorm:"type:varchar(32);not null;uniqueIndex:uq_cash_settlement_source_symbol_date" json:"source"`
	Symbol         string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_cash_settlement_source_symbol_date;index" json:"symbol"`
	SettlementDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_cash_settlement_source_symbol_date;index" json:"settlement_date"`

	PriceUSD decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"price_usd"`

	SourceURL  string    `gorm:"type:text;not null" json:"source_url"`
	HTMLSHA256 string    `gorm:"type:varchar(64);not null" json:"html_sha256"`
	FetchedAt  time.Time `gorm:"type:timestamptz;not null" json:"fetched_at"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (CashSettlementPrice) TableName() string {
	return "cash_settlement_prices"
}

func (p *CashSettlementPrice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
