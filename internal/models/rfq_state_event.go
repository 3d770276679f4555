package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RFQStateEvent is the append-only transition log for an RFQ. Award
// transitions carry the serialized ranking snapshot and winner identifiers.
type RFQStateEvent struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RFQID uuid.UUID `gorm:"type:uuid;not null;index" json:"rfq_id"`

	FromState RFQState `gorm:"type:varchar(16);not null" json:"from_state"`
	ToState   RFQState `gorm:"type:varchar(16);not null" json:"to_state"`

	Trigger                  *string    `gorm:"type:varchar(64)" json:"trigger,omitempty"`
	TriggeringQuoteID        *uuid.UUID `gorm:"type:uuid" json:"triggering_quote_id,omitempty"`
	TriggeringCounterpartyID *string    `gorm:"type:varchar(64)" json:"triggering_counterparty_id,omitempty"`

	UserID *string `gorm:"type:varchar(64)" json:"user_id,omitempty"`
	Reason *string `gorm:"type:varchar(128)" json:"reason,omitempty"`

	RankingSnapshot        datatypes.JSON `gorm:"type:jsonb" json:"ranking_snapshot,omitempty"`
	WinningQuoteIDs        datatypes.JSON `gorm:"type:jsonb" json:"winning_quote_ids,omitempty"`
	WinningCounterpartyIDs datatypes.JSON `gorm:"type:jsonb" json:"winning_counterparty_ids,omitempty"`
	AwardTimestamp         *time.Time     `gorm:"type:timestamptz" json:"award_timestamp,omitempty"`
	CreatedContractIDs     datatypes.JSON `gorm:"type:jsonb" json:"created_contract_ids,omitempty"`

	EventTimestamp *time.Time `gorm:"type:timestamptz" json:"event_timestamp,omitempty"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (RFQStateEvent) TableName() string {
	return "rfq_state_events"
}

func (e *RFQStateEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
