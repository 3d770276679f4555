package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RFQInvitationChannel string

const (
	RFQInvitationChannelEmail    RFQInvitationChannel = "email"
	RFQInvitationChannelAPI      RFQInvitationChannel = "api"
	RFQInvitationChannelWhatsapp RFQInvitationChannel = "whatsapp"
	RFQInvitationChannelBank     RFQInvitationChannel = "bank"
	RFQInvitationChannelBroker   RFQInvitationChannel = "broker"
	RFQInvitationChannelOther    RFQInvitationChannel = "other"
)

type RFQInvitationStatus string

const (
	RFQInvitationStatusQueued RFQInvitationStatus = "queued"
	RFQInvitationStatusSent   RFQInvitationStatus = "sent"
	RFQInvitationStatusFailed RFQInvitationStatus = "failed"
)

// RFQInvitation is append-only per RFQ: a refresh creates new rows, never
// mutates old ones.
type RFQInvitation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RFQID     uuid.UUID `gorm:"type:uuid;not null;index" json:"rfq_id"`
	RFQNumber string    `gorm:"type:varchar(32);not null" json:"rfq_number"`

	RecipientID   string               `gorm:"type:varchar(64);not null" json:"recipient_id"`
	RecipientName string               `gorm:"type:varchar(128);not null" json:"recipient_name"`
	Channel       RFQInvitationChannel `gorm:"type:varchar(16);not null" json:"channel"`

	MessageBody       string              `gorm:"type:text;not null" json:"message_body"`
	ProviderMessageID string              `gorm:"type:varchar(128);not null" json:"provider_message_id"`
	SendStatus        RFQInvitationStatus `gorm:"type:varchar(16);not null" json:"send_status"`
	SentAt            time.Time           `gorm:"type:timestamptz;not null" json:"sent_at"`
	IdempotencyKey    string              `gorm:"type:varchar(128);not null" json:"idempotency_key"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (RFQInvitation) TableName() string {
	return "rfq_invitations"
}

func (i *RFQInvitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
