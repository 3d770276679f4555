package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAuditEventImmutable is returned by the gorm hooks below whenever an
// update or delete targets the audit table. Audit rows are append-only.
var ErrAuditEventImmutable = errors.New("audit events are append-only")

// AuditEvent is one immutable trail entry. Checksum is the hex sha256 of the
// raw payload bytes as received; Signature is optional and opaque.
type AuditEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	EventType    string    `gorm:"type:varchar(64);not null;index" json:"event_type"`
	ObjectType   string    `gorm:"type:varchar(64);not null" json:"object_type"`
	ObjectID     string    `gorm:"type:varchar(64);not null;index" json:"object_id"`
	UserID       *string   `gorm:"type:varchar(64)" json:"user_id,omitempty"`
	TimestampUTC time.Time `gorm:"type:timestamptz;not null;index:idx_audit_events_ts_id,priority:1" json:"timestamp_utc"`

	Payload  datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Checksum string         `gorm:"type:varchar(64);not null" json:"checksum"`
	// Signature holds a detached signature over the checksum when the caller
	// supplies one. The platform stores it verbatim and never verifies it.
	Signature []byte `gorm:"type:bytea" json:"signature,omitempty"`

	CorrelationID string    `gorm:"type:varchar(64);not null" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

func (e *AuditEvent) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditEventImmutable
}

func (e *AuditEvent) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditEventImmutable
}
