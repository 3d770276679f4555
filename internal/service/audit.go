package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hedgeback/internal/apperr"
	"hedgeback/internal/models"
	"hedgeback/internal/repository"
)

// AuditService appends to and pages through the immutable audit trail.
// Recording happens after the audited operation has committed; a recording
// failure is logged by the caller, never surfaced as a business failure.
type AuditService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type RecordAuditParams struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"`
	ObjectType    string    `json:"object_type"`
	ObjectID      string    `json:"object_id"`
	UserID        *string   `json:"user_id,omitempty"`
	Payload       any       `json:"payload"`
	Signature     []byte    `json:"signature,omitempty"`
	CorrelationID string    `json:"correlation_id"`
}

func (s *AuditService) Record(ctx context.Context, params RecordAuditParams) (*models.AuditEvent, error) {
	if params.EventID == uuid.Nil {
		return nil, apperr.Validation("event_id is required")
	}
	if params.EventType == "" || params.ObjectType == "" || params.ObjectID == "" {
		return nil, apperr.Validation("event_type, object_type and object_id are required")
	}
	raw, err := json.Marshal(params.Payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "serialize audit payload")
	}
	sum := sha256.Sum256(raw)

	event := &models.AuditEvent{
		ID:            params.EventID,
		EventType:     params.EventType,
		ObjectType:    params.ObjectType,
		ObjectID:      params.ObjectID,
		UserID:        params.UserID,
		TimestampUTC:  time.Now().UTC(),
		Payload:       raw,
		Checksum:      hex.EncodeToString(sum[:]),
		Signature:     params.Signature,
		CorrelationID: params.CorrelationID,
	}
	if err := s.Repo.CreateAuditEvent(ctx, event); err != nil {
		return nil, mapDuplicate(err, "audit event %s already exists", params.EventID)
	}
	return event, nil
}

// AuditPage is one forward-only page of the trail with an opaque cursor to
// the next one.
type AuditPage struct {
	Events     []models.AuditEvent `json:"events"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

func encodeCursor(ev models.AuditEvent) string {
	raw := ev.TimestampUTC.UTC().Format(time.RFC3339Nano) + "|" + ev.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", apperr.Validation("malformed cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", apperr.Validation("malformed cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", apperr.Validation("malformed cursor timestamp")
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return time.Time{}, "", apperr.Validation("malformed cursor id")
	}
	return ts, parts[1], nil
}

// List pages the trail strictly ordered by (timestamp_utc, id) ascending.
// Limit is bounded to 1..200.
func (s *AuditService) List(ctx context.Context, cursor string, limit int) (*AuditPage, error) {
	if limit < 1 || limit > 200 {
		return nil, apperr.Validation("limit must be between 1 and 200, got %d", limit)
	}
	var afterTS time.Time
	var afterID string
	if cursor != "" {
		var err error
		afterTS, afterID, err = decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
	}

	// Fetch one extra row to learn whether another page exists.
	events, err := s.Repo.ListAuditEventsAfter(ctx, afterTS, afterID, limit+1)
	if err != nil {
		return nil, err
	}
	page := &AuditPage{}
	if len(events) > limit {
		events = events[:limit]
		page.NextCursor = encodeCursor(events[len(events)-1])
	}
	page.Events = events
	return page, nil
}
