package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"hedgeback/internal/apperr"
)

func recordParams(eventType string) RecordAuditParams {
	return RecordAuditParams{
		EventID:       uuid.New(),
		EventType:     eventType,
		ObjectType:    "order",
		ObjectID:      uuid.New().String(),
		Payload:       map[string]any{"quantity_mt": "10"},
		CorrelationID: uuid.New().String(),
	}
}

func TestAuditRecord_ChecksumOverPayload(t *testing.T) {
	f := newFixture()
	svc := f.audit()

	params := recordParams("ORDER_CREATED")
	event, err := svc.Record(context.Background(), params)
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	raw, _ := json.Marshal(params.Payload)
	sum := sha256.Sum256(raw)
	if event.Checksum != hex.EncodeToString(sum[:]) {
		t.Fatalf("checksum=%s want sha256 of payload", event.Checksum)
	}
	if len(event.Payload) == 0 || event.TimestampUTC.IsZero() {
		t.Fatalf("event incomplete: %+v", event)
	}
}

func TestAuditRecord_DuplicateIDConflicts(t *testing.T) {
	f := newFixture()
	svc := f.audit()
	ctx := context.Background()

	params := recordParams("ORDER_CREATED")
	if _, err := svc.Record(ctx, params); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.Record(ctx, params); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err=%v want conflict", err)
	}
}

func TestAuditRecord_Validation(t *testing.T) {
	f := newFixture()
	svc := f.audit()
	ctx := context.Background()

	missingID := recordParams("X")
	missingID.EventID = uuid.Nil
	if _, err := svc.Record(ctx, missingID); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing id err=%v want validation", err)
	}

	missingType := recordParams("")
	if _, err := svc.Record(ctx, missingType); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing type err=%v want validation", err)
	}
}

func TestAuditList_CursorPagination(t *testing.T) {
	f := newFixture()
	svc := f.audit()
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		params := recordParams("ORDER_CREATED")
		event, err := svc.Record(ctx, params)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		ids = append(ids, event.ID)
	}

	page1, err := svc.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(page1.Events) != 2 || page1.NextCursor == "" {
		t.Fatalf("page1 events=%d cursor=%q", len(page1.Events), page1.NextCursor)
	}

	page2, err := svc.List(ctx, page1.NextCursor, 2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	page3, err := svc.List(ctx, page2.NextCursor, 2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(page3.Events) != 1 || page3.NextCursor != "" {
		t.Fatalf("page3 events=%d cursor=%q want 1 event, empty cursor", len(page3.Events), page3.NextCursor)
	}

	var got []uuid.UUID
	for _, page := range []*AuditPage{page1, page2, page3} {
		for _, ev := range page.Events {
			got = append(got, ev.ID)
		}
	}
	if len(got) != len(ids) {
		t.Fatalf("paged=%d want=%d", len(got), len(ids))
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range got {
		if seen[id] {
			t.Fatalf("event %s appeared twice across pages", id)
		}
		seen[id] = true
	}
	// Timestamps never go backwards across the traversal.
	var all []time.Time
	for _, page := range []*AuditPage{page1, page2, page3} {
		for _, ev := range page.Events {
			all = append(all, ev.TimestampUTC)
		}
	}
	for i := 1; i < len(all); i++ {
		if all[i].Before(all[i-1]) {
			t.Fatalf("timestamps went backwards at %d", i)
		}
	}
}

func TestAuditList_LimitBoundsAndBadCursor(t *testing.T) {
	f := newFixture()
	svc := f.audit()
	ctx := context.Background()

	for _, limit := range []int{0, -1, 201} {
		if _, err := svc.List(ctx, "", limit); !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("limit=%d err=%v want validation", limit, err)
		}
	}
	if _, err := svc.List(ctx, "not-base64!!", 10); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("bad cursor err=%v want validation", err)
	}
}
