package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox/payloads"
)

type fakeInserter struct {
	rows []any
	err  error
}

func (f *fakeInserter) InsertRows(_ context.Context, _ string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func newTestConsumer(t *testing.T, inserter *fakeInserter) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(inserter, "inventory_movements", logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer
}

func buildFlaggedEnvelope(t *testing.T, event payloads.MovementFlaggedEvent) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Data:       data,
	}
}

func TestConsumerInsertsFlaggedMovementRow(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := newTestConsumer(t, inserter)

	event := payloads.MovementFlaggedEvent{
		MovementID:  uuid.New(),
		InventoryID: uuid.New(),
		BranchID:    uuid.New(),
		Delta:       -3,
		ResultStock: -2,
		Source:      enums.MovementSourceSync,
		ReferenceID: "evt-cloud-1",
		OccurredAt:  time.Date(2026, 2, 1, 8, 59, 0, 0, time.UTC),
	}
	envelope := buildFlaggedEnvelope(t, event)

	if err := consumer.Process(context.Background(), enums.OutboxEventMovementFlagged, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(inserter.rows))
	}
	row, ok := inserter.rows[0].(*movementRow)
	if !ok {
		t.Fatalf("expected movementRow, got %T", inserter.rows[0])
	}
	if row.MovementID != event.MovementID.String() {
		t.Fatalf("movement id mismatch: %s", row.MovementID)
	}
	if row.Delta != -3 || row.ResultStock != -2 {
		t.Fatalf("unexpected delta/result: %d/%d", row.Delta, row.ResultStock)
	}
	if row.Source != string(enums.MovementSourceSync) {
		t.Fatalf("unexpected source: %s", row.Source)
	}
	if !row.OccurredAt.Equal(event.OccurredAt) {
		t.Fatalf("unexpected occurred_at: %v", row.OccurredAt)
	}
	if !row.Payload.Valid {
		t.Fatalf("payload should carry the raw envelope data")
	}
}

func TestConsumerIgnoresUnhandledEventTypes(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := newTestConsumer(t, inserter)

	envelope := outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage(`{"order_id":"x"}`),
	}
	if err := consumer.Process(context.Background(), enums.OutboxEventOrderCreated, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(inserter.rows))
	}
}

func TestConsumerRejectsUnknownPayloadVersion(t *testing.T) {
	inserter := &fakeInserter{}
	consumer := newTestConsumer(t, inserter)

	envelope := buildFlaggedEnvelope(t, payloads.MovementFlaggedEvent{MovementID: uuid.New()})
	envelope.Version = 2
	if err := consumer.Process(context.Background(), enums.OutboxEventMovementFlagged, envelope); err == nil {
		t.Fatalf("expected decode error for unregistered version")
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows on decode failure")
	}
}

func TestConsumerPropagatesInsertError(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("bigquery unavailable")}
	consumer := newTestConsumer(t, inserter)

	envelope := buildFlaggedEnvelope(t, payloads.MovementFlaggedEvent{MovementID: uuid.New()})
	if err := consumer.Process(context.Background(), enums.OutboxEventMovementFlagged, envelope); err == nil {
		t.Fatalf("expected insert error")
	}
}
