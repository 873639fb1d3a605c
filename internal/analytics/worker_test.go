package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
)

type stubHandler struct {
	called bool
	err    error
	event  enums.OutboxEventType
}

func (s *stubHandler) Process(_ context.Context, eventType enums.OutboxEventType, _ outbox.PayloadEnvelope) error {
	s.called = true
	s.event = eventType
	return s.err
}

type stubManager struct {
	checkResult bool
	checkErr    error
	checked     []uuid.UUID
	deleted     []uuid.UUID
}

func (s *stubManager) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

func newTestWorker(t *testing.T, handler Handler, manager idempotencyChecker) *Worker {
	t.Helper()
	// The subscriber is only touched by Run, so process-level tests can use a
	// placeholder value.
	return &Worker{
		subscription: &gcppubsub.Subscriber{},
		handler:      handler,
		manager:      manager,
		logg:         logger.New(logger.Options{ServiceName: "test"}),
	}
}

func buildFlaggedMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"movement_id":"` + uuid.NewString() + `"}`),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": string(enums.OutboxEventMovementFlagged),
		},
	}
}

func TestWorkerProcessAcksAndInvokesHandler(t *testing.T) {
	handler := &stubHandler{}
	manager := &stubManager{}
	worker := newTestWorker(t, handler, manager)

	res := worker.process(context.Background(), buildFlaggedMessage(t))
	if res.nack {
		t.Fatalf("expected ack")
	}
	if !handler.called {
		t.Fatalf("handler not invoked")
	}
	if handler.event != enums.OutboxEventMovementFlagged {
		t.Fatalf("unexpected event type %s", handler.event)
	}
	if len(manager.checked) != 1 {
		t.Fatalf("expected one idempotency check")
	}
}

func TestWorkerProcessSkipsAlreadyProcessed(t *testing.T) {
	handler := &stubHandler{}
	manager := &stubManager{checkResult: true}
	worker := newTestWorker(t, handler, manager)

	res := worker.process(context.Background(), buildFlaggedMessage(t))
	if res.nack {
		t.Fatalf("expected ack for duplicate")
	}
	if handler.called {
		t.Fatalf("handler should not run for duplicates")
	}
}

func TestWorkerProcessNacksOnHandlerError(t *testing.T) {
	handler := &stubHandler{err: errors.New("boom")}
	manager := &stubManager{}
	worker := newTestWorker(t, handler, manager)

	res := worker.process(context.Background(), buildFlaggedMessage(t))
	if !res.nack {
		t.Fatalf("expected nack on handler error")
	}
	if len(manager.deleted) != 1 {
		t.Fatalf("expected idempotency marker delete so the event can retry")
	}
}

func TestWorkerProcessDropsMalformedMessages(t *testing.T) {
	handler := &stubHandler{}
	manager := &stubManager{}
	worker := newTestWorker(t, handler, manager)

	res := worker.process(context.Background(), &gcppubsub.Message{Data: []byte("not json")})
	if res.nack {
		t.Fatalf("malformed message should ack, redelivery cannot fix it")
	}
	if handler.called || len(manager.checked) != 0 {
		t.Fatalf("nothing downstream should run for malformed messages")
	}
}

func TestWorkerProcessDropsUnknownEventType(t *testing.T) {
	handler := &stubHandler{}
	manager := &stubManager{}
	worker := newTestWorker(t, handler, manager)

	msg := buildFlaggedMessage(t)
	msg.Attributes["event_type"] = "something.else"
	res := worker.process(context.Background(), msg)
	if res.nack {
		t.Fatalf("unknown event type should ack")
	}
	if handler.called {
		t.Fatalf("handler should not run")
	}
}
