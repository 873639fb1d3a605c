package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
)

// EventLine is one product delta inside a cloud event.
type EventLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CloudEvent is one entry of the cloud inventory event log.
type CloudEvent struct {
	EventID    string                   `json:"event_id"`
	Type       enums.InventoryEventType `json:"type"`
	OccurredAt time.Time                `json:"occurred_at"`
	BranchID   uuid.UUID                `json:"branch_id"`
	Lines      []EventLine              `json:"lines"`
}

// EventFeed abstracts the cloud event log so the engine can run against the
// HTTP client in production and a synthetic feed in tests.
type EventFeed interface {
	FetchPendingEvents(ctx context.Context, posID string, since time.Time) ([]CloudEvent, error)
	AcknowledgeEvents(ctx context.Context, posID string, eventIDs []string) error
}
