package enums

import "fmt"

// OutboxEventType enumerates the integration events the publisher emits.
type OutboxEventType string

const (
	OutboxEventOrderCreated    OutboxEventType = "order.created"
	OutboxEventOrderExpired    OutboxEventType = "order.expired"
	OutboxEventMovementFlagged OutboxEventType = "inventory.movement.flagged"
)

// String implements fmt.Stringer.
func (t OutboxEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known outbox event type.
func (t OutboxEventType) IsValid() bool {
	switch t {
	case OutboxEventOrderCreated, OutboxEventOrderExpired, OutboxEventMovementFlagged:
		return true
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	eventType := OutboxEventType(value)
	if !eventType.IsValid() {
		return "", fmt.Errorf("invalid outbox event type %q", value)
	}
	return eventType, nil
}

// OutboxAggregateType names the root entity an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder    OutboxAggregateType = "order"
	OutboxAggregateMovement OutboxAggregateType = "inventory_movement"
)

// String implements fmt.Stringer.
func (t OutboxAggregateType) String() string {
	return string(t)
}

// OutboxDLQErrorReason classifies why an event was routed to the dead letter table.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable_publish_error"
	DLQReasonMalformed    OutboxDLQErrorReason = "malformed_payload"
)

// String implements fmt.Stringer.
func (r OutboxDLQErrorReason) String() string {
	return string(r)
}
