package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/enriquemoya/cardstock-backend/pkg/enums"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox/payloads"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox/registry"
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Consumer streams flagged inventory movements into BigQuery. Flagged rows
// are the manual-reconciliation queue, so every event lands as one row.
type Consumer struct {
	client   tableInserter
	table    string
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

// NewConsumer builds the movement analytics consumer.
func NewConsumer(client tableInserter, table string, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:   client,
		table:    strings.TrimSpace(table),
		decoders: newDecoderRegistry(),
		logg:     logg,
	}, nil
}

func newDecoderRegistry() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.OutboxEventMovementFlagged, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.MovementFlaggedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	return reg
}

// Process ingests a flagged-movement envelope into BigQuery. Event types the
// consumer does not handle are acknowledged without a row.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.OutboxEventMovementFlagged {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return nil
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		return fmt.Errorf("decode flagged movement: %w", err)
	}
	event, ok := decoded.(*payloads.MovementFlaggedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", decoded)
	}

	row := buildMovementRow(envelope, event)
	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert movement row", err)
		return err
	}

	c.logg.Info(logCtx, "flagged movement ingested")
	return nil
}

type movementRow struct {
	EventID     string             `bigquery:"event_id"`
	MovementID  string             `bigquery:"movement_id"`
	InventoryID string             `bigquery:"inventory_id"`
	BranchID    string             `bigquery:"branch_id"`
	Delta       int                `bigquery:"delta"`
	ResultStock int                `bigquery:"result_stock"`
	Source      string             `bigquery:"source"`
	ReferenceID string             `bigquery:"reference_id"`
	OccurredAt  time.Time          `bigquery:"occurred_at"`
	Payload     cbigquery.NullJSON `bigquery:"payload"`
}

func buildMovementRow(envelope outbox.PayloadEnvelope, event *payloads.MovementFlaggedEvent) *movementRow {
	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = envelope.OccurredAt
	}

	return &movementRow{
		EventID:     envelope.EventID,
		MovementID:  event.MovementID.String(),
		InventoryID: event.InventoryID.String(),
		BranchID:    event.BranchID.String(),
		Delta:       event.Delta,
		ResultStock: event.ResultStock,
		Source:      string(event.Source),
		ReferenceID: event.ReferenceID,
		OccurredAt:  occurredAt.UTC(),
		Payload:     payloadJSON,
	}
}
