package contracts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
)

const (
	OrderSubmittedEventName    = "OrderSubmitted"
	OrderSubmittedEventVersion = 1
	OrderSubmittedSchemaPath   = "contracts/events/storefront/OrderSubmitted.v1.enveloped.schema.json"
	StorefrontProducer         = "storefront"
)

type EventEnvelope struct {
	EventName     string                `json:"eventName"`
	EventVersion  int                   `json:"eventVersion"`
	EventID       string                `json:"eventId"`
	CorrelationID string                `json:"correlationId,omitempty"`
	CausationID   string                `json:"causationId,omitempty"`
	Producer      string                `json:"producer"`
	PartitionKey  string                `json:"partitionKey"`
	Sequence      int64                 `json:"sequence"`
	OccurredAt    time.Time             `json:"occurredAt"`
	Schema        string                `json:"schema"`
	Payload       OrderSubmittedPayload `json:"payload"`
}

type OrderSubmittedPayload struct {
	CartKey   string               `json:"cartKey"`
	Kind      string               `json:"kind"`
	OrderID   string               `json:"orderId,omitempty"`
	Customer  OrderCustomer        `json:"customer"`
	Items     []OrderSubmittedItem `json:"items"`
	Amount    decimal.Decimal      `json:"amount"`
	Timestamp time.Time            `json:"timestamp"`
}

// OrderCustomer is deliberately narrower than checkout.Customer: the
// address and phone stay with the order API.
type OrderCustomer struct {
	FullName string `json:"fullName"`
	City     string `json:"city"`
}

type OrderSubmittedItem struct {
	ID       string           `json:"id"`
	Size     string           `json:"size"`
	Quantity int              `json:"quantity"`
	Category string           `json:"category,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

type EnvelopeOptions struct {
	PartitionKey  string
	Sequence      int64
	Producer      string
	SchemaPath    string
	CorrelationID string
	CausationID   string
	EventID       string
	OccurredAt    time.Time
}

func BuildOrderSubmittedEvent(sub checkout.Submission, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = sub.SubmittedAt
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	schemaPath := opts.SchemaPath
	if schemaPath == "" {
		schemaPath = OrderSubmittedSchemaPath
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontProducer
	}

	partitionKey := opts.PartitionKey
	if partitionKey == "" {
		partitionKey = sub.CartKey
	}

	payload := OrderSubmittedPayload{
		CartKey:   sub.CartKey,
		Kind:      string(sub.Kind),
		OrderID:   sub.Receipt.OrderID,
		Customer:  OrderCustomer{FullName: sub.Customer.FullName, City: sub.Customer.City},
		Amount:    sub.Amount,
		Timestamp: occurredAt,
	}
	for _, l := range sub.Lines {
		payload.Items = append(payload.Items, OrderSubmittedItem{
			ID:       l.ID,
			Size:     l.Size,
			Quantity: l.Quantity,
			Category: string(l.Category),
			Price:    l.Price,
		})
	}

	return EventEnvelope{
		EventName:     OrderSubmittedEventName,
		EventVersion:  OrderSubmittedEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Producer:      producer,
		PartitionKey:  partitionKey,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Schema:        schemaPath,
		Payload:       payload,
	}
}

// Validate checks what a consumer relies on before the event is published.
func (e EventEnvelope) Validate() error {
	if e.EventName != OrderSubmittedEventName {
		return fmt.Errorf("unexpected eventName %q", e.EventName)
	}
	if e.EventVersion != OrderSubmittedEventVersion {
		return fmt.Errorf("unexpected eventVersion %d", e.EventVersion)
	}
	if _, err := uuid.Parse(e.EventID); err != nil {
		return fmt.Errorf("invalid eventId: %w", err)
	}
	if e.PartitionKey == "" {
		return errors.New("missing partitionKey")
	}
	if e.Sequence <= 0 {
		return errors.New("sequence must be positive")
	}
	if e.Payload.Kind == "" {
		return errors.New("payload: missing kind")
	}
	if len(e.Payload.Items) == 0 {
		return errors.New("payload: at least one item is required")
	}
	for i, it := range e.Payload.Items {
		if it.ID == "" || it.Quantity < 1 {
			return fmt.Errorf("payload: items[%d] is incomplete", i)
		}
	}
	return nil
}
