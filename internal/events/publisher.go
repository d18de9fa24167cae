package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/contracts"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/middleware"
)

const publishTimeout = 3 * time.Second

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	exchangeDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher announces accepted orders on the events exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	ch       Channel
	seq      SequenceRepository
	producer string
	logger   *zap.Logger
}

type PublisherOptions struct {
	Producer string
	Logger   *zap.Logger
}

func NewRabbitPublisher(conn *amqp.Connection, seq SequenceRepository, opts PublisherOptions) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisherWithChannel(ch, seq, opts)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func NewPublisherWithChannel(ch Channel, seq SequenceRepository, opts PublisherOptions) (*RabbitPublisher, error) {
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	if seq == nil {
		seq = NewMemorySequence()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RabbitPublisher{ch: ch, seq: seq, producer: opts.Producer, logger: logger}, nil
}

// OrderSubmitted implements checkout.Notifier.
func (p *RabbitPublisher) OrderSubmitted(ctx context.Context, sub checkout.Submission) error {
	seq, err := p.seq.NextSequence(ctx, sub.CartKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := contracts.BuildOrderSubmittedEvent(sub, contracts.EnvelopeOptions{
		Sequence:      seq,
		Producer:      p.producer,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := env.Validate(); err != nil {
		return fmt.Errorf("invalid OrderSubmitted event: %w", err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderSubmitted envelope: %w", err)
	}

	if err := p.publishJSON(ctx, OrderSubmittedRoutingKey, env.EventID, body); err != nil {
		return fmt.Errorf("publish OrderSubmitted: %w", err)
	}
	p.logger.Debug("event published",
		zap.String("event", env.EventName),
		zap.String("event_id", env.EventID),
		zap.Int64("sequence", seq),
	)
	return nil
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// a channel must not be used for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
