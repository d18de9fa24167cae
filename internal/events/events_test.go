package events

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/contracts"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/middleware"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func submission(cartKey string) checkout.Submission {
	return checkout.Submission{
		CartKey: cartKey,
		Kind:    cart.KindCanvas,
		Receipt: checkout.Receipt{OrderID: "o-1"},
		Lines:   []checkout.OrderLine{{ID: "rose", Size: "30x40", Quantity: 3, Category: cart.CategoryStandard}},
		Amount:  decimal.NewFromInt(550),
	}
}

func TestRabbitPublisher_PublishesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisherWithChannel(ch, nil, PublisherOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{EventsExchange + "/topic"}, ch.declared)

	ctx := middleware.WithCorrelationID(context.Background(), "cid-7")
	require.NoError(t, p.OrderSubmitted(ctx, submission("tattoo-cart:v1:a")))
	require.NoError(t, p.OrderSubmitted(ctx, submission("tattoo-cart:v1:a")))
	require.NoError(t, p.OrderSubmitted(ctx, submission("tattoo-cart:v1:b")))

	require.Len(t, ch.published, 3)
	first := ch.published[0]
	assert.Equal(t, EventsExchange, first.exchange)
	assert.Equal(t, OrderSubmittedRoutingKey, first.key)
	assert.Equal(t, amqp.Persistent, first.msg.DeliveryMode)
	assert.Equal(t, "application/json", first.msg.ContentType)

	var seqs []int64
	for _, pub := range ch.published {
		var env contracts.EventEnvelope
		require.NoError(t, json.Unmarshal(pub.msg.Body, &env))
		assert.Equal(t, "cid-7", env.CorrelationID)
		assert.Equal(t, env.EventID, pub.msg.MessageId)
		seqs = append(seqs, env.Sequence)
	}
	assert.Equal(t, []int64{1, 2, 1}, seqs)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	p, err := NewPublisherWithChannel(ch, nil, PublisherOptions{})
	require.NoError(t, err)

	err = p.OrderSubmitted(context.Background(), submission("k"))
	require.ErrorIs(t, err, amqp.ErrClosed)
}

func TestRabbitPublisher_RejectsInvalidEvent(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisherWithChannel(ch, nil, PublisherOptions{})
	require.NoError(t, err)

	sub := submission("k")
	sub.Lines = nil
	require.Error(t, p.OrderSubmitted(context.Background(), sub))
	assert.Empty(t, ch.published)
}

func TestMemorySequence(t *testing.T) {
	seq := NewMemorySequence()
	ctx := context.Background()

	n, err := seq.NextSequence(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = seq.NextSequence(ctx, "cart-1")
	assert.Equal(t, int64(2), n)
	n, _ = seq.NextSequence(ctx, "cart-2")
	assert.Equal(t, int64(1), n)

	_, err = seq.NextSequence(ctx, "")
	require.Error(t, err)
}

func TestPostgresSequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequences`)).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequences`)).
		WithArgs("cart-2").
		WillReturnError(errors.New("deadlock detected"))

	repo := NewPostgresSequence(mock)

	n, err := repo.NextSequence(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = repo.NextSequence(context.Background(), "cart-2")
	require.ErrorContains(t, err, "increment sequence")

	_, err = repo.NextSequence(context.Background(), "")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sub := submission("tattoo-cart:v1:a")
	sub.SubmittedAt = time.Now()

	require.NoError(t, LogNotifier{Logger: zap.New(core)}.OrderSubmitted(context.Background(), sub))

	entries := logs.FilterMessage("order accepted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "550", entries[0].ContextMap()["amount"])
}
