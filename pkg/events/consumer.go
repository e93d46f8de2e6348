package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kudupay/kuduq-backend/pkg/obs"
)

// Handler processes one resolved envelope. Implementations must treat every
// call as independent: a failure affects only the message that caused it.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

// Consumer reads raw messages off the queue, normalizes and resolves each
// one, and hands typed envelopes to the handler. Messages are processed
// sequentially in delivery order; a message that fails to decode, validate,
// or dispatch is logged and skipped, never retried here (redelivery is the
// queue transport's concern).
type Consumer struct {
	reader  *kafka.Reader
	handler Handler

	consumed metric.Int64Counter
	dropped  metric.Int64Counter
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})

	meter := otel.Meter("github.com/kudupay/kuduq-backend/events")
	consumed, _ := meter.Int64Counter("queue_messages_consumed_total",
		metric.WithDescription("Messages read off the queue"))
	dropped, _ := meter.Int64Counter("queue_messages_dropped_total",
		metric.WithDescription("Messages dropped before or during dispatch"))

	return &Consumer{
		reader:   reader,
		handler:  handler,
		consumed: consumed,
		dropped:  dropped,
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return fmt.Errorf("events: read message: %w", err)
		}
		c.Process(ctx, m.Value)
	}
}

// Process runs the normalize -> resolve -> dispatch pipeline for one raw
// message body. Failures are absorbed so the caller can move on to the next
// message in the batch.
func (c *Consumer) Process(ctx context.Context, body []byte) {
	ctx = obs.WithMessageID(ctx, uuid.NewString())
	c.consumed.Add(ctx, 1)

	raw, err := Normalize(body)
	if err != nil {
		obs.Error(ctx, "dropping undecodable queue message", err, "err_kind", obs.ErrKindValidation)
		c.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "decode")))
		return
	}

	envelope, err := Resolve(raw)
	if err != nil {
		obs.Error(ctx, "dropping invalid queue message", err, "err_kind", obs.ErrKindValidation)
		c.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "schema")))
		return
	}

	if err := c.handler.Handle(ctx, envelope); err != nil {
		obs.Error(ctx, "handler failed for queue message", err,
			"event_type", string(envelope.Kind()))
		c.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "handler")))
	}
}

func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
