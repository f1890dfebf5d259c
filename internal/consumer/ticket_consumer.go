// Package consumer prints tickets for sales announced on the receipts topic.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/publisher"
	"github.com/fjod/go_pos/internal/ticket"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const DefaultGroupID = "ticket-printer"

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type TicketConsumer struct {
	reader MessageReader
	sink   ticket.Sink
	opts   ticket.Options
	log    *slog.Logger
}

func NewTicketConsumer(topic, groupID string, sink ticket.Sink, opts ticket.Options, log *slog.Logger, brokers ...string) *TicketConsumer {
	if topic == "" {
		topic = publisher.DefaultTopic
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newTicketConsumer(reader, sink, opts, log)
}

func newTicketConsumer(r MessageReader, sink ticket.Sink, opts ticket.Options, log *slog.Logger) *TicketConsumer {
	if log == nil {
		log = slog.Default()
	}
	return &TicketConsumer{reader: r, sink: sink, opts: opts, log: log}
}

func (c *TicketConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *TicketConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing kafka reader", "error", err)
	}
}

func (c *TicketConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.log.ErrorContext(ctx, "error reading message", "error", err)
		return
	}

	if et := eventType(m); et != "" && et != publisher.EventType {
		c.log.DebugContext(ctx, "skipping message", "event_type", et, "offset", m.Offset)
		return
	}

	name, err := c.handle(m.Value)
	if err != nil {
		c.log.ErrorContext(ctx, "failed to print ticket", "offset", m.Offset, "key", string(m.Key), "error", err)
		return
	}
	c.log.InfoContext(ctx, "ticket printed", "ticket", name, "offset", m.Offset)
}

// handle prints one receipt and returns the name the ticket was written
// under. Sales the API echoed back without an id get a generated name.
func (c *TicketConsumer) handle(payload []byte) (string, error) {
	var r domain.Receipt
	if err := json.Unmarshal(payload, &r); err != nil {
		return "", fmt.Errorf("parse receipt: %w", err)
	}
	name := r.SaleID
	if name == "" {
		name = "unidentified-" + uuid.NewString()
	}
	if err := c.sink.Write(name, ticket.Render(r, c.opts)); err != nil {
		return "", err
	}
	return name, nil
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
