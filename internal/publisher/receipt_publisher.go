package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "sale-receipts"
	EventType    = "SaleCompleted"

	maxAttempts = 5
)

var ErrQueueFull = errors.New("receipt queue is full")

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type outboxEntry struct {
	receipt  domain.Receipt
	attempts int
}

// ReceiptPublisher queues completed sales in memory and flushes them to
// Kafka on a ticker, so a slow broker never holds up a submission.
type ReceiptPublisher struct {
	writer    MessageWriter
	queue     chan domain.Receipt
	flushTick time.Duration
	timeout   time.Duration
	retry     []outboxEntry
	log       *slog.Logger
}

func NewReceiptPublisher(topic string, log *slog.Logger, brokers ...string) *ReceiptPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newReceiptPublisher(w, log)
}

func newReceiptPublisher(w MessageWriter, log *slog.Logger) *ReceiptPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &ReceiptPublisher{
		writer:    w,
		queue:     make(chan domain.Receipt, 256),
		flushTick: time.Second,
		timeout:   5 * time.Second,
		log:       log,
	}
}

// SaleCompleted enqueues a receipt without blocking.
func (p *ReceiptPublisher) SaleCompleted(_ context.Context, r domain.Receipt) error {
	select {
	case p.queue <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run flushes queued receipts until ctx is done, then makes one last flush.
func (p *ReceiptPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.flushTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.flush(ctx)
		case <-ctx.Done():
			p.flush(context.WithoutCancel(ctx))
			return
		}
	}
}

func (p *ReceiptPublisher) Close() error {
	return p.writer.Close()
}

func (p *ReceiptPublisher) flush(ctx context.Context) {
	batch := p.retry
	p.retry = nil
drain:
	for {
		select {
		case r := <-p.queue:
			batch = append(batch, outboxEntry{receipt: r})
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return
	}

	msgs := make([]kafka.Message, 0, len(batch))
	entries := make([]outboxEntry, 0, len(batch))
	for _, e := range batch {
		msg, err := receiptMessage(e.receipt)
		if err != nil {
			p.log.Error("failed to encode receipt", "sale_id", e.receipt.SaleID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
		entries = append(entries, e)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msgs...); err != nil {
		for _, e := range entries {
			e.attempts++
			if e.attempts >= maxAttempts {
				p.log.Error("dropping receipt after repeated publish failures",
					"sale_id", e.receipt.SaleID, "attempts", e.attempts, "error", err)
				continue
			}
			p.retry = append(p.retry, e)
		}
		p.log.Warn("failed to publish receipts", "count", len(entries), "error", err)
		return
	}
	p.log.Debug("receipts published", "count", len(msgs))
}

func receiptMessage(r domain.Receipt) (kafka.Message, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(r.SaleID), // sale id keeps redeliveries on one partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
		},
	}, nil
}
