package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	m        sync.RWMutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.m.Lock()
	defer w.m.Unlock()
	w.closed = true
	return nil
}

func (w *mockWriter) written() []kafka.Message {
	w.m.RLock()
	defer w.m.RUnlock()
	return append([]kafka.Message(nil), w.messages...)
}

func (w *mockWriter) setErr(err error) {
	w.m.Lock()
	defer w.m.Unlock()
	w.err = err
}

func receipt(id string) domain.Receipt {
	return domain.Receipt{
		SaleID:        id,
		StoreID:       "store-1",
		Total:         decimal.NewFromInt(110),
		PaymentMethod: domain.PaymentCash,
		CompletedAt:   time.Now(),
	}
}

func TestFlush_WritesKeyedMessages(t *testing.T) {
	w := &mockWriter{}
	p := newReceiptPublisher(w, nil)

	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-1")))
	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-2")))
	p.flush(context.Background())

	msgs := w.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "sale-1", string(msgs[0].Key))
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)
	assert.Equal(t, EventType, string(msgs[0].Headers[0].Value))

	var got domain.Receipt
	require.NoError(t, json.Unmarshal(msgs[1].Value, &got))
	assert.Equal(t, "sale-2", got.SaleID)
	assert.True(t, decimal.NewFromInt(110).Equal(got.Total))
}

func TestFlush_RetriesFailedBatch(t *testing.T) {
	w := &mockWriter{err: errors.New("leader not available")}
	p := newReceiptPublisher(w, nil)

	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-1")))
	p.flush(context.Background())
	assert.Empty(t, w.written())
	require.Len(t, p.retry, 1)

	w.setErr(nil)
	p.flush(context.Background())
	require.Len(t, w.written(), 1)
	assert.Empty(t, p.retry)
}

func TestFlush_DropsAfterMaxAttempts(t *testing.T) {
	w := &mockWriter{err: errors.New("broker down")}
	p := newReceiptPublisher(w, nil)

	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-1")))
	for i := 0; i < maxAttempts; i++ {
		p.flush(context.Background())
	}
	assert.Empty(t, p.retry)
}

func TestSaleCompleted_QueueFull(t *testing.T) {
	p := newReceiptPublisher(&mockWriter{}, nil)
	p.queue = make(chan domain.Receipt, 1)

	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-1")))
	assert.ErrorIs(t, p.SaleCompleted(context.Background(), receipt("sale-2")), ErrQueueFull)
}

func TestRun_FlushesOnTickAndShutdown(t *testing.T) {
	w := &mockWriter{}
	p := newReceiptPublisher(w, nil)
	p.flushTick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-1")))
	require.Eventually(t, func() bool { return len(w.written()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.SaleCompleted(context.Background(), receipt("sale-2")))
	cancel()
	<-done

	assert.Len(t, w.written(), 2)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
