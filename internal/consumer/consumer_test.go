package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"commerce-service/internal/events"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeCache) DeleteProducts(ctx context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeCache) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type chanReader struct {
	msgs   chan kafka.Message
	closed chan struct{}
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	close(r.closed)
	return nil
}

func eventMessage(t *testing.T, eventType string, productIDs ...string) kafka.Message {
	t.Helper()
	ev := events.OrderEvent{Type: eventType, OrderID: "o1"}
	for _, id := range productIDs {
		ev.Items = append(ev.Items, events.OrderEventItem{ProductID: id, Quantity: 1})
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(events.Key(eventType, "o1")), Value: payload}
}

func TestProcessMessage_EvictsStockChangingEvents(t *testing.T) {
	cache := &fakeCache{}
	c := NewConsumer(nil, cache)
	ctx := context.Background()

	c.processMessage(ctx, eventMessage(t, events.OrderCreated, "p1", "p2"))
	c.processMessage(ctx, eventMessage(t, events.OrderCancelled, "p3"))
	c.processMessage(ctx, eventMessage(t, events.OrderStatusChanged, "p4"))
	c.processMessage(ctx, kafka.Message{Key: []byte("garbage"), Value: []byte("{}")})
	c.processMessage(ctx, kafka.Message{Key: []byte(events.Key(events.OrderFailed, "o2")), Value: []byte("{")})

	assert.Equal(t, []string{"p1", "p2", "p3"}, cache.snapshot())
}

func TestRun_StopsOnCancel(t *testing.T) {
	cache := &fakeCache{}
	reader := &chanReader{msgs: make(chan kafka.Message, 1), closed: make(chan struct{})}
	c := NewConsumer(reader, cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	reader.msgs <- eventMessage(t, events.OrderCreated, "p9")
	assert.Eventually(t, func() bool { return len(cache.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	<-reader.closed
}
