package fulfillment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/emioop/vallyfab-api/internal/kafka"
	"github.com/emioop/vallyfab-api/internal/orders"
)

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDedup) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

type memOrders struct {
	mu     sync.Mutex
	status map[string]orders.Status
}

func (m *memOrders) UpdateStatus(_ context.Context, orderID string, from, to orders.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !orders.CanTransition(from, to) {
		return false, nil
	}
	if m.status[orderID] != from {
		return false, nil
	}
	m.status[orderID] = to
	return true, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events [][]byte
}

func (p *capturePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, value)
}

func capturedMessage(orderID string) kafkago.Message {
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventPaymentCaptured,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test",
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.PaymentCapturedPayload{
			OrderID: orderID, RazorpayOrderID: "order_abc", RazorpayPaymentID: "pay_1", AmountCents: 100000,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func newTestService(st map[string]orders.Status) (*Service, *memOrders, *capturePublisher) {
	repo := &memOrders{status: st}
	pub := &capturePublisher{}
	svc := &Service{
		Orders:      repo,
		Dedup:       &memDedup{seen: map[string]bool{}},
		Producer:    pub,
		ServiceName: "test-fulfillment",
	}
	return svc, repo, pub
}

func TestHandlePaymentCapturedShipsOrder(t *testing.T) {
	svc, repo, pub := newTestService(map[string]orders.Status{"local-1": orders.StatusProcessing})

	require.NoError(t, svc.HandlePaymentCaptured(context.Background(), capturedMessage("local-1")))
	assert.Equal(t, orders.StatusShipped, repo.status["local-1"])
	assert.Len(t, pub.events, 1)
}

func TestHandlePaymentCapturedDedups(t *testing.T) {
	svc, repo, pub := newTestService(map[string]orders.Status{"local-1": orders.StatusProcessing})

	m := capturedMessage("local-1")
	require.NoError(t, svc.HandlePaymentCaptured(context.Background(), m))
	require.NoError(t, svc.HandlePaymentCaptured(context.Background(), m))

	assert.Equal(t, orders.StatusShipped, repo.status["local-1"])
	assert.Len(t, pub.events, 1)
}

func TestHandlePaymentCapturedSkipsNonProcessing(t *testing.T) {
	svc, repo, pub := newTestService(map[string]orders.Status{"local-1": orders.StatusCancelled})

	require.NoError(t, svc.HandlePaymentCaptured(context.Background(), capturedMessage("local-1")))
	assert.Equal(t, orders.StatusCancelled, repo.status["local-1"])
	assert.Empty(t, pub.events)
}

func TestHandlePaymentCapturedIgnoresOtherEvents(t *testing.T) {
	svc, repo, pub := newTestService(map[string]orders.Status{"local-1": orders.StatusProcessing})

	env := orders.Envelope{
		EventID:   uuid.NewString(),
		EventType: orders.EventOrderCreated,
		Payload:   kafkax.MustMarshal(orders.OrderCreatedPayload{OrderID: "local-1"}),
	}
	m := kafkago.Message{Value: kafkax.MustMarshal(env)}
	require.NoError(t, svc.HandlePaymentCaptured(context.Background(), m))
	assert.Equal(t, orders.StatusProcessing, repo.status["local-1"])
	assert.Empty(t, pub.events)
}
