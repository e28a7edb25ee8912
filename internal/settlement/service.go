// Package settlement reconciles asynchronous payment notifications from
// Razorpay with the local order ledger. Deliveries are at-least-once and may
// race; every mutation here is a single conditional statement so a redelivery
// or a concurrent duplicate is a safe no-op.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/emioop/vallyfab-api/internal/kafka"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/razorpay"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrBadEvent         = errors.New("malformed webhook event")
	ErrOrderNotFound    = errors.New("order not found")
)

type OrderLedger interface {
	SettlePayment(ctx context.Context, razorpayOrderID, paymentID string) (orders.Order, bool, error)
	FailPayment(ctx context.Context, razorpayOrderID string) (orders.Order, bool, error)
}

type StockKeeper interface {
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Outcome tells the webhook handler what to acknowledge.
type Outcome struct {
	Ignored bool         // event kind we do not handle; ack without side effects
	Applied bool         // this delivery performed the transition
	Order   orders.Order // zero when Ignored
}

type Service struct {
	Secret           string
	Orders           OrderLedger
	Stock            StockKeeper
	ProducerCaptured Publisher
	ProducerFailed   Publisher
	Service          string
}

// HandleNotification verifies and applies one webhook delivery. body must be
// the exact bytes read off the wire; the signature covers them, not any
// re-serialized form.
func (s *Service) HandleNotification(ctx context.Context, body []byte, signature string) (Outcome, error) {
	if !razorpay.VerifySignature(body, signature, s.Secret) {
		log.Printf("settlement: rejected notification with bad signature")
		return Outcome{}, ErrInvalidSignature
	}

	ev, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}

	switch ev.Event {
	case razorpay.EventPaymentCaptured:
		return s.settle(ctx, ev.Payload.Payment.Entity)
	case razorpay.EventPaymentFailed:
		return s.fail(ctx, ev.Payload.Payment.Entity)
	default:
		// unknown kinds are acked so the gateway stops redelivering them
		return Outcome{Ignored: true}, nil
	}
}

func (s *Service) settle(ctx context.Context, p razorpay.PaymentEntity) (Outcome, error) {
	if p.OrderID == "" {
		return Outcome{}, fmt.Errorf("%w: captured event missing order_id", ErrBadEvent)
	}

	order, applied, err := s.Orders.SettlePayment(ctx, p.OrderID, p.ID)
	if errors.Is(err, orders.ErrNotFound) {
		return Outcome{}, ErrOrderNotFound
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("settle payment: %w", err)
	}
	if !applied {
		// redelivery or a concurrent duplicate already won; in particular the
		// stock decrement must not run again
		log.Printf("settlement: duplicate delivery for %s (payment_status=%s)", p.OrderID, order.PaymentStatus)
		return Outcome{Order: order}, nil
	}

	if int64(order.AmountCents) != p.AmountMinorUnits {
		log.Printf("settlement: amount mismatch for %s: order=%d gateway=%d",
			p.OrderID, order.AmountCents, p.AmountMinorUnits)
	}

	s.decrementStock(ctx, p)
	s.publishCaptured(order)
	return Outcome{Applied: true, Order: order}, nil
}

// decrementStock is bookkeeping, not payment: a gap here is logged and the
// settlement still stands.
func (s *Service) decrementStock(ctx context.Context, p razorpay.PaymentEntity) {
	qty := int(p.Notes.Quantity)
	if p.Notes.ProductID == "" || qty < 1 {
		log.Printf("settlement: notes missing productId/quantity for %s, skipping stock decrement", p.OrderID)
		return
	}
	ok, err := s.Stock.DecrementStock(ctx, p.Notes.ProductID, qty)
	if err != nil {
		log.Printf("settlement: stock decrement for %s failed: %v", p.Notes.ProductID, err)
		return
	}
	if !ok {
		log.Printf("settlement: stock decrement for %s not applied (missing product or oversold)", p.Notes.ProductID)
	}
}

func (s *Service) fail(ctx context.Context, p razorpay.PaymentEntity) (Outcome, error) {
	if p.OrderID == "" {
		return Outcome{}, fmt.Errorf("%w: failed event missing order_id", ErrBadEvent)
	}
	order, applied, err := s.Orders.FailPayment(ctx, p.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		return Outcome{}, ErrOrderNotFound
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("fail payment: %w", err)
	}
	if applied {
		s.publishFailed(order)
	}
	return Outcome{Applied: applied, Order: order}, nil
}

func (s *Service) publishCaptured(o orders.Order) {
	if s.ProducerCaptured == nil {
		return
	}
	ev := envelope(orders.EventPaymentCaptured, s.Service, o.ID, orders.PaymentCapturedPayload{
		OrderID:           o.ID,
		RazorpayOrderID:   o.RazorpayOrderID,
		RazorpayPaymentID: o.RazorpayPaymentID,
		AmountCents:       o.AmountCents,
	})
	s.ProducerCaptured.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentCaptured)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishFailed(o orders.Order) {
	if s.ProducerFailed == nil {
		return
	}
	ev := envelope(orders.EventPaymentFailed, s.Service, o.ID, orders.PaymentFailedPayload{
		OrderID:         o.ID,
		RazorpayOrderID: o.RazorpayOrderID,
	})
	s.ProducerFailed.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentFailed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func envelope(eventType, producer, orderID string, payload any) orders.Envelope {
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
}
