// Package fulfillment consumes payment-captured events and moves paid orders
// into the shipping pipeline. It is deliberately dumb: dedup, one guarded
// status transition, one event out.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/emioop/vallyfab-api/internal/kafka"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/redisx"
)

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) (bool, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Deduper claims an event id; false means someone processed it already.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper backs Deduper with SETNX.
type RedisDeduper struct{ Client *redis.Client }

func (d RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return redisx.Claim(ctx, d.Client, key, ttl)
}

type Service struct {
	Orders      StatusUpdater
	Dedup       Deduper
	Producer    Publisher // order.shipped
	ServiceName string
}

// HandlePaymentCaptured is wired as the consumer handler for
// order.payment.captured.
func (s *Service) HandlePaymentCaptured(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentCaptured {
		return nil
	}

	// dedup by event id; the consumer group redelivers on rebalance
	dkey := fmt.Sprintf(redisx.KeyDedup, "fulfillment", env.EventID)
	claimed, err := s.Dedup.Claim(ctx, dkey, redisx.TTLDedup)
	if err != nil {
		log.Printf("fulfillment: dedup check: %v", err)
	} else if !claimed {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentCapturedPayload](env.Payload)
	if err != nil {
		return err
	}

	applied, err := s.Orders.UpdateStatus(ctx, p.OrderID, orders.StatusProcessing, orders.StatusShipped)
	if err != nil {
		return err
	}
	if !applied {
		// already shipped or cancelled in the meantime
		log.Printf("fulfillment: order %s not in processing, skipping", p.OrderID)
		return nil
	}

	s.publishShipped(p.OrderID, env.TraceID)
	return nil
}

func (s *Service) publishShipped(orderID, trace string) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderShipped,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.OrderShippedPayload{OrderID: orderID}),
	}
	s.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderShipped)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
