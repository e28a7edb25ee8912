package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated    = "OrderCreated"
	EventPaymentCaptured = "PaymentCaptured"
	EventPaymentFailed   = "PaymentFailed"
	EventOrderShipped    = "OrderShipped"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID         string     `json:"order_id"`
	RazorpayOrderID string     `json:"razorpay_order_id"`
	UserID          string     `json:"user_id"`
	Items           []LineItem `json:"items"`
	AmountCents     int        `json:"amount_cents"`
}

type PaymentCapturedPayload struct {
	OrderID           string `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	AmountCents       int    `json:"amount_cents"`
}

type PaymentFailedPayload struct {
	OrderID         string `json:"order_id"`
	RazorpayOrderID string `json:"razorpay_order_id"`
	Reason          string `json:"reason,omitempty"`
}

type OrderShippedPayload struct {
	OrderID string `json:"order_id"`
}
