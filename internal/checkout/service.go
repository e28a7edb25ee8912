// Package checkout turns a purchase request into a remote Razorpay order plus
// a local pending order. Validation happens before the remote call so a bad
// request never leaves an orphaned payment intent behind.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/emioop/vallyfab-api/internal/catalog"
	kafkax "github.com/emioop/vallyfab-api/internal/kafka"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/razorpay"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrProductNotFound = errors.New("product not found")
	ErrUpstream        = errors.New("payment gateway unavailable")
)

type ProductFinder interface {
	FindProductByID(ctx context.Context, id string) (catalog.Product, error)
}

type OrderCreator interface {
	Create(ctx context.Context, in orders.CreateInput) (orders.Order, error)
}

type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (razorpay.RemoteOrder, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Request struct {
	Product struct {
		ID     string  `json:"id"`
		Amount float64 `json:"amount"` // major currency units
	} `json:"product"`
	Quantity        int                    `json:"quantity"`
	Size            string                 `json:"size"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
}

type Result struct {
	RemoteOrderID    string `json:"orderId"`
	AmountMinorUnits int64  `json:"amount"`
	Currency         string `json:"currency"`
	OrderID          string `json:"dbOrderId"`
}

type Service struct {
	Products ProductFinder
	Orders   OrderCreator
	Gateway  Gateway
	Producer Publisher // order.created
	Service  string
}

const currency = "INR"

func (s *Service) CreateCheckout(ctx context.Context, userID string, req Request) (Result, error) {
	if userID == "" {
		return Result{}, ErrUnauthorized
	}
	if err := validate(&req); err != nil {
		return Result{}, err
	}

	product, err := s.Products.FindProductByID(ctx, req.Product.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Result{}, ErrProductNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup product: %w", err)
	}
	size := req.Size
	if size == "" {
		size = string(product.Size)
	}

	amountMinor := int64(math.Round(req.Product.Amount * 100))

	remote, err := s.Gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		AmountMinorUnits: amountMinor,
		Currency:         currency,
		Receipt:          receipt(product.ID),
		Notes: map[string]string{
			"productId": product.ID,
			"quantity":  strconv.Itoa(req.Quantity),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	order, err := s.Orders.Create(ctx, orders.CreateInput{
		UserID: userID,
		Items: []orders.LineItem{{
			ProductID:  product.ID,
			Qty:        req.Quantity,
			Size:       size,
			PriceCents: int(amountMinor) / req.Quantity,
		}},
		AmountCents:     int(amountMinor),
		RazorpayOrderID: remote.ID,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		// The remote intent already exists and is now orphaned. Known gap:
		// Razorpay expires unpaid orders, so no compensation is attempted.
		log.Printf("checkout: order insert after remote create %s failed: %v", remote.ID, err)
		return Result{}, fmt.Errorf("persist order: %w", err)
	}

	s.publishCreated(order)

	return Result{
		RemoteOrderID:    remote.ID,
		AmountMinorUnits: remote.AmountMinorUnits,
		Currency:         remote.Currency,
		OrderID:          order.ID,
	}, nil
}

func validate(req *Request) error {
	if req.Product.ID == "" {
		return fmt.Errorf("%w: product id required", ErrInvalidRequest)
	}
	if req.Product.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", ErrInvalidRequest)
	}
	if req.Size != "" && !catalog.ValidSize(catalog.Size(req.Size)) {
		return fmt.Errorf("%w: unknown size %q", ErrInvalidRequest, req.Size)
	}
	if !req.ShippingAddress.Complete() {
		return fmt.Errorf("%w: incomplete shipping address", ErrInvalidRequest)
	}
	return nil
}

// receipt builds a collision-resistant receipt id. A plain timestamp suffix
// can collide under concurrent checkouts for the same product.
func receipt(productID string) string {
	return productID + "-" + uuid.NewString()[:8]
}

func (s *Service) publishCreated(o orders.Order) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:         o.ID,
			RazorpayOrderID: o.RazorpayOrderID,
			UserID:          o.UserID,
			Items:           o.Items,
			AmountCents:     o.AmountCents,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
