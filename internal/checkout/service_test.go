package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emioop/vallyfab-api/internal/catalog"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/razorpay"
)

type fakeProducts struct {
	products map[string]catalog.Product
	calls    int
}

func (f *fakeProducts) FindProductByID(_ context.Context, id string) (catalog.Product, error) {
	f.calls++
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type fakeOrders struct {
	created []orders.CreateInput
	err     error
}

func (f *fakeOrders) Create(_ context.Context, in orders.CreateInput) (orders.Order, error) {
	if f.err != nil {
		return orders.Order{}, f.err
	}
	f.created = append(f.created, in)
	return orders.Order{
		ID:              "local-1",
		UserID:          in.UserID,
		Items:           in.Items,
		AmountCents:     in.AmountCents,
		Status:          orders.StatusProcessing,
		PaymentStatus:   orders.PaymentPending,
		RazorpayOrderID: in.RazorpayOrderID,
		ShippingAddress: in.ShippingAddress,
	}, nil
}

type fakeGateway struct {
	calls []razorpay.CreateOrderRequest
	err   error
}

func (f *fakeGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (razorpay.RemoteOrder, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return razorpay.RemoteOrder{}, f.err
	}
	return razorpay.RemoteOrder{
		ID:               "order_remote1",
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         req.Currency,
		Receipt:          req.Receipt,
		Status:           "created",
	}, nil
}

func addr() orders.ShippingAddress {
	return orders.ShippingAddress{
		Address: "12 MG Road", City: "Kochi", State: "Kerala", Pincode: "682001", Phone: "9900112233",
	}
}

func validRequest() Request {
	var req Request
	req.Product.ID = "P1"
	req.Product.Amount = 500
	req.Quantity = 2
	req.ShippingAddress = addr()
	return req
}

func newService(products *fakeProducts, ledger *fakeOrders, gw *fakeGateway) *Service {
	return &Service{Products: products, Orders: ledger, Gateway: gw, Service: "test"}
}

func stock() *fakeProducts {
	return &fakeProducts{products: map[string]catalog.Product{
		"P1": {ID: "P1", Name: "Linen Shirt", PriceCents: 50000, Size: catalog.SizeM, Stock: 10},
	}}
}

func TestCreateCheckoutHappyPath(t *testing.T) {
	products, ledger, gw := stock(), &fakeOrders{}, &fakeGateway{}
	svc := newService(products, ledger, gw)

	res, err := svc.CreateCheckout(context.Background(), "user-1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, "order_remote1", res.RemoteOrderID)
	assert.Equal(t, int64(50000), res.AmountMinorUnits)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "local-1", res.OrderID)

	require.Len(t, gw.calls, 1)
	call := gw.calls[0]
	assert.Equal(t, int64(50000), call.AmountMinorUnits)
	assert.Equal(t, "P1", call.Notes["productId"])
	assert.Equal(t, "2", call.Notes["quantity"])
	assert.True(t, strings.HasPrefix(call.Receipt, "P1-"))

	require.Len(t, ledger.created, 1)
	created := ledger.created[0]
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, "order_remote1", created.RazorpayOrderID)
	assert.Equal(t, addr(), created.ShippingAddress)
	require.Len(t, created.Items, 1)
	assert.Equal(t, 2, created.Items[0].Qty)
	assert.Equal(t, "M", created.Items[0].Size) // defaulted from product
}

func TestCreateCheckoutReceiptsDiffer(t *testing.T) {
	products, ledger, gw := stock(), &fakeOrders{}, &fakeGateway{}
	svc := newService(products, ledger, gw)

	_, err := svc.CreateCheckout(context.Background(), "user-1", validRequest())
	require.NoError(t, err)
	_, err = svc.CreateCheckout(context.Background(), "user-1", validRequest())
	require.NoError(t, err)

	require.Len(t, gw.calls, 2)
	assert.NotEqual(t, gw.calls[0].Receipt, gw.calls[1].Receipt)
}

func TestCreateCheckoutValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing product id", func(r *Request) { r.Product.ID = "" }},
		{"zero amount", func(r *Request) { r.Product.Amount = 0 }},
		{"negative amount", func(r *Request) { r.Product.Amount = -1 }},
		{"negative quantity", func(r *Request) { r.Quantity = -2 }},
		{"bad size", func(r *Request) { r.Size = "XS" }},
		{"missing phone", func(r *Request) { r.ShippingAddress.Phone = "" }},
		{"missing city", func(r *Request) { r.ShippingAddress.City = "" }},
		{"missing pincode", func(r *Request) { r.ShippingAddress.Pincode = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, ledger, gw := stock(), &fakeOrders{}, &fakeGateway{}
			svc := newService(products, ledger, gw)

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateCheckout(context.Background(), "user-1", req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			// validation must reject before any remote or db side effect
			assert.Empty(t, gw.calls)
			assert.Empty(t, ledger.created)
			assert.Zero(t, products.calls)
		})
	}
}

func TestCreateCheckoutUnauthenticated(t *testing.T) {
	svc := newService(stock(), &fakeOrders{}, &fakeGateway{})
	_, err := svc.CreateCheckout(context.Background(), "", validRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateCheckoutQuantityDefaultsToOne(t *testing.T) {
	ledger, gw := &fakeOrders{}, &fakeGateway{}
	svc := newService(stock(), ledger, gw)

	req := validRequest()
	req.Quantity = 0
	_, err := svc.CreateCheckout(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.Equal(t, "1", gw.calls[0].Notes["quantity"])
	assert.Equal(t, 1, ledger.created[0].Items[0].Qty)
}

func TestCreateCheckoutUnknownProduct(t *testing.T) {
	ledger, gw := &fakeOrders{}, &fakeGateway{}
	svc := newService(stock(), ledger, gw)

	req := validRequest()
	req.Product.ID = "nope"
	_, err := svc.CreateCheckout(context.Background(), "user-1", req)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, gw.calls)
}

func TestCreateCheckoutGatewayFailure(t *testing.T) {
	ledger := &fakeOrders{}
	gw := &fakeGateway{err: errors.New("connection refused")}
	svc := newService(stock(), ledger, gw)

	_, err := svc.CreateCheckout(context.Background(), "user-1", validRequest())
	assert.ErrorIs(t, err, ErrUpstream)
	// fail fast: no local order without a remote intent
	assert.Empty(t, ledger.created)
}

func TestCreateCheckoutPersistFailureSurfaces(t *testing.T) {
	ledger := &fakeOrders{err: errors.New("connection lost")}
	gw := &fakeGateway{}
	svc := newService(stock(), ledger, gw)

	_, err := svc.CreateCheckout(context.Background(), "user-1", validRequest())
	require.Error(t, err)
	require.Len(t, gw.calls, 1) // remote intent exists, orphaned by design
}
