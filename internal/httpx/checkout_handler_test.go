package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emioop/vallyfab-api/internal/auth"
	"github.com/emioop/vallyfab-api/internal/catalog"
	"github.com/emioop/vallyfab-api/internal/checkout"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/razorpay"
)

type stubSessions struct{ tokens map[string]auth.Identity }

func (s *stubSessions) Lookup(_ context.Context, token string) (auth.Identity, error) {
	id, ok := s.tokens[token]
	if !ok {
		return auth.Identity{}, auth.ErrNoSession
	}
	return id, nil
}

type stubProducts struct{}

func (stubProducts) FindProductByID(_ context.Context, id string) (catalog.Product, error) {
	if id != "P1" {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return catalog.Product{ID: "P1", PriceCents: 50000, Size: catalog.SizeM, Stock: 5}, nil
}

type stubOrderCreator struct{}

func (stubOrderCreator) Create(_ context.Context, in orders.CreateInput) (orders.Order, error) {
	return orders.Order{ID: "local-1", RazorpayOrderID: in.RazorpayOrderID, AmountCents: in.AmountCents}, nil
}

type stubGateway struct{}

func (stubGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (razorpay.RemoteOrder, error) {
	return razorpay.RemoteOrder{ID: "order_remote1", AmountMinorUnits: req.AmountMinorUnits, Currency: req.Currency}, nil
}

func newCheckoutRouter() http.Handler {
	sessions := &stubSessions{tokens: map[string]auth.Identity{
		"tok-user": {UserID: "user-1", Role: auth.RoleCustomer},
	}}
	svc := &checkout.Service{
		Products: stubProducts{},
		Orders:   stubOrderCreator{},
		Gateway:  stubGateway{},
		Service:  "test",
	}
	r := NewRouter(Authenticate(sessions))
	(&CheckoutHandler{Service: svc}).Register(r)
	return r
}

const checkoutBody = `{
	"product": {"id": "P1", "amount": 500},
	"quantity": 2,
	"shippingAddress": {
		"address": "12 MG Road", "city": "Kochi", "state": "Kerala",
		"pincode": "682001", "phone": "9900112233"
	}
}`

func TestCheckoutRequiresAuth(t *testing.T) {
	h := newCheckoutRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHappyPath(t *testing.T) {
	h := newCheckoutRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody))
	req.Header.Set("Authorization", "Bearer tok-user")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res checkout.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "order_remote1", res.RemoteOrderID)
	assert.Equal(t, int64(50000), res.AmountMinorUnits)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "local-1", res.OrderID)
}

func TestCheckoutInvalidRequest(t *testing.T) {
	h := newCheckoutRouter()
	// phone omitted
	body := `{
		"product": {"id": "P1", "amount": 500},
		"shippingAddress": {"address": "a", "city": "b", "state": "c", "pincode": "d"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok-user")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestCheckoutBadJSON(t *testing.T) {
	h := newCheckoutRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{`))
	req.Header.Set("Authorization", "Bearer tok-user")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
