package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// SignatureHeader is the header Razorpay sets on webhook deliveries.
const SignatureHeader = "X-Razorpay-Signature"

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// VerifySignature checks the HMAC-SHA256 of the raw body against the hex
// signature from the header. The comparison is constant time and operates on
// the exact bytes received; callers must not reserialize the body first.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the envelope Razorpay posts. Only the payment entity is
// modelled; unknown event kinds are acknowledged upstream without parsing
// further.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	AmountMinorUnits int64  `json:"amount"`
	Notes            Notes  `json:"notes"`
}

// Notes is the metadata attached at order creation and echoed back on
// settlement. Razorpay serializes note values inconsistently (numbers stay
// numbers when set via API, become strings when edited in the dashboard),
// hence FlexInt.
type Notes struct {
	ProductID string  `json:"productId"`
	Quantity  FlexInt `json:"quantity"`
}

type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil // tolerated: malformed notes skip the stock decrement
	}
	*f = FlexInt(n)
	return nil
}

func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	err := json.Unmarshal(body, &ev)
	return ev, err
}
