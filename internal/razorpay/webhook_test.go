package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"event":"payment.captured"}`)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid",
			body:      body,
			signature: sign(body, secret),
			secret:    secret,
			want:      true,
		},
		{
			name:      "tampered body, stale signature",
			body:      []byte(`{"event":"payment.captured","amount":1}`),
			signature: sign(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "trailing whitespace changes the bytes",
			body:      append(append([]byte{}, body...), ' '),
			signature: sign(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "leading whitespace changes the bytes",
			body:      append([]byte{'\n'}, body...),
			signature: sign(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty body with empty-body signature",
			body:      []byte{},
			signature: sign([]byte{}, secret),
			secret:    secret,
			want:      true,
		},
		{
			name:      "empty body with other signature",
			body:      []byte{},
			signature: sign(body, secret),
			secret:    secret,
			want:      false,
		},
		{
			name:      "wrong secret",
			body:      body,
			signature: sign(body, "other"),
			secret:    secret,
			want:      false,
		},
		{
			name:      "empty signature",
			body:      body,
			signature: "",
			secret:    secret,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.body, tt.signature, tt.secret))
		})
	}
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_123",
			"order_id": "order_abc",
			"amount": 100000,
			"notes": {"productId": "prod-1", "quantity": 2}
		}}}
	}`)

	ev, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "payment.captured", ev.Event)
	p := ev.Payload.Payment.Entity
	assert.Equal(t, "pay_123", p.ID)
	assert.Equal(t, "order_abc", p.OrderID)
	assert.Equal(t, int64(100000), p.AmountMinorUnits)
	assert.Equal(t, "prod-1", p.Notes.ProductID)
	assert.Equal(t, FlexInt(2), p.Notes.Quantity)
}

func TestNotesQuantityFlexible(t *testing.T) {
	tests := []struct {
		name string
		json string
		want FlexInt
	}{
		{"number", `{"quantity": 3}`, 3},
		{"string", `{"quantity": "3"}`, 3},
		{"missing", `{}`, 0},
		{"null", `{"quantity": null}`, 0},
		{"garbage tolerated", `{"quantity": "two"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := parseNotes([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Quantity)
		})
	}
}

func parseNotes(b []byte) (Notes, error) {
	var n Notes
	err := json.Unmarshal(b, &n)
	return n, err
}
