// Package razorpay is a thin, explicitly constructed client for the pieces
// of the Razorpay API this service touches: order creation and webhook
// signature verification. No package-level singleton; callers inject it.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

func NewClient(keyID, keySecret string) *Client {
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type CreateOrderRequest struct {
	AmountMinorUnits int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Receipt          string            `json:"receipt"`
	Notes            map[string]string `json:"notes,omitempty"`
}

type RemoteOrder struct {
	ID               string `json:"id"`
	AmountMinorUnits int64  `json:"amount"`
	Currency         string `json:"currency"`
	Receipt          string `json:"receipt"`
	Status           string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates the remote payment intent. The HTTP client carries a
// bounded timeout; a timeout or non-2xx response surfaces as an error and
// nothing local should be persisted by the caller.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (RemoteOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return RemoteOrder{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return RemoteOrder{}, err
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return RemoteOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return RemoteOrder{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Description != "" {
			return RemoteOrder{}, fmt.Errorf("razorpay create order: %s (%s)", apiErr.Error.Description, apiErr.Error.Code)
		}
		return RemoteOrder{}, fmt.Errorf("razorpay create order: status %d", resp.StatusCode)
	}

	var out RemoteOrder
	if err := json.Unmarshal(respBody, &out); err != nil {
		return RemoteOrder{}, fmt.Errorf("razorpay decode order: %w", err)
	}
	if out.ID == "" {
		return RemoteOrder{}, fmt.Errorf("razorpay order response missing id")
	}
	return out, nil
}
