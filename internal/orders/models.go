package orders

import "time"

type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}

func (a ShippingAddress) Complete() bool {
	return a.Address != "" && a.City != "" && a.State != "" && a.Pincode != "" && a.Phone != ""
}

type LineItem struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	Size       string `json:"size"`
	PriceCents int    `json:"price_cents"`
}

// Order is one checkout attempt and its lifecycle. RazorpayOrderID is set
// exactly once at creation and never changes; RazorpayPaymentID arrives with
// settlement.
type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Items             []LineItem      `json:"items"`
	AmountCents       int             `json:"amount_cents"`
	Status            Status          `json:"status"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id,omitempty"`
	ShippingAddress   ShippingAddress `json:"shipping_address"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
