package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

type CreateInput struct {
	UserID          string
	Items           []LineItem
	AmountCents     int
	RazorpayOrderID string
	ShippingAddress ShippingAddress
}

const orderCols = `id, user_id, amount_cents, status, payment_status,
	razorpay_order_id, COALESCE(razorpay_payment_id, ''),
	ship_address, ship_city, ship_state, ship_pincode, ship_phone,
	created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.AmountCents, &o.Status, &o.PaymentStatus,
		&o.RazorpayOrderID, &o.RazorpayPaymentID,
		&o.ShippingAddress.Address, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.Pincode, &o.ShippingAddress.Phone,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts the order and its line items in one transaction. The order
// starts life processing/pending; only the settlement path moves it on.
func (r *Repo) Create(ctx context.Context, in CreateInput) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, amount_cents, status, payment_status,
			razorpay_order_id, ship_address, ship_city, ship_state, ship_pincode, ship_phone)
		VALUES ($1,$2,$3,'processing','pending',$4,$5,$6,$7,$8,$9)
		RETURNING `+orderCols,
		uuid.NewString(), in.UserID, in.AmountCents, in.RazorpayOrderID,
		in.ShippingAddress.Address, in.ShippingAddress.City, in.ShippingAddress.State,
		in.ShippingAddress.Pincode, in.ShippingAddress.Phone)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range in.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, size, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ProductID, it.Qty, it.Size, it.PriceCents); err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	o.Items = in.Items
	return o, nil
}

func (r *Repo) FindByRemoteID(ctx context.Context, razorpayOrderID string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE razorpay_order_id=$1`, razorpayOrderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.loadItems(ctx, o.ID)
	return o, err
}

// SettlePayment is the single authoritative pending -> completed transition.
// The WHERE clause makes a redelivered notification a no-op: the second
// delivery matches zero rows and applied comes back false with the current
// row, so callers can tell "already settled" from "no such order".
func (r *Repo) SettlePayment(ctx context.Context, razorpayOrderID, paymentID string) (Order, bool, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET razorpay_payment_id=$2, payment_status='completed', updated_at=now()
		WHERE razorpay_order_id=$1 AND payment_status='pending'
		RETURNING `+orderCols, razorpayOrderID, paymentID)
	o, err := scanOrder(row)
	if err == nil {
		o.Items, err = r.loadItems(ctx, o.ID)
		return o, true, err
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, err
	}
	o, err = r.FindByRemoteID(ctx, razorpayOrderID)
	if err != nil {
		return Order{}, false, err
	}
	return o, false, nil
}

// FailPayment applies pending -> failed with the same conditional shape.
func (r *Repo) FailPayment(ctx context.Context, razorpayOrderID string) (Order, bool, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET payment_status='failed', updated_at=now()
		WHERE razorpay_order_id=$1 AND payment_status='pending'
		RETURNING `+orderCols, razorpayOrderID)
	o, err := scanOrder(row)
	if err == nil {
		return o, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, err
	}
	o, err = r.FindByRemoteID(ctx, razorpayOrderID)
	if err != nil {
		return Order{}, false, err
	}
	return o, false, nil
}

// UpdateStatus moves fulfillment state, guarded by the from-state so two
// concurrent transitions cannot both win.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, orderID, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// StatusInfo is the slim projection served by the status endpoint and cached
// in Redis.
type StatusInfo struct {
	UserID        string        `json:"user_id"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

func (r *Repo) GetStatus(ctx context.Context, orderID string) (StatusInfo, error) {
	var info StatusInfo
	err := r.DB.QueryRow(ctx, `
		SELECT user_id, status, payment_status FROM orders WHERE id=$1`, orderID).
		Scan(&info.UserID, &info.Status, &info.PaymentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusInfo{}, ErrNotFound
	}
	return info, err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.loadItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, size, price_cents FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.Size, &it.PriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
