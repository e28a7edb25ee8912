package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Item struct {
	ProductID string    `json:"product_id"`
	Size      string    `json:"size"`
	Qty       int       `json:"qty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repo struct{ DB *pgxpool.Pool }

// SetItem overwrites the quantity for one (product, size) line in a single
// upsert, so two devices editing the same cart never clobber each other with
// a read-modify-write.
func (r *Repo) SetItem(ctx context.Context, userID, productID, size string, qty int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items(user_id, product_id, size, qty)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, product_id, size)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = now()`,
		userID, productID, size, qty)
	return err
}

func (r *Repo) RemoveItem(ctx context.Context, userID, productID, size string) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2 AND size=$3`,
		userID, productID, size)
	return err
}

func (r *Repo) Items(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, size, qty, updated_at FROM cart_items
		WHERE user_id=$1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Size, &it.Qty, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
