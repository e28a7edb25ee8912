package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrCategoryInUse = errors.New("category still referenced by products")
	ErrDuplicateName = errors.New("name already taken")
)

type Repo struct{ DB *pgxpool.Pool }

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents"`
	CategoryID  string `json:"category_id"`
	Brand       string `json:"brand"`
	Size        Size   `json:"size"`
	ImageURL    string `json:"image_url"`
	Stock       int    `json:"stock"`
}

const productCols = `id, name, description, price_cents, category_id, brand, size, image_url, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.CategoryID,
		&p.Brand, &p.Size, &p.ImageURL, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price_cents, category_id, brand, size, image_url, stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+productCols,
		id, in.Name, in.Description, in.PriceCents, in.CategoryID, in.Brand, in.Size, in.ImageURL, in.Stock)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE products SET name=$2, description=$3, price_cents=$4, category_id=$5,
		       brand=$6, size=$7, image_url=$8, stock=$9, updated_at=now()
		WHERE id=$1
		RETURNING `+productCols,
		id, in.Name, in.Description, in.PriceCents, in.CategoryID, in.Brand, in.Size, in.ImageURL, in.Stock)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) FindProductByID(ctx context.Context, id string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListProducts pages through the catalog; query filters on name, case-insensitive.
func (r *Repo) ListProducts(ctx context.Context, page, limit int, query string) ([]Product, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	rows, err := r.DB.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock subtracts qty from a product's stock in a single statement.
// Returns false (and no error) when the product is missing or has less stock
// than qty; callers decide whether that is fatal.
func (r *Repo) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("invalid qty %d", qty)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) CreateCategory(ctx context.Context, name, description string) (Category, error) {
	var c Category
	row := r.DB.QueryRow(ctx, `
		INSERT INTO categories(id, name, description)
		VALUES ($1,$2,$3)
		RETURNING id, name, description, created_at, updated_at`,
		uuid.NewString(), name, description)
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return Category{}, ErrDuplicateName
	}
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory restricts deletion: a category with live products stays.
func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM categories c WHERE c.id = $1
		AND NOT EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id)`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrCategoryInUse
	}
	return ErrNotFound
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
