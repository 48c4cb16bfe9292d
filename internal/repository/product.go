package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/product"
)

const (
	productColumns = `id, name, price, category, created_at, updated_at`

	createProductSQL = `INSERT INTO products (id, name, price, category)
		VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`

	upsertProductSQL = `INSERT INTO products (id, name, price, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price,
			category = EXCLUDED.category, updated_at = now()
		RETURNING created_at, updated_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	updateProductSQL = `UPDATE products SET name = $2, price = $3, category = $4, updated_at = now()
		WHERE id = $1 RETURNING created_at, updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	listByCategorySQL = `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY id`

	searchProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE name ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%' ORDER BY id`

	listByPriceRangeSQL = `SELECT ` + productColumns + ` FROM products
		WHERE price BETWEEN $1 AND $2 ORDER BY price, id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a catalog product and fills in the DB-assigned timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	row := r.pool.QueryRow(ctx, createProductSQL, p.ID, p.Name, p.Price, p.Category)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return errors.Wrapf(err, "inserting product %q", p.ID)
	}
	return nil
}

// Upsert inserts a product or replaces the existing row with the same id.
// Used by the seeding tool so reruns are idempotent.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	row := r.pool.QueryRow(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return errors.Wrapf(err, "upserting product %q", p.ID)
	}
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given ids. Missing ids are
// simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// List returns all products ordered by id.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Update rewrites a product's mutable fields.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	row := r.pool.QueryRow(ctx, updateProductSQL, p.ID, p.Name, p.Price, p.Category)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return errors.Wrapf(err, "updating product %q", p.ID)
	}
	return nil
}

// Delete removes a product row.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// ListByCategory returns products in the given category ordered by id.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listByCategorySQL, category)
	if err != nil {
		return nil, errors.Wrapf(err, "listing products in category %q", category)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns products whose name or category contains the keyword,
// case-insensitively.
func (r *ProductRepository) Search(ctx context.Context, keyword string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, keyword)
	if err != nil {
		return nil, errors.Wrapf(err, "searching products for %q", keyword)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByPriceRange returns products priced within [minPrice, maxPrice],
// cheapest first.
func (r *ProductRepository) ListByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listByPriceRangeSQL, minPrice, maxPrice)
	if err != nil {
		return nil, errors.Wrap(err, "listing products in price range")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
