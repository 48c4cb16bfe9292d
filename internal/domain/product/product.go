// Package product defines the catalog model consumed by the coupon engine
// and exposed through the product endpoints.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. Price is the catalog price used to value BxGy
// free items during applicability checks.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines catalog persistence. GetByIDs is the batch lookup the
// coupon engine depends on: ids without a matching product are simply absent
// from the result, never an error.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	ListByCategory(ctx context.Context, category string) ([]Product, error)
	Search(ctx context.Context, keyword string) ([]Product, error)
	ListByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]Product, error)
}
