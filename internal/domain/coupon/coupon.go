// Package coupon implements the promotional rule engine: the three coupon
// variants, the applicability evaluator, and the discount applicator.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon variants. The set is closed: every
// dispatch site switches over it and treats anything else as an error.
type Type string

const (
	// TypeCartWise discounts the whole cart once its total passes a threshold.
	TypeCartWise Type = "cart_wise"
	// TypeProductWise discounts a single target product's line.
	TypeProductWise Type = "product_wise"
	// TypeBxGy grants free units of a "get" set when the cart holds enough
	// of a "buy" set, bounded by a repetition limit.
	TypeBxGy Type = "bxgy"
)

var (
	// ErrNotFound is returned when a coupon id has no matching coupon.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when applying a soft-deleted coupon.
	ErrInactive = errors.New("coupon is not active")
	// ErrInvalid is the class of all coupon definition validation failures.
	ErrInvalid = errors.New("invalid coupon")
	// ErrUnknownType is returned when dispatch meets a type outside the
	// closed variant set.
	ErrUnknownType = errors.New("unknown coupon type")
)

// ProductQuantity pairs a product id with a unit count, used for the buy and
// get sets of BxGy coupons.
type ProductQuantity struct {
	ProductID string
	Quantity  int
}

// CartWiseDetails configures a cart-wide percentage discount.
type CartWiseDetails struct {
	Threshold       decimal.Decimal
	DiscountPercent decimal.Decimal
}

func (d *CartWiseDetails) validate() error {
	if !d.Threshold.IsPositive() {
		return errors.Wrap(ErrInvalid, "threshold must be greater than 0")
	}
	if !d.DiscountPercent.IsPositive() {
		return errors.Wrap(ErrInvalid, "discount percent must be greater than 0")
	}
	return nil
}

// ProductWiseDetails configures a percentage discount on one product.
type ProductWiseDetails struct {
	ProductID       string
	DiscountPercent decimal.Decimal
}

func (d *ProductWiseDetails) validate() error {
	if d.ProductID == "" {
		return errors.Wrap(ErrInvalid, "product id required")
	}
	if d.DiscountPercent.IsNegative() {
		return errors.Wrap(ErrInvalid, "discount percent must not be negative")
	}
	return nil
}

// BxGyDetails configures a buy-X-get-Y promotion.
type BxGyDetails struct {
	Buy             []ProductQuantity
	Get             []ProductQuantity
	RepetitionLimit int
}

func (d *BxGyDetails) validate() error {
	if len(d.Buy) == 0 {
		return errors.Wrap(ErrInvalid, "buy products list cannot be empty")
	}
	if len(d.Get) == 0 {
		return errors.Wrap(ErrInvalid, "get products list cannot be empty")
	}
	for _, set := range [][]ProductQuantity{d.Buy, d.Get} {
		for _, pq := range set {
			if pq.ProductID == "" {
				return errors.Wrap(ErrInvalid, "product id required in buy/get set")
			}
			if pq.Quantity < 1 {
				return errors.Wrap(ErrInvalid, "buy/get quantity must be at least 1")
			}
		}
	}
	if d.RepetitionLimit < 1 {
		return errors.Wrap(ErrInvalid, "repetition limit must be at least 1")
	}
	return nil
}

// Coupon is a promotional rule. Exactly one of the details pointers is set,
// matching Type. Soft deletion flips Active to false; rows are never removed.
type Coupon struct {
	ID          string
	Code        string
	Type        Type
	CartWise    *CartWiseDetails
	ProductWise *ProductWiseDetails
	BxGy        *BxGyDetails

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that exactly one details struct is populated, that it
// matches the declared type, and that its own invariants hold.
func (c *Coupon) Validate() error {
	populated := 0
	for _, set := range []bool{c.CartWise != nil, c.ProductWise != nil, c.BxGy != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return errors.Wrap(ErrInvalid, "exactly one coupon details section is required")
	}

	switch c.Type {
	case TypeCartWise:
		if c.CartWise == nil {
			return errors.Wrap(ErrInvalid, "cart-wise coupon details are required")
		}
		return c.CartWise.validate()
	case TypeProductWise:
		if c.ProductWise == nil {
			return errors.Wrap(ErrInvalid, "product-wise coupon details are required")
		}
		return c.ProductWise.validate()
	case TypeBxGy:
		if c.BxGy == nil {
			return errors.Wrap(ErrInvalid, "bxgy coupon details are required")
		}
		return c.BxGy.validate()
	default:
		return errors.Wrapf(ErrUnknownType, "%q", c.Type)
	}
}

// Applicable summarizes one coupon that qualifies for a cart: the discount it
// would yield and a human-readable explanation of the math.
type Applicable struct {
	CouponID    string
	Type        Type
	Discount    decimal.Decimal
	Description string
}

// Repository provides persistence for coupons. Implementations map their
// missing-row condition to ErrNotFound.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	SetActive(ctx context.Context, id string, active bool) error
}
