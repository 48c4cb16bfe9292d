package coupon

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/cart"
	"github.com/xenking/coupon-service/internal/domain/product"
)

// Catalog is the read-only product price lookup used to value BxGy free
// items. Ids missing from the catalog are simply absent from the result.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// Evaluate checks every coupon independently against the cart and returns a
// summary for each one that would yield a strictly positive discount.
// Coupons yielding zero or no discount are silently omitted. The result
// preserves the input coupon order.
func Evaluate(ctx context.Context, crt cart.Cart, coupons []Coupon, catalog Catalog) ([]Applicable, error) {
	items := crt.ByProduct()
	cartTotal := crt.Subtotal()

	out := make([]Applicable, 0, len(coupons))
	for i := range coupons {
		c := &coupons[i]

		var (
			a   *Applicable
			err error
		)
		switch c.Type {
		case TypeCartWise:
			a = cartWiseApplicable(c, cartTotal)
		case TypeProductWise:
			a = productWiseApplicable(c, items)
		case TypeBxGy:
			a, err = bxgyApplicable(ctx, c, items, catalog)
		default:
			err = errors.Wrapf(ErrUnknownType, "%q", c.Type)
		}
		if err != nil {
			return nil, err
		}
		if a != nil && a.Discount.IsPositive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func cartWiseApplicable(c *Coupon, cartTotal decimal.Decimal) *Applicable {
	d := c.CartWise
	if d == nil || cartTotal.LessThan(d.Threshold) {
		return nil
	}

	amount := percentOf(cartTotal, d.DiscountPercent)
	return &Applicable{
		CouponID: c.ID,
		Type:     c.Type,
		Discount: amount,
		Description: fmt.Sprintf("Get %s%% off on cart total of %s (saves %s)",
			d.DiscountPercent, cartTotal, amount),
	}
}

func productWiseApplicable(c *Coupon, items map[string]cart.Item) *Applicable {
	d := c.ProductWise
	if d == nil {
		return nil
	}
	item, ok := items[d.ProductID]
	if !ok {
		return nil
	}

	amount := percentOf(item.LineTotal(), d.DiscountPercent)
	return &Applicable{
		CouponID: c.ID,
		Type:     c.Type,
		Discount: amount,
		Description: fmt.Sprintf("Get %s%% off on product %s (saves %s)",
			d.DiscountPercent, d.ProductID, amount),
	}
}

// bxgyApplicable values free items at their catalog price. The applicator
// deliberately uses the cart's submitted price instead; see Apply.
func bxgyApplicable(ctx context.Context, c *Coupon, items map[string]cart.Item, catalog Catalog) (*Applicable, error) {
	d := c.BxGy
	if d == nil {
		return nil, nil
	}
	reps := bxgyRepetitions(d, items)
	if reps == 0 {
		return nil, nil
	}

	ids := make([]string, len(d.Get))
	for i, pq := range d.Get {
		ids[i] = pq.ProductID
	}
	fetched, err := catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get catalog prices")
	}
	prices := make(map[string]decimal.Decimal, len(fetched))
	for _, p := range fetched {
		prices[p.ID] = p.Price
	}

	// Products without a cart line or a catalog price contribute nothing but
	// do not block the other get-products.
	amount := decimal.Zero
	for _, pq := range d.Get {
		price, ok := prices[pq.ProductID]
		if !ok {
			continue
		}
		item, ok := items[pq.ProductID]
		if !ok {
			continue
		}
		free := min(reps*pq.Quantity, item.Quantity)
		amount = amount.Add(mulQty(price, free))
	}

	return &Applicable{
		CouponID: c.ID,
		Type:     c.Type,
		Discount: amount,
		Description: fmt.Sprintf("Buy %d get %d free (up to %d times, saves %s)",
			len(d.Buy), len(d.Get), d.RepetitionLimit, amount),
	}, nil
}

// bxgyRepetitions returns how many times the promotion triggers: the minimum
// over buy requirements of floor(cartQty/requiredQty), capped at the
// repetition limit. It returns 0 when any buy requirement is unmet.
func bxgyRepetitions(d *BxGyDetails, items map[string]cart.Item) int {
	reps := math.MaxInt
	for _, pq := range d.Buy {
		item, ok := items[pq.ProductID]
		if !ok || item.Quantity < pq.Quantity {
			return 0
		}
		reps = min(reps, item.Quantity/pq.Quantity)
	}
	return min(reps, d.RepetitionLimit)
}
