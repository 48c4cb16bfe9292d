package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/cart"
)

// Apply computes the itemized effect of one coupon on a cart. It is a pure
// function: nothing is persisted and the input cart is not mutated.
// Applying an inactive coupon fails with ErrInactive before any computation.
//
// Note the asymmetry with Evaluate for BxGy coupons: Evaluate values free
// items at catalog prices, Apply at the cart's submitted unit prices. The two
// can disagree when a caller submits a price that differs from the catalog.
// Both behaviours are kept as-is for output compatibility.
func Apply(crt cart.Cart, c *Coupon) (*cart.UpdatedCart, error) {
	if !c.Active {
		return nil, ErrInactive
	}

	var (
		items         []cart.UpdatedItem
		totalDiscount decimal.Decimal
	)
	switch c.Type {
	case TypeCartWise:
		if c.CartWise == nil {
			return nil, errors.Wrap(ErrInvalid, "cart-wise coupon details are required")
		}
		items = passthroughItems(crt)
		// The cart-wide discount shows up only on the aggregate, never on
		// individual lines.
		totalDiscount = percentOf(crt.Subtotal(), c.CartWise.DiscountPercent)
	case TypeProductWise:
		if c.ProductWise == nil {
			return nil, errors.Wrap(ErrInvalid, "product-wise coupon details are required")
		}
		items, totalDiscount = applyProductWise(crt, c.ProductWise)
	case TypeBxGy:
		if c.BxGy == nil {
			return nil, errors.Wrap(ErrInvalid, "bxgy coupon details are required")
		}
		items, totalDiscount = applyBxGy(crt, c.BxGy)
	default:
		return nil, errors.Wrapf(ErrUnknownType, "%q", c.Type)
	}

	originalTotal := crt.Subtotal()
	return &cart.UpdatedCart{
		Items:         items,
		OriginalTotal: originalTotal,
		TotalDiscount: totalDiscount,
		FinalTotal:    originalTotal.Sub(totalDiscount),
	}, nil
}

// passthroughItems copies cart lines unchanged with zero line discounts.
func passthroughItems(crt cart.Cart) []cart.UpdatedItem {
	items := make([]cart.UpdatedItem, len(crt.Items))
	for i, item := range crt.Items {
		items[i] = cart.UpdatedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Discount:  decimal.Zero,
			Total:     item.LineTotal(),
		}
	}
	return items
}

// applyProductWise discounts the target product's lines; every other line
// passes through with zero discount.
func applyProductWise(crt cart.Cart, d *ProductWiseDetails) ([]cart.UpdatedItem, decimal.Decimal) {
	items := make([]cart.UpdatedItem, len(crt.Items))
	totalDiscount := decimal.Zero
	for i, item := range crt.Items {
		discount := decimal.Zero
		if item.ProductID == d.ProductID {
			discount = percentOf(item.LineTotal(), d.DiscountPercent)
			totalDiscount = totalDiscount.Add(discount)
		}
		items[i] = cart.UpdatedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Discount:  discount,
			Total:     item.LineTotal().Sub(discount),
		}
	}
	return items, totalDiscount
}

// applyBxGy bumps the quantity of get-set lines by the granted free units and
// values those units at the cart's unit price. Quantities only ever grow;
// free units are capped at the line's original quantity.
func applyBxGy(crt cart.Cart, d *BxGyDetails) ([]cart.UpdatedItem, decimal.Decimal) {
	reps := bxgyRepetitions(d, crt.ByProduct())

	items := make([]cart.UpdatedItem, len(crt.Items))
	totalDiscount := decimal.Zero
	for i, item := range crt.Items {
		free := 0
		if reps > 0 {
			for _, pq := range d.Get {
				if item.ProductID == pq.ProductID {
					free = min(reps*pq.Quantity, item.Quantity)
					break
				}
			}
		}

		quantity := item.Quantity + free
		items[i] = cart.UpdatedItem{
			ProductID: item.ProductID,
			Quantity:  quantity,
			Price:     item.Price,
			Discount:  decimal.Zero,
			Total:     mulQty(item.Price, quantity),
		}
		totalDiscount = totalDiscount.Add(mulQty(item.Price, free))
	}
	return items, totalDiscount
}
