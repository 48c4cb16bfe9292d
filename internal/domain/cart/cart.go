// Package cart holds the normalized view of a shopping cart submitted for
// coupon evaluation, and the updated cart produced by applying a coupon.
// Carts are request-scoped values and are never persisted.
package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when a cart without line items is submitted.
var ErrEmpty = errors.New("cart must contain at least one item")

// InvalidItemError indicates a line item that fails basic validation.
type InvalidItemError struct {
	ProductID string
	Reason    string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid cart item %s: %s", e.ProductID, e.Reason)
}

// Item is a single cart line: a product, how many units of it, and the unit
// price the caller observed. Prices come from the caller, not the catalog.
type Item struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// LineTotal returns Price * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered, non-empty sequence of line items.
type Cart struct {
	Items []Item
}

// Validate rejects empty carts, non-positive quantities, empty product ids
// and negative prices before any coupon math runs.
func (c Cart) Validate() error {
	if len(c.Items) == 0 {
		return ErrEmpty
	}
	for _, item := range c.Items {
		if item.ProductID == "" {
			return &InvalidItemError{ProductID: item.ProductID, Reason: "product id required"}
		}
		if item.Quantity <= 0 {
			return &InvalidItemError{ProductID: item.ProductID, Reason: "quantity must be greater than 0"}
		}
		if item.Price.IsNegative() {
			return &InvalidItemError{ProductID: item.ProductID, Reason: "price must not be negative"}
		}
	}
	return nil
}

// Subtotal returns the sum of line totals across all items.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// ByProduct converts the item list into a productID -> Item map. When the
// same product id appears on more than one line, the first line wins; callers
// are expected not to submit duplicate ids, and this keeps the observable
// behaviour stable when they do.
func (c Cart) ByProduct() map[string]Item {
	m := make(map[string]Item, len(c.Items))
	for _, item := range c.Items {
		if _, ok := m[item.ProductID]; !ok {
			m[item.ProductID] = item
		}
	}
	return m
}

// UpdatedItem is a cart line after a coupon has been applied. For BxGy
// coupons Quantity includes granted free units; Discount stays zero on the
// line and the value of the free units lands in UpdatedCart.TotalDiscount.
type UpdatedItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
}

// UpdatedCart is the full result of applying one coupon to a cart.
// FinalTotal is always OriginalTotal - TotalDiscount; it is not clamped at
// zero, so an over-generous coupon can drive it negative.
type UpdatedCart struct {
	Items         []UpdatedItem
	OriginalTotal decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalTotal    decimal.Decimal
}
