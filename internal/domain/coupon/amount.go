package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// percentOf returns base * percent / 100 without rounding. Results keep full
// decimal precision; rounding happens only when values are serialized at the
// transport boundary.
func percentOf(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred)
}

// mulQty returns price * quantity.
func mulQty(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
