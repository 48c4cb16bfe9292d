package coupon

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-service/internal/domain/cart"
	"github.com/xenking/coupon-service/internal/domain/product"
)

// mockCatalog implements Catalog over a fixed price list. Unknown ids are
// silently absent from the result, like the real repository.
type mockCatalog struct {
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if price, ok := m.prices[id]; ok {
			out = append(out, product.Product{ID: id, Price: price})
		}
	}
	return out, nil
}

func newCatalog() *mockCatalog {
	return &mockCatalog{prices: map[string]decimal.Decimal{
		"p1": d("50"),
		"p2": d("30"),
		"p3": d("25"),
	}}
}

func TestEvaluateCartWise(t *testing.T) {
	tests := []struct {
		name       string
		coupon     Coupon
		wantAmount decimal.Decimal
		wantEmpty  bool
	}{
		{
			name:       "threshold met: 10% of 440",
			coupon:     cartWise("c1", "100", "10"),
			wantAmount: d("44"),
		},
		{
			name:       "threshold equal to total still applies",
			coupon:     cartWise("c2", "440", "10"),
			wantAmount: d("44"),
		},
		{
			name:      "threshold above total: omitted",
			coupon:    cartWise("c3", "500", "10"),
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(context.Background(), testCart(), []Coupon{tt.coupon}, newCatalog())
			require.NoError(t, err)

			if tt.wantEmpty {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.coupon.ID, got[0].CouponID)
			assert.Equal(t, TypeCartWise, got[0].Type)
			assert.True(t, got[0].Discount.Equal(tt.wantAmount),
				"discount = %s, want %s", got[0].Discount, tt.wantAmount)
			assert.NotEmpty(t, got[0].Description)
		})
	}
}

func TestEvaluateProductWise(t *testing.T) {
	t.Run("20% off p1 line of 300", func(t *testing.T) {
		got, err := Evaluate(context.Background(), testCart(),
			[]Coupon{productWise("c1", "p1", "20")}, newCatalog())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Discount.Equal(d("60")))
	})

	t.Run("target product not in cart: omitted", func(t *testing.T) {
		got, err := Evaluate(context.Background(), testCart(),
			[]Coupon{productWise("c2", "p9", "20")}, newCatalog())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("zero percent yields zero discount: omitted", func(t *testing.T) {
		got, err := Evaluate(context.Background(), testCart(),
			[]Coupon{productWise("c3", "p1", "0")}, newCatalog())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("duplicate cart lines use the first line", func(t *testing.T) {
		crt := cart.Cart{Items: []cart.Item{
			{ProductID: "p1", Quantity: 1, Price: d("10")},
			{ProductID: "p1", Quantity: 4, Price: d("100")},
		}}
		got, err := Evaluate(context.Background(), crt,
			[]Coupon{productWise("c4", "p1", "50")}, newCatalog())
		require.NoError(t, err)
		require.Len(t, got, 1)
		// 50% of 10*1, not of 100*4.
		assert.True(t, got[0].Discount.Equal(d("5")))
	})
}

func TestEvaluateBxGy(t *testing.T) {
	buy := func(pqs ...ProductQuantity) []ProductQuantity { return pqs }

	tests := []struct {
		name       string
		cart       cart.Cart
		coupon     Coupon
		prices     map[string]decimal.Decimal
		wantAmount decimal.Decimal
		wantEmpty  bool
	}{
		{
			name: "free quantity capped by cart holding",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p1", Quantity: 6, Price: d("50")},
				{ProductID: "p2", Quantity: 1, Price: d("30")},
			}},
			coupon: bxgy("c1",
				buy(ProductQuantity{ProductID: "p1", Quantity: 2}),
				buy(ProductQuantity{ProductID: "p2", Quantity: 1}),
				3),
			// repetitions = min(6/2, 3) = 3, free = min(3*1, 1) = 1.
			wantAmount: d("30"),
		},
		{
			name: "repetition limit caps the multiplier",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p1", Quantity: 10, Price: d("50")},
				{ProductID: "p2", Quantity: 10, Price: d("30")},
			}},
			coupon: bxgy("c2",
				buy(ProductQuantity{ProductID: "p1", Quantity: 2}),
				buy(ProductQuantity{ProductID: "p2", Quantity: 1}),
				2),
			// repetitions = min(5, 2) = 2, free = min(2, 10) = 2.
			wantAmount: d("60"),
		},
		{
			name: "buy requirement unmet: omitted",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p1", Quantity: 1, Price: d("50")},
				{ProductID: "p2", Quantity: 5, Price: d("30")},
			}},
			coupon: bxgy("c3",
				buy(ProductQuantity{ProductID: "p1", Quantity: 2}),
				buy(ProductQuantity{ProductID: "p2", Quantity: 1}),
				3),
			wantEmpty: true,
		},
		{
			name: "buy product absent from cart: omitted",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p2", Quantity: 5, Price: d("30")},
			}},
			coupon: bxgy("c4",
				buy(ProductQuantity{ProductID: "p1", Quantity: 2}),
				buy(ProductQuantity{ProductID: "p2", Quantity: 1}),
				3),
			wantEmpty: true,
		},
		{
			name: "multiple buy requirements take the minimum",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p1", Quantity: 6, Price: d("50")},
				{ProductID: "p2", Quantity: 3, Price: d("30")},
				{ProductID: "p3", Quantity: 2, Price: d("25")},
			}},
			coupon: bxgy("c5",
				buy(
					ProductQuantity{ProductID: "p1", Quantity: 2}, // 3 times
					ProductQuantity{ProductID: "p2", Quantity: 2}, // 1 time
				),
				buy(ProductQuantity{ProductID: "p3", Quantity: 1}),
				5),
			// repetitions = 1, free p3 = min(1, 2) = 1.
			wantAmount: d("25"),
		},
		{
			name: "get product missing from cart contributes zero",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p1", Quantity: 4, Price: d("50")},
				{ProductID: "p2", Quantity: 2, Price: d("30")},
			}},
			coupon: bxgy("c6",
				buy(ProductQuantity{ProductID: "p1", Quantity: 2}),
				buy(
					ProductQuantity{ProductID: "p9", Quantity: 1}, // not in cart
					ProductQuantity{ProductID: "p2", Quantity: 1},
				),
				2),
			// only p2 contributes: min(2, 2) = 2 free at catalog price 30.
			wantAmount: d("60"),
		},
		{
			name: "get product missing from catalog contributes zero",
			cart: cart.Cart{Items: []cart.Item{
				{ProductID: "p1", Quantity: 2, Price: d("50")},
				{ProductID: "px", Quantity: 1, Price: d("99")},
			}},
			coupon: bxgy("c7",
				buy(ProductQuantity{ProductID: "p1", Quantity: 2}),
				buy(ProductQuantity{ProductID: "px", Quantity: 1}),
				1),
			wantEmpty: true, // catalog has no px, so discount is zero
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newCatalog()
			if tt.prices != nil {
				catalog.prices = tt.prices
			}

			got, err := Evaluate(context.Background(), tt.cart, []Coupon{tt.coupon}, catalog)
			require.NoError(t, err)

			if tt.wantEmpty {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.True(t, got[0].Discount.Equal(tt.wantAmount),
				"discount = %s, want %s", got[0].Discount, tt.wantAmount)
		})
	}
}

func TestEvaluatePreservesCouponOrder(t *testing.T) {
	coupons := []Coupon{
		productWise("first", "p2", "10"),
		cartWise("second", "100", "10"),
		cartWise("skipped", "9999", "10"),
		productWise("third", "p1", "5"),
	}

	got, err := Evaluate(context.Background(), testCart(), coupons, newCatalog())
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, a := range got {
		ids[i] = a.CouponID
	}
	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	coupons := []Coupon{
		cartWise("c1", "100", "10"),
		bxgy("c2",
			[]ProductQuantity{{ProductID: "p1", Quantity: 2}},
			[]ProductQuantity{{ProductID: "p2", Quantity: 1}},
			3),
	}

	first, err := Evaluate(context.Background(), testCart(), coupons, newCatalog())
	require.NoError(t, err)
	second, err := Evaluate(context.Background(), testCart(), coupons, newCatalog())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].CouponID, second[i].CouponID)
		assert.True(t, first[i].Discount.Equal(second[i].Discount))
		assert.Equal(t, first[i].Description, second[i].Description)
	}
}

func TestEvaluateCatalogErrorPropagates(t *testing.T) {
	catalogErr := errors.New("catalog unavailable")
	catalog := &mockCatalog{err: catalogErr}

	coupons := []Coupon{
		cartWise("c1", "100", "10"),
		bxgy("c2",
			[]ProductQuantity{{ProductID: "p1", Quantity: 2}},
			[]ProductQuantity{{ProductID: "p2", Quantity: 1}},
			1),
	}

	_, err := Evaluate(context.Background(), testCart(), coupons, catalog)
	require.ErrorIs(t, err, catalogErr)
}

func TestEvaluateUnknownTypeFails(t *testing.T) {
	broken := Coupon{ID: "c1", Type: Type("mystery"), Active: true}
	_, err := Evaluate(context.Background(), testCart(), []Coupon{broken}, newCatalog())
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestEvaluateSkipsCatalogWhenBxGyNotApplicable(t *testing.T) {
	catalog := newCatalog()
	coupon := bxgy("c1",
		[]ProductQuantity{{ProductID: "p9", Quantity: 2}},
		[]ProductQuantity{{ProductID: "p2", Quantity: 1}},
		1)

	got, err := Evaluate(context.Background(), testCart(), []Coupon{coupon}, catalog)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, catalog.calls)
}
