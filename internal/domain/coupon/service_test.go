package coupon

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-service/internal/domain/cart"
)

// mockCouponRepo is an in-memory coupon store preserving insertion order.
type mockCouponRepo struct {
	order   []string
	byID    map[string]*Coupon
	listErr error
}

func newCouponRepo(coupons ...Coupon) *mockCouponRepo {
	r := &mockCouponRepo{byID: make(map[string]*Coupon)}
	for i := range coupons {
		r.order = append(r.order, coupons[i].ID)
		r.byID[coupons[i].ID] = &coupons[i]
	}
	return r
}

func (m *mockCouponRepo) Create(_ context.Context, c *Coupon) error {
	m.order = append(m.order, c.ID)
	stored := *c
	m.byID[c.ID] = &stored
	return nil
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*Coupon, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Coupon, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	return out, nil
}

func (m *mockCouponRepo) ListActive(ctx context.Context) ([]Coupon, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *Coupon) error {
	if _, ok := m.byID[c.ID]; !ok {
		return ErrNotFound
	}
	stored := *c
	m.byID[c.ID] = &stored
	return nil
}

func (m *mockCouponRepo) SetActive(_ context.Context, id string, active bool) error {
	c, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.Active = active
	return nil
}

func TestServiceCreate(t *testing.T) {
	repo := newCouponRepo()
	svc := NewService(repo, newCatalog())

	created, err := svc.Create(context.Background(), &Coupon{
		Type:     TypeCartWise,
		CartWise: &CartWiseDetails{Threshold: d("100"), DiscountPercent: d("10")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Contains(t, created.Code, "CPN-")
	assert.True(t, created.Active)

	stored, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Code, stored.Code)
}

func TestServiceCreateRejectsInvalid(t *testing.T) {
	svc := NewService(newCouponRepo(), newCatalog())

	_, err := svc.Create(context.Background(), &Coupon{
		Type:     TypeCartWise,
		CartWise: &CartWiseDetails{Threshold: d("0"), DiscountPercent: d("10")},
	})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestServiceUpdateReplacesVariant(t *testing.T) {
	existing := cartWise("c1", "100", "10")
	existing.Active = false // soft-deleted
	repo := newCouponRepo(existing)
	svc := NewService(repo, newCatalog())

	updated, err := svc.Update(context.Background(), "c1", &Coupon{
		Type:        TypeProductWise,
		ProductWise: &ProductWiseDetails{ProductID: "p1", DiscountPercent: d("25")},
	})
	require.NoError(t, err)

	// Id and code survive, the variant is rebuilt, and update reactivates.
	assert.Equal(t, "c1", updated.ID)
	assert.Equal(t, existing.Code, updated.Code)
	assert.Equal(t, TypeProductWise, updated.Type)
	assert.Nil(t, updated.CartWise)
	require.NotNil(t, updated.ProductWise)
	assert.True(t, updated.Active)
}

func TestServiceUpdateUnknownID(t *testing.T) {
	svc := NewService(newCouponRepo(), newCatalog())

	_, err := svc.Update(context.Background(), "ghost", &Coupon{
		Type:     TypeCartWise,
		CartWise: &CartWiseDetails{Threshold: d("100"), DiscountPercent: d("10")},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteIsSoft(t *testing.T) {
	repo := newCouponRepo(cartWise("c1", "100", "10"))
	svc := NewService(repo, newCatalog())

	require.NoError(t, svc.Delete(context.Background(), "c1"))

	stored, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, stored.Active)
	require.NotNil(t, stored.CartWise, "variant details survive soft delete")

	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestServiceEvaluateApplicable(t *testing.T) {
	inactive := cartWise("c2", "100", "50")
	inactive.Active = false
	repo := newCouponRepo(
		cartWise("c1", "100", "10"),
		inactive,
		productWise("c3", "p1", "20"),
	)
	svc := NewService(repo, newCatalog())

	got, err := svc.EvaluateApplicable(context.Background(), testCart())
	require.NoError(t, err)

	// The soft-deleted coupon never reaches the evaluator.
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].CouponID)
	assert.Equal(t, "c3", got[1].CouponID)
}

func TestServiceEvaluateRejectsEmptyCart(t *testing.T) {
	svc := NewService(newCouponRepo(), newCatalog())

	_, err := svc.EvaluateApplicable(context.Background(), cart.Cart{})
	require.ErrorIs(t, err, cart.ErrEmpty)
}

func TestServiceEvaluateStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("store down")
	repo := newCouponRepo()
	repo.listErr = storeErr
	svc := NewService(repo, newCatalog())

	_, err := svc.EvaluateApplicable(context.Background(), testCart())
	require.ErrorIs(t, err, storeErr)
}

func TestServiceApplyCoupon(t *testing.T) {
	repo := newCouponRepo(cartWise("c1", "100", "10"))
	svc := NewService(repo, newCatalog())

	got, err := svc.ApplyCoupon(context.Background(), "c1", testCart())
	require.NoError(t, err)
	assert.True(t, got.TotalDiscount.Equal(d("44")))
	assert.True(t, got.FinalTotal.Equal(d("396")))
}

func TestServiceApplyCouponNotFound(t *testing.T) {
	svc := NewService(newCouponRepo(), newCatalog())

	got, err := svc.ApplyCoupon(context.Background(), "ghost", testCart())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

func TestServiceApplyInactiveCoupon(t *testing.T) {
	c := productWise("c1", "p1", "20")
	c.Active = false
	svc := NewService(newCouponRepo(c), newCatalog())

	got, err := svc.ApplyCoupon(context.Background(), "c1", testCart())
	require.ErrorIs(t, err, ErrInactive)
	assert.Nil(t, got)
}
