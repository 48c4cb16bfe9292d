package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/coupon-service/internal/domain/cart"
)

// Service owns the coupon lifecycle and exposes the two engine operations:
// evaluating which coupons apply to a cart, and applying a chosen one.
type Service struct {
	coupons Repository
	catalog Catalog
}

// NewService creates a coupon Service backed by the given coupon store and
// product catalog.
func NewService(coupons Repository, catalog Catalog) *Service {
	return &Service{coupons: coupons, catalog: catalog}
}

// Create validates and stores a new coupon. A missing code is generated;
// new coupons are always active.
func (s *Service) Create(ctx context.Context, c *Coupon) (*Coupon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Code == "" {
		c.Code = generateCode()
	}
	c.Active = true

	if err := s.coupons.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// Get returns one coupon by id. Returns ErrNotFound when the id is unknown.
func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	return s.coupons.GetByID(ctx, id)
}

// List returns all coupons, active and soft-deleted alike.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.coupons.List(ctx)
}

// ListActive returns only coupons whose active flag is set.
func (s *Service) ListActive(ctx context.Context) ([]Coupon, error) {
	return s.coupons.ListActive(ctx)
}

// Update replaces a coupon's variant wholesale: the old details are
// discarded and the new ones validated from scratch. Updating reactivates a
// soft-deleted coupon.
func (s *Service) Update(ctx context.Context, id string, c *Coupon) (*Coupon, error) {
	existing, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.ID = existing.ID
	c.Code = existing.Code
	c.Active = true
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete soft-deletes a coupon by flipping its active flag. The row and its
// variant details are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.coupons.GetByID(ctx, id); err != nil {
		return err
	}
	return s.coupons.SetActive(ctx, id, false)
}

// EvaluateApplicable returns a summary for every active coupon that would
// yield a positive discount on the cart, in store order.
func (s *Service) EvaluateApplicable(ctx context.Context, crt cart.Cart) ([]Applicable, error) {
	if err := crt.Validate(); err != nil {
		return nil, err
	}

	active, err := s.coupons.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	return Evaluate(ctx, crt, active, s.catalog)
}

// ApplyCoupon applies the coupon with the given id to the cart and returns
// the itemized result. Unknown ids yield ErrNotFound, soft-deleted coupons
// ErrInactive; in both cases no partial result is produced.
func (s *Service) ApplyCoupon(ctx context.Context, couponID string, crt cart.Cart) (*cart.UpdatedCart, error) {
	if err := crt.Validate(); err != nil {
		return nil, err
	}

	c, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	return Apply(crt, c)
}

// generateCode builds a human-shareable coupon code from a UUID fragment.
func generateCode() string {
	return "CPN-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}
