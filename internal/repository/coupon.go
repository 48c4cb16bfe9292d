package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/coupon"
)

const (
	couponColumns = `id, code, type, threshold, discount_percent, product_id,
		buy_products, get_products, repetition_limit, active, created_at, updated_at`

	createCouponSQL = `INSERT INTO coupons
		(id, code, type, threshold, discount_percent, product_id, buy_products, get_products, repetition_limit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at, id`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE active ORDER BY created_at, id`

	updateCouponSQL = `UPDATE coupons SET
		type = $2, threshold = $3, discount_percent = $4, product_id = $5,
		buy_products = $6, get_products = $7, repetition_limit = $8,
		active = $9, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	setCouponActiveSQL = `UPDATE coupons SET active = $2, updated_at = now() WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons
		(id, code, type, threshold, discount_percent, product_id, buy_products, get_products, repetition_limit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			type = EXCLUDED.type,
			threshold = EXCLUDED.threshold,
			discount_percent = EXCLUDED.discount_percent,
			product_id = EXCLUDED.product_id,
			buy_products = EXCLUDED.buy_products,
			get_products = EXCLUDED.get_products,
			repetition_limit = EXCLUDED.repetition_limit,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING created_at, updated_at`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL. The
// three variants share one row: cart-wise and product-wise details live in
// scalar columns, BxGy buy/get sets in JSONB.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts a new coupon row and fills in the DB-assigned timestamps.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	cols, err := detailColumns(c)
	if err != nil {
		return err
	}

	row := r.pool.QueryRow(ctx, createCouponSQL,
		c.ID, c.Code, string(c.Type),
		cols.threshold, cols.discountPercent, cols.productID,
		cols.buyProducts, cols.getProducts, cols.repetitionLimit,
		c.Active,
	)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return errors.Wrapf(err, "inserting coupon %q", c.Code)
	}
	return nil
}

// Upsert inserts a coupon or, when its code already exists, replaces that
// coupon's variant and active flag. Used by the seeding and ingest tools so
// reruns are idempotent.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	cols, err := detailColumns(c)
	if err != nil {
		return err
	}

	row := r.pool.QueryRow(ctx, upsertCouponSQL,
		c.ID, c.Code, string(c.Type),
		cols.threshold, cols.discountPercent, cols.productID,
		cols.buyProducts, cols.getProducts, cols.repetitionLimit,
		c.Active,
	)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return errors.Wrapf(err, "upserting coupon %q", c.Code)
	}
	return nil
}

// GetByID returns one coupon. Returns coupon.ErrNotFound when the id has no
// matching row.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting coupon %q", id)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting coupon %q", id)
	}
	return &c, nil
}

// List returns every coupon, including soft-deleted ones, oldest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListActive returns only active coupons, oldest first.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing active coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Update rewrites all variant columns, so switching a coupon's type leaves no
// stale detail behind.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	cols, err := detailColumns(c)
	if err != nil {
		return err
	}

	row := r.pool.QueryRow(ctx, updateCouponSQL,
		c.ID, string(c.Type),
		cols.threshold, cols.discountPercent, cols.productID,
		cols.buyProducts, cols.getProducts, cols.repetitionLimit,
		c.Active,
	)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return errors.Wrapf(err, "updating coupon %q", c.ID)
	}
	return nil
}

// SetActive flips the soft-delete flag.
func (r *CouponRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, setCouponActiveSQL, id, active)
	if err != nil {
		return errors.Wrapf(err, "setting coupon %q active=%t", id, active)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// detailCols holds the variant columns of a coupon row; unused columns stay
// nil and are stored as NULL.
type detailCols struct {
	threshold       *decimal.Decimal
	discountPercent *decimal.Decimal
	productID       *string
	buyProducts     []byte
	getProducts     []byte
	repetitionLimit *int32
}

func detailColumns(c *coupon.Coupon) (detailCols, error) {
	var cols detailCols
	switch c.Type {
	case coupon.TypeCartWise:
		if c.CartWise == nil {
			return cols, errors.Wrap(coupon.ErrInvalid, "cart-wise details missing")
		}
		cols.threshold = &c.CartWise.Threshold
		cols.discountPercent = &c.CartWise.DiscountPercent
	case coupon.TypeProductWise:
		if c.ProductWise == nil {
			return cols, errors.Wrap(coupon.ErrInvalid, "product-wise details missing")
		}
		cols.productID = &c.ProductWise.ProductID
		cols.discountPercent = &c.ProductWise.DiscountPercent
	case coupon.TypeBxGy:
		if c.BxGy == nil {
			return cols, errors.Wrap(coupon.ErrInvalid, "bxgy details missing")
		}
		cols.buyProducts = encodeProductSet(c.BxGy.Buy)
		cols.getProducts = encodeProductSet(c.BxGy.Get)
		limit := int32(c.BxGy.RepetitionLimit)
		cols.repetitionLimit = &limit
	default:
		return cols, errors.Wrapf(coupon.ErrUnknownType, "%q", c.Type)
	}
	return cols, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c        coupon.Coupon
		typ      string
		cols     detailCols
		thr, pct decimal.NullDecimal
	)
	err := row.Scan(
		&c.ID, &c.Code, &typ,
		&thr, &pct, &cols.productID,
		&cols.buyProducts, &cols.getProducts, &cols.repetitionLimit,
		&c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}

	c.Type = coupon.Type(typ)
	switch c.Type {
	case coupon.TypeCartWise:
		c.CartWise = &coupon.CartWiseDetails{
			Threshold:       thr.Decimal,
			DiscountPercent: pct.Decimal,
		}
	case coupon.TypeProductWise:
		d := &coupon.ProductWiseDetails{DiscountPercent: pct.Decimal}
		if cols.productID != nil {
			d.ProductID = *cols.productID
		}
		c.ProductWise = d
	case coupon.TypeBxGy:
		buy, err := decodeProductSet(cols.buyProducts)
		if err != nil {
			return c, errors.Wrapf(err, "decoding buy products of %q", c.ID)
		}
		get, err := decodeProductSet(cols.getProducts)
		if err != nil {
			return c, errors.Wrapf(err, "decoding get products of %q", c.ID)
		}
		d := &coupon.BxGyDetails{Buy: buy, Get: get}
		if cols.repetitionLimit != nil {
			d.RepetitionLimit = int(*cols.repetitionLimit)
		}
		c.BxGy = d
	}
	return c, nil
}

// encodeProductSet renders a buy/get set as a JSON array for the JSONB
// columns.
func encodeProductSet(set []coupon.ProductQuantity) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, pq := range set {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(pq.ProductID)
		e.FieldStart("quantity")
		e.Int(pq.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeProductSet(data []byte) ([]coupon.ProductQuantity, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out []coupon.ProductQuantity
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var pq coupon.ProductQuantity
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product_id":
				v, err := d.Str()
				pq.ProductID = v
				return err
			case "quantity":
				v, err := d.Int()
				pq.Quantity = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		out = append(out, pq)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}
