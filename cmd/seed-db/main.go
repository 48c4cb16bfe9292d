// Command seed-db loads the product catalog from a JSON file and creates a
// demo coupon of each type. Intended for local development and integration
// test environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/coupon"
	"github.com/xenking/coupon-service/internal/domain/product"
	"github.com/xenking/coupon-service/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		err := repo.Upsert(ctx, &product.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	slog.Info("seeding demo coupons")

	coupons := []coupon.Coupon{
		{
			ID:   "seed-cart-10",
			Code: "CART10",
			Type: coupon.TypeCartWise,
			CartWise: &coupon.CartWiseDetails{
				Threshold:       decimal.NewFromInt(100),
				DiscountPercent: decimal.NewFromInt(10),
			},
			Active: true,
		},
		{
			ID:   "seed-product-20",
			Code: "PROD20",
			Type: coupon.TypeProductWise,
			ProductWise: &coupon.ProductWiseDetails{
				ProductID:       "1",
				DiscountPercent: decimal.NewFromInt(20),
			},
			Active: true,
		},
		{
			ID:   "seed-b2g1",
			Code: "B2G1FREE",
			Type: coupon.TypeBxGy,
			BxGy: &coupon.BxGyDetails{
				Buy: []coupon.ProductQuantity{
					{ProductID: "1", Quantity: 2},
				},
				Get: []coupon.ProductQuantity{
					{ProductID: "3", Quantity: 1},
				},
				RepetitionLimit: 3,
			},
			Active: true,
		},
	}

	for i := range coupons {
		if err := repo.Upsert(ctx, &coupons[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", coupons[i].Code)
		}

		slog.Info("upserted coupon", slog.String("code", coupons[i].Code), slog.String("type", string(coupons[i].Type)))
	}

	return nil
}
