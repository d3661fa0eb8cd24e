package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"noelphones/internal/auth"
	"noelphones/internal/config"
	"noelphones/internal/db"
	apperrors "noelphones/internal/errors"
	"noelphones/internal/logger"
	"noelphones/internal/repository"
	"noelphones/internal/service"
)

// SeedProductData is one entry of the products file. Price is a decimal
// string such as "499.90".
type SeedProductData struct {
	SKU         string `json:"sku"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("starting seed")

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx := context.Background()

	authService := service.NewAuthService(
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL),
	)
	if email := os.Getenv("SEED_ADMIN_EMAIL"); email != "" {
		name := os.Getenv("SEED_ADMIN_NAME")
		if name == "" {
			name = "Administrator"
		}
		user, created, err := authService.EnsureAdmin(ctx, name, email, os.Getenv("SEED_ADMIN_PASSWORD"))
		if err != nil {
			log.Fatal().Err(err).Str("email", email).Msg("seed admin")
		}
		if !created {
			log.Info().Uint("id", user.ID).Str("role", string(user.Role)).Msg("account already exists, left unchanged")
		} else {
			log.Info().Uint("id", user.ID).Msg("admin created")
		}
	}

	path := os.Getenv("SEED_PRODUCTS_FILE")
	if path == "" {
		log.Info().Msg("SEED_PRODUCTS_FILE not set, skipping products")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("open products file")
	}
	defer f.Close()

	inputs, skipped, err := readProducts(f, log)
	if err != nil {
		log.Fatal().Err(err).Msg("read products file")
	}

	productService := service.NewProductService(repository.NewProductRepository(gormDB), nil)
	created, existing, err := seedProducts(ctx, productService, inputs)
	if err != nil {
		log.Fatal().Err(err).Msg("seed products")
	}

	log.Info().
		Int("created", created).
		Int("existing", existing).
		Int("skipped", skipped).
		Msg("seed completed")
}

// readProducts decodes the products file. Entries with an unparseable price
// are skipped and counted.
func readProducts(r io.Reader, log zerolog.Logger) ([]service.ProductInput, int, error) {
	var items []SeedProductData
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, 0, fmt.Errorf("parse JSON: %w", err)
	}

	inputs := make([]service.ProductInput, 0, len(items))
	skipped := 0
	for _, item := range items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			log.Warn().Str("sku", item.SKU).Str("price", item.Price).Msg("skipping product with invalid price")
			skipped++
			continue
		}
		inputs = append(inputs, service.ProductInput{
			SKU:         item.SKU,
			Brand:       item.Brand,
			Model:       item.Model,
			Description: item.Description,
			PriceCents:  price.Shift(2).Round(0).IntPart(),
			Stock:       item.Stock,
		})
	}
	return inputs, skipped, nil
}

// seedProducts creates each product, counting those whose sku already exists.
func seedProducts(ctx context.Context, products service.ProductService, inputs []service.ProductInput) (created int, existing int, err error) {
	for _, in := range inputs {
		if _, err := products.CreateProduct(ctx, in); err != nil {
			if errors.Is(err, apperrors.ErrProductAlreadyExists) {
				existing++
				continue
			}
			return created, existing, fmt.Errorf("create product %s: %w", in.SKU, err)
		}
		created++
	}
	return created, existing, nil
}
