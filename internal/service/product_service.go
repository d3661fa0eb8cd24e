package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"noelphones/internal/cache"
	apperrors "noelphones/internal/errors"
	"noelphones/internal/model"
	"noelphones/internal/repository"
)

const (
	productCacheTTL     = 5 * time.Minute
	productListCacheKey = "products:all"
)

// ProductInput carries the fields accepted when creating a product.
type ProductInput struct {
	SKU         string
	Brand       string
	Model       string
	Description string
	PriceCents  int64
	Stock       int
}

// ProductService exposes catalogue operations.
type ProductService interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error)
}

type productService struct {
	repo  repository.ProductRepository
	cache *cache.Client
}

// NewProductService builds a ProductService with repository and cache. A nil
// cache disables caching.
func NewProductService(repo repository.ProductRepository, cache *cache.Client) ProductService {
	return &productService{repo: repo, cache: cache}
}

func (s *productService) cacheKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *productService) ListProducts(ctx context.Context) ([]model.Product, error) {
	var cached []model.Product
	if s.cache.GetJSON(ctx, productListCacheKey, &cached) {
		return cached, nil
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	s.cache.SetJSON(ctx, productListCacheKey, products, productCacheTTL)
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	var cached model.Product
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	s.cache.SetJSON(ctx, s.cacheKey(id), product, productCacheTTL)
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	product := &model.Product{
		SKU:         strings.TrimSpace(in.SKU),
		Brand:       strings.TrimSpace(in.Brand),
		Model:       strings.TrimSpace(in.Model),
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrProductAlreadyExists
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.cache.Delete(ctx, productListCacheKey)
	return product, nil
}

func validateProduct(in ProductInput) error {
	var missing []string
	if strings.TrimSpace(in.SKU) == "" {
		missing = append(missing, "sku")
	}
	if strings.TrimSpace(in.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(in.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return apperrors.Validation(strings.Join(missing, ", ") + " required")
	}
	if in.PriceCents < 0 {
		return apperrors.Validation("price_cents must not be negative")
	}
	if in.Stock < 0 {
		return apperrors.Validation("stock must not be negative")
	}
	return nil
}
