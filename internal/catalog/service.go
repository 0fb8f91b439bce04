package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// CacheInvalidator drops cached read models that embed catalog data.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo        *Repository
	Invalidator CacheInvalidator
	Logger      *logger.Logger
}

// Service exposes catalog management for the back office and the storefront.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, key string) (*ProductDTO, error)
	ListProducts(ctx context.Context, params pagination.Params) (*ProductListResult, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo        *Repository
	invalidator CacheInvalidator
	logg        *logger.Logger
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        params.Repo,
		invalidator: params.Invalidator,
		logg:        logg,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := input.toModel()
	if product.ExternalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if product.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if product.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Duplicate(err, "product_id", "product_id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	// Curated references to this product_id may be cached as unresolved.
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	dto := NewProductDTO(created)
	return &dto, nil
}

// GetProduct accepts either the database identity or the external product_id.
func (s *service) GetProduct(ctx context.Context, key string) (*ProductDTO, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if id, err := uuid.Parse(key); err == nil {
		product, err := s.repo.FindByID(ctx, id)
		if err == nil {
			dto := NewProductDTO(product)
			return &dto, nil
		}
		if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
	}

	products, err := s.repo.FindByExternalIDs(ctx, []string{key})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if len(products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := NewProductDTO(&products[0])
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) (*ProductListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewProductDTO(&rows[i]))
	}
	return &ProductListResult{Items: items, NextCursor: next}, nil
}

// DeleteProduct removes a catalog product. Curated references to it are left in
// place and resolve as unresolved from then on.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "catalog product deleted")
	return nil
}
