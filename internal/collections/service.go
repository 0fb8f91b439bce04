package collections

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/resolver"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// productFinder checks catalog membership in one query.
type productFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the collection service.
type ServiceParams struct {
	Repo      *Repository
	DB        txRunner
	Products  productFinder
	Resolver  *resolver.Resolver
	Publisher events.Publisher
	Logger    *logger.Logger
}

// Service manages merchandising collections.
type Service interface {
	CreateCollection(ctx context.Context, input CreateCollectionInput) (*CollectionDTO, error)
	GetCollection(ctx context.Context, id string) (*CollectionDTO, error)
	GetResolvedCollection(ctx context.Context, id string) (*ResolvedCollectionDTO, error)
	ListCollections(ctx context.Context, params pagination.Params) (*CollectionListResult, error)
	UpdateCollection(ctx context.Context, id string, input UpdateCollectionInput) (*CollectionDTO, error)
	DeleteCollection(ctx context.Context, id string) error
	AddProduct(ctx context.Context, id string, productID uuid.UUID) (*CollectionDTO, error)
	RemoveProduct(ctx context.Context, id string, productID uuid.UUID) (*CollectionDTO, error)
}

type service struct {
	repo      *Repository
	db        txRunner
	products  productFinder
	resolver  *resolver.Resolver
	publisher events.Publisher
	logg      *logger.Logger
}

// NewService builds a collection service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection repo is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db client is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product resolver is required")
	}
	svc := &service{
		repo:      params.Repo,
		db:        params.DB,
		products:  params.Products,
		resolver:  params.Resolver,
		publisher: params.Publisher,
		logg:      params.Logger,
	}
	if svc.publisher == nil {
		svc.publisher = events.Noop{}
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc, nil
}

func (s *service) CreateCollection(ctx context.Context, input CreateCollectionInput) (*CollectionDTO, error) {
	id := strings.TrimSpace(input.ID)
	name := strings.TrimSpace(input.Name)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "id is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	products := dbtypes.UUIDArray(input.Products).Dedupe()
	if err := s.ensureProductsExist(ctx, products); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &models.Collection{
		ID:          id,
		Name:        name,
		Description: trimOptional(input.Description),
		Products:    products,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Duplicate(err, "id", "collection id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert collection")
	}

	dto := NewCollectionDTO(created)
	s.emit(ctx, enums.EventCollectionCreated, dto)
	return &dto, nil
}

func (s *service) GetCollection(ctx context.Context, id string) (*CollectionDTO, error) {
	collection, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := NewCollectionDTO(collection)
	return &dto, nil
}

// GetResolvedCollection returns the collection with every member resolved against
// the catalog. Missing products are flagged, not dropped.
func (s *service) GetResolvedCollection(ctx context.Context, id string) (*ResolvedCollectionDTO, error) {
	collection, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	refs := make([]resolver.Ref, 0, len(collection.Products))
	for _, productID := range collection.Products {
		pid := productID
		refs = append(refs, resolver.Ref{ProductID: &pid})
	}
	return &ResolvedCollectionDTO{
		ID:          collection.ID,
		Name:        collection.Name,
		Description: collection.Description,
		Products:    s.resolver.Resolve(ctx, refs),
		UpdatedAt:   collection.UpdatedAt,
	}, nil
}

func (s *service) ListCollections(ctx context.Context, params pagination.Params) (*CollectionListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list collections")
	}
	items := make([]CollectionDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewCollectionDTO(&rows[i]))
	}
	return &CollectionListResult{Items: items, NextCursor: next}, nil
}

func (s *service) UpdateCollection(ctx context.Context, id string, input UpdateCollectionInput) (*CollectionDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	var products dbtypes.UUIDArray
	if input.Products != nil {
		products = dbtypes.UUIDArray(*input.Products).Dedupe()
		if err := s.ensureProductsExist(ctx, products); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, id, enums.EventCollectionUpdated, func(c *models.Collection) (bool, error) {
		if input.Name != nil {
			c.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			c.Description = trimOptional(input.Description)
		}
		if input.Products != nil {
			c.Products = products
		}
		return true, nil
	})
}

func (s *service) DeleteCollection(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "collection id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete collection")
	}
	s.emit(ctx, enums.EventCollectionDeleted, map[string]any{"id": id})
	return nil
}

// AddProduct appends productID unless it is already a member. The product must
// exist in the catalog.
func (s *service) AddProduct(ctx context.Context, id string, productID uuid.UUID) (*CollectionDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	found, err := s.products.FindByIDs(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	return s.mutate(ctx, id, enums.EventCollectionUpdated, func(c *models.Collection) (bool, error) {
		if c.Products.Contains(productID) {
			return false, nil
		}
		c.Products = append(c.Products, productID)
		return true, nil
	})
}

// RemoveProduct drops productID from the collection. Removing a non-member is a no-op.
func (s *service) RemoveProduct(ctx context.Context, id string, productID uuid.UUID) (*CollectionDTO, error) {
	return s.mutate(ctx, id, enums.EventCollectionUpdated, func(c *models.Collection) (bool, error) {
		if !c.Products.Contains(productID) {
			return false, nil
		}
		c.Products = c.Products.Without(productID)
		return true, nil
	})
}

// mutate loads the collection under a row lock, applies fn and saves when fn
// reports a change.
func (s *service) mutate(ctx context.Context, id string, eventType enums.CurationEventType, fn func(*models.Collection) (bool, error)) (*CollectionDTO, error) {
	var (
		result  *models.Collection
		changed bool
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		collection, err := s.loadForUpdate(ctx, repo, id)
		if err != nil {
			return err
		}
		changed, err = fn(collection)
		if err != nil {
			return err
		}
		if changed {
			if err := repo.Save(ctx, collection); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update collection")
			}
		}
		result = collection
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update collection")
	}

	dto := NewCollectionDTO(result)
	if changed {
		s.emit(ctx, eventType, dto)
	}
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo *Repository, id string) (*models.Collection, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection id is required")
	}
	collection, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collection")
	}
	return collection, nil
}

func (s *service) loadForUpdate(ctx context.Context, repo *Repository, id string) (*models.Collection, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection id is required")
	}
	collection, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collection")
	}
	return collection, nil
}

func (s *service) ensureProductsExist(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, p := range found {
		present[p.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown products").
			WithDetails(map[string]any{"products": missing})
	}
	return nil
}

func (s *service) emit(ctx context.Context, eventType enums.CurationEventType, data any) {
	aggregateID := ""
	switch v := data.(type) {
	case CollectionDTO:
		aggregateID = v.ID
	case map[string]any:
		aggregateID, _ = v["id"].(string)
	}
	s.publisher.Publish(ctx, events.Event{
		Type:          eventType,
		AggregateType: enums.AggregateCollection,
		AggregateID:   aggregateID,
		Data:          data,
	})
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"collection_id": aggregateID, "event": eventType.String()}), "collection changed")
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
