package offers

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type productFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// ServiceParams groups dependencies for the offer service.
type ServiceParams struct {
	Repo      *Repository
	Products  productFinder
	Publisher events.Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

// Service manages promotional offers.
type Service interface {
	CreateOffer(ctx context.Context, input CreateOfferInput) (*OfferDTO, error)
	GetOffer(ctx context.Context, id uuid.UUID) (*OfferDTO, error)
	GetOfferByCode(ctx context.Context, code string) (*OfferDTO, error)
	ListOffers(ctx context.Context, params pagination.Params) (*OfferListResult, error)
	UpdateOffer(ctx context.Context, id uuid.UUID, input UpdateOfferInput) (*OfferDTO, error)
	DeleteOffer(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, enabled bool) (*OfferDTO, error)
	ListActive(ctx context.Context, now time.Time, productID *uuid.UUID) ([]OfferDTO, error)
}

type service struct {
	repo      *Repository
	products  productFinder
	publisher events.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an offer service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product finder is required")
	}
	svc := &service{
		repo:      params.Repo,
		products:  params.Products,
		publisher: params.Publisher,
		logg:      params.Logger,
		now:       params.Now,
	}
	if svc.publisher == nil {
		svc.publisher = events.Noop{}
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) CreateOffer(ctx context.Context, input CreateOfferInput) (*OfferDTO, error) {
	name, err := validateName(input.OfferName)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.OfferCode)
	switch {
	case code == "":
		return nil, requiredField("offerCode")
	case input.DiscountValue == nil:
		return nil, requiredField("discountValue")
	case input.StartDate == nil || input.StartDate.IsZero():
		return nil, requiredField("startDate")
	case input.EndDate == nil || input.EndDate.IsZero():
		return nil, requiredField("endDate")
	}
	if err := validateDiscount(*input.DiscountValue); err != nil {
		return nil, err
	}

	products := dbtypes.UUIDArray(input.Products).Dedupe()
	if err := s.ensureProductsExist(ctx, products); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		OfferName:     name,
		OfferCode:     code,
		DiscountValue: *input.DiscountValue,
		StartDate:     input.StartDate.UTC(),
		EndDate:       input.EndDate.UTC(),
		Products:      products,
	}
	if input.OfferStatus != nil {
		offer.OfferStatus = *input.OfferStatus
	}
	s.warnInvertedWindow(ctx, offer)

	created, err := s.repo.Create(ctx, offer)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Duplicate(err, "offerCode", "offer code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert offer")
	}

	dto := NewOfferDTO(created, s.now())
	s.emit(ctx, enums.EventOfferCreated, dto.ID, dto)
	return &dto, nil
}

func (s *service) GetOffer(ctx context.Context, id uuid.UUID) (*OfferDTO, error) {
	offer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewOfferDTO(offer, s.now())
	return &dto, nil
}

func (s *service) GetOfferByCode(ctx context.Context, code string) (*OfferDTO, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, requiredField("offerCode")
	}
	offer, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	dto := NewOfferDTO(offer, s.now())
	return &dto, nil
}

func (s *service) ListOffers(ctx context.Context, params pagination.Params) (*OfferListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	now := s.now()
	items := make([]OfferDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewOfferDTO(&rows[i], now))
	}
	return &OfferListResult{Items: items, NextCursor: next}, nil
}

func (s *service) UpdateOffer(ctx context.Context, id uuid.UUID, input UpdateOfferInput) (*OfferDTO, error) {
	offer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.OfferName != nil {
		name, err := validateName(*input.OfferName)
		if err != nil {
			return nil, err
		}
		offer.OfferName = name
	}
	if input.OfferCode != nil {
		code := strings.TrimSpace(*input.OfferCode)
		if code == "" {
			return nil, requiredField("offerCode")
		}
		offer.OfferCode = code
	}
	if input.DiscountValue != nil {
		if err := validateDiscount(*input.DiscountValue); err != nil {
			return nil, err
		}
		offer.DiscountValue = *input.DiscountValue
	}
	if input.StartDate != nil {
		if input.StartDate.IsZero() {
			return nil, requiredField("startDate")
		}
		offer.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		if input.EndDate.IsZero() {
			return nil, requiredField("endDate")
		}
		offer.EndDate = input.EndDate.UTC()
	}
	if input.OfferStatus != nil {
		offer.OfferStatus = *input.OfferStatus
	}
	if input.Products != nil {
		products := dbtypes.UUIDArray(*input.Products).Dedupe()
		if err := s.ensureProductsExist(ctx, products); err != nil {
			return nil, err
		}
		offer.Products = products
	}
	s.warnInvertedWindow(ctx, offer)

	return s.save(ctx, offer)
}

// SetStatus toggles the offer flag without touching its window.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, enabled bool) (*OfferDTO, error) {
	offer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.OfferStatus == enabled {
		dto := NewOfferDTO(offer, s.now())
		return &dto, nil
	}
	offer.OfferStatus = enabled
	return s.save(ctx, offer)
}

func (s *service) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return requiredField("id")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete offer")
	}
	s.emit(ctx, enums.EventOfferDeleted, id, map[string]any{"id": id})
	return nil
}

// ListActive returns enabled offers whose window covers now, optionally limited to
// offers that include productID.
func (s *service) ListActive(ctx context.Context, now time.Time, productID *uuid.UUID) ([]OfferDTO, error) {
	if now.IsZero() {
		now = s.now()
	}
	rows, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active offers")
	}
	out := make([]OfferDTO, 0, len(rows))
	for i := range rows {
		offer := &rows[i]
		if !IsActive(offer, now) {
			continue
		}
		if productID != nil && !AppliesTo(offer, *productID) {
			continue
		}
		out = append(out, NewOfferDTO(offer, now))
	}
	return out, nil
}

func (s *service) save(ctx context.Context, offer *models.Offer) (*OfferDTO, error) {
	if err := s.repo.Save(ctx, offer); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Duplicate(err, "offerCode", "offer code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update offer")
	}
	dto := NewOfferDTO(offer, s.now())
	s.emit(ctx, enums.EventOfferUpdated, dto.ID, dto)
	return &dto, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	if id == uuid.Nil {
		return nil, requiredField("id")
	}
	offer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return offer, nil
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

// warnInvertedWindow logs offers that can never be active.
func (s *service) warnInvertedWindow(ctx context.Context, offer *models.Offer) {
	if !offer.StartDate.After(offer.EndDate) {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"offer_code": offer.OfferCode,
		"start_date": offer.StartDate,
		"end_date":   offer.EndDate,
	})
	s.logg.Warn(logCtx, "offer start date is after end date")
}

func (s *service) emit(ctx context.Context, eventType enums.CurationEventType, id uuid.UUID, data any) {
	s.publisher.Publish(ctx, events.Event{
		Type:          eventType,
		AggregateType: enums.AggregateOffer,
		AggregateID:   id.String(),
		Data:          data,
	})
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"offer_id": id.String(), "event": eventType.String()}), "offer changed")
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", requiredField("offerName")
	}
	if n := utf8.RuneCountInString(name); n < minOfferNameLength || n > maxOfferNameLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "offerName must be between 3 and 50 characters").
			WithDetails(map[string]any{"field": "offerName", "min": minOfferNameLength, "max": maxOfferNameLength})
	}
	return name, nil
}

// discount_value is numeric(12,2) on postgres; anything it would round or
// overflow is rejected so every dialect stores the same value.
const discountScale = 2

var maxDiscountValue = decimal.New(1, 10)

func validateDiscount(v decimal.Decimal) error {
	if v.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discountValue must be zero or greater").
			WithDetails(map[string]any{"field": "discountValue"})
	}
	if !v.Equal(v.Truncate(discountScale)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discountValue allows at most 2 decimal places").
			WithDetails(map[string]any{"field": "discountValue", "scale": discountScale})
	}
	if v.GreaterThanOrEqual(maxDiscountValue) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discountValue is too large").
			WithDetails(map[string]any{"field": "discountValue", "max": "9999999999.99"})
	}
	return nil
}

func requiredField(field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" is required").
		WithDetails(map[string]any{"field": field})
}
