package offers

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minOfferNameLength = 3
	maxOfferNameLength = 50
)

// OfferDTO is the offer payload. Active is evaluated at read time.
type OfferDTO struct {
	ID            uuid.UUID       `json:"id"`
	OfferName     string          `json:"offerName"`
	OfferStatus   bool            `json:"offerStatus"`
	OfferCode     string          `json:"offerCode"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	Products      []uuid.UUID     `json:"products"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CreateOfferInput is the admin payload for a new offer. Pointer fields are
// required and distinguish "missing" from a zero value.
type CreateOfferInput struct {
	OfferName     string           `json:"offerName" validate:"required,min=3,max=50"`
	OfferStatus   *bool            `json:"offerStatus"`
	OfferCode     string           `json:"offerCode" validate:"required,max=64"`
	DiscountValue *decimal.Decimal `json:"discountValue" validate:"required"`
	StartDate     *time.Time       `json:"startDate" validate:"required"`
	EndDate       *time.Time       `json:"endDate" validate:"required"`
	Products      []uuid.UUID      `json:"products" validate:"omitempty,max=500"`
}

// UpdateOfferInput patches an offer. Nil fields are left unchanged.
type UpdateOfferInput struct {
	OfferName     *string          `json:"offerName" validate:"omitempty,min=3,max=50"`
	OfferStatus   *bool            `json:"offerStatus"`
	OfferCode     *string          `json:"offerCode" validate:"omitempty,max=64"`
	DiscountValue *decimal.Decimal `json:"discountValue"`
	StartDate     *time.Time       `json:"startDate"`
	EndDate       *time.Time       `json:"endDate"`
	Products      *[]uuid.UUID     `json:"products" validate:"omitempty,max=500"`
}

// SetStatusInput toggles an offer on or off.
type SetStatusInput struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// OfferListResult is one page of offers.
type OfferListResult struct {
	Items      []OfferDTO `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func NewOfferDTO(o *models.Offer, now time.Time) OfferDTO {
	products := make([]uuid.UUID, len(o.Products))
	copy(products, o.Products)
	return OfferDTO{
		ID:            o.ID,
		OfferName:     o.OfferName,
		OfferStatus:   o.OfferStatus,
		OfferCode:     o.OfferCode,
		DiscountValue: o.DiscountValue,
		StartDate:     o.StartDate.UTC(),
		EndDate:       o.EndDate.UTC(),
		Products:      products,
		Active:        IsActive(o, now),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// IsActive reports whether the offer is enabled and now falls inside its window.
// Both ends are inclusive.
func IsActive(o *models.Offer, now time.Time) bool {
	if o == nil || !o.OfferStatus {
		return false
	}
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// AppliesTo reports whether productID is one of the offer's products.
func AppliesTo(o *models.Offer, productID uuid.UUID) bool {
	return o != nil && o.Products.Contains(productID)
}
