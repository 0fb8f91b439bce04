package collections

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/resolver"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CollectionDTO is the stored collection with its ordered product ids.
type CollectionDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Products    []uuid.UUID `json:"products"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ResolvedCollectionDTO carries catalog summaries for every member.
type ResolvedCollectionDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Products    []resolver.Entry `json:"products"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// CreateCollectionInput is the admin payload for a new collection.
type CreateCollectionInput struct {
	ID          string      `json:"id" validate:"required,max=100"`
	Name        string      `json:"name" validate:"required,max=200"`
	Description *string     `json:"description" validate:"omitempty,max=2000"`
	Products    []uuid.UUID `json:"products" validate:"omitempty,max=500"`
}

// UpdateCollectionInput patches a collection. Nil fields are left unchanged.
type UpdateCollectionInput struct {
	Name        *string      `json:"name" validate:"omitempty,max=200"`
	Description *string      `json:"description" validate:"omitempty,max=2000"`
	Products    *[]uuid.UUID `json:"products" validate:"omitempty,max=500"`
}

// AddProductInput names the product appended to a collection.
type AddProductInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

// CollectionListResult is one page of collections.
type CollectionListResult struct {
	Items      []CollectionDTO `json:"items"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func NewCollectionDTO(c *models.Collection) CollectionDTO {
	products := make([]uuid.UUID, len(c.Products))
	copy(products, c.Products)
	return CollectionDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Products:    products,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// PublicView drops members that no longer resolve.
func (r ResolvedCollectionDTO) PublicView() ResolvedCollectionDTO {
	out := r
	out.Products = resolver.OnlyResolved(r.Products)
	return out
}
