package catalog

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the full catalog product payload.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	ExternalID  string          `json:"product_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SummaryDTO is the projection embedded in resolved curated content.
type SummaryDTO struct {
	ID         uuid.UUID       `json:"id"`
	ExternalID string          `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Images     []string        `json:"images"`
	Category   string          `json:"category"`
}

// CreateProductInput is the admin payload for registering a catalog product.
type CreateProductInput struct {
	ExternalID  string          `json:"product_id" validate:"required,max=128"`
	Name        string          `json:"name" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images" validate:"omitempty,dive,url"`
	Category    string          `json:"category" validate:"omitempty,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=5000"`
}

// ProductListResult is one page of catalog products.
type ProductListResult struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func NewProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Price:       p.Price,
		Images:      append([]string{}, p.Images...),
		Category:    p.Category,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func NewSummaryDTO(p *models.Product) SummaryDTO {
	return SummaryDTO{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Price:      p.Price,
		Images:     append([]string{}, p.Images...),
		Category:   p.Category,
	}
}

func (in CreateProductInput) toModel() *models.Product {
	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			images = append(images, trimmed)
		}
	}
	var description *string
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d != "" {
			description = &d
		}
	}
	return &models.Product{
		ExternalID:  strings.TrimSpace(in.ExternalID),
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Images:      images,
		Category:    strings.TrimSpace(in.Category),
		Description: description,
	}
}
