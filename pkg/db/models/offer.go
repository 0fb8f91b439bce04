package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Offer is a promotional discount over a set of products within a date window.
type Offer struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OfferName     string            `gorm:"column:offer_name;not null"`
	OfferStatus   bool              `gorm:"column:offer_status;not null;default:false"`
	OfferCode     string            `gorm:"column:offer_code;not null;uniqueIndex:offers_offer_code_key"`
	DiscountValue decimal.Decimal   `gorm:"column:discount_value;type:numeric(12,2);not null"`
	StartDate     time.Time         `gorm:"column:start_date;not null"`
	EndDate       time.Time         `gorm:"column:end_date;not null"`
	Products      dbtypes.UUIDArray `gorm:"column:products;type:uuid[];not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Offer) TableName() string { return "offers" }

func (o *Offer) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Products == nil {
		o.Products = dbtypes.UUIDArray{}
	}
	return nil
}
