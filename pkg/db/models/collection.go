package models

import (
	"time"

	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Collection is a named, ordered group of products keyed by a caller-chosen id.
type Collection struct {
	ID          string            `gorm:"column:id;primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Description *string           `gorm:"column:description"`
	Products    dbtypes.UUIDArray `gorm:"column:products;type:uuid[];not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Collection) TableName() string { return "collections" }

func (c *Collection) BeforeCreate(*gorm.DB) error {
	if c.Products == nil {
		c.Products = dbtypes.UUIDArray{}
	}
	return nil
}
