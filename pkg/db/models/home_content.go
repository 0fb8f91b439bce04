package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HomeContentSingletonKey is the only value the singleton_key column may hold.
const HomeContentSingletonKey = "home"

// ProductRef is the persisted shape of one curated list entry.
type ProductRef struct {
	ProductID  *uuid.UUID `json:"productId,omitempty"`
	ExternalID string     `json:"product_id,omitempty"`
}

// HomeContent holds the three curated storefront lists. At most one row exists.
type HomeContent struct {
	ID            uuid.UUID                       `gorm:"column:id;type:uuid;primaryKey"`
	SingletonKey  string                          `gorm:"column:singleton_key;not null;uniqueIndex:home_contents_singleton_key"`
	NewArrival    datatypes.JSONSlice[ProductRef] `gorm:"column:new_arrival;not null"`
	HotItems      datatypes.JSONSlice[ProductRef] `gorm:"column:hot_items;not null"`
	TrandingItems datatypes.JSONSlice[ProductRef] `gorm:"column:tranding_items;not null"`
	CreatedAt     time.Time                       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                       `gorm:"column:updated_at;autoUpdateTime"`
}

func (HomeContent) TableName() string { return "home_contents" }

func (h *HomeContent) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.SingletonKey == "" {
		h.SingletonKey = HomeContentSingletonKey
	}
	if h.NewArrival == nil {
		h.NewArrival = datatypes.JSONSlice[ProductRef]{}
	}
	if h.HotItems == nil {
		h.HotItems = datatypes.JSONSlice[ProductRef]{}
	}
	if h.TrandingItems == nil {
		h.TrandingItems = datatypes.JSONSlice[ProductRef]{}
	}
	return nil
}
