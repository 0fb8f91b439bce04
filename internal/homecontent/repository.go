package homecontent

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var listColumns = map[enums.CuratedList]string{
	enums.CuratedListNewArrival:    "new_arrival",
	enums.CuratedListHotItems:      "hot_items",
	enums.CuratedListTrandingItems: "tranding_items",
}

// Repository persists the singleton home content row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Get loads the singleton row. It returns gorm.ErrRecordNotFound before the first write.
func (r *Repository) Get(ctx context.Context) (*models.HomeContent, error) {
	var row models.HomeContent
	err := r.db.WithContext(ctx).
		Where("singleton_key = ?", models.HomeContentSingletonKey).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ReplaceList overwrites one list column, creating the row on first write. Other
// lists are left untouched.
func (r *Repository) ReplaceList(ctx context.Context, list enums.CuratedList, refs []models.ProductRef) error {
	column, ok := listColumns[list]
	if !ok {
		return fmt.Errorf("unknown curated list %q", list)
	}
	if refs == nil {
		refs = []models.ProductRef{}
	}

	row := &models.HomeContent{SingletonKey: models.HomeContentSingletonKey}
	switch list {
	case enums.CuratedListNewArrival:
		row.NewArrival = datatypes.JSONSlice[models.ProductRef](refs)
	case enums.CuratedListHotItems:
		row.HotItems = datatypes.JSONSlice[models.ProductRef](refs)
	case enums.CuratedListTrandingItems:
		row.TrandingItems = datatypes.JSONSlice[models.ProductRef](refs)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "singleton_key"}},
			DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
		}).
		Create(row).Error
}
