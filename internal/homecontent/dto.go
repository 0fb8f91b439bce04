package homecontent

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/resolver"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// HomeContentDTO is the resolved aggregate. Entries keep list order.
type HomeContentDTO struct {
	NewArrival    []resolver.Entry `json:"newArrival"`
	HotItems      []resolver.Entry `json:"hotItems"`
	TrandingItems []resolver.Entry `json:"trandingItems"`
	UpdatedAt     *time.Time       `json:"updatedAt,omitempty"`
}

// RawHomeContentDTO is the stored aggregate without catalog data.
type RawHomeContentDTO struct {
	NewArrival    []resolver.Ref `json:"newArrival"`
	HotItems      []resolver.Ref `json:"hotItems"`
	TrandingItems []resolver.Ref `json:"trandingItems"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
}

// SetListInput is the admin payload replacing one curated list.
type SetListInput struct {
	Items []resolver.Ref `json:"items" validate:"max=500"`
}

// PublicView drops unresolved entries from every list.
func (h HomeContentDTO) PublicView() HomeContentDTO {
	return HomeContentDTO{
		NewArrival:    resolver.OnlyResolved(h.NewArrival),
		HotItems:      resolver.OnlyResolved(h.HotItems),
		TrandingItems: resolver.OnlyResolved(h.TrandingItems),
		UpdatedAt:     h.UpdatedAt,
	}
}

func emptyRaw() RawHomeContentDTO {
	return RawHomeContentDTO{
		NewArrival:    []resolver.Ref{},
		HotItems:      []resolver.Ref{},
		TrandingItems: []resolver.Ref{},
	}
}

func newRawDTO(row *models.HomeContent) RawHomeContentDTO {
	if row == nil {
		return emptyRaw()
	}
	updated := row.UpdatedAt
	return RawHomeContentDTO{
		NewArrival:    toRefs(row.NewArrival),
		HotItems:      toRefs(row.HotItems),
		TrandingItems: toRefs(row.TrandingItems),
		UpdatedAt:     &updated,
	}
}

// List returns the references stored under list.
func (r RawHomeContentDTO) List(list enums.CuratedList) []resolver.Ref {
	switch list {
	case enums.CuratedListNewArrival:
		return r.NewArrival
	case enums.CuratedListHotItems:
		return r.HotItems
	case enums.CuratedListTrandingItems:
		return r.TrandingItems
	}
	return nil
}

func toRefs(stored []models.ProductRef) []resolver.Ref {
	out := make([]resolver.Ref, 0, len(stored))
	for _, ref := range stored {
		out = append(out, resolver.Ref{ProductID: ref.ProductID, ExternalID: ref.ExternalID})
	}
	return out
}

func fromRefs(refs []resolver.Ref) []models.ProductRef {
	out := make([]models.ProductRef, 0, len(refs))
	for _, ref := range refs {
		ref = ref.Normalize()
		out = append(out, models.ProductRef{ProductID: ref.ProductID, ExternalID: ref.ExternalID})
	}
	return out
}
