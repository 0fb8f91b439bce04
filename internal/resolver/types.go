package resolver

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/google/uuid"
)

// Ref points at a catalog product by database identity, external id, or both.
type Ref struct {
	ProductID  *uuid.UUID `json:"productId,omitempty"`
	ExternalID string     `json:"product_id,omitempty"`
}

// HasKey reports whether the reference carries at least one usable key.
func (r Ref) HasKey() bool {
	return (r.ProductID != nil && *r.ProductID != uuid.Nil) || strings.TrimSpace(r.ExternalID) != ""
}

// Normalize trims the external id and clears a nil identity.
func (r Ref) Normalize() Ref {
	out := Ref{ExternalID: strings.TrimSpace(r.ExternalID)}
	if r.ProductID != nil && *r.ProductID != uuid.Nil {
		id := *r.ProductID
		out.ProductID = &id
	}
	return out
}

// Entry is a reference paired with the catalog product it resolved to. Product is
// nil and Resolved false when the reference dangles.
type Entry struct {
	ProductID  *uuid.UUID          `json:"productId,omitempty"`
	ExternalID string              `json:"product_id,omitempty"`
	Resolved   bool                `json:"resolved"`
	Product    *catalog.SummaryDTO `json:"product"`
}

// Ref returns the reference the entry was built from.
func (e Entry) Ref() Ref {
	return Ref{ProductID: e.ProductID, ExternalID: e.ExternalID}
}

// OnlyResolved filters out dangling entries, preserving order.
func OnlyResolved(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Resolved {
			out = append(out, e)
		}
	}
	return out
}
