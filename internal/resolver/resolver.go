package resolver

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Lookup is the batched catalog read surface. Each call must be a single query.
type Lookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindByExternalIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

// Resolver turns product references into catalog summaries with at most two
// lookups per call, however many references are passed.
type Resolver struct {
	lookup  Lookup
	metrics *metrics.CurationMetrics
	logg    *logger.Logger
}

func New(lookup Lookup, m *metrics.CurationMetrics, logg *logger.Logger) *Resolver {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{lookup: lookup, metrics: m, logg: logg}
}

// Stats counts how a resolution pass went. Failed entries are unresolved because a
// catalog lookup errored, not because the product is gone.
type Stats struct {
	Resolved   int
	Unresolved int
	Failed     int
}

// Degraded reports whether any entry was left unresolved by a lookup failure.
func (s Stats) Degraded() bool {
	return s.Failed > 0
}

// Resolve resolves one ordered list.
func (r *Resolver) Resolve(ctx context.Context, refs []Ref) []Entry {
	groups, _ := r.ResolveGroups(ctx, [][]Ref{refs})
	return groups[0]
}

// ResolveGroups resolves several ordered lists sharing the same two lookups. The
// output mirrors the input shape and order exactly.
func (r *Resolver) ResolveGroups(ctx context.Context, groups [][]Ref) ([][]Entry, Stats) {
	out := make([][]Entry, len(groups))
	for i, refs := range groups {
		out[i] = make([]Entry, len(refs))
		for j, ref := range refs {
			ref = ref.Normalize()
			out[i][j] = Entry{ProductID: ref.ProductID, ExternalID: ref.ExternalID}
		}
	}

	byID, idErr := r.lookupByID(ctx, out)

	// Second pass covers anything the identity lookup left unresolved.
	pendingExternal := map[string]struct{}{}
	var external []string
	for _, entries := range out {
		for _, e := range entries {
			if e.ProductID != nil {
				if _, ok := byID[*e.ProductID]; ok {
					continue
				}
			}
			if e.ExternalID == "" {
				continue
			}
			if _, ok := pendingExternal[e.ExternalID]; ok {
				continue
			}
			pendingExternal[e.ExternalID] = struct{}{}
			external = append(external, e.ExternalID)
		}
	}
	byExternal, extErr := r.lookupByExternalID(ctx, external)

	resolved, unresolved, failed := 0, 0, 0
	for _, entries := range out {
		for i := range entries {
			e := &entries[i]
			if e.ProductID != nil {
				if p, ok := byID[*e.ProductID]; ok {
					e.Product, e.Resolved = p, true
					resolved++
					continue
				}
			}
			if e.ExternalID != "" {
				if p, ok := byExternal[e.ExternalID]; ok {
					e.Product, e.Resolved = p, true
					resolved++
					continue
				}
			}
			if (e.ProductID != nil && idErr != nil) || (e.ExternalID != "" && extErr != nil) {
				failed++
				continue
			}
			unresolved++
		}
	}

	r.metrics.AddRefs(metrics.OutcomeResolved, resolved)
	r.metrics.AddRefs(metrics.OutcomeUnresolved, unresolved)
	r.metrics.AddRefs(metrics.OutcomeError, failed)
	if unresolved > 0 {
		r.logg.Debug(r.logg.WithField(ctx, "unresolved", unresolved), "product references left unresolved")
	}
	return out, Stats{Resolved: resolved, Unresolved: unresolved, Failed: failed}
}

func (r *Resolver) lookupByID(ctx context.Context, groups [][]Entry) (map[uuid.UUID]*catalog.SummaryDTO, error) {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for _, entries := range groups {
		for _, e := range entries {
			if e.ProductID == nil {
				continue
			}
			if _, ok := seen[*e.ProductID]; ok {
				continue
			}
			seen[*e.ProductID] = struct{}{}
			ids = append(ids, *e.ProductID)
		}
	}
	found := map[uuid.UUID]*catalog.SummaryDTO{}
	if len(ids) == 0 || r.lookup == nil {
		return found, nil
	}

	start := time.Now()
	products, err := r.lookup.FindByIDs(ctx, ids)
	r.metrics.ObserveLookup(metrics.LookupByID, time.Since(start))
	if err != nil {
		r.logg.Error(r.logg.WithField(ctx, "ids", len(ids)), "catalog lookup by id failed", err)
		return found, err
	}
	for i := range products {
		summary := catalog.NewSummaryDTO(&products[i])
		found[products[i].ID] = &summary
	}
	return found, nil
}

func (r *Resolver) lookupByExternalID(ctx context.Context, ids []string) (map[string]*catalog.SummaryDTO, error) {
	found := map[string]*catalog.SummaryDTO{}
	if len(ids) == 0 || r.lookup == nil {
		return found, nil
	}

	start := time.Now()
	products, err := r.lookup.FindByExternalIDs(ctx, ids)
	r.metrics.ObserveLookup(metrics.LookupByExternalID, time.Since(start))
	if err != nil {
		r.logg.Error(r.logg.WithField(ctx, "product_ids", len(ids)), "catalog lookup by product_id failed", err)
		return found, err
	}
	for i := range products {
		summary := catalog.NewSummaryDTO(&products[i])
		found[products[i].ExternalID] = &summary
	}
	return found, nil
}
