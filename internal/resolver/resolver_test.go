package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	products   []models.Product
	idCalls    int
	extCalls   int
	idErr      error
	extErr     error
	lastIDs    []uuid.UUID
	lastExtIDs []string
}

func (f *fakeLookup) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	f.idCalls++
	f.lastIDs = ids
	if f.idErr != nil {
		return nil, f.idErr
	}
	var out []models.Product
	for _, p := range f.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeLookup) FindByExternalIDs(_ context.Context, ids []string) ([]models.Product, error) {
	f.extCalls++
	f.lastExtIDs = ids
	if f.extErr != nil {
		return nil, f.extErr
	}
	var out []models.Product
	for _, p := range f.products {
		for _, id := range ids {
			if p.ExternalID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func product(externalID string) models.Product {
	return models.Product{
		ID:         uuid.New(),
		ExternalID: externalID,
		Name:       "Product " + externalID,
		Price:      decimal.NewFromInt(10),
	}
}

func idRef(id uuid.UUID) Ref { return Ref{ProductID: &id} }

func TestResolvePreservesOrderAndPrefersIdentity(t *testing.T) {
	p1, p2, p3 := product("ext-1"), product("ext-2"), product("ext-3")
	lookup := &fakeLookup{products: []models.Product{p1, p2, p3}}
	r := New(lookup, nil, nil)

	// identity wins over a conflicting external id
	conflicting := Ref{ProductID: &p2.ID, ExternalID: "ext-3"}
	entries := r.Resolve(context.Background(), []Ref{idRef(p3.ID), {ExternalID: "ext-1"}, conflicting})

	require.Len(t, entries, 3)
	assert.Equal(t, p3.ID, entries[0].Product.ID)
	assert.Equal(t, p1.ID, entries[1].Product.ID)
	assert.Equal(t, p2.ID, entries[2].Product.ID)
	for _, e := range entries {
		assert.True(t, e.Resolved)
	}
}

func TestResolveFallsBackToExternalID(t *testing.T) {
	p := product("ext-fallback")
	lookup := &fakeLookup{products: []models.Product{p}}
	r := New(lookup, nil, nil)

	stale := uuid.New()
	entries := r.Resolve(context.Background(), []Ref{{ProductID: &stale, ExternalID: "ext-fallback"}})

	require.Len(t, entries, 1)
	assert.True(t, entries[0].Resolved)
	assert.Equal(t, p.ID, entries[0].Product.ID)
	assert.Equal(t, stale, *entries[0].ProductID, "the stored reference is reported unchanged")
}

func TestResolveDanglingReferenceIsUnresolved(t *testing.T) {
	lookup := &fakeLookup{}
	r := New(lookup, nil, nil)

	missing := uuid.New()
	entries := r.Resolve(context.Background(), []Ref{idRef(missing), {ExternalID: "gone"}})

	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.Resolved)
		assert.Nil(t, e.Product)
	}
	assert.Equal(t, missing, *entries[0].ProductID)
	assert.Equal(t, "gone", entries[1].ExternalID)
}

func TestResolveGroupsUsesAtMostTwoLookups(t *testing.T) {
	var products []models.Product
	var byID, byExt []Ref
	for i := 0; i < 50; i++ {
		p := product(uuid.NewString())
		products = append(products, p)
		byID = append(byID, idRef(p.ID))
		byExt = append(byExt, Ref{ExternalID: p.ExternalID})
	}
	lookup := &fakeLookup{products: products}
	r := New(lookup, nil, nil)

	groups, stats := r.ResolveGroups(context.Background(), [][]Ref{byID, byExt, append(byID[:10:10], byExt[:10]...)})

	assert.Equal(t, 1, lookup.idCalls)
	assert.Equal(t, 1, lookup.extCalls)
	assert.Len(t, lookup.lastIDs, 50, "identities are deduplicated")
	assert.Len(t, lookup.lastExtIDs, 50, "external ids are deduplicated")
	require.Len(t, groups, 3)
	assert.Len(t, groups[2], 20)
	assert.Equal(t, Stats{Resolved: 120}, stats)
	assert.False(t, stats.Degraded())
	for _, entries := range groups {
		for _, e := range entries {
			assert.True(t, e.Resolved)
		}
	}
}

func TestResolveSkipsLookupsWhenNotNeeded(t *testing.T) {
	p := product("ext")
	lookup := &fakeLookup{products: []models.Product{p}}
	r := New(lookup, nil, nil)

	entries := r.Resolve(context.Background(), []Ref{idRef(p.ID)})
	assert.True(t, entries[0].Resolved)
	assert.Equal(t, 1, lookup.idCalls)
	assert.Zero(t, lookup.extCalls, "every reference resolved by identity")

	assert.Empty(t, r.Resolve(context.Background(), nil))
	assert.Equal(t, 1, lookup.idCalls)
}

func TestResolveLookupFailureDoesNotFailRead(t *testing.T) {
	p := product("ext-ok")
	lookup := &fakeLookup{products: []models.Product{p}, idErr: errors.New("db down")}
	reg := prometheus.NewRegistry()
	r := New(lookup, metrics.NewCurationMetrics(reg), nil)

	broken := uuid.New()
	entries := r.Resolve(context.Background(), []Ref{idRef(broken), {ProductID: &broken, ExternalID: "ext-ok"}})

	require.Len(t, entries, 2)
	assert.False(t, entries[0].Resolved)
	assert.True(t, entries[1].Resolved, "external id fallback still runs after an identity lookup failure")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var errorCount float64
	for _, mf := range mfs {
		if mf.GetName() != "product_refs_resolved_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == metrics.OutcomeError {
					errorCount = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(1), errorCount)
}

func TestResolveGroupsReportsFailedLookups(t *testing.T) {
	p := product("ext-ok")
	lookup := &fakeLookup{products: []models.Product{p}, extErr: errors.New("db down")}
	r := New(lookup, nil, nil)

	missing := uuid.New()
	_, stats := r.ResolveGroups(context.Background(), [][]Ref{{idRef(p.ID)}, {idRef(missing)}, {{ExternalID: "ext-other"}}})
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.Unresolved, "a dangling id without an external id is not a failure")
	assert.Equal(t, 1, stats.Failed)
	assert.True(t, stats.Degraded())
}

func TestRefHelpers(t *testing.T) {
	nilID := uuid.Nil
	assert.False(t, Ref{}.HasKey())
	assert.False(t, Ref{ProductID: &nilID, ExternalID: "  "}.HasKey())
	assert.True(t, Ref{ExternalID: "x"}.HasKey())

	normalized := Ref{ProductID: &nilID, ExternalID: " x "}.Normalize()
	assert.Nil(t, normalized.ProductID)
	assert.Equal(t, "x", normalized.ExternalID)

	entries := []Entry{{ExternalID: "a", Resolved: true}, {ExternalID: "b"}, {ExternalID: "c", Resolved: true}}
	filtered := OnlyResolved(entries)
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ExternalID)
	assert.Equal(t, "c", filtered[1].ExternalID)
}
