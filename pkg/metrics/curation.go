package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LookupByID         = "id"
	LookupByExternalID = "external_id"

	OutcomeResolved   = "resolved"
	OutcomeUnresolved = "unresolved"
	OutcomeError      = "error"

	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheError  = "error"
	CacheBypass = "bypass"
)

// CurationMetrics records catalog lookups made while resolving curated content.
type CurationMetrics struct {
	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	refs           *prometheus.CounterVec
	cache          *prometheus.CounterVec
}

// NewCurationMetrics registers the curation metrics on the provided registerer.
func NewCurationMetrics(reg prometheus.Registerer) *CurationMetrics {
	if reg == nil {
		return &CurationMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_lookups_total",
		Help: "Batched catalog lookups issued by the product reference resolver.",
	}, []string{"key"})
	lookupDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_lookup_duration_seconds",
		Help:    "Duration of batched catalog lookups in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"key"})
	refs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_refs_resolved_total",
		Help: "Product references processed by the resolver, by outcome.",
	}, []string{"outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "home_content_cache_total",
		Help: "Home content cache lookups, by result.",
	}, []string{"result"})
	reg.MustRegister(lookups, lookupDuration, refs, cache)
	return &CurationMetrics{
		lookups:        lookups,
		lookupDuration: lookupDuration,
		refs:           refs,
		cache:          cache,
	}
}

// ObserveLookup counts one batched catalog lookup and its duration.
func (m *CurationMetrics) ObserveLookup(key string, duration time.Duration) {
	if m == nil || m.lookups == nil {
		return
	}
	key = normalizeLabel(key)
	m.lookups.WithLabelValues(key).Inc()
	m.lookupDuration.WithLabelValues(key).Observe(duration.Seconds())
}

// AddRefs adds n references with the given outcome.
func (m *CurationMetrics) AddRefs(outcome string, n int) {
	if m == nil || m.refs == nil || n <= 0 {
		return
	}
	m.refs.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

// IncCache counts a cache lookup result.
func (m *CurationMetrics) IncCache(result string) {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
