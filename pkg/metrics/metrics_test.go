package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCurationMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCurationMetrics(reg)

	m.ObserveLookup(LookupByID, 5*time.Millisecond)
	m.ObserveLookup(LookupByID, 5*time.Millisecond)
	m.ObserveLookup(LookupByExternalID, time.Millisecond)
	m.AddRefs(OutcomeResolved, 3)
	m.AddRefs(OutcomeUnresolved, 1)
	m.AddRefs(OutcomeError, 0)
	m.IncCache(CacheHit)
	m.IncCache("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	expectCounter(t, mfs, "catalog_lookups_total", "key", LookupByID, 2)
	expectCounter(t, mfs, "catalog_lookups_total", "key", LookupByExternalID, 1)
	expectCounter(t, mfs, "product_refs_resolved_total", "outcome", OutcomeResolved, 3)
	expectCounter(t, mfs, "product_refs_resolved_total", "outcome", OutcomeUnresolved, 1)
	expectCounter(t, mfs, "home_content_cache_total", "result", CacheHit, 1)
	expectCounter(t, mfs, "home_content_cache_total", "result", "unknown", 1)

	if _, err := fetchCounterValue(mfs, "product_refs_resolved_total", "outcome", OutcomeError); err == nil {
		t.Fatal("zero additions should not create a series")
	}

	if got, err := fetchHistogramSum(mfs, "catalog_lookup_duration_seconds", "key", LookupByID); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/public/home-content", 200, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	expectCounter(t, mfs, "http_requests_total", "status", "200", 1)
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/public/home-content"); err != nil || got <= 0 {
		t.Fatalf("unexpected duration sum %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var curation *CurationMetrics
	curation.ObserveLookup(LookupByID, time.Second)
	curation.AddRefs(OutcomeResolved, 1)
	curation.IncCache(CacheMiss)

	NewCurationMetrics(nil).IncCache(CacheHit)

	var httpMetrics *HTTPMetrics
	httpMetrics.Observe("GET", "/", 200, time.Second)
}

func expectCounter(t *testing.T, mfs []*dto.MetricFamily, name, label, value string, want float64) {
	t.Helper()
	got, err := fetchCounterValue(mfs, name, label, value)
	if err != nil {
		t.Fatalf("fetch %s: %v", name, err)
	}
	if got != want {
		t.Fatalf("expected %s{%s=%q}=%v, got %v", name, label, value, want, got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
