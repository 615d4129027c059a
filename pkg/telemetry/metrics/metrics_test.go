package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tabula-hq/formula/pkg/cache"
	"tabula-hq/formula/pkg/config"
	"tabula-hq/formula/pkg/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "metrics",
		DurationBuckets: []float64{0.001, 0.01, 0.1, 1},
	}
}

var (
	_ cache.Metrics  = (*CacheRecorder)(nil)
	_ engine.Metrics = (*Collector)(nil)
)

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_NewCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if collector.Registry() == nil {
		t.Fatal("expected a registry to be created")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace || cfg.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("namespace/subsystem = %q/%q", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.DurationBuckets) != len(config.DefaultDurationBuckets) {
		t.Errorf("DurationBuckets = %v", cfg.DurationBuckets)
	}
}

func TestCollector_RecordCalculation(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		name       string
		success    bool
		cacheHit   bool
		wantStatus string
	}{
		{name: "success", success: true, wantStatus: "success"},
		{name: "error", success: false, wantStatus: "error"},
		{name: "cache hit", success: true, cacheHit: true, wantStatus: "cache_hit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordCalculation("col_score", tt.success, tt.cacheHit, 2*time.Millisecond)

			counter := collector.calculationMetrics.calculationsTotal.WithLabelValues("col_score", tt.wantStatus)
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Errorf("calculations_total{status=%q} = %v, want 1", tt.wantStatus, got)
			}
		})
	}

	// Cache hits are not observed in the duration histogram.
	if got := testutil.CollectAndCount(collector.calculationMetrics.calculationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordCalculation("col_a", true, false, time.Millisecond)
	collector.RecordBatch("completed", 10, time.Second)
	collector.SetBatchProgress(50)
	collector.SetWorkers(4)
	collector.Cache("calculation").RecordHit()

	if got := testutil.CollectAndCount(collector.calculationMetrics.calculationsTotal); got != 0 {
		t.Errorf("disabled collector recorded %d calculation series", got)
	}
	if got := testutil.ToFloat64(collector.workers); got != 0 {
		t.Errorf("workers = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(collector.cacheMetrics.hitsTotal); got != 0 {
		t.Errorf("disabled collector recorded %d cache series", got)
	}
}

func TestCollector_CardinalityLimit(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	collector.RecordCalculation("a", true, false, 0)
	collector.RecordCalculation("b", true, false, 0)
	collector.RecordCalculation("c", true, false, 0)
	collector.RecordCalculation("a", true, false, 0)

	total := collector.calculationMetrics.calculationsTotal
	if got := testutil.ToFloat64(total.WithLabelValues("a", "success")); got != 2 {
		t.Errorf("column a = %v, want 2", got)
	}
	if got := testutil.ToFloat64(total.WithLabelValues(OtherColumn, "success")); got != 1 {
		t.Errorf("column other = %v, want 1", got)
	}
}

func TestCollector_Batch(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.SetBatchProgress(40)
	collector.SetBatchProgress(100)
	collector.RecordBatch("completed", 250, 120*time.Millisecond)
	collector.RecordBatch("failed", 10, time.Millisecond)

	bm := collector.batchMetrics
	if got := testutil.ToFloat64(bm.progress); got != 100 {
		t.Errorf("progress = %v, want 100", got)
	}
	if got := testutil.ToFloat64(bm.batchesTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed batches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(bm.batchesTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed batches = %v, want 1", got)
	}
}

func TestCollector_SetWorkers(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.SetWorkers(4)
	if got := testutil.ToFloat64(collector.workers); got != 4 {
		t.Errorf("workers = %v, want 4", got)
	}
}

func TestCacheRecorder_WithCache(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	c := cache.New(cache.Config{TTL: time.Minute, MaxSize: 10}).WithMetrics(collector.Cache("calculation"))

	key := cache.Key{RecordID: "r1", ColumnID: "c1", Expression: "a+b"}
	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set(key, 3.0)
	if _, ok := c.Get(key); !ok {
		t.Fatal("cached value missing")
	}

	cm := collector.cacheMetrics
	if got := testutil.ToFloat64(cm.hitsTotal.WithLabelValues("calculation")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.missesTotal.WithLabelValues("calculation")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.entries.WithLabelValues("calculation")); got != 1 {
		t.Errorf("entries = %v, want 1", got)
	}
}

func TestCacheMetrics_RecordEvictions(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	recorder := collector.Cache("calculation")

	recorder.RecordEviction(3)
	recorder.RecordEviction(0)

	if got := testutil.ToFloat64(collector.cacheMetrics.evictionsTotal.WithLabelValues("calculation")); got != 3 {
		t.Errorf("evictions = %v, want 3", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two label sets should be allowed")
	}
	if cl.Allow("c") {
		t.Error("third label set should be rejected")
	}
	if !cl.Allow("a") {
		t.Error("existing label set should stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordCalculation("col_total", true, false, time.Millisecond)

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `test_metrics_calculations_total{column="col_total",status="success"} 1`) {
		t.Errorf("metrics output missing calculation counter:\n%s", body)
	}
}

func BenchmarkCollector_RecordCalculation(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordCalculation("col_score", true, false, time.Millisecond)
		}
	})
}
