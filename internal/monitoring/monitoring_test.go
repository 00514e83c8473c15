// internal/monitoring/monitoring_test.go
package monitoring

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/valpere/PriceScrapexter/internal/browser"
	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

func ptr(f float64) *float64 { return &f }

func TestMetricsManager_RecordOutcome(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Namespace: "test"})

	mm.RecordOutcome(pipeline.Outcome{Domain: "a.example", Price: ptr(10), Duration: 200 * time.Millisecond})
	mm.RecordOutcome(pipeline.Outcome{Domain: "a.example", Price: ptr(20), SinkErr: "disk full"})
	mm.RecordOutcome(pipeline.Outcome{
		Domain:  "b.example",
		Failure: &pipeline.Failure{Kind: errors.KindFetch, Reason: errors.ReasonTimeout},
	})
	mm.RecordOutcome(pipeline.Outcome{
		Failure: &pipeline.Failure{Kind: errors.KindDomainExtraction},
	})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ok rows", testutil.ToFloat64(mm.rowsTotal.WithLabelValues(StatusOK)), 2},
		{"failed rows", testutil.ToFloat64(mm.rowsTotal.WithLabelValues(StatusFailed)), 2},
		{"fetch timeout", testutil.ToFloat64(mm.extractionFailures.WithLabelValues("fetch", "timeout")), 1},
		{"domain", testutil.ToFloat64(mm.extractionFailures.WithLabelValues("domain", "")), 1},
		{"sink errors", testutil.ToFloat64(mm.sinkErrors), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(mm.fetchDuration); n != 1 {
		t.Errorf("expected one histogram series, got %d", n)
	}
}

func TestMetricsManager_RecordSummary(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.RecordSummary(pipeline.Summary{
		TotalRows: 4,
		Domains: []pipeline.DomainSummary{
			{Domain: "a.example", Attempts: 3, Count: 2, Average: ptr(15)},
			{Domain: "b.example", Attempts: 1, Count: 0},
		},
	})

	if got := testutil.ToFloat64(mm.domainAverage.WithLabelValues("a.example")); got != 15 {
		t.Errorf("expected average 15, got %v", got)
	}
	// a domain without prices has no average series
	if n := testutil.CollectAndCount(mm.domainAverage); n != 1 {
		t.Errorf("expected 1 average series, got %d", n)
	}
	if got := testutil.ToFloat64(mm.batchRows); got != 4 {
		t.Errorf("expected 4 rows, got %v", got)
	}

	mm.RecordSummary(pipeline.Summary{
		TotalRows: 1,
		Domains:   []pipeline.DomainSummary{{Domain: "c.example", Attempts: 1, Count: 1, Average: ptr(3)}},
	})
	if n := testutil.CollectAndCount(mm.domainAverage); n != 1 {
		t.Errorf("expected previous batch domains to be dropped, got %d series", n)
	}
	if got := testutil.ToFloat64(mm.batchesTotal); got != 2 {
		t.Errorf("expected 2 batches, got %v", got)
	}
}

func TestMetricsManager_Handler(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Namespace: "pricescrapexter", EnableGoMetrics: true})
	mm.RecordRateLimitHit()
	mm.RecordUploadRejected("unsupported_format")

	srv := httptest.NewServer(mm.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		"pricescrapexter_rate_limit_hits_total 1",
		`pricescrapexter_uploads_rejected_total{reason="unsupported_format"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestMetricsManager_Independent(t *testing.T) {
	// separate registries must not collide on registration
	a := NewMetricsManager(MetricsConfig{})
	b := NewMetricsManager(MetricsConfig{})
	a.RecordRateLimitHit()

	if got := testutil.ToFloat64(b.rateLimitHits); got != 0 {
		t.Errorf("expected independent counters, got %v", got)
	}
}

func TestBrowserHealthCheck(t *testing.T) {
	tests := []struct {
		name  string
		stats browser.Stats
		want  HealthStatus
	}{
		{"not started", browser.Stats{Driver: "chromedp"}, HealthStatusUnhealthy},
		{"stopped", browser.Stats{Started: true, Stopped: true}, HealthStatusUnhealthy},
		{"ready", browser.Stats{Started: true, PagesLoaded: 3}, HealthStatusHealthy},
		{"few errors", browser.Stats{Started: true, PagesLoaded: 2, Errors: 3}, HealthStatusHealthy},
		{"mostly failing", browser.Stats{Started: true, PagesLoaded: 2, Errors: 10}, HealthStatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := BrowserHealthCheck(func() browser.Stats { return tt.stats })
			result := check.CheckFunc(context.Background())
			if result.Status != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, result.Status, result.Message)
			}
		})
	}
}

func TestHealthManager_Status(t *testing.T) {
	healthy := func(ctx context.Context) error { return nil }
	failing := func(ctx context.Context) error { return stderrors.New("connection refused") }

	tests := []struct {
		name   string
		checks []*HealthCheck
		want   HealthStatus
		code   int
	}{
		{"no checks", nil, HealthStatusHealthy, http.StatusOK},
		{"all healthy", []*HealthCheck{PingHealthCheck("sink", true, healthy)}, HealthStatusHealthy, http.StatusOK},
		{"non-critical failure", []*HealthCheck{PingHealthCheck("sink", false, failing)}, HealthStatusDegraded, http.StatusOK},
		{"critical failure", []*HealthCheck{
			PingHealthCheck("sink", true, failing),
			GoroutineHealthCheck(1 << 20),
		}, HealthStatusUnhealthy, http.StatusServiceUnavailable},
		{"missing func", []*HealthCheck{{Name: "empty"}}, HealthStatusDegraded, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthManager("test")
			for _, c := range tt.checks {
				hm.RegisterCheck(c)
			}

			rec := httptest.NewRecorder()
			hm.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("expected status code %d, got %d", tt.code, rec.Code)
			}

			var health SystemHealth
			if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if health.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, health.Status)
			}
			if health.Summary.Total != len(tt.checks) {
				t.Errorf("expected %d checks, got %d", len(tt.checks), health.Summary.Total)
			}
		})
	}
}

func TestHealthManager_ReportsError(t *testing.T) {
	hm := NewHealthManager("test")
	hm.RegisterCheck(PingHealthCheck("sink", true, func(ctx context.Context) error {
		return stderrors.New("connection refused")
	}))

	health := hm.GetHealth(context.Background())
	if len(health.Checks) != 1 || health.Checks[0].Error != "connection refused" {
		t.Errorf("expected ping error in check, got %+v", health.Checks)
	}
}
