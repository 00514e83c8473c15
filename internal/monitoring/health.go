// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/valpere/PriceScrapexter/internal/browser"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name      string                                      `json:"name"`
	Status    HealthStatus                                `json:"status"`
	Message   string                                      `json:"message,omitempty"`
	Error     string                                      `json:"error,omitempty"`
	LastCheck time.Time                                   `json:"last_check"`
	Duration  time.Duration                               `json:"duration"`
	Metadata  map[string]interface{}                      `json:"metadata,omitempty"`
	Critical  bool                                        `json:"critical"`
	CheckFunc func(ctx context.Context) HealthCheckResult `json:"-"`
	Timeout   time.Duration                               `json:"-"`
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    error                  `json:"-"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HealthSummary counts checks by status
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status     HealthStatus  `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	Version    string        `json:"version,omitempty"`
	Uptime     string        `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	Checks     []HealthCheck `json:"checks"`
	Summary    HealthSummary `json:"summary"`
}

// HealthManager runs registered checks on demand. Checks are cheap, so every
// request evaluates them afresh.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]*HealthCheck
	version string
	started time.Time
}

// NewHealthManager creates an empty health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]*HealthCheck),
		version: version,
		started: time.Now(),
	}
}

// RegisterCheck adds or replaces a check
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = 5 * time.Second
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[check.Name] = check
}

// GetHealth runs every check and derives the overall status. An unhealthy
// critical check makes the system unhealthy; anything else short of healthy
// degrades it.
func (hm *HealthManager) GetHealth(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		checks = append(checks, check)
	}
	hm.mu.RUnlock()

	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	health := SystemHealth{
		Timestamp:  time.Now(),
		Version:    hm.version,
		Uptime:     time.Since(hm.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks:     make([]HealthCheck, 0, len(checks)),
	}

	overall := HealthStatusHealthy
	for _, check := range checks {
		snapshot := runCheck(ctx, check)
		health.Checks = append(health.Checks, snapshot)
		health.Summary.Total++

		switch snapshot.Status {
		case HealthStatusHealthy:
			health.Summary.Healthy++
		case HealthStatusUnhealthy:
			health.Summary.Unhealthy++
			if snapshot.Critical {
				overall = HealthStatusUnhealthy
			} else if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		case HealthStatusDegraded:
			health.Summary.Degraded++
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		default:
			health.Summary.Unknown++
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	health.Status = overall
	return health
}

func runCheck(ctx context.Context, check *HealthCheck) HealthCheck {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	var result HealthCheckResult
	if check.CheckFunc != nil {
		result = check.CheckFunc(checkCtx)
	} else {
		result = HealthCheckResult{
			Status:  HealthStatusUnknown,
			Message: "No check function defined",
		}
	}

	snapshot := HealthCheck{
		Name:      check.Name,
		Status:    result.Status,
		Message:   result.Message,
		LastCheck: start,
		Duration:  time.Since(start),
		Metadata:  result.Metadata,
		Critical:  check.Critical,
	}
	if result.Error != nil {
		snapshot.Error = result.Error.Error()
	}
	return snapshot
}

// HealthHandler serves GetHealth as JSON; unhealthy answers 503
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

// BrowserHealthCheck reports the browser session state. A session that was
// never started or has been stopped cannot serve batches.
func BrowserHealthCheck(stats func() browser.Stats) *HealthCheck {
	return &HealthCheck{
		Name:     "browser",
		Critical: true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			s := stats()
			metadata := map[string]interface{}{
				"driver":            s.Driver,
				"pages_loaded":      s.PagesLoaded,
				"errors":            s.Errors,
				"timeouts":          s.Timeouts,
				"average_load_time": s.AverageLoadTime.String(),
			}

			switch {
			case s.Stopped:
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "browser session stopped", Metadata: metadata}
			case !s.Started:
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "browser session not started", Metadata: metadata}
			}

			attempts := s.PagesLoaded + s.Errors
			if attempts >= 10 && s.Errors*2 > attempts {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("%d of %d page loads failed", s.Errors, attempts),
					Metadata: metadata,
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Message: "browser session ready", Metadata: metadata}
		},
	}
}

// GoroutineHealthCheck degrades when the goroutine count exceeds max
func GoroutineHealthCheck(max int) *HealthCheck {
	return &HealthCheck{
		Name: "goroutines",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			count := runtime.NumGoroutine()
			metadata := map[string]interface{}{"count": count, "max": max}
			if count > max {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("goroutine count %d exceeds %d", count, max),
					Metadata: metadata,
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Metadata: metadata}
		},
	}
}

// PingHealthCheck wraps a connectivity check such as a database ping
func PingHealthCheck(name string, critical bool, ping func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: critical,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if err := ping(ctx); err != nil {
				return HealthCheckResult{Status: HealthStatusUnhealthy, Message: "ping failed", Error: err}
			}
			return HealthCheckResult{Status: HealthStatusHealthy}
		},
	}
}
