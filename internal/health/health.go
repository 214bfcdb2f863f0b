package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

type HealthCheck interface {
	Name() string
	Check(ctx context.Context) HealthResult
}

type HealthResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// HealthChecker runs every registered check concurrently under one deadline
type HealthChecker struct {
	mu      sync.RWMutex
	checks  []HealthCheck
	timeout time.Duration
	now     func() time.Time
}

const defaultCheckTimeout = 10 * time.Second

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{timeout: defaultCheckTimeout, now: time.Now}
}

func (hc *HealthChecker) Register(check HealthCheck) {
	hc.mu.Lock()
	hc.checks = append(hc.checks, check)
	hc.mu.Unlock()
}

// Check returns one result per registered check, keyed by check name
func (hc *HealthChecker) Check(ctx context.Context) map[string]HealthResult {
	hc.mu.RLock()
	checks := append([]HealthCheck(nil), hc.checks...)
	hc.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	collected := make([]HealthResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			collected[i] = c.Check(ctx)
			collected[i].Name = c.Name()
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]HealthResult, len(collected))
	for _, r := range collected {
		results[r.Name] = r
	}
	return results
}

var severity = map[HealthStatus]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

// OverallStatus is the worst status among results
func (hc *HealthChecker) OverallStatus(results map[string]HealthResult) HealthStatus {
	overall := StatusHealthy
	for _, r := range results {
		if severity[r.Status] > severity[overall] {
			overall = r.Status
		}
	}
	return overall
}

// Report is the /health response body
type Report struct {
	Status    HealthStatus            `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]HealthResult `json:"checks"`
}

// HTTPHandler serves the report; unhealthy maps to 503
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := hc.Check(r.Context())
		report := Report{
			Status:    hc.OverallStatus(checks),
			Timestamp: hc.now().UTC().Truncate(time.Second),
			Checks:    checks,
		}

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
			zap.L().Warn("health check failed", zap.Any("checks", checks))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			zap.L().Warn("failed to encode health report", zap.Error(err))
		}
	}
}

// PingCheck reports a dependency through its Ping function. A failing critical
// dependency is unhealthy; a failing optional one only degrades the service.
type PingCheck struct {
	name     string
	ping     func(ctx context.Context) error
	slow     time.Duration
	critical bool
}

func NewPingCheck(name string, ping func(ctx context.Context) error, slow time.Duration, critical bool) *PingCheck {
	return &PingCheck{name: name, ping: ping, slow: slow, critical: critical}
}

func (p *PingCheck) Name() string { return p.name }

func (p *PingCheck) Check(ctx context.Context) HealthResult {
	start := time.Now()
	err := p.ping(ctx)
	duration := time.Since(start)
	res := HealthResult{Name: p.name, Duration: duration}
	switch {
	case err != nil:
		res.Status = StatusDegraded
		if p.critical {
			res.Status = StatusUnhealthy
		}
		res.Message = p.name + " connection failed"
		res.Error = err.Error()
	case p.slow > 0 && duration > p.slow:
		res.Status = StatusDegraded
		res.Message = p.name + " responding slowly"
	default:
		res.Status = StatusHealthy
		res.Message = p.name + " connection healthy"
	}
	return res
}
