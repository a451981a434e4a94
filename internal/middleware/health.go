package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"
)

const (
	statusUp   = "up"
	statusDown = "down"
)

// HealthChecker is implemented by every dependency that /health probes
type HealthChecker interface {
	Check(ctx context.Context) error
}

type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

type DependencyReport struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthReport struct {
	Status       string                      `json:"status"`
	CheckedAt    time.Time                   `json:"checked_at"`
	Dependencies map[string]DependencyReport `json:"dependencies"`
}

// probe runs all checkers in parallel under one deadline
func probe(ctx context.Context, checkers map[string]HealthChecker) HealthReport {
	report := HealthReport{
		Status:       statusUp,
		CheckedAt:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyReport, len(checkers)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)

			dep := DependencyReport{Status: statusUp, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				dep.Status = statusDown
				dep.Error = err.Error()
			}

			mu.Lock()
			report.Dependencies[name] = dep
			if err != nil {
				report.Status = statusDown
			}
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()
	return report
}

// HealthHandler answers 503 as soon as one dependency is down
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := probe(ctx, checkers)
		code := http.StatusOK
		if report.Status != statusUp {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, report)
	}
}

func ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
