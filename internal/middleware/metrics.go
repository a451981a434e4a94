package middleware

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Counters holds the process counters served at /metrics.
// Zero value is not usable, create with NewCounters.
type Counters struct {
	started time.Time

	requests  atomic.Uint64
	inFlight  atomic.Int64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	uploads   atomic.Uint64
	analyses  atomic.Uint64
	degraded  atomic.Uint64
	questions atomic.Uint64
	templated atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{started: time.Now()}
}

type MemorySnapshot struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
}

// Snapshot is a point-in-time copy of Counters
type Snapshot struct {
	RequestsTotal      uint64         `json:"requests_total"`
	RequestsInProgress int64          `json:"requests_in_progress"`
	RequestsSuccess    uint64         `json:"requests_success"`
	RequestsFailed     uint64         `json:"requests_failed"`
	UploadsTotal       uint64         `json:"uploads_total"`
	AnalysesTotal      uint64         `json:"analyses_total"`
	AnalysesDegraded   uint64         `json:"analyses_degraded"`
	QuestionsTotal     uint64         `json:"questions_total"`
	QuestionsFallback  uint64         `json:"questions_fallback"`
	UptimeSeconds      float64        `json:"uptime_seconds"`
	Goroutines         int            `json:"goroutines"`
	Memory             MemorySnapshot `json:"memory"`
}

func (c *Counters) RecordUpload() { c.uploads.Add(1) }

// RecordAnalysis counts a stored analysis. degraded = the model call fell back.
func (c *Counters) RecordAnalysis(degraded bool) {
	c.analyses.Add(1)
	if degraded {
		c.degraded.Add(1)
	}
}

// RecordQuestion counts an answered question. fallback = template answer was used.
func (c *Counters) RecordQuestion(fallback bool) {
	c.questions.Add(1)
	if fallback {
		c.templated.Add(1)
	}
}

func (c *Counters) Snapshot() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Snapshot{
		RequestsTotal:      c.requests.Load(),
		RequestsInProgress: c.inFlight.Load(),
		RequestsSuccess:    c.succeeded.Load(),
		RequestsFailed:     c.failed.Load(),
		UploadsTotal:       c.uploads.Load(),
		AnalysesTotal:      c.analyses.Load(),
		AnalysesDegraded:   c.degraded.Load(),
		QuestionsTotal:     c.questions.Load(),
		QuestionsFallback:  c.templated.Load(),
		UptimeSeconds:      time.Since(c.started).Seconds(),
		Goroutines:         runtime.NumGoroutine(),
		Memory: MemorySnapshot{
			AllocBytes:      m.Alloc,
			TotalAllocBytes: m.TotalAlloc,
			SysBytes:        m.Sys,
			NumGC:           m.NumGC,
		},
	}
}

// Track counts every request passing through; 4xx and 5xx are failures
func (c *Counters) Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.requests.Add(1)
		c.inFlight.Add(1)
		defer c.inFlight.Add(-1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 400 {
			c.succeeded.Add(1)
		} else {
			c.failed.Add(1)
		}
	})
}

func (c *Counters) Handler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, c.Snapshot())
}
