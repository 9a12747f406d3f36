package metrics

import (
	"sort"
	"sync"
	"time"
)

const (
	recentErrorsCap = 50

	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

type endpointStats struct {
	count         int64
	errors        int64
	totalDuration time.Duration
}

// ErrorRecord is one failed request kept for the admin view.
type ErrorRecord struct {
	Time     time.Time `json:"time"`
	Endpoint string    `json:"endpoint"`
	Status   int       `json:"status"`
	Message  string    `json:"message"`
}

type EndpointSnapshot struct {
	Endpoint     string  `json:"endpoint"`
	Count        int64   `json:"count"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

type Snapshot struct {
	Status        string             `json:"status"`
	StartedAt     time.Time          `json:"startedAt"`
	UptimeSeconds int64              `json:"uptimeSeconds"`
	TotalRequests int64              `json:"totalRequests"`
	TotalErrors   int64              `json:"totalErrors"`
	ErrorRate     float64            `json:"errorRate"`
	Endpoints     []EndpointSnapshot `json:"endpoints"`
	RecentErrors  []ErrorRecord      `json:"recentErrors"`
}

// Registry keeps process-local request counters.
type Registry struct {
	mu        sync.Mutex
	now       func() time.Time
	startedAt time.Time
	total     int64
	errors    int64
	endpoints map[string]*endpointStats
	recent    []ErrorRecord
}

func NewRegistry() *Registry {
	r := &Registry{now: time.Now}
	r.Reset()
	return r
}

// Observe records one finished request. Status codes of 500 and above count as errors.
func (r *Registry) Observe(endpoint string, status int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.endpoints[endpoint]
	if !ok {
		stats = &endpointStats{}
		r.endpoints[endpoint] = stats
	}

	r.total++
	stats.count++
	stats.totalDuration += duration
	if status >= 500 {
		r.errors++
		stats.errors++
	}
}

// RecordError keeps the failure in a ring of the latest errors.
func (r *Registry) RecordError(endpoint string, status int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recent = append(r.recent, ErrorRecord{
		Time:     r.now().UTC(),
		Endpoint: endpoint,
		Status:   status,
		Message:  message,
	})
	if len(r.recent) > recentErrorsCap {
		r.recent = r.recent[len(r.recent)-recentErrorsCap:]
	}
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		StartedAt:     r.startedAt,
		UptimeSeconds: int64(r.now().Sub(r.startedAt).Seconds()),
		TotalRequests: r.total,
		TotalErrors:   r.errors,
		Endpoints:     make([]EndpointSnapshot, 0, len(r.endpoints)),
		RecentErrors:  make([]ErrorRecord, len(r.recent)),
	}
	if r.total > 0 {
		snap.ErrorRate = float64(r.errors) / float64(r.total)
	}
	snap.Status = healthStatus(snap.ErrorRate)

	for name, s := range r.endpoints {
		es := EndpointSnapshot{Endpoint: name, Count: s.count, Errors: s.errors}
		if s.count > 0 {
			es.AvgLatencyMs = float64(s.totalDuration.Microseconds()) / float64(s.count) / 1000
		}
		snap.Endpoints = append(snap.Endpoints, es)
	}
	sort.Slice(snap.Endpoints, func(i, j int) bool {
		return snap.Endpoints[i].Endpoint < snap.Endpoints[j].Endpoint
	})

	// newest first
	for i, rec := range r.recent {
		snap.RecentErrors[len(r.recent)-1-i] = rec
	}

	return snap
}

// Reset clears all counters and restarts the uptime clock.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startedAt = r.now().UTC()
	r.total = 0
	r.errors = 0
	r.endpoints = make(map[string]*endpointStats)
	r.recent = nil
}

func healthStatus(errorRate float64) string {
	switch {
	case errorRate >= 0.25:
		return HealthUnhealthy
	case errorRate >= 0.05:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
