package metrics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CountsAndLatency(t *testing.T) {
	r := NewRegistry()

	r.Observe("POST /api/chat", 200, 100*time.Millisecond)
	r.Observe("POST /api/chat", 500, 300*time.Millisecond)
	r.Observe("GET /api/counties", 200, 2*time.Millisecond)
	r.Observe("POST /api/chat", 429, 0)

	snap := r.Snapshot()
	assert.Equal(t, int64(4), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 0.25, snap.ErrorRate, 1e-9)
	assert.Equal(t, HealthUnhealthy, snap.Status)

	require.Len(t, snap.Endpoints, 2)
	assert.Equal(t, "GET /api/counties", snap.Endpoints[0].Endpoint)
	chat := snap.Endpoints[1]
	assert.Equal(t, int64(3), chat.Count)
	assert.Equal(t, int64(1), chat.Errors)
	assert.InDelta(t, 133.333, chat.AvgLatencyMs, 0.01)
}

func TestRegistry_RecentErrorsRing(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 60; i++ {
		r.RecordError("POST /api/chat", 500, fmt.Sprintf("failure %d", i))
	}

	snap := r.Snapshot()
	require.Len(t, snap.RecentErrors, 50)
	assert.Equal(t, "failure 59", snap.RecentErrors[0].Message)
	assert.Equal(t, "failure 10", snap.RecentErrors[49].Message)
}

func TestRegistry_HealthAndReset(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, HealthHealthy, r.Snapshot().Status)

	for i := 0; i < 19; i++ {
		r.Observe("GET /health", 200, time.Millisecond)
	}
	r.Observe("GET /health", 503, time.Millisecond)
	assert.Equal(t, HealthDegraded, r.Snapshot().Status)

	r.RecordError("GET /health", 503, "down")
	r.Reset()
	snap := r.Snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Empty(t, snap.Endpoints)
	assert.Empty(t, snap.RecentErrors)
}

func TestRegistry_ConcurrentObserve(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Observe("POST /api/chat", 200, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), r.Snapshot().TotalRequests)
}
