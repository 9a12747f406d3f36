package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local Store. Windows are swept on a random fraction of calls.
type MemoryStore struct {
	mu        sync.Mutex
	windows   map[string]*window
	now       func() time.Time
	sweepProb float64
	rand      func() float64
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func WithSweepProbability(p float64) MemoryOption {
	return func(s *MemoryStore) {
		s.sweepProb = p
	}
}

func WithRandom(r func() float64) MemoryOption {
	return func(s *MemoryStore) {
		s.rand = r
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows:   make(map[string]*window),
		now:       time.Now,
		sweepProb: 0.01,
		rand:      rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Take(_ context.Context, key string, limit int, ttl time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.sweepProb > 0 && s.rand() < s.sweepProb {
		s.sweepLocked(now)
	}

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(ttl)}
		s.windows[key] = w
	}

	if w.count >= limit {
		return Window{Count: w.count, ResetAt: w.resetAt, Allowed: false}, nil
	}

	w.count++
	return Window{Count: w.count, ResetAt: w.resetAt, Allowed: true}, nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now()), nil
}

// Len returns the number of tracked windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}
