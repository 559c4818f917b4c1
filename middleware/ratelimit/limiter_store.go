package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore holds one token bucket per client key, evicting the least
// recently seen client when full.
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[uint64]*timestampedLimiter
	maxSize  int
	rate     int

	now func() time.Time
}

type timestampedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a new limiter store
func NewLimiterStore(maxSize, perMinute int) *LimiterStore {
	return &LimiterStore{
		limiters: make(map[uint64]*timestampedLimiter),
		maxSize:  maxSize,
		rate:     perMinute,
		now:      time.Now,
	}
}

// Get retrieves or creates the limiter for key.
func (s *LimiterStore) Get(key uint64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if tl, ok := s.limiters[key]; ok {
		tl.lastSeen = now
		return tl.limiter
	}

	if len(s.limiters) >= s.maxSize {
		s.evictOne()
	}

	limit := rate.Limit(0)
	if s.rate > 0 {
		limit = rate.Every(time.Minute / time.Duration(s.rate))
	}

	tl := &timestampedLimiter{
		limiter:  rate.NewLimiter(limit, s.rate),
		lastSeen: now,
	}
	s.limiters[key] = tl

	return tl.limiter
}

// evictOne removes the oldest of a bounded sample of entries.
func (s *LimiterStore) evictOne() {
	var oldestKey uint64
	var oldestTime time.Time
	first := true
	seen := 0

	for k, v := range s.limiters {
		if first || v.lastSeen.Before(oldestTime) {
			oldestKey = k
			oldestTime = v.lastSeen
			first = false
		}

		seen++
		if seen >= evictSample {
			break
		}
	}

	if !first {
		delete(s.limiters, oldestKey)
	}
}

// Cleanup removes entries not seen for olderThan.
func (s *LimiterStore) Cleanup(olderThan time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	for k, v := range s.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(s.limiters, k)
		}
	}
}

// Len returns the number of limiters
func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.limiters)
}

const evictSample = 100
