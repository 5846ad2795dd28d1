package repository

import (
	"context"
	"sync"
	"time"

	"lan_messenger/pkg/logger"
)

// memoryRateLimitRepository keeps the admission windows in process.
// Keys are never evicted, which is fine for a bounded-client LAN
// deployment.
type memoryRateLimitRepository struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
	log     logger.Logger
}

func NewMemoryRateLimitRepository(log logger.Logger) RateLimitRepository {
	return &memoryRateLimitRepository{
		windows: make(map[string][]time.Time),
		now:     time.Now,
		log:     log,
	}
}

func (r *memoryRateLimitRepository) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-window)

	kept := r.windows[key][:0]
	for _, ts := range r.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		r.windows[key] = kept
		return false, nil
	}

	r.windows[key] = append(kept, now)
	return true, nil
}
