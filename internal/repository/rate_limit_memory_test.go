package repository

import (
	"context"
	"testing"
	"time"

	"lan_messenger/pkg/logger"
)

func TestMemoryRateLimitSlidingWindow(t *testing.T) {
	repo := NewMemoryRateLimitRepository(logger.New("error")).(*memoryRateLimitRepository)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return current }

	ctx := context.Background()
	const limit = 3
	window := time.Minute

	for i := 0; i < limit; i++ {
		allowed, err := repo.Allow(ctx, "1.2.3.4", limit, window)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d rejected below the limit", i+1)
		}
	}

	if allowed, _ := repo.Allow(ctx, "1.2.3.4", limit, window); allowed {
		t.Fatalf("request above the limit was admitted")
	}

	// Another key has its own window.
	if allowed, _ := repo.Allow(ctx, "5.6.7.8", limit, window); !allowed {
		t.Fatalf("independent key was throttled")
	}

	// Once the earliest timestamps age out the key admits again.
	current = current.Add(window + time.Second)
	if allowed, _ := repo.Allow(ctx, "1.2.3.4", limit, window); !allowed {
		t.Fatalf("request rejected after the window slid past")
	}
}

func TestMemoryRateLimitExactBoundary(t *testing.T) {
	repo := NewMemoryRateLimitRepository(logger.New("error")).(*memoryRateLimitRepository)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return current }

	ctx := context.Background()
	if allowed, _ := repo.Allow(ctx, "k", 1, time.Minute); !allowed {
		t.Fatalf("first request rejected")
	}

	// A timestamp exactly window old no longer counts.
	current = current.Add(time.Minute)
	if allowed, _ := repo.Allow(ctx, "k", 1, time.Minute); !allowed {
		t.Fatalf("request at the exact window boundary rejected")
	}
}
