package service

import (
	"context"
	"time"

	"lan_messenger/internal/config"
	"lan_messenger/internal/repository"
	"lan_messenger/pkg/logger"
)

type RateLimitService interface {
	// Allow reports whether the keyed caller is within its window.
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	limit         int
	window        time.Duration
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, cfg config.RateLimitConfig, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		limit:         cfg.MaxRequests,
		window:        time.Duration(cfg.WindowSeconds) * time.Second,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string) (bool, error) {
	return s.rateLimitRepo.Allow(ctx, key, s.limit, s.window)
}

func (s *rateLimitService) Limit() int {
	return s.limit
}
