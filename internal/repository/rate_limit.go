package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lan_messenger/pkg/logger"
)

// RateLimitRepository is a keyed sliding-window admission gate: requests
// older than the window are pruned on every check, a request past the
// limit is rejected, an admitted request is recorded.
type RateLimitRepository interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type rateLimitRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewRateLimitRepository(rdb *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{rdb: rdb, log: log}
}

func (r *rateLimitRepository) redisKey(key string) string {
	return "ratelimit:" + key
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := r.redisKey(key)
	cutoff := now.Add(-window).UnixMilli()

	pipe := r.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff, 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Failed to check rate limit", "error", err, "key", key)
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if countCmd.Val() >= int64(limit) {
		return false, nil
	}

	err := r.rdb.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	}).Err()
	if err != nil {
		r.log.Error("Failed to record rate limit entry", "error", err, "key", key)
		return false, fmt.Errorf("failed to record rate limit entry: %w", err)
	}
	r.rdb.Expire(ctx, redisKey, window)

	return true, nil
}
