package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lan_messenger/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Message   MessageRepository
	RateLimit RateLimitRepository
}

// NewRepositories wires the persistence gateway. rdb may be nil; the
// rate limiter then runs in process instead of on redis.
func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:    NewUserRepository(db, log),
		Message: NewMessageRepository(db, log),
	}

	if rdb != nil {
		repos.RateLimit = NewRateLimitRepository(rdb, log)
		log.Info("Rate limiter backed by redis")
	} else {
		repos.RateLimit = NewMemoryRateLimitRepository(log)
		log.Info("Rate limiter running in process")
	}

	return repos
}
