package cache

import (
	"context"
	"fmt"

	"waitwith/internal/config"
	"waitwith/internal/logger"

	"github.com/redis/go-redis/v9"
)

// New connects to redis. The cache is an optimization only; callers decide
// whether a connection failure is fatal.
func New(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Redis connection successful")
	return client, nil
}
