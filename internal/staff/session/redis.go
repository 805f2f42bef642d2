package session

import (
	"context"
	"fmt"
	"time"

	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Connect opens the Redis client for staff sessions and checks it with a ping.
func Connect(cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if log != nil {
			log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		}
		return nil, err
	}

	if log != nil {
		log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s for staff sessions", cfg.Addr))
	}
	return client, nil
}
