package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis открывает клиент Redis и проверяет соединение.
func ConnectRedis(redisURL string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			fmt.Printf("failed to close redis client after ping error: %v\n", closeErr)
		}
		return nil, fmt.Errorf("failed to ping redis within %v: %w", timeout, err)
	}

	return client, nil
}
