// Package cache owns the Redis connection used by the Redis session backend.
// It supports both embedded Redis (miniredis) and an external Redis server.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/authgate/authgate/logger"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var (
	client     *redis.Client
	miniRedis  *miniredis.Miniredis
	isEmbedded = true
	addr       string
)

// InitRedis initializes the Redis client. If redisAddr is empty, an embedded Redis is started.
// A client already open for the same address is kept, so the embedded data survives a
// server reload.
func InitRedis(redisAddr, password string) error {
	if client != nil && redisAddr == addr {
		return nil
	}
	if err := Close(); err != nil {
		logger.Warning("close previous Redis client:", err)
	}
	addr = redisAddr

	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start embedded Redis: %w", err)
		}
		miniRedis = mr
		client = redis.NewClient(&redis.Options{
			Addr: mr.Addr(),
		})
		isEmbedded = true
		logger.Info("Embedded Redis started on ", mr.Addr())
		return nil
	}

	client = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       0,
	})
	isEmbedded = false

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", redisAddr, err)
	}
	logger.Info("Connected to external Redis at ", redisAddr)
	return nil
}

// GetClient returns the Redis client instance.
func GetClient() *redis.Client {
	return client
}

// IsEmbedded returns true if using embedded Redis.
func IsEmbedded() bool {
	return isEmbedded
}

// Close closes the Redis connection and stops embedded Redis if running.
func Close() error {
	if client != nil {
		if err := client.Close(); err != nil {
			return err
		}
		client = nil
	}
	if miniRedis != nil {
		miniRedis.Close()
		miniRedis = nil
	}
	addr = ""
	return nil
}
