package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

type redisBackend struct {
	client *redis.Client
}

// NewRedisStore returns a store keeping session values in Redis with the session MaxAge as TTL.
func NewRedisStore(client *redis.Client, keyPairs ...[]byte) *Store {
	return newStore(&redisBackend{client: client}, keyPairs...)
}

func (b *redisBackend) load(ctx context.Context, id string) ([]byte, error) {
	data, err := b.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errNotFound
	}
	return data, err
}

func (b *redisBackend) save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return b.client.Set(ctx, redisKeyPrefix+id, data, ttl).Err()
}

func (b *redisBackend) delete(ctx context.Context, id string) error {
	return b.client.Del(ctx, redisKeyPrefix+id).Err()
}
