package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptRegistry marks open attempts in Redis. The marker's TTL matches the
// attempt credential's lifetime, so an attempt whose client vanished without
// calling finish still reads as closed once the credential would have
// expired anyway.
type AttemptRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptRegistry(client *redis.Client, ttl time.Duration) *AttemptRegistry {
	return &AttemptRegistry{client: client, ttl: ttl}
}

func (r *AttemptRegistry) Open(ctx context.Context, recordID string) error {
	return r.client.Set(ctx, r.key(recordID), "1", r.ttl).Err()
}

func (r *AttemptRegistry) Close(ctx context.Context, recordID string) error {
	return r.client.Del(ctx, r.key(recordID)).Err()
}

func (r *AttemptRegistry) Active(ctx context.Context, recordID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(recordID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AttemptRegistry) key(recordID string) string {
	return "attempt:session:" + recordID
}
