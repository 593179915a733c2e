package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketinventory/internal/domain"
)

const (
	keyPrefix     = "idempotency:reservation:"
	pendingMarker = "pending"
)

type redisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore returns an IdempotencyStore backed by Redis. A key is claimed with SET NX
// holding a pending marker, then overwritten with the reservation id once it commits.
// Entries expire after ttl.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) domain.IdempotencyStore {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Claim(ctx context.Context, key string) (string, bool, error) {
	k := keyPrefix + key
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim %s: %w", key, err)
	}
	if ok {
		return "", true, nil
	}
	val, err := s.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; treat as still in flight
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	if val == pendingMarker {
		return "", false, nil
	}
	return val, false, nil
}

func (s *redisStore) Complete(ctx context.Context, key, reservationID string) error {
	if err := s.client.Set(ctx, keyPrefix+key, reservationID, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = 3
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

type noopStore struct{}

// NewNoopStore returns a store that claims every key, which disables replay detection.
func NewNoopStore() domain.IdempotencyStore {
	return noopStore{}
}

func (noopStore) Claim(context.Context, string) (string, bool, error) { return "", true, nil }
func (noopStore) Complete(context.Context, string, string) error      { return nil }
func (noopStore) Release(context.Context, string) error               { return nil }
