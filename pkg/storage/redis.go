package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/devraulu/refscout/pkg/reference"
)

const redisKeyPrefix = "refscout:ref:"

type redisRecord struct {
	Summary   reference.Summary `json:"summary"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// RedisStore keeps entries in Redis with a native expiry matching expires_at.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func OpenRedis(addr string, timeout time.Duration) *RedisStore {
	return NewRedisStore(redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	}))
}

func (s *RedisStore) Get(ctx context.Context, key string) (reference.CacheEntry, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return reference.CacheEntry{}, ErrNotFound
	}
	if err != nil {
		return reference.CacheEntry{}, err
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return reference.CacheEntry{}, err
	}
	return reference.CacheEntry{Key: key, Summary: rec.Summary, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *RedisStore) Put(ctx context.Context, e reference.CacheEntry) error {
	ttl := e.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.client.Del(ctx, redisKeyPrefix+e.Key).Err()
	}

	raw, err := json.Marshal(redisRecord{Summary: e.Summary, ExpiresAt: e.ExpiresAt})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+e.Key, raw, ttl).Err()
}

// DeleteExpired is a no-op: Redis evicts keys on its own.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
