package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis, enabling multi-instance
// deployments to share forecast snapshots with TTL-based expiration.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed snapshot store and verifies the
// connection. A ttl of 0 defaults to 30 minutes.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("storage: redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("storage: redis database number must be >= 0")
	}
	if ttl == 0 {
		ttl = 30 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// snapshotKey builds the Redis key for a series.
func snapshotKey(series string) string {
	return "runrate:snapshot:" + series
}

// validSeriesName restricts series names to characters safe for Redis keys
// and URLs.
func validSeriesName(series string) bool {
	if series == "" {
		return false
	}
	for _, c := range series {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.') {
			return false
		}
	}
	return true
}

// Put stores a snapshot under runrate:snapshot:{series} with expiration.
func (r *RedisStore) Put(ctx context.Context, snapshot Snapshot) error {
	if !validSeriesName(snapshot.Series) {
		return fmt.Errorf("storage: invalid series name %q", snapshot.Series)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(snapshot.Series), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("storage: store snapshot in redis: %w", err)
	}
	return nil
}

// GetLatest retrieves the latest snapshot for a series. The boolean
// reports whether one exists.
func (r *RedisStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if series == "" {
		return Snapshot{}, false, errors.New("storage: series name required")
	}

	data, err := r.client.Get(ctx, snapshotKey(series)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("storage: get snapshot from redis: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}
	return snapshot, true, nil
}

// Ping checks the Redis connection health.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
