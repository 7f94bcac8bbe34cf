package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmcdole/murmur/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements domain.SnapshotStore on a Redis key.
// Snapshots never expire; each Save replaces the whole value.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisStore wraps an existing client. The key defaults to DefaultKey.
func NewRedisStore(client *redis.Client, key string, logger *slog.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: "murmur:" + key, logger: logger}
}

// Save overwrites the stored snapshot
func (s *RedisStore) Save(ctx context.Context, snap domain.ListSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Load returns the stored snapshot; misses, errors and corrupt values read as absent
func (s *RedisStore) Load(ctx context.Context) (domain.ListSnapshot, bool) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("snapshot read failed", "key", s.key, "error", err)
		}
		return domain.ListSnapshot{}, false
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn("discarding unreadable snapshot", "key", s.key, "error", err)
		return domain.ListSnapshot{}, false
	}
	return snap, true
}

// Clear removes the stored snapshot
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
