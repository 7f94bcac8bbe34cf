package store

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/murmur/internal/adapter"
	"github.com/mmcdole/murmur/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Open builds the snapshot store selected by cfg.Backend.
// feedID keeps snapshots of different comment sources apart.
func Open(cfg adapter.CacheConfig, feedID string, logger *slog.Logger) (domain.SnapshotStore, error) {
	switch cfg.Backend {
	case adapter.CacheBackendBolt, "":
		return NewBoltStore(cfg.Path, feedID, cfg.Key, logger)
	case adapter.CacheBackendMemory:
		return NewBoltStore("", feedID, cfg.Key, logger)
	case adapter.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		key := cfg.Key
		if key == "" {
			key = DefaultKey
		}
		if feedID != "" {
			key = hashFeedID(feedID) + ":" + key
		}
		return NewRedisStore(client, key, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
