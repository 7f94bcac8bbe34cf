package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/murmur/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketSnapshots = []byte("snapshots")

// BoltStore implements domain.SnapshotStore using BoltDB.
type BoltStore struct {
	db     *bolt.DB
	key    string
	logger *slog.Logger

	mu     sync.RWMutex // Protects memory copy
	memory []byte       // Last encoded snapshot (hot-path reads, memory-only mode)
	closed bool
}

// NewBoltStore opens the snapshot database under baseCacheDir.
// An empty baseCacheDir selects memory-only mode (no persistence).
// feedID namespaces the database so different comment sources never share a snapshot.
func NewBoltStore(baseCacheDir, feedID, key string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	if baseCacheDir == "" {
		return &BoltStore{key: key, logger: logger}, nil
	}

	dir := baseCacheDir
	if feedID != "" {
		dir = filepath.Join(baseCacheDir, hashFeedID(feedID))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "murmur.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, key: key, logger: logger}, nil
}

func hashFeedID(feedID string) string {
	normalized := strings.TrimRight(strings.ToLower(feedID), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Path returns the database file path ("" in memory-only mode)
func (s *BoltStore) Path() string {
	if s.db == nil {
		return ""
	}
	return s.db.Path()
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.memory = nil
	s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save overwrites the stored snapshot
func (s *BoltStore) Save(ctx context.Context, snap domain.ListSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	s.memory = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.Put([]byte(s.key), data)
	})
}

// Load returns the stored snapshot; corrupt or missing data reads as absent
func (s *BoltStore) Load(ctx context.Context) (domain.ListSnapshot, bool) {
	if ctx.Err() != nil {
		return domain.ListSnapshot{}, false
	}

	s.mu.RLock()
	data, closed := s.memory, s.closed
	s.mu.RUnlock()

	if closed {
		return domain.ListSnapshot{}, false
	}

	if data == nil && s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketSnapshots)
			if b == nil {
				return nil
			}
			if v := b.Get([]byte(s.key)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("snapshot read failed", "key", s.key, "error", err)
			return domain.ListSnapshot{}, false
		}
	}

	if data == nil {
		return domain.ListSnapshot{}, false
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn("discarding unreadable snapshot", "key", s.key, "error", err)
		return domain.ListSnapshot{}, false
	}

	s.mu.Lock()
	if !s.closed {
		s.memory = data
	}
	s.mu.Unlock()

	return snap, true
}

// Clear removes the stored snapshot
func (s *BoltStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	s.memory = nil
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(s.key))
	})
}
