package store

import (
	"encoding/json"
	"fmt"

	"github.com/mmcdole/murmur/internal/domain"
)

// DefaultKey is the well-known name the snapshot is stored under
const DefaultKey = "comments-list"

// snapshotRecord is the persisted shape of a ListSnapshot
type snapshotRecord struct {
	Comments []domain.Comment `json:"comments"`
	Page     int              `json:"page"`
	HasMore  bool             `json:"hasMore"`
}

func encodeSnapshot(s domain.ListSnapshot) ([]byte, error) {
	comments := s.Items
	if comments == nil {
		comments = []domain.Comment{}
	}
	return json.Marshal(snapshotRecord{
		Comments: comments,
		Page:     s.NextPage,
		HasMore:  s.HasMore,
	})
}

// decodeSnapshot parses and validates a stored record.
// Any failure wraps domain.ErrSnapshotCorrupt.
func decodeSnapshot(data []byte) (domain.ListSnapshot, error) {
	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.ListSnapshot{}, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	if rec.Page < 0 {
		return domain.ListSnapshot{}, fmt.Errorf("%w: negative page %d", domain.ErrSnapshotCorrupt, rec.Page)
	}
	for _, c := range rec.Comments {
		if err := c.Validate(); err != nil {
			return domain.ListSnapshot{}, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
		}
	}
	return domain.ListSnapshot{
		Items:    rec.Comments,
		NextPage: rec.Page,
		HasMore:  rec.HasMore,
	}, nil
}
