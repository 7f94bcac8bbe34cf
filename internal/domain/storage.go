package domain

import "context"

// SnapshotStore persists a single ListSnapshot under a well-known key.
// Implementations own their key; callers never see it.
type SnapshotStore interface {
	// Save overwrites the stored snapshot with s
	Save(ctx context.Context, s ListSnapshot) error

	// Load returns the stored snapshot, or false when it is absent,
	// unreadable or corrupt. It never fails the caller.
	Load(ctx context.Context) (ListSnapshot, bool)

	// Clear removes the stored snapshot
	Clear(ctx context.Context) error

	Close() error
}
