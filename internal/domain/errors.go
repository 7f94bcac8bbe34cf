package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrFetchFailed indicates the page source could not deliver a page
	ErrFetchFailed = errors.New("page fetch failed")

	// ErrInvalidComment indicates a comment violates the fixed record shape
	ErrInvalidComment = errors.New("invalid comment")

	// ErrSnapshotCorrupt indicates a stored snapshot could not be decoded
	ErrSnapshotCorrupt = errors.New("snapshot is corrupt")

	// ErrStoreClosed indicates the snapshot store was used after Close
	ErrStoreClosed = errors.New("snapshot store is closed")
)
