package tui

import (
	"github.com/mmcdole/murmur/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SnapshotLoadedMsg signals that hydration finished
type SnapshotLoadedMsg struct {
	Hit bool
}

// PageLoadedMsg carries the outcome of one page fetch
type PageLoadedMsg struct {
	Page  int
	Items []domain.Comment
	Err   error
}

// ResetDoneMsg signals that the list and the stored snapshot were cleared
type ResetDoneMsg struct {
	Err error
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
