package domain

import "fmt"

// DefaultPageSize is the number of comments requested per page
const DefaultPageSize = 20

// MaxImages bounds the image strip of a single comment
const MaxImages = 2

// ImageRef points at an image attached to a comment.
// Loading the image itself is left to the display surface.
type ImageRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Comment is a single product comment. Immutable once fetched.
type Comment struct {
	ID     int64      `json:"id"`     // Unique, monotonic per generation
	Author string     `json:"author"` // Display name
	Body   string     `json:"body"`
	Images []ImageRef `json:"images,omitempty"` // 0..MaxImages
}

// Validate checks the fixed shape of a comment
func (c Comment) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidComment, c.ID)
	}
	if c.Author == "" {
		return fmt.Errorf("%w: comment %d has no author", ErrInvalidComment, c.ID)
	}
	if len(c.Images) > MaxImages {
		return fmt.Errorf("%w: comment %d has %d images (max %d)", ErrInvalidComment, c.ID, len(c.Images), MaxImages)
	}
	return nil
}

// ListSnapshot is the unit of persistence and hydration.
// Items are append-only; insertion order is display order.
type ListSnapshot struct {
	Items    []Comment
	NextPage int
	HasMore  bool
}

// Consistent reports whether the snapshot could have been produced by
// fetching NextPage pages of pageSize items. While every page was full the
// item count is exactly NextPage*pageSize; after a short page it is at most that.
func (s ListSnapshot) Consistent(pageSize int) bool {
	if pageSize <= 0 || s.NextPage < 0 {
		return false
	}
	limit := s.NextPage * pageSize
	if s.HasMore {
		return len(s.Items) == limit
	}
	return len(s.Items) <= limit
}

// Clone returns a snapshot whose item slice is detached from s
func (s ListSnapshot) Clone() ListSnapshot {
	items := make([]Comment, len(s.Items))
	copy(items, s.Items)
	return ListSnapshot{Items: items, NextPage: s.NextPage, HasMore: s.HasMore}
}

// LoadState is derived from the controller and never persisted
type LoadState struct {
	Loading bool
	HasMore bool
}

// Orientation is the layout axis of the list viewport
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

// String returns the display name of the orientation
func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Toggle returns the other orientation
func (o Orientation) Toggle() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}

// ParseOrientation maps a config value to an Orientation (vertical by default)
func ParseOrientation(s string) Orientation {
	if s == "horizontal" {
		return Horizontal
	}
	return Vertical
}
