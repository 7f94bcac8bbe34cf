// Package feed provides page sources for the comment list: a deterministic
// generator with simulated latency, an HTTP client, and the HTTP handler
// murmurd uses to serve generated pages.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmcdole/murmur/internal/domain"
)

var authors = []string{
	"Ana Lima", "Bo Chen", "Chidi Okafor", "Dana Kowalski", "Elif Yildiz",
	"Farah Haddad", "Gus Moreau", "Hana Sato", "Ivo Petrov", "Jun Park",
}

var phrases = []string{
	"Arrived two days early and works exactly as described.",
	"Battery life is much better than the previous model.",
	"The strap broke after a week, support replaced it quickly.",
	"Colour is a bit darker than in the photos but still nice.",
	"Setup took five minutes, the app is surprisingly good.",
	"Too loud for an office, fine at home.",
	"Bought a second one for my parents.",
	"Packaging was damaged, product was fine.",
	"Instructions are confusing, watch the video instead.",
	"Would buy again at this price.",
}

// Generator produces deterministic comment pages. Comment ids are
// page*pageSize+i+1, so ids are unique and monotonic for a fixed page size.
type Generator struct {
	// Total is the number of comments available; 0 means unbounded
	Total int
	// Latency is slept before each page is returned
	Latency time.Duration
	// FailEvery makes every Nth call fail (0 disables)
	FailEvery int

	mu    sync.Mutex
	calls int
}

// NewGenerator creates a generator with the given total and latency
func NewGenerator(total int, latency time.Duration) *Generator {
	return &Generator{Total: total, Latency: latency}
}

// FetchPage returns page of up to pageSize comments after the configured latency
func (g *Generator) FetchPage(ctx context.Context, page, pageSize int) ([]domain.Comment, error) {
	if page < 0 || pageSize <= 0 {
		return nil, fmt.Errorf("invalid page request: page=%d pageSize=%d", page, pageSize)
	}

	g.mu.Lock()
	g.calls++
	fail := g.FailEvery > 0 && g.calls%g.FailEvery == 0
	g.mu.Unlock()

	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail {
		return nil, fmt.Errorf("%w: simulated outage on page %d", domain.ErrFetchFailed, page)
	}

	return g.Page(page, pageSize), nil
}

// Page builds a page without latency or failure injection
func (g *Generator) Page(page, pageSize int) []domain.Comment {
	start := page * pageSize
	end := start + pageSize
	if g.Total > 0 {
		if start >= g.Total {
			return []domain.Comment{}
		}
		if end > g.Total {
			end = g.Total
		}
	}

	items := make([]domain.Comment, 0, end-start)
	for n := start; n < end; n++ {
		items = append(items, makeComment(n))
	}
	return items
}

// makeComment derives the n-th comment (0-based) deterministically
func makeComment(n int) domain.Comment {
	id := int64(n + 1)
	c := domain.Comment{
		ID:     id,
		Author: authors[n%len(authors)],
		Body:   phrases[(n*7)%len(phrases)],
	}
	switch n % 3 {
	case 1:
		c.Images = []domain.ImageRef{imageFor(id, 0)}
	case 2:
		c.Images = []domain.ImageRef{imageFor(id, 0), imageFor(id, 1)}
	}
	return c
}

func imageFor(id int64, slot int) domain.ImageRef {
	return domain.ImageRef{
		URL: fmt.Sprintf("https://picsum.photos/seed/%d-%d/160/120", id, slot),
		Alt: fmt.Sprintf("photo %d", slot+1),
	}
}
