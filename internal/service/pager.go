package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// PagerState is the load-more state machine position
type PagerState int

const (
	StateIdle PagerState = iota
	StateHydrating
	StateLoading
	StateExhausted
	StateResetting
	StateClosed
)

func (s PagerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHydrating:
		return "hydrating"
	case StateLoading:
		return "loading"
	case StateExhausted:
		return "exhausted"
	case StateResetting:
		return "resetting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pager owns the comment list for the lifetime of a mounted view: items,
// next page, the loading flag and the exhaustion flag. Loading is exclusive;
// at most one fetch is outstanding. Every successful append spawns a write of
// the full snapshot to the store without waiting for it.
type Pager struct {
	fetcher      domain.PageFetcher
	store        domain.SnapshotStore // nil disables persistence
	pageSize     int
	logger       *slog.Logger
	metrics      *metrics.Recorder
	writeTimeout time.Duration

	mu       sync.Mutex
	state    PagerState
	hydrated bool
	items    []domain.Comment
	nextPage int
	hasMore  bool
	inflight int // page being fetched while state == StateLoading
	lastErr  error

	writes   sync.WaitGroup // in-flight snapshot writes
	writeSeq uint64         // sequence of the newest snapshot handed to a writer, under mu

	writeMu  sync.Mutex // serializes Save calls
	savedSeq uint64     // sequence of the newest snapshot saved, under writeMu
}

// PagerOption configures optional Pager collaborators
type PagerOption func(*Pager)

// WithMetrics records fetch, hydration and write outcomes
func WithMetrics(r *metrics.Recorder) PagerOption {
	return func(p *Pager) { p.metrics = r }
}

// WithWriteTimeout bounds each background snapshot write
func WithWriteTimeout(d time.Duration) PagerOption {
	return func(p *Pager) {
		if d > 0 {
			p.writeTimeout = d
		}
	}
}

// NewPager creates a pager. pageSize <= 0 selects domain.DefaultPageSize.
func NewPager(fetcher domain.PageFetcher, store domain.SnapshotStore, pageSize int, logger *slog.Logger, opts ...PagerOption) *Pager {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	p := &Pager{
		fetcher:      fetcher,
		store:        store,
		pageSize:     pageSize,
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
		hasMore:      true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hydrate adopts the stored snapshot, if any. It runs once, before any load.
// On a hit the pager moves to Idle (or Exhausted) without fetching and
// Hydrate returns true. A missing, corrupt, or inconsistent snapshot returns
// false and the caller should start the first load.
func (p *Pager) Hydrate(ctx context.Context) bool {
	p.mu.Lock()
	if p.hydrated || p.state != StateIdle || len(p.items) > 0 || p.nextPage > 0 {
		p.mu.Unlock()
		return false
	}
	p.hydrated = true
	p.state = StateHydrating
	p.mu.Unlock()

	var snap domain.ListSnapshot
	ok := false
	if p.store != nil {
		snap, ok = p.store.Load(ctx)
	}
	if ok && !snap.Consistent(p.pageSize) {
		p.logger.Warn("ignoring snapshot inconsistent with page size",
			"items", len(snap.Items), "nextPage", snap.NextPage, "hasMore", snap.HasMore, "pageSize", p.pageSize)
		ok = false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return false
	}
	p.metrics.ObserveHydration(ok)

	if !ok {
		p.state = StateIdle
		p.logger.Debug("no snapshot to hydrate from")
		return false
	}

	p.items = snap.Clone().Items
	p.nextPage = snap.NextPage
	p.hasMore = snap.HasMore
	p.state = StateIdle
	if !p.hasMore {
		p.state = StateExhausted
	}
	p.metrics.SetLoaded(len(p.items))
	p.logger.Info("hydrated from snapshot", "items", len(p.items), "nextPage", p.nextPage, "hasMore", p.hasMore)
	return true
}

// BeginLoad enters Loading and returns the page to fetch. It reports false,
// and changes nothing, before Hydrate and while hydrating, loading,
// resetting, exhausted, or closed.
func (p *Pager) BeginLoad() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hydrated || p.state != StateIdle || !p.hasMore {
		p.metrics.SkippedFetch()
		return 0, false
	}
	p.state = StateLoading
	p.inflight = p.nextPage
	return p.inflight, true
}

// Fetch asks the page source for one page. It touches no pager state and is
// meant to run off the UI loop between BeginLoad and CompleteLoad.
func (p *Pager) Fetch(ctx context.Context, page int) ([]domain.Comment, error) {
	start := time.Now()
	items, err := p.fetcher.FetchPage(ctx, page, p.pageSize)
	if err == nil && len(items) > p.pageSize {
		err = fmt.Errorf("page %d returned %d items, more than page size %d", page, len(items), p.pageSize)
	}
	p.metrics.ObserveFetch(time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", domain.ErrFetchFailed, page, err)
	}
	return items, nil
}

// CompleteLoad applies the outcome of the fetch started by BeginLoad.
// On error items and next page stay as they were and the pager returns to
// Idle so a later load can retry. Results for a page that is not in flight,
// or that arrive after Close, are discarded. It reports whether items were appended.
func (p *Pager) CompleteLoad(page int, items []domain.Comment, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateLoading || page != p.inflight {
		p.logger.Debug("discarding stale page result", "page", page, "state", p.state.String())
		return false
	}

	if err != nil {
		p.lastErr = err
		p.state = StateIdle
		p.logger.Warn("page load failed", "page", page, "error", err)
		return false
	}

	p.items = append(p.items, items...)
	p.nextPage++
	p.hasMore = len(items) >= p.pageSize
	p.lastErr = nil
	p.state = StateIdle
	if !p.hasMore {
		p.state = StateExhausted
	}
	p.metrics.SetLoaded(len(p.items))
	p.logger.Debug("page appended", "page", page, "count", len(items), "total", len(p.items), "hasMore", p.hasMore)

	p.persistLocked()
	return true
}

// LoadMore fetches and appends the next page. It is a no-op returning
// (false, nil) before Hydrate, while a load is in flight, once the list is
// exhausted, and while the pager is hydrating, resetting or closed.
func (p *Pager) LoadMore(ctx context.Context) (bool, error) {
	page, ok := p.BeginLoad()
	if !ok {
		return false, nil
	}
	items, err := p.Fetch(ctx, page)
	p.CompleteLoad(page, items, err)
	return true, err
}

// persistLocked spawns a write of the full current snapshot. Callers hold p.mu.
// Writers may run in any order; a snapshot older than one already saved is
// dropped, so the store never moves backwards.
func (p *Pager) persistLocked() {
	if p.store == nil {
		return
	}
	p.writeSeq++
	seq := p.writeSeq
	snap := domain.ListSnapshot{
		Items:    append([]domain.Comment(nil), p.items...),
		NextPage: p.nextPage,
		HasMore:  p.hasMore,
	}

	p.writes.Add(1)
	go func() {
		defer p.writes.Done()
		p.writeSnapshot(seq, snap)
	}()
}

func (p *Pager) writeSnapshot(seq uint64, snap domain.ListSnapshot) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if seq <= p.savedSeq {
		p.logger.Debug("dropping superseded snapshot", "seq", seq, "saved", p.savedSeq)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	err := p.store.Save(ctx, snap)
	p.metrics.ObserveWrite(err)
	if err != nil {
		p.logger.Warn("snapshot write failed", "items", len(snap.Items), "error", err)
		return
	}
	p.savedSeq = seq
}

// Reset drops the loaded list and the stored snapshot so the next load
// starts again at page 0. It is a no-op while a load is in flight.
func (p *Pager) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle && p.state != StateExhausted {
		p.mu.Unlock()
		return nil
	}
	p.state = StateResetting
	p.mu.Unlock()

	// Pending writes must land before the clear or they would resurrect the old list
	p.writes.Wait()

	var err error
	if p.store != nil {
		err = p.store.Clear(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return err
	}
	p.items = nil
	p.nextPage = 0
	p.hasMore = true
	p.lastErr = nil
	p.state = StateIdle
	p.metrics.SetLoaded(0)
	p.logger.Info("list reset")

	if err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Flush waits for snapshot writes spawned so far, or until ctx is done
func (p *Pager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.writes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the pager down: later results are discarded and no new loads
// start. It waits for pending snapshot writes until ctx is done.
func (p *Pager) Close(ctx context.Context) error {
	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()

	return p.Flush(ctx)
}

// === Accessors ===

// Len returns the number of loaded comments
func (p *Pager) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Row returns the loaded comment at index, or a pending row when the index
// is outside the loaded range.
func (p *Pager) Row(index int) domain.Row {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.items) {
		return domain.LoadedRow{Index: index, Comment: p.items[index]}
	}
	return domain.PendingRow{Index: index}
}

// Items returns a copy of the loaded comments
func (p *Pager) Items() []domain.Comment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Comment(nil), p.items...)
}

// Snapshot returns a detached copy of the current list state
func (p *Pager) Snapshot() domain.ListSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.ListSnapshot{
		Items:    append([]domain.Comment(nil), p.items...),
		NextPage: p.nextPage,
		HasMore:  p.hasMore,
	}
}

// State returns the current state machine position
func (p *Pager) State() PagerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Hydrated reports whether Hydrate has been called
func (p *Pager) Hydrated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hydrated
}

// LoadState returns the derived loading and has-more flags
func (p *Pager) LoadState() domain.LoadState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.LoadState{Loading: p.state == StateLoading, HasMore: p.hasMore}
}

// NextPage returns the index of the next page to fetch
func (p *Pager) NextPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextPage
}

// LastError returns the error of the most recent failed load, cleared by the next success
func (p *Pager) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// PageSize returns the fixed page size
func (p *Pager) PageSize() int {
	return p.pageSize
}
