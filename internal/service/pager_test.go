package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/murmur/internal/adapter"
	"github.com/mmcdole/murmur/internal/domain"
	"github.com/mmcdole/murmur/internal/metrics"
	"github.com/mmcdole/murmur/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeFetcher serves pages of the given sizes and fails the pages listed in
// failOnce the first time they are requested. It records calls and the
// highest number of fetches it saw outstanding at once.
type fakeFetcher struct {
	t        *testing.T
	sizes    []int // items per page; pages past the end are empty
	failOnce map[int]bool
	gate     chan struct{} // when set, each fetch blocks until released

	mu          sync.Mutex
	calls       []int
	outstanding int32
	maxSeen     int32
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page, pageSize int) ([]domain.Comment, error) {
	n := atomic.AddInt32(&f.outstanding, 1)
	defer atomic.AddInt32(&f.outstanding, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	if n > 1 {
		f.t.Errorf("fetcher called concurrently: %d outstanding", n)
	}

	f.mu.Lock()
	f.calls = append(f.calls, page)
	fail := f.failOnce[page]
	if fail {
		delete(f.failOnce, page)
	}
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("network unreachable")
	}

	size := 0
	if page < len(f.sizes) {
		size = f.sizes[page]
	}
	items := make([]domain.Comment, size)
	for i := range items {
		items[i] = domain.Comment{ID: int64(page*pageSize + i + 1), Author: "user", Body: "body"}
	}
	return items, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newMemoryStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore("", "", "", adapter.NullLogger())
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newHydratedPager returns a pager that has already consulted its store
func newHydratedPager(t *testing.T, fetcher domain.PageFetcher, s domain.SnapshotStore, pageSize int, logger *slog.Logger, opts ...PagerOption) *Pager {
	t.Helper()
	p := NewPager(fetcher, s, pageSize, logger, opts...)
	p.Hydrate(context.Background())
	if !p.Hydrated() {
		t.Fatal("pager did not hydrate")
	}
	return p
}

func flush(t *testing.T, p *Pager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestPagerScenarioShortLastPage(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20, 20, 20, 5}}
	p := newHydratedPager(t, f, newMemoryStore(t), 20, adapter.NullLogger())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		issued, err := p.LoadMore(ctx)
		if err != nil || !issued {
			t.Fatalf("LoadMore #%d = %v, %v", i+1, issued, err)
		}
	}

	if p.Len() != 65 {
		t.Errorf("len = %d, want 65", p.Len())
	}
	if p.LoadState().HasMore {
		t.Error("hasMore should be false after a short page")
	}
	if p.State() != StateExhausted {
		t.Errorf("state = %v, want exhausted", p.State())
	}

	issued, err := p.LoadMore(ctx)
	if issued || err != nil {
		t.Errorf("fifth LoadMore = %v, %v; want no-op", issued, err)
	}
	if f.callCount() != 4 {
		t.Errorf("fetcher called %d times, want 4", f.callCount())
	}
}

func TestPagerItemsAreConcatenationInOrder(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{3, 3, 3}}
	p := newHydratedPager(t, f, nil, 3, adapter.NullLogger())
	ctx := context.Background()

	prev := 0
	for i := 0; i < 3; i++ {
		if _, err := p.LoadMore(ctx); err != nil {
			t.Fatalf("LoadMore: %v", err)
		}
		if p.Len() < prev {
			t.Fatalf("length decreased from %d to %d", prev, p.Len())
		}
		prev = p.Len()
	}

	for i, c := range p.Items() {
		if c.ID != int64(i+1) {
			t.Fatalf("item %d has id %d, want %d", i, c.ID, i+1)
		}
	}
	if p.NextPage() != 3 {
		t.Errorf("nextPage = %d, want 3", p.NextPage())
	}
}

func TestPagerEmptyPageExhausts(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20}}
	p := newHydratedPager(t, f, nil, 20, adapter.NullLogger())
	ctx := context.Background()

	p.LoadMore(ctx)
	p.LoadMore(ctx) // page 1 is empty

	st := p.LoadState()
	if st.HasMore || st.Loading {
		t.Errorf("load state = %+v, want exhausted and idle", st)
	}
	if p.Len() != 20 || p.NextPage() != 2 {
		t.Errorf("len = %d nextPage = %d", p.Len(), p.NextPage())
	}
}

func TestPagerLoadMoreWhileLoadingIsNoop(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20, 20}, gate: make(chan struct{})}
	p := newHydratedPager(t, f, nil, 20, adapter.NullLogger())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.LoadMore(ctx)
	}()

	// Wait until the first fetch is outstanding
	deadline := time.Now().Add(5 * time.Second)
	for f.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	if !p.LoadState().Loading {
		t.Fatal("pager should report loading while the fetch is outstanding")
	}
	for i := 0; i < 5; i++ {
		issued, err := p.LoadMore(ctx)
		if issued || err != nil {
			t.Fatalf("LoadMore during load = %v, %v; want no-op", issued, err)
		}
	}

	close(f.gate)
	<-done

	if f.callCount() != 1 {
		t.Errorf("fetcher called %d times, want 1", f.callCount())
	}
	if atomic.LoadInt32(&f.maxSeen) != 1 {
		t.Errorf("max outstanding = %d, want 1", f.maxSeen)
	}
	if p.Len() != 20 {
		t.Errorf("len = %d, want 20", p.Len())
	}
}

func TestPagerConcurrentCallersFetchOneAtATime(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{5, 5, 5, 5, 5, 5, 5, 5, 2}}
	p := newHydratedPager(t, f, nil, 5, adapter.NullLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				p.LoadMore(ctx)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&f.maxSeen) > 1 {
		t.Errorf("max outstanding fetches = %d, want 1", f.maxSeen)
	}
	if p.Len() != 42 {
		t.Errorf("len = %d, want 42", p.Len())
	}
	for i, c := range p.Items() {
		if c.ID != int64(i+1) {
			t.Fatalf("item %d has id %d; pages interleaved", i, c.ID)
		}
	}
}

func TestPagerFetchFailureThenRetry(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20, 20}, failOnce: map[int]bool{0: true}}
	s := newMemoryStore(t)
	p := newHydratedPager(t, f, s, 20, adapter.NullLogger())
	ctx := context.Background()

	issued, err := p.LoadMore(ctx)
	if !issued || err == nil {
		t.Fatalf("first LoadMore = %v, %v; want issued with error", issued, err)
	}
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("error should wrap ErrFetchFailed: %v", err)
	}
	if p.Len() != 0 || p.NextPage() != 0 {
		t.Errorf("failed load changed state: len=%d nextPage=%d", p.Len(), p.NextPage())
	}
	if p.State() != StateIdle {
		t.Errorf("state = %v, want idle after failure", p.State())
	}
	if p.LastError() == nil {
		t.Error("LastError should hold the failure")
	}
	flush(t, p)
	if _, ok := s.Load(ctx); ok {
		t.Error("a failed load should not write a snapshot")
	}

	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if p.Len() != 20 || p.NextPage() != 1 {
		t.Errorf("after retry len=%d nextPage=%d, want 20 and 1", p.Len(), p.NextPage())
	}
	if p.LastError() != nil {
		t.Errorf("LastError should clear after success, got %v", p.LastError())
	}
}

func TestPagerRejectsOversizedPage(t *testing.T) {
	fetch := domain.PageFetcherFunc(func(ctx context.Context, page, pageSize int) ([]domain.Comment, error) {
		items := make([]domain.Comment, pageSize+1)
		for i := range items {
			items[i] = domain.Comment{ID: int64(i + 1), Author: "a"}
		}
		return items, nil
	})
	p := newHydratedPager(t, fetch, nil, 4, adapter.NullLogger())

	_, err := p.LoadMore(context.Background())
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("oversized page error = %v, want ErrFetchFailed", err)
	}
	if p.Len() != 0 {
		t.Errorf("oversized page should not be appended, len = %d", p.Len())
	}
}

func TestPagerPersistsSnapshotAfterEachAppend(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20, 7}}
	s := newMemoryStore(t)
	p := newHydratedPager(t, f, s, 20, adapter.NullLogger())
	ctx := context.Background()

	p.LoadMore(ctx)
	flush(t, p)
	snap, ok := s.Load(ctx)
	if !ok || len(snap.Items) != 20 || snap.NextPage != 1 || !snap.HasMore {
		t.Fatalf("snapshot after page 0 = %d items, page %d, hasMore %v, ok %v",
			len(snap.Items), snap.NextPage, snap.HasMore, ok)
	}

	p.LoadMore(ctx)
	flush(t, p)
	snap, ok = s.Load(ctx)
	if !ok || len(snap.Items) != 27 || snap.NextPage != 2 || snap.HasMore {
		t.Fatalf("snapshot after page 1 = %d items, page %d, hasMore %v",
			len(snap.Items), snap.NextPage, snap.HasMore)
	}
	if !reflect.DeepEqual(snap, p.Snapshot()) {
		t.Error("stored snapshot should equal the in-memory snapshot")
	}
}

func TestPagerHydrateHitMakesNoFetch(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	seed := newHydratedPager(t, &fakeFetcher{t: t, sizes: []int{20, 20}}, s, 20, adapter.NullLogger())
	seed.LoadMore(ctx)
	seed.LoadMore(ctx)
	flush(t, seed)

	f := &fakeFetcher{t: t, sizes: []int{20, 20, 20}}
	p := NewPager(f, s, 20, adapter.NullLogger())
	if !p.Hydrate(ctx) {
		t.Fatal("expected hydration hit")
	}
	if f.callCount() != 0 {
		t.Errorf("hydration hit fetched %d pages", f.callCount())
	}
	if p.Len() != 40 || p.NextPage() != 2 || p.State() != StateIdle {
		t.Errorf("hydrated len=%d nextPage=%d state=%v", p.Len(), p.NextPage(), p.State())
	}

	// Loading continues from the stored page
	p.LoadMore(ctx)
	if f.calls[0] != 2 {
		t.Errorf("first fetch after hydration requested page %d, want 2", f.calls[0])
	}
}

func TestPagerHydrateExhaustedSnapshot(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	snap := domain.ListSnapshot{Items: []domain.Comment{{ID: 1, Author: "a"}}, NextPage: 1, HasMore: false}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f := &fakeFetcher{t: t}
	p := NewPager(f, s, 20, adapter.NullLogger())
	if !p.Hydrate(ctx) {
		t.Fatal("expected hydration hit")
	}
	if p.State() != StateExhausted {
		t.Errorf("state = %v, want exhausted", p.State())
	}
	if issued, _ := p.LoadMore(ctx); issued {
		t.Error("LoadMore on an exhausted snapshot should be a no-op")
	}
}

func TestPagerHydrateMissAndInconsistent(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		rec := metrics.NewRecorder(false)
		p := NewPager(&fakeFetcher{t: t}, newMemoryStore(t), 20, adapter.NullLogger(), WithMetrics(rec))
		if p.Hydrate(ctx) {
			t.Fatal("empty store should miss")
		}
		if p.State() != StateIdle {
			t.Errorf("state = %v, want idle", p.State())
		}
		if got := testutil.ToFloat64(rec.Hydrations.WithLabelValues(metrics.ResultMiss)); got != 1 {
			t.Errorf("miss counter = %v", got)
		}
	})

	t.Run("page size changed", func(t *testing.T) {
		s := newMemoryStore(t)
		items := make([]domain.Comment, 20)
		for i := range items {
			items[i] = domain.Comment{ID: int64(i + 1), Author: "a"}
		}
		s.Save(ctx, domain.ListSnapshot{Items: items, NextPage: 1, HasMore: true})

		p := NewPager(&fakeFetcher{t: t}, s, 25, adapter.NullLogger())
		if p.Hydrate(ctx) {
			t.Fatal("snapshot written with another page size should be ignored")
		}
		if p.Len() != 0 {
			t.Errorf("len = %d, want 0", p.Len())
		}
	})

	t.Run("nil store", func(t *testing.T) {
		p := NewPager(&fakeFetcher{t: t}, nil, 20, adapter.NullLogger())
		if p.Hydrate(ctx) {
			t.Fatal("nil store should miss")
		}
	})
}

func TestPagerHydrateOnlyOnce(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	p := NewPager(&fakeFetcher{t: t, sizes: []int{20}}, s, 20, adapter.NullLogger())

	p.Hydrate(ctx)
	p.LoadMore(ctx)
	flush(t, p)

	if p.Hydrate(ctx) {
		t.Error("Hydrate after loading should not adopt a snapshot")
	}
	if p.Len() != 20 {
		t.Errorf("len = %d, want 20", p.Len())
	}
}

func TestPagerRowVariants(t *testing.T) {
	p := newHydratedPager(t, &fakeFetcher{t: t, sizes: []int{20}}, nil, 20, adapter.NullLogger())
	p.LoadMore(context.Background())

	switch row := p.Row(5).(type) {
	case domain.LoadedRow:
		if row.Index != 5 || row.Comment.ID != 6 {
			t.Errorf("loaded row = %+v", row)
		}
	default:
		t.Fatalf("Row(5) = %T, want LoadedRow", row)
	}

	for _, idx := range []int{20, 1000, -1} {
		row, ok := p.Row(idx).(domain.PendingRow)
		if !ok {
			t.Fatalf("Row(%d) should be pending", idx)
		}
		if row.RowIndex() != idx {
			t.Errorf("pending row index = %d, want %d", row.RowIndex(), idx)
		}
	}
}

func TestPagerCloseDiscardsLateResults(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20}, gate: make(chan struct{})}
	s := newMemoryStore(t)
	p := newHydratedPager(t, f, s, 20, adapter.NullLogger())
	ctx := context.Background()

	page, ok := p.BeginLoad()
	if !ok {
		t.Fatal("BeginLoad should start a load")
	}
	done := make(chan struct{})
	var items []domain.Comment
	var err error
	go func() {
		defer close(done)
		items, err = p.Fetch(ctx, page)
	}()

	if err := p.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(f.gate)
	<-done

	if p.CompleteLoad(page, items, err) {
		t.Error("results arriving after Close should be discarded")
	}
	if p.Len() != 0 {
		t.Errorf("len = %d after close, want 0", p.Len())
	}
	if _, ok := s.Load(ctx); ok {
		t.Error("no snapshot should be written after close")
	}
	if issued, _ := p.LoadMore(ctx); issued {
		t.Error("LoadMore after Close should be a no-op")
	}
}

func TestPagerCompleteLoadIgnoresStalePage(t *testing.T) {
	p := newHydratedPager(t, &fakeFetcher{t: t}, nil, 2, adapter.NullLogger())
	if p.CompleteLoad(0, []domain.Comment{{ID: 1, Author: "a"}}, nil) {
		t.Error("CompleteLoad without BeginLoad should be ignored")
	}

	page, _ := p.BeginLoad()
	if p.CompleteLoad(page+1, nil, nil) {
		t.Error("CompleteLoad for another page should be ignored")
	}
	if p.State() != StateLoading {
		t.Errorf("state = %v, want still loading", p.State())
	}
}

func TestPagerReset(t *testing.T) {
	f := &fakeFetcher{t: t, sizes: []int{20, 3}}
	s := newMemoryStore(t)
	p := newHydratedPager(t, f, s, 20, adapter.NullLogger())
	ctx := context.Background()

	p.LoadMore(ctx)
	p.LoadMore(ctx)
	if p.State() != StateExhausted {
		t.Fatalf("state = %v, want exhausted", p.State())
	}

	if err := p.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p.Len() != 0 || p.NextPage() != 0 || !p.LoadState().HasMore || p.State() != StateIdle {
		t.Errorf("after reset len=%d nextPage=%d state=%v", p.Len(), p.NextPage(), p.State())
	}
	if _, ok := s.Load(ctx); ok {
		t.Error("reset should clear the stored snapshot")
	}

	p.LoadMore(ctx)
	if f.calls[len(f.calls)-1] != 0 {
		t.Errorf("first load after reset requested page %d, want 0", f.calls[len(f.calls)-1])
	}
}

// failingStore loads nothing and fails every write
type failingStore struct {
	saves int32
}

func (s *failingStore) Save(context.Context, domain.ListSnapshot) error {
	atomic.AddInt32(&s.saves, 1)
	return errors.New("disk full")
}
func (s *failingStore) Load(context.Context) (domain.ListSnapshot, bool) { return domain.ListSnapshot{}, false }
func (s *failingStore) Clear(context.Context) error                      { return nil }
func (s *failingStore) Close() error                                     { return nil }

func TestPagerWriteFailureIsNotFatal(t *testing.T) {
	fs := &failingStore{}
	rec := metrics.NewRecorder(false)
	p := newHydratedPager(t, &fakeFetcher{t: t, sizes: []int{20, 20}}, fs, 20, adapter.NullLogger(), WithMetrics(rec))
	ctx := context.Background()

	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	flush(t, p)

	if p.Len() != 40 {
		t.Errorf("len = %d, want 40", p.Len())
	}
	if atomic.LoadInt32(&fs.saves) != 2 {
		t.Errorf("saves = %d, want 2", fs.saves)
	}
	if got := testutil.ToFloat64(rec.SnapshotWrites.WithLabelValues(metrics.ResultError)); got != 2 {
		t.Errorf("write errors = %v, want 2", got)
	}
}

func TestPagerDefaultPageSize(t *testing.T) {
	p := NewPager(&fakeFetcher{t: t}, nil, 0, nil)
	if p.PageSize() != domain.DefaultPageSize {
		t.Errorf("page size = %d, want %d", p.PageSize(), domain.DefaultPageSize)
	}
}

// slowFirstStore holds the page 1 snapshot back until the page 2 snapshot
// has been saved, or a short timeout passes when writes are serialized.
type slowFirstStore struct {
	domain.SnapshotStore
	secondSaved chan struct{}
	once        sync.Once
}

func (s *slowFirstStore) Save(ctx context.Context, snap domain.ListSnapshot) error {
	if snap.NextPage == 1 {
		select {
		case <-s.secondSaved:
		case <-time.After(200 * time.Millisecond):
		}
	}
	err := s.SnapshotStore.Save(ctx, snap)
	if snap.NextPage == 2 {
		s.once.Do(func() { close(s.secondSaved) })
	}
	return err
}

func TestPagerSnapshotNeverMovesBackwards(t *testing.T) {
	mem := newMemoryStore(t)
	s := &slowFirstStore{SnapshotStore: mem, secondSaved: make(chan struct{})}
	p := newHydratedPager(t, &fakeFetcher{t: t, sizes: []int{20, 20}}, s, 20, adapter.NullLogger())
	ctx := context.Background()

	p.LoadMore(ctx)
	p.LoadMore(ctx)
	flush(t, p)

	snap, ok := mem.Load(ctx)
	if !ok {
		t.Fatal("expected a stored snapshot")
	}
	if snap.NextPage != 2 || len(snap.Items) != 40 {
		t.Errorf("stored snapshot has page %d and %d items, want 2 and 40", snap.NextPage, len(snap.Items))
	}
}

func TestPagerLoadMoreBeforeHydrateIsNoop(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	items := make([]domain.Comment, 20)
	for i := range items {
		items[i] = domain.Comment{ID: int64(i + 1), Author: "a"}
	}
	if err := s.Save(ctx, domain.ListSnapshot{Items: items, NextPage: 1, HasMore: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f := &fakeFetcher{t: t, sizes: []int{20, 20}}
	p := NewPager(f, s, 20, adapter.NullLogger())
	if issued, err := p.LoadMore(ctx); issued || err != nil {
		t.Fatalf("LoadMore before Hydrate = %v, %v; want no-op", issued, err)
	}
	if _, ok := p.BeginLoad(); ok {
		t.Fatal("BeginLoad before Hydrate should refuse")
	}
	if f.callCount() != 0 {
		t.Errorf("fetcher called %d times before hydration", f.callCount())
	}

	if !p.Hydrate(ctx) {
		t.Fatal("stored snapshot should still hydrate")
	}
	if p.Len() != 20 || p.NextPage() != 1 {
		t.Errorf("hydrated len=%d nextPage=%d, want 20 and 1", p.Len(), p.NextPage())
	}
}
