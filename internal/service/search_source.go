package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SearchItem is one row of a remote, keyed search collection.
type SearchItem struct {
	ID   string
	Name string
	Code string
}

// SearchFetcher loads one page (1-based) of results for a query. It reports
// whether further pages exist.
type SearchFetcher func(ctx context.Context, query string, page int) ([]SearchItem, bool, error)

// SearchState is an immutable snapshot of a SearchSource. Pending is true
// while a debounced query is waiting out its quiet period; Fetching is true
// while a request is in flight. Consumers that render a spinner should treat
// the two the same.
type SearchState struct {
	QueryText  string
	PageNumber int
	HasMore    bool
	Pending    bool
	Fetching   bool
	Items      []SearchItem
}

// SearchSource wraps a keyed, paginated remote collection behind a text
// query. It owns debouncing and the cancellation of superseded requests:
// at most one request is in flight per instance, a new request cancels the
// prior one, and a canceled request's eventual resolution is discarded
// without touching state.
type SearchSource struct {
	mu       sync.Mutex
	fetch    SearchFetcher
	debounce time.Duration
	logger   *zap.Logger
	onChange func(SearchState)

	state      SearchState
	timer      *time.Timer
	pendingSeq uint64
	cancel     context.CancelFunc
	gen        uint64
	closed     bool
}

// NewSearchSource builds a source around the fetcher. A non-positive
// debounce falls back to 300ms.
func NewSearchSource(fetch SearchFetcher, debounce time.Duration, logger *zap.Logger) *SearchSource {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchSource{
		fetch:    fetch,
		debounce: debounce,
		logger:   logger,
		state:    SearchState{PageNumber: 1},
	}
}

// OnChange registers a callback invoked with a state snapshot after every
// transition. The callback must operate on the snapshot only.
func (s *SearchSource) OnChange(fn func(SearchState)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns a snapshot of the current query state.
func (s *SearchSource) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetQuery records the raw input text and schedules a page-1 fetch after the
// quiet period. Re-invocations within the quiet period re-arm the timer, so
// only the final text value is fetched. When reset is true the accumulated
// items are cleared immediately; otherwise they stay visible until the fresh
// page replaces them.
func (s *SearchSource) SetQuery(text string, reset bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.QueryText = text
	s.state.PageNumber = 1
	if reset {
		s.state.Items = nil
		s.state.HasMore = false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pendingSeq++
	seq := s.pendingSeq
	s.state.Pending = true
	s.timer = time.AfterFunc(s.debounce, func() {
		s.fire(seq)
	})
	snap := s.snapshotLocked()
	notify := s.onChange
	s.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
}

// Flush fires a pending debounced query immediately. Callers that need an
// undebounced refresh (filter card clicks) use SetQuery followed by Flush.
func (s *SearchSource) Flush() {
	s.mu.Lock()
	if s.closed || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer.Stop()
	seq := s.pendingSeq
	s.mu.Unlock()
	s.fire(seq)
}

// NextPage requests the following page, appending to the accumulated items.
// It reports whether a fetch was started: only when more results exist and
// no request is in flight.
func (s *SearchSource) NextPage() bool {
	s.mu.Lock()
	if s.closed || s.state.Fetching || !s.state.HasMore {
		s.mu.Unlock()
		return false
	}
	snap, notify := s.beginFetchLocked(s.state.QueryText, s.state.PageNumber+1, true)
	s.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
	return true
}

// Close cancels any in-flight request and pending debounce. The source is
// inert afterwards; teardown must never leak a request.
func (s *SearchSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state.Pending = false
	s.pendingSeq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *SearchSource) fire(seq uint64) {
	s.mu.Lock()
	// A superseded timer that lost the race to Stop must not fetch.
	if s.closed || seq != s.pendingSeq {
		s.mu.Unlock()
		return
	}
	// Consume the pending slot so a Flush/timer race fires exactly once.
	s.pendingSeq++
	s.timer = nil
	s.state.Pending = false
	snap, notify := s.beginFetchLocked(s.state.QueryText, 1, false)
	s.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
}

// beginFetchLocked cancels any in-flight request and issues a new one.
// Ordering is guaranteed by cancellation before issuance, never by
// timestamp comparison after the fact.
func (s *SearchSource) beginFetchLocked(query string, page int, appendItems bool) (SearchState, func(SearchState)) {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state.Fetching = true

	go s.run(ctx, gen, query, page, appendItems)
	return s.snapshotLocked(), s.onChange
}

func (s *SearchSource) run(ctx context.Context, gen uint64, query string, page int, appendItems bool) {
	items, hasMore, err := s.fetch(ctx, query, page)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		// Superseded: the result (or error) of a canceled request is
		// discarded without being applied or surfaced.
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	s.state.Fetching = false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.mu.Unlock()
			return
		}
		// Previous page data is retained; no automatic retry.
		logger := s.logger
		snap := s.snapshotLocked()
		notify := s.onChange
		s.mu.Unlock()
		logger.Warn("search fetch failed",
			zap.String("query", query),
			zap.Int("page", page),
			zap.Error(err),
		)
		if notify != nil {
			notify(snap)
		}
		return
	}

	if appendItems {
		s.state.Items = append(s.state.Items, items...)
	} else {
		s.state.Items = items
	}
	s.state.PageNumber = page
	s.state.HasMore = hasMore
	snap := s.snapshotLocked()
	notify := s.onChange
	s.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
}

func (s *SearchSource) snapshotLocked() SearchState {
	snap := s.state
	snap.Items = make([]SearchItem, len(s.state.Items))
	copy(snap.Items, s.state.Items)
	return snap
}
