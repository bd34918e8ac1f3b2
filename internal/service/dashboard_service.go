package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
)

// EmployeeLister serves the dashboard's list and counter queries.
type EmployeeLister interface {
	ListEmployees(ctx context.Context, filter dto.EmployeeFilter) (*dto.EmployeeListResponse, error)
	EmployeeCounters(ctx context.Context) (*dto.DashboardCounters, error)
}

// Category filter values. Selecting a counter card narrows the list to that
// category; the filters are mutually exclusive with CategoryTotal as the
// unfiltered default.
const (
	CategoryTotal            = ""
	CategoryActiveWarrants   = "active_warrants"
	CategoryInactiveWarrants = "inactive_warrants"
	CategoryExpiringSoon     = "expiring_soon"
)

// DashboardState is a render snapshot of the list view.
type DashboardState struct {
	Items          []models.EmployeeSummary
	TotalCount     int
	Counters       dto.DashboardCounters
	Loading        bool
	Search         string
	StatusFilter   string
	CategoryFilter string
	Err            error
}

// Dashboard drives the archive list: a debounced free-text search combined
// with a status filter and a category filter. Every filter change replaces
// the whole page but leaves the counters alone; the counters recompute only
// on a refresh, driven by the caller's refresh counter, so the cards stay
// stable while the user narrows the list.
type Dashboard struct {
	mu     sync.Mutex
	lister EmployeeLister
	logger *zap.Logger

	debounce time.Duration
	onChange func(DashboardState)

	state      DashboardState
	timer      *time.Timer
	pendingSeq uint64
	cancel     context.CancelFunc
	gen        uint64
	refreshCtr uint64
	closed     bool
}

// NewDashboard builds an idle dashboard. Call Refresh to load the first page.
func NewDashboard(lister EmployeeLister, debounce time.Duration, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Dashboard{
		lister:   lister,
		logger:   logger,
		debounce: debounce,
	}
}

// OnChange registers the render callback, invoked outside the lock.
func (d *Dashboard) OnChange(fn func(DashboardState)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// State returns the current snapshot.
func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetSearch updates the free-text term. The refetch waits for a quiet
// period so a fast typist costs one request, not one per keystroke.
func (d *Dashboard) SetSearch(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.state.Search == text {
		return
	}
	d.state.Search = text
	d.pendingSeq++
	seq := d.pendingSeq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, func() { d.fireSearch(seq) })
}

func (d *Dashboard) fireSearch(seq uint64) {
	d.mu.Lock()
	if d.closed || seq != d.pendingSeq {
		d.mu.Unlock()
		return
	}
	d.pendingSeq++
	d.refreshLocked(false)
}

// SetStatusFilter narrows the list to one archive status. Empty clears it.
// The list refetch is immediate; the counters are not touched.
func (d *Dashboard) SetStatusFilter(statusID string) {
	d.mu.Lock()
	if d.closed || d.state.StatusFilter == statusID {
		d.mu.Unlock()
		return
	}
	d.state.StatusFilter = statusID
	d.refreshLocked(false)
}

// SetCategoryFilter applies one counter-card category. Selecting the active
// category again returns to the unfiltered total. Only the list reloads.
func (d *Dashboard) SetCategoryFilter(category string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.state.CategoryFilter == category {
		category = CategoryTotal
	}
	d.state.CategoryFilter = category
	d.refreshLocked(false)
}

// SetRefreshCounter applies the caller's refresh generation. A changed value
// reloads the list and recomputes the counters under the current filters;
// repeating the current value is a no-op.
func (d *Dashboard) SetRefreshCounter(n uint64) {
	d.mu.Lock()
	if d.closed || d.refreshCtr == n {
		d.mu.Unlock()
		return
	}
	d.refreshCtr = n
	d.refreshLocked(true)
}

// Refresh bumps the refresh generation itself, reloading the current page
// and the counters.
func (d *Dashboard) Refresh() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.refreshCtr++
	d.refreshLocked(true)
}

// Close cancels pending work. Further calls are no-ops.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pendingSeq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// refreshLocked starts a new generation: the previous fetch is cancelled
// and its late result, if any, is discarded. Unlocks d.mu.
func (d *Dashboard) refreshLocked(withCounters bool) {
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen := d.gen
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.state.Loading = true
	d.state.Err = nil
	filter := dto.EmployeeFilter{
		Search:     d.state.Search,
		Status:     d.state.StatusFilter,
		FilterType: d.state.CategoryFilter,
	}
	state := d.state
	d.mu.Unlock()
	d.notify(state)

	go d.run(ctx, gen, filter, withCounters)
}

func (d *Dashboard) run(ctx context.Context, gen uint64, filter dto.EmployeeFilter, withCounters bool) {
	var (
		list     *dto.EmployeeListResponse
		counters *dto.DashboardCounters
		listErr  error
		cntErr   error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		list, listErr = d.lister.ListEmployees(ctx, filter)
	}()
	if withCounters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counters, cntErr = d.lister.EmployeeCounters(ctx)
		}()
	}
	wg.Wait()

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.cancel = nil
	d.state.Loading = false
	switch {
	case listErr != nil:
		if errors.Is(listErr, context.Canceled) {
			d.mu.Unlock()
			return
		}
		d.logger.Warn("dashboard list fetch failed", zap.Error(listErr))
		d.state.Err = listErr
	default:
		d.state.Items = list.Items
		d.state.TotalCount = list.TotalCount
	}
	if cntErr == nil && counters != nil {
		d.state.Counters = *counters
	} else if cntErr != nil && !errors.Is(cntErr, context.Canceled) {
		d.logger.Warn("dashboard counters fetch failed", zap.Error(cntErr))
	}
	state := d.state
	d.mu.Unlock()
	d.notify(state)
}

func (d *Dashboard) notify(state DashboardState) {
	d.mu.Lock()
	fn := d.onChange
	d.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
