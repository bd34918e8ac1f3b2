package service

import (
	"fmt"
	"sync"
	"time"
)

// SelectControlState enumerates the control's UI states.
type SelectControlState int

const (
	SelectClosed SelectControlState = iota
	SelectOpenEmpty
	SelectOpenLoading
	SelectOpenPopulated
	SelectOpenEndOfResults
)

func (s SelectControlState) String() string {
	switch s {
	case SelectClosed:
		return "closed"
	case SelectOpenEmpty:
		return "open-empty"
	case SelectOpenLoading:
		return "open-loading"
	case SelectOpenPopulated:
		return "open-populated"
	case SelectOpenEndOfResults:
		return "open-end-of-results"
	default:
		return "unknown"
	}
}

// SelectControl is the incremental, cancelable, paginated search-select
// control. It consumes a SearchSource and tracks the distinction between
// provisional text and a confirmed selection: text edits alone never select.
type SelectControl struct {
	mu     sync.Mutex
	source *SearchSource

	state       SelectControlState
	open        bool
	disabled    bool
	selectedID  string
	displayText string

	blurGrace time.Duration
	blurTimer *time.Timer
	blurSeq   uint64

	onSelect func(id string)
}

// NewSelectControl wires the control to its search source. The selection
// callback is invoked synchronously on every pick and on deselection (empty
// id). The grace delay lets a pointer selection land before a blur closes
// the list.
func NewSelectControl(source *SearchSource, blurGrace time.Duration, onSelect func(id string)) *SelectControl {
	if blurGrace <= 0 {
		blurGrace = 150 * time.Millisecond
	}
	c := &SelectControl{
		source:    source,
		state:     SelectClosed,
		blurGrace: blurGrace,
		onSelect:  onSelect,
	}
	source.OnChange(c.sourceChanged)
	return c
}

// State returns the control's current UI state.
func (c *SelectControl) State() SelectControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectedID returns the confirmed selection, or "" when only provisional
// text is present.
func (c *SelectControl) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// DisplayText returns the text currently shown in the control.
func (c *SelectControl) DisplayText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayText
}

// SetDisabled freezes the control: no open state is reachable while
// disabled. Used to lock the base-identity picker when editing an existing
// record.
func (c *SelectControl) SetDisabled(disabled bool) {
	c.mu.Lock()
	c.disabled = disabled
	if disabled {
		c.open = false
		c.state = SelectClosed
		c.stopBlurTimerLocked()
	}
	c.mu.Unlock()
}

// Focus opens the list.
func (c *SelectControl) Focus() {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return
	}
	c.stopBlurTimerLocked()
	c.open = true
	c.recomputeLocked(c.source.State())
	c.mu.Unlock()
}

// EditText records a keystroke. The confirmed selection, if any, is cleared
// and reported to the selection callback as an empty id; the new text is
// provisional until a fresh pick. A debounced fresh query is scheduled
// regardless, including for empty text.
func (c *SelectControl) EditText(text string) {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return
	}
	c.stopBlurTimerLocked()
	deselected := c.selectedID != ""
	c.selectedID = ""
	c.displayText = text
	c.open = true
	c.state = SelectOpenLoading
	notify := c.onSelect
	c.mu.Unlock()
	if deselected && notify != nil {
		notify("")
	}
	c.source.SetQuery(text, true)
}

// Blur schedules a close after the grace delay so that a pointer selection
// in flight can register first.
func (c *SelectControl) Blur() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.stopBlurTimerLocked()
	c.blurSeq++
	seq := c.blurSeq
	c.blurTimer = time.AfterFunc(c.blurGrace, func() {
		c.mu.Lock()
		if seq == c.blurSeq {
			c.open = false
			c.state = SelectClosed
		}
		c.mu.Unlock()
	})
	c.mu.Unlock()
}

// OutsideClick closes the list immediately.
func (c *SelectControl) OutsideClick() {
	c.closeNow()
}

// EscapeKey closes the list immediately.
func (c *SelectControl) EscapeKey() {
	c.closeNow()
}

// ScrollNearBottom triggers the next page fetch while more results exist
// and no request is in flight. The list stays open and loading until the
// fetch resolves.
func (c *SelectControl) ScrollNearBottom() {
	c.mu.Lock()
	if c.disabled || !c.open {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if c.source.NextPage() {
		c.mu.Lock()
		c.state = SelectOpenLoading
		c.mu.Unlock()
	}
}

// SelectItem commits the pick: the display text is rewritten to the
// canonical "name (code)" form, the list closes, and the caller's callback
// runs synchronously.
func (c *SelectControl) SelectItem(item SearchItem) {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return
	}
	c.stopBlurTimerLocked()
	c.selectedID = item.ID
	c.displayText = fmt.Sprintf("%s (%s)", item.Name, item.Code)
	c.open = false
	c.state = SelectClosed
	notify := c.onSelect
	c.mu.Unlock()
	if notify != nil {
		notify(item.ID)
	}
}

// Teardown closes the control and its source, canceling outstanding work.
func (c *SelectControl) Teardown() {
	c.mu.Lock()
	c.stopBlurTimerLocked()
	c.open = false
	c.state = SelectClosed
	c.mu.Unlock()
	c.source.Close()
}

func (c *SelectControl) closeNow() {
	c.mu.Lock()
	c.stopBlurTimerLocked()
	c.open = false
	c.state = SelectClosed
	c.mu.Unlock()
}

func (c *SelectControl) sourceChanged(snap SearchState) {
	c.mu.Lock()
	if c.open {
		c.recomputeLocked(snap)
	}
	c.mu.Unlock()
}

func (c *SelectControl) recomputeLocked(snap SearchState) {
	switch {
	case snap.Pending || snap.Fetching:
		c.state = SelectOpenLoading
	case len(snap.Items) == 0:
		c.state = SelectOpenEmpty
	case !snap.HasMore:
		c.state = SelectOpenEndOfResults
	default:
		c.state = SelectOpenPopulated
	}
}

func (c *SelectControl) stopBlurTimerLocked() {
	c.blurSeq++
	if c.blurTimer != nil {
		c.blurTimer.Stop()
		c.blurTimer = nil
	}
}
