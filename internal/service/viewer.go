package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/client"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

// DocumentFetcher retrieves stored document content.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, id string) (*client.DocumentContent, error)
}

// ObjectRegistry hands out revocable references to in-memory buffers, so a
// viewer can hold large image bytes without leaking them past its lifetime.
type ObjectRegistry struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewObjectRegistry builds an empty registry.
func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{objects: map[string][]byte{}}
}

// Register stores the buffer and returns its reference.
func (r *ObjectRegistry) Register(data []byte) string {
	ref := uuid.NewString()
	r.mu.Lock()
	r.objects[ref] = data
	r.mu.Unlock()
	return ref
}

// Resolve returns the buffer behind a reference.
func (r *ObjectRegistry) Resolve(ref string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.objects[ref]
	return data, ok
}

// Revoke releases the buffer. Revoking an unknown reference is a no-op.
func (r *ObjectRegistry) Revoke(ref string) {
	r.mu.Lock()
	delete(r.objects, ref)
	r.mu.Unlock()
}

// Len reports the number of live references.
func (r *ObjectRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

// Zoom bounds. The scale never drops below the minimum and moves in fixed
// steps from the reset value.
const (
	zoomMin   = 0.2
	zoomStep  = 0.2
	zoomReset = 1.0
)

// ViewerState is a snapshot of the overlay for rendering.
type ViewerState struct {
	Open        bool
	Loading     bool
	IsImage     bool
	ObjectRef   string
	ContentType string
	Zoom        float64
	Err         error
}

// ViewerOverlay previews a stored document. Image content is buffered whole
// and exposed through a revocable object reference; everything else (PDFs)
// is surfaced by content type for inline embedding. Opening a new document
// or closing the overlay cancels any in-flight fetch and revokes the
// previous buffer.
type ViewerOverlay struct {
	mu       sync.Mutex
	fetcher  DocumentFetcher
	registry *ObjectRegistry
	logger   *zap.Logger

	onChange func(ViewerState)

	open        bool
	loading     bool
	isImage     bool
	objectRef   string
	contentType string
	zoom        float64
	lastErr     error

	cancel context.CancelFunc
	gen    uint64
}

// NewViewerOverlay builds a closed overlay using the shared registry.
func NewViewerOverlay(fetcher DocumentFetcher, registry *ObjectRegistry, logger *zap.Logger) *ViewerOverlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewObjectRegistry()
	}
	return &ViewerOverlay{
		fetcher:  fetcher,
		registry: registry,
		logger:   logger,
		zoom:     zoomReset,
	}
}

// OnChange registers the render callback, invoked outside the lock.
func (v *ViewerOverlay) OnChange(fn func(ViewerState)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// State returns the current snapshot.
func (v *ViewerOverlay) State() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Open starts fetching the document and shows the overlay in its loading
// state. Re-opening discards whatever the previous document held.
func (v *ViewerOverlay) Open(ctx context.Context, documentID string) {
	v.mu.Lock()
	v.resetContentLocked()
	v.gen++
	gen := v.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.open = true
	v.loading = true
	v.zoom = zoomReset
	v.lastErr = nil
	state := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(state)

	go v.fetch(fetchCtx, gen, documentID)
}

func (v *ViewerOverlay) fetch(ctx context.Context, gen uint64, documentID string) {
	content, err := v.fetcher.FetchDocument(ctx, documentID)
	var data []byte
	if err == nil {
		data, err = io.ReadAll(content.Body)
		closeErr := content.Body.Close()
		if err == nil {
			err = closeErr
		}
	}

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.cancel = nil
	v.loading = false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			v.mu.Unlock()
			return
		}
		v.logger.Warn("document fetch failed", zap.String("document_id", documentID), zap.Error(err))
		v.lastErr = appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "could not load the document")
		state := v.snapshotLocked()
		v.mu.Unlock()
		v.notify(state)
		return
	}
	v.contentType = content.ContentType
	if strings.HasPrefix(content.ContentType, "image/") {
		v.isImage = true
		v.objectRef = v.registry.Register(data)
	}
	state := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(state)
}

// ZoomIn raises the scale by one step.
func (v *ViewerOverlay) ZoomIn() {
	v.adjustZoom(zoomStep)
}

// ZoomOut lowers the scale by one step, clamped at the minimum.
func (v *ViewerOverlay) ZoomOut() {
	v.adjustZoom(-zoomStep)
}

// ResetZoom restores the default scale.
func (v *ViewerOverlay) ResetZoom() {
	v.mu.Lock()
	v.zoom = zoomReset
	state := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(state)
}

func (v *ViewerOverlay) adjustZoom(delta float64) {
	v.mu.Lock()
	next := v.zoom + delta
	if next < zoomMin {
		next = zoomMin
	}
	v.zoom = next
	state := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(state)
}

// Close dismisses the overlay, cancels a pending fetch and revokes the
// buffered content. Escape, an outside click and the explicit close control
// all route here.
func (v *ViewerOverlay) Close() {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return
	}
	v.resetContentLocked()
	// A late response from a fetcher that ignored cancellation must not
	// register a buffer after the overlay is gone.
	v.gen++
	v.open = false
	v.loading = false
	v.lastErr = nil
	v.zoom = zoomReset
	state := v.snapshotLocked()
	v.mu.Unlock()
	v.notify(state)
}

// EscapeKey is an alias of Close for the keyboard path.
func (v *ViewerOverlay) EscapeKey() { v.Close() }

// OutsideClick is an alias of Close for the backdrop path.
func (v *ViewerOverlay) OutsideClick() { v.Close() }

// Teardown releases everything the overlay holds.
func (v *ViewerOverlay) Teardown() {
	v.Close()
}

// Zoom reports the current scale as a formatted percentage.
func (v *ViewerOverlay) ZoomLabel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fmt.Sprintf("%d%%", int(v.zoom*100+0.5))
}

func (v *ViewerOverlay) resetContentLocked() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.objectRef != "" {
		v.registry.Revoke(v.objectRef)
		v.objectRef = ""
	}
	v.isImage = false
	v.contentType = ""
}

func (v *ViewerOverlay) snapshotLocked() ViewerState {
	return ViewerState{
		Open:        v.open,
		Loading:     v.loading,
		IsImage:     v.isImage,
		ObjectRef:   v.objectRef,
		ContentType: v.contentType,
		Zoom:        v.zoom,
		Err:         v.lastErr,
	}
}

func (v *ViewerOverlay) notify(state ViewerState) {
	v.mu.Lock()
	fn := v.onChange
	v.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
