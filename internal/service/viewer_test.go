package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/client"
)

type fakeDocumentFetcher struct {
	contentType string
	payload     string
	delay       time.Duration
	err         error
}

func (f *fakeDocumentFetcher) FetchDocument(ctx context.Context, id string) (*client.DocumentContent, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &client.DocumentContent{
		ContentType: f.contentType,
		Size:        int64(len(f.payload)),
		Body:        io.NopCloser(strings.NewReader(f.payload)),
	}, nil
}

func TestObjectRegistryRegisterResolveRevoke(t *testing.T) {
	registry := NewObjectRegistry()

	ref := registry.Register([]byte("pixels"))
	data, ok := registry.Resolve(ref)
	require.True(t, ok)
	assert.Equal(t, []byte("pixels"), data)

	registry.Revoke(ref)
	_, ok = registry.Resolve(ref)
	assert.False(t, ok)
	assert.Zero(t, registry.Len())

	// Revoking twice is harmless.
	registry.Revoke(ref)
}

func TestViewerBuffersImages(t *testing.T) {
	registry := NewObjectRegistry()
	viewer := NewViewerOverlay(&fakeDocumentFetcher{contentType: "image/png", payload: "png-bytes"}, registry, nil)

	viewer.Open(context.Background(), "doc-1")
	require.Eventually(t, func() bool { return !viewer.State().Loading }, time.Second, time.Millisecond)

	state := viewer.State()
	require.True(t, state.Open)
	require.True(t, state.IsImage)
	require.NotEmpty(t, state.ObjectRef)
	assert.Equal(t, 1.0, state.Zoom)

	data, ok := registry.Resolve(state.ObjectRef)
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))
}

func TestViewerEmbedsNonImages(t *testing.T) {
	registry := NewObjectRegistry()
	viewer := NewViewerOverlay(&fakeDocumentFetcher{contentType: "application/pdf", payload: "%PDF"}, registry, nil)

	viewer.Open(context.Background(), "doc-2")
	require.Eventually(t, func() bool { return !viewer.State().Loading }, time.Second, time.Millisecond)

	state := viewer.State()
	assert.False(t, state.IsImage)
	assert.Empty(t, state.ObjectRef)
	assert.Equal(t, "application/pdf", state.ContentType)
	// Nothing was buffered.
	assert.Zero(t, registry.Len())
}

func TestViewerCloseRevokesBuffer(t *testing.T) {
	registry := NewObjectRegistry()
	viewer := NewViewerOverlay(&fakeDocumentFetcher{contentType: "image/jpeg", payload: "jpg"}, registry, nil)

	viewer.Open(context.Background(), "doc-3")
	require.Eventually(t, func() bool { return viewer.State().ObjectRef != "" }, time.Second, time.Millisecond)

	viewer.Close()
	state := viewer.State()
	assert.False(t, state.Open)
	assert.Empty(t, state.ObjectRef)
	assert.Zero(t, registry.Len())
}

func TestViewerReopenRevokesPrevious(t *testing.T) {
	registry := NewObjectRegistry()
	viewer := NewViewerOverlay(&fakeDocumentFetcher{contentType: "image/png", payload: "img"}, registry, nil)

	viewer.Open(context.Background(), "doc-a")
	require.Eventually(t, func() bool { return viewer.State().ObjectRef != "" }, time.Second, time.Millisecond)
	firstRef := viewer.State().ObjectRef

	viewer.Open(context.Background(), "doc-b")
	require.Eventually(t, func() bool {
		state := viewer.State()
		return state.ObjectRef != "" && state.ObjectRef != firstRef
	}, time.Second, time.Millisecond)

	_, ok := registry.Resolve(firstRef)
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Len())
}

func TestViewerZoomBounds(t *testing.T) {
	viewer := NewViewerOverlay(&fakeDocumentFetcher{contentType: "image/png", payload: "x"}, nil, nil)

	assert.InDelta(t, 1.0, viewer.State().Zoom, 1e-9)

	viewer.ZoomIn()
	assert.InDelta(t, 1.2, viewer.State().Zoom, 1e-9)

	for i := 0; i < 10; i++ {
		viewer.ZoomOut()
	}
	// Clamped at the minimum, never zero or negative.
	assert.InDelta(t, 0.2, viewer.State().Zoom, 1e-9)

	viewer.ZoomOut()
	assert.InDelta(t, 0.2, viewer.State().Zoom, 1e-9)

	viewer.ResetZoom()
	assert.InDelta(t, 1.0, viewer.State().Zoom, 1e-9)
	assert.Equal(t, "100%", viewer.ZoomLabel())
}

func TestViewerCloseCancelsFetch(t *testing.T) {
	registry := NewObjectRegistry()
	viewer := NewViewerOverlay(&fakeDocumentFetcher{contentType: "image/png", payload: "late", delay: 50 * time.Millisecond}, registry, nil)

	viewer.Open(context.Background(), "doc-slow")
	viewer.Close()

	time.Sleep(80 * time.Millisecond)
	state := viewer.State()
	assert.False(t, state.Open)
	assert.Empty(t, state.ObjectRef)
	assert.Zero(t, registry.Len())
}

func TestViewerFetchErrorSurfaces(t *testing.T) {
	viewer := NewViewerOverlay(&fakeDocumentFetcher{err: io.ErrUnexpectedEOF}, nil, nil)

	viewer.Open(context.Background(), "doc-err")
	require.Eventually(t, func() bool { return viewer.State().Err != nil }, time.Second, time.Millisecond)

	state := viewer.State()
	assert.True(t, state.Open)
	assert.False(t, state.Loading)
}
