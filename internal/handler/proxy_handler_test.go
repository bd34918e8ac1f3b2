package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/service"
)

func newProxyRouter(target string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	proxy := NewProxyHandler(target, service.NewMetricsService(), nil)
	router.NoRoute(proxy.Handle)
	return router
}

func TestProxyPassThrough(t *testing.T) {
	var gotPath, gotQuery, gotHeader, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Custom")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("X-Backend", "edms")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer backend.Close()

	// The reverse proxy needs a real server-side ResponseWriter, so the
	// router is exercised over a live listener instead of a recorder.
	gateway := httptest.NewServer(newProxyRouter(backend.URL))
	defer gateway.Close()

	req, err := http.NewRequest(http.MethodPost, gateway.URL+"/api/legacy/reports?year=2026", strings.NewReader(`{"kind":"annual"}`))
	require.NoError(t, err)
	req.Header.Set("X-Custom", "forwarded")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/api/legacy/reports", gotPath)
	assert.Equal(t, "year=2026", gotQuery)
	assert.Equal(t, "forwarded", gotHeader)
	assert.Equal(t, `{"kind":"annual"}`, gotBody)
	assert.Equal(t, "edms", resp.Header.Get("X-Backend"))
	assert.JSONEq(t, `{"ok":true}`, string(respBody))
}

func TestProxyUnconfiguredTarget(t *testing.T) {
	router := newProxyRouter("")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anything", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"proxy target is not configured"}`, rec.Body.String())
}

func TestProxyBackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close()

	router := newProxyRouter(backend.URL)
	rec := httptest.NewRecorder()
	// ReverseProxy falls back to http.CloseNotifier when the request context
	// is not cancellable, which the recorder does not implement; a cancellable
	// context keeps it on the context-based path.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/anything", nil).WithContext(ctx))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"could not reach server"}`, rec.Body.String())
}
