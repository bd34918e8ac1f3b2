package handler

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/service"
)

// ProxyHandler forwards any route the gateway does not implement straight
// to the archive backend, preserving method, path, query, headers and body.
type ProxyHandler struct {
	proxy   *httputil.ReverseProxy
	metrics *service.MetricsService
	logger  *zap.Logger
}

// NewProxyHandler constructs the pass-through proxy. A nil or empty target
// leaves the proxy unconfigured; every request then fails with a fixed 500
// instead of a panic.
func NewProxyHandler(target string, metrics *service.MetricsService, logger *zap.Logger) *ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ProxyHandler{metrics: metrics, logger: logger}

	parsed, err := url.Parse(target)
	if target == "" || err != nil || parsed.Host == "" {
		if target != "" {
			logger.Warn("proxy target invalid", zap.String("target", target), zap.Error(err))
		}
		return h
	}

	proxy := httputil.NewSingleHostReverseProxy(parsed)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy request failed", zap.String("path", r.URL.Path), zap.Error(err))
		metrics.ObserveProxyRequest(http.StatusBadGateway)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"could not reach server"}`))
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		metrics.ObserveProxyRequest(resp.StatusCode)
		return nil
	}
	h.proxy = proxy
	return h
}

// Handle serves as the gin NoRoute handler.
func (h *ProxyHandler) Handle(c *gin.Context) {
	if h.proxy == nil {
		h.metrics.ObserveProxyRequest(http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "proxy target is not configured"})
		return
	}
	h.proxy.ServeHTTP(c.Writer, c.Request)
}
