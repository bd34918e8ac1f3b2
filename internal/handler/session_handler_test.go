package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/middleware"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/pkg/config"
)

func newSessionRouter(search config.SearchConfig, sess *models.SessionContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/session", func(c *gin.Context) {
		if sess != nil {
			c.Set(middleware.ContextSessionKey, sess)
		}
		NewSessionHandler(search).Current(c)
	})
	return router
}

func TestSessionCurrentIncludesSearchSettings(t *testing.T) {
	router := newSessionRouter(
		config.SearchConfig{DebounceInterval: 450 * time.Millisecond, PageSize: 25},
		&models.SessionContext{Username: "tester", SecurityLevel: 3, CanEdit: true},
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Username      string `json:"username"`
		SecurityLevel int    `json:"security_level"`
		CanEdit       bool   `json:"can_edit"`
		Search        struct {
			DebounceMs int64 `json:"debounce_ms"`
			PageSize   int   `json:"page_size"`
		} `json:"search"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tester", body.Username)
	assert.True(t, body.CanEdit)
	assert.Equal(t, int64(450), body.Search.DebounceMs)
	assert.Equal(t, 25, body.Search.PageSize)
}

func TestSessionCurrentWithoutSession(t *testing.T) {
	router := newSessionRouter(config.SearchConfig{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
