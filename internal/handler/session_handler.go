package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/pkg/config"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

// SessionHandler exposes the resolved session capability, so the dashboard
// can decide between the edit and read-only projections. It also hands the
// client its search tuning, keeping the debounce and page size a server-side
// knob.
type SessionHandler struct {
	search config.SearchConfig
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(search config.SearchConfig) *SessionHandler {
	return &SessionHandler{search: search}
}

// Current godoc
// @Summary Get the current session
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	sess := sessionFromContext(c)
	if sess == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.OK(c, gin.H{
		"username":       sess.Username,
		"security_level": sess.SecurityLevel,
		"can_edit":       sess.CanEdit,
		"search": gin.H{
			"debounce_ms": h.search.DebounceInterval.Milliseconds(),
			"page_size":   h.search.PageSize,
		},
	})
}
