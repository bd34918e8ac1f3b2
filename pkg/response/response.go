package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

// The dashboard wire contract is intentionally flat: list endpoints return
// their own shapes ({items, hasMore} / {items, totalCount}) and failures
// carry a bare {error} body whose message is surfaced to the user verbatim.

// JSON sends the payload as-is with no-store caching semantics.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, payload)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Created responds with HTTP 201.
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}

// Error converts the error into the {error} contract, keeping the backend's
// status and message when the failure originated upstream.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, gin.H{"error": appErr.Message})
}

// PartialSuccess renders a bulk-upload 422 body: a success summary plus the
// per-row warning list. Partial results are not treated as fatal.
func PartialSuccess(c *gin.Context, message string, warnings []string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": message,
		"errors":  warnings,
	})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
