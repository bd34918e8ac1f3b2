package middleware

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/internal/repository"
)

// Audit creates a middleware that records audit logs after successful
// mutating requests. Failures to write the trail never fail the request.
func Audit(repo *repository.AuditRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		username := ""
		if sess := SessionFrom(c); sess != nil {
			username = sess.Username
		}

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		_ = repo.Create(c.Request.Context(), &models.AuditLog{
			Username:   username,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Detail:     detail,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}
