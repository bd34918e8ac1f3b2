package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Karimk94/edms-archive-gateway/internal/client"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/internal/service"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
	"github.com/Karimk94/edms-archive-gateway/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved session.
const ContextSessionKey = "currentSession"

// Session protects routes by requiring a valid session token, taken from
// the Authorization header or the session cookie. The resolved capability
// lands in the gin context and the raw credential is attached to the
// request context so every upstream call carries it.
func Session(sessions *service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		sess, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Request = c.Request.WithContext(client.WithCredential(c.Request.Context(), sess.Credential))
		c.Next()
	}
}

// RequireEditor blocks users whose security level only grants the read-only
// dashboard projection.
func RequireEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		if sess == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !sess.CanEdit {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role does not allow editing archives"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFrom returns the resolved session, or nil when unauthenticated.
func SessionFrom(c *gin.Context) *models.SessionContext {
	value, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, ok := value.(*models.SessionContext)
	if !ok {
		return nil
	}
	return sess
}

func extractToken(c *gin.Context, cookieName string) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil {
			return cookie
		}
	}
	return ""
}
