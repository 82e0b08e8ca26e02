package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/handlers"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/services"
)

// RequireAuth validates the bearer token and stamps the acting user's
// identity onto the request context for downstream services.
func RequireAuth(log *logger.Logger, authService services.AuthService) gin.HandlerFunc {
	mlog := log.With("middleware", "RequireAuth")
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			handlers.RespondError(c, apierr.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		ctx, err := authService.ContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			mlog.Debug("Rejected token", "path", c.FullPath(), "error", err)
			handlers.RespondError(c, apierr.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
