package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notely-dev/notely/internal/auth"
	"github.com/notely-dev/notely/internal/models"
	"github.com/notely-dev/notely/internal/policy"
)

// RequireAdmin gates the admin namespace. Anonymous callers get 401;
// authenticated non-admins get 403. The endpoint shape already discloses
// cross-user access, so there is nothing to mask here.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(auth.UserContextKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		user := value.(*models.User)
		allowed, err := policy.Authorize(policy.ActorFor(user), nil, policy.OpAdminAccess)
		if err != nil {
			slog.Error("Admin policy check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
