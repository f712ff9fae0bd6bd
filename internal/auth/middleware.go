package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/vivahvows/internal/config"
	"github.com/oggyb/vivahvows/internal/httperr"
)

const userIDKey = "auth_user_id"

// Middleware authenticates requests via the Authorization bearer header.
// Websocket connects may pass the token as a "token" query parameter
// instead, since browsers cannot set headers on websocket upgrades.
func Middleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenString = strings.TrimPrefix(h, "Bearer ")
		} else if q := c.Query("token"); q != "" {
			tokenString = q
		}

		if tokenString == "" {
			httperr.Render(c, httperr.Unauthorized("authentication credentials were not provided"))
			c.Abort()
			return
		}

		userID, err := ParseToken(cfg, tokenString)
		if err != nil {
			httperr.Render(c, httperr.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id set by Middleware.
func CurrentUserID(c *gin.Context) uint64 {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uint64); ok {
			return id
		}
	}
	return 0
}
