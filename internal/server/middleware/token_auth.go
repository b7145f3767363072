package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuthConfig configures bearer-token authentication for the control
// plane. An empty Token disables auth entirely, which is the default for a
// localhost-only daemon.
type TokenAuthConfig struct {
	Token string
}

// TokenAuth guards routes with a shared token. The token is read from the
// Authorization header, or from the `token` query parameter for clients that
// cannot set headers (e.g. EventSource).
func TokenAuth(config TokenAuthConfig) gin.HandlerFunc {
	if config.Token == "" {
		slog.Info("auth disabled")
		return func(c *gin.Context) {
			c.Next()
		}
	}
	slog.Info("auth enabled")

	want := []byte(config.Token)
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			slog.Debug("invalid auth token", "ip", c.ClientIP(), "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			return
		}

		c.Set("authenticated", true)
		c.Next()
	}
}
