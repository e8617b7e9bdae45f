package middleware

import (
	"net/http"
	"strings"

	"comet-be/internal/auth"
	"comet-be/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthGate attaches the caller's identity from the session cookie (or a
// bearer token) and rejects requests without one before any handler runs.
// Paths under a public prefix pass through anonymously; services that guard
// individual operations check the context identity themselves.
func AuthGate(secret string, publicPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := auth.ExtractSessionToken(c.Request); tokenStr != "" {
			claims, err := auth.ParseSessionToken(tokenStr, secret)
			if err != nil {
				logger.FromCtx(c.Request.Context()).Warn("session token rejected", zap.Error(err))
			} else {
				ctx := auth.WithIdentity(c.Request.Context(), claims.Subject, claims.Name, claims.Email)
				c.Request = c.Request.WithContext(ctx)
			}
		}

		if isPublicPath(c.Request.URL.Path, publicPrefixes) {
			c.Next()
			return
		}

		if _, ok := auth.UserIDFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		c.Next()
	}
}

func isPublicPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
