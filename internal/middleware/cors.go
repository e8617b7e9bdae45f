package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSPolicy is one row of the declarative cross-origin table. Requests are
// matched by the longest prefix, so a specific row can override a broad one.
type CORSPolicy struct {
	Prefix           string
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// DefaultPolicies is the storefront's table: the browser-facing API allows
// the configured store origin with credentials, webhooks and health checks
// are server-to-server and get no CORS headers at all.
func DefaultPolicies(storeOrigin string) []CORSPolicy {
	return []CORSPolicy{
		{
			Prefix:           "/api",
			AllowedOrigins:   []string{storeOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
			AllowCredentials: true,
		},
	}
}

// CORS applies the policy table. Disallowed origins get no allow-origin
// header; preflights are answered with 204 and never reach a handler.
func CORS(policies []CORSPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := matchPolicy(policies, c.Request.URL.Path)
		if policy == nil {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if originAllowed(policy, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", strings.Join(policy.AllowedMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(policy.AllowedHeaders, ", "))
			if policy.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func matchPolicy(policies []CORSPolicy, path string) *CORSPolicy {
	var best *CORSPolicy
	for i := range policies {
		p := &policies[i]
		if !strings.HasPrefix(path, p.Prefix) {
			continue
		}
		if best == nil || len(p.Prefix) > len(best.Prefix) {
			best = p
		}
	}
	return best
}

func originAllowed(p *CORSPolicy, origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range p.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
