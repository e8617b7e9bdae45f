package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"comet-be/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeOrigin = "https://comet-store.vercel.app"

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	handle := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/products/:productId", handle)
	r.POST("/api/checkout", handle)
	r.OPTIONS("/api/checkout", handle)
	r.GET("/healthz", handle)
	return r
}

func TestCORS(t *testing.T) {
	router := newRouter(CORS(DefaultPolicies(storeOrigin)))

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/checkout", nil)
		req.Header.Set("Origin", storeOrigin)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, storeOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("DisallowedOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/checkout", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("NormalRequestGetsHeaders", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products/abc", nil)
		req.Header.Set("Origin", storeOrigin)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, storeOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("UnmatchedPathGetsNoHeaders", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", storeOrigin)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMatchPolicy(t *testing.T) {
	policies := []CORSPolicy{
		{Prefix: "/api", AllowedOrigins: []string{"*"}},
		{Prefix: "/api/webhooks", AllowedOrigins: nil},
	}

	t.Run("LongestPrefixWins", func(t *testing.T) {
		p := matchPolicy(policies, "/api/webhooks/payos")
		require.NotNil(t, p)
		assert.Equal(t, "/api/webhooks", p.Prefix)
	})

	t.Run("FallsBackToBroadRow", func(t *testing.T) {
		p := matchPolicy(policies, "/api/products/1")
		require.NotNil(t, p)
		assert.Equal(t, "/api", p.Prefix)
	})

	t.Run("NoMatch", func(t *testing.T) {
		assert.Nil(t, matchPolicy(policies, "/healthz"))
	})
}

func TestAuthGate(t *testing.T) {
	const secret = "test-secret"
	public := []string{"/healthz", "/api/webhooks"}

	t.Run("MissingSession", func(t *testing.T) {
		router := newRouter(AuthGate(secret, public))
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("InvalidToken", func(t *testing.T) {
		router := newRouter(AuthGate(secret, public))
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "not-a-jwt"})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ValidCookieSetsIdentity", func(t *testing.T) {
		token, err := auth.SignSessionToken("user_2abc", "Ada", "ada@example.com", secret, time.Hour)
		require.NoError(t, err)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(AuthGate(secret, public))
		router.POST("/api/checkout", func(c *gin.Context) {
			id, ok := auth.UserIDFromContext(c.Request.Context())
			assert.True(t, ok)
			assert.Equal(t, "user_2abc", id)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token, err := auth.SignSessionToken("user_2abc", "Ada", "ada@example.com", secret, -time.Hour)
		require.NoError(t, err)

		router := newRouter(AuthGate(secret, public))
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("BearerFallback", func(t *testing.T) {
		token, err := auth.SignSessionToken("user_2abc", "Ada", "ada@example.com", secret, time.Hour)
		require.NoError(t, err)

		router := newRouter(AuthGate(secret, public))
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("PublicPrefixPasses", func(t *testing.T) {
		router := newRouter(AuthGate(secret, public))
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("PublicPathStillCarriesIdentity", func(t *testing.T) {
		token, err := auth.SignSessionToken("user_2abc", "Ada", "ada@example.com", secret, time.Hour)
		require.NoError(t, err)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(AuthGate(secret, []string{"/api/products"}))
		router.POST("/api/products/abc", func(c *gin.Context) {
			// mutation auth happens in the service layer for product routes
			id, ok := auth.UserIDFromContext(c.Request.Context())
			assert.True(t, ok)
			assert.Equal(t, "user_2abc", id)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/api/products/abc", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("StrictTierThrottles", func(t *testing.T) {
		router := newRouter(RateLimit())

		var last int
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
			req.RemoteAddr = "10.9.8.7:1234"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			last = w.Code
		}

		assert.Equal(t, http.StatusTooManyRequests, last)
	})

	t.Run("TiersAreIndependent", func(t *testing.T) {
		router := newRouter(RateLimit())

		// exhaust the strict bucket for this IP
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
			req.RemoteAddr = "10.1.2.3:1234"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
		}

		// general tier still has budget
		req := httptest.NewRequest(http.MethodGet, "/api/products/abc", nil)
		req.RemoteAddr = "10.1.2.3:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
