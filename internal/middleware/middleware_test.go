// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/teambind/support-server/internal/utils"
)

func TestPreferredLanguage(t *testing.T) {
	cases := map[string]string{
		"":                        "en",
		"ko":                      "ko",
		"ko-KR,ko;q=0.9,en;q=0.8": "ko",
		"en-US,ko;q=0.5":          "en",
		"fr":                      "en",
	}
	for header, want := range cases {
		assert.Equal(t, want, preferredLanguage(header), header)
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestAuthRequiredAndAdminRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-secret")

	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.String(http.StatusOK, userID)
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	userToken, err := utils.GenerateJWT("U1", utils.RoleUser, time.Hour)
	assert.NoError(t, err)
	adminToken, err := utils.GenerateJWT("A1", utils.RoleAdmin, time.Hour)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Token "+userToken).Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Bearer not-a-jwt").Code)

	w := call("/me", "bearer "+userToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "U1", w.Body.String())

	assert.Equal(t, http.StatusForbidden, call("/admin", "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusNoContent, call("/admin", "Bearer "+adminToken).Code)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, rate.Every(time.Hour), 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2"))

	rl.evictIdle(time.Now().Add(time.Hour))
	assert.Empty(t, rl.visitors)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
}
