package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"seatwatch-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, perform(r, "GET", "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, "GET", "/ping", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, "GET", "/ping", nil).Code)
}

func TestIPRateLimiter_ReusesLimiterPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.2"))
}

func TestCache(t *testing.T) {
	calls := 0
	status := http.StatusOK
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/sections/:id", func(c *gin.Context) {
		calls++
		c.JSON(status, gin.H{"id": c.Param("id"), "calls": calls})
	})

	first := perform(r, "GET", "/sections/1", nil)
	second := perform(r, "GET", "/sections/1", nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))

	perform(r, "GET", "/sections/1", map[string]string{"Cache-Control": "no-cache"})
	assert.Equal(t, 2, calls)

	status = http.StatusBadGateway
	perform(r, "GET", "/sections/2", nil)
	perform(r, "GET", "/sections/2", nil)
	assert.Equal(t, 4, calls, "error responses are not cached")
}

func TestIdentity(t *testing.T) {
	var got *model.Identity
	r := gin.New()
	r.Use(Identity("X-User-ID", "X-User-Email"))
	r.GET("/me", func(c *gin.Context) {
		got = IdentityFrom(c)
		c.Status(http.StatusNoContent)
	})

	perform(r, "GET", "/me", nil)
	assert.Nil(t, got)

	perform(r, "GET", "/me", map[string]string{"X-User-ID": "u-1", "X-User-Email": " Ada@Example.edu "})
	if assert.NotNil(t, got) {
		assert.Equal(t, "u-1", got.UserID)
		assert.Equal(t, "ada@example.edu", got.Email)
	}
}
