package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(t *testing.T, plans map[string]ratelimit.Plan) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client, err := storage.NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	limiter, err := ratelimit.New(client, ratelimit.Options{Namespace: "ns", Plans: plans})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/ping", RateLimit(limiter), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	return router, mr
}

func doPing(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsThenRejects(t *testing.T) {
	router, _ := newLimitedRouter(t, map[string]ratelimit.Plan{
		ratelimit.FreePlan: {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 2}}},
	})

	assert.Equal(t, http.StatusOK, doPing(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doPing(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doPing(router, "10.0.0.1").Code)

	// A different client is unaffected.
	assert.Equal(t, http.StatusOK, doPing(router, "10.0.0.2").Code)
}

func TestRateLimitNoFreePlanRejectsGuests(t *testing.T) {
	router, _ := newLimitedRouter(t, map[string]ratelimit.Plan{
		"starter": {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 100}}},
	})

	assert.Equal(t, http.StatusTooManyRequests, doPing(router, "10.0.0.1").Code)
}

func TestRateLimitStoreErrorIs500(t *testing.T) {
	router, mr := newLimitedRouter(t, map[string]ratelimit.Plan{
		ratelimit.FreePlan: {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 2}}},
	})

	mr.Close()

	assert.Equal(t, http.StatusInternalServerError, doPing(router, "10.0.0.1").Code)
}
