package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckRouter(t *testing.T, plans map[string]ratelimit.Plan) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client, err := storage.NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	limiter, err := ratelimit.New(client, ratelimit.Options{Namespace: "ns", Plans: plans})
	require.NoError(t, err)

	router := gin.New()
	router.POST("/v1/check", NewCheckHandler(limiter).Check)

	return router, mr
}

func doCheck(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeVerdict(t *testing.T, w *httptest.ResponseRecorder) bool {
	t.Helper()
	var resp struct {
		Denied bool `json:"denied"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Denied
}

func TestCheckEndpointGuest(t *testing.T) {
	router, _ := newCheckRouter(t, map[string]ratelimit.Plan{
		ratelimit.FreePlan: {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 1}}},
	})

	w := doCheck(router, `{"ip": "10.0.0.1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeVerdict(t, w))

	w = doCheck(router, `{"ip": "10.0.0.1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeVerdict(t, w))
}

func TestCheckEndpointNoFreePlan(t *testing.T) {
	router, _ := newCheckRouter(t, map[string]ratelimit.Plan{
		"starter": {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 100}}},
	})

	w := doCheck(router, `{"ip": "10.0.0.1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeVerdict(t, w))
}

func TestCheckEndpointBadRequest(t *testing.T) {
	router, _ := newCheckRouter(t, map[string]ratelimit.Plan{
		ratelimit.FreePlan: {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 1}}},
	})

	w := doCheck(router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckEndpointStoreError(t *testing.T) {
	router, mr := newCheckRouter(t, map[string]ratelimit.Plan{
		ratelimit.FreePlan: {Limits: []ratelimit.Tier{{Duration: 60, Threshold: 1}}},
	})

	mr.Close()

	w := doCheck(router, `{"ip": "10.0.0.1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
