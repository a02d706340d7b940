package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/metrics"
	"github.com/aman-churiwal/quota-gate/internal/middleware"
	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

type CheckHandler struct {
	limiter *ratelimit.Limiter
}

func NewCheckHandler(limiter *ratelimit.Limiter) *CheckHandler {
	return &CheckHandler{limiter: limiter}
}

// Check is the public decision endpoint. The caller passes the request
// identity it wants limited; the response is a bare allow/deny verdict.
func (h *CheckHandler) Check(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
		IP    string `json:"ip"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := req.IP
	if ip == "" {
		ip = c.ClientIP()
	}

	path := "guest"
	identity := ip
	if req.Token != "" {
		path = "token"
		// Raw tokens never leave this handler
		hash := sha256.Sum256([]byte(req.Token))
		identity = "token:" + hex.EncodeToString(hash[:8])
	}
	c.Set(middleware.CtxDecisionPath, path)
	c.Set(middleware.CtxDecisionIdentity, identity)

	start := time.Now()
	denied, err := h.limiter.Check(c.Request.Context(), req.Token, ip)
	metrics.CheckDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(path, "error").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rate limit check failed"})
		return
	}

	c.Set(middleware.CtxDecisionDenied, denied)

	outcome := "allowed"
	if denied {
		outcome = "denied"
	}
	metrics.DecisionsTotal.WithLabelValues(path, outcome).Inc()

	c.JSON(http.StatusOK, gin.H{"denied": denied})
}
