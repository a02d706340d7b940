package middleware

import (
	"context"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/models"
	"github.com/aman-churiwal/quota-gate/internal/repository"
	"github.com/gin-gonic/gin"
)

// Context keys set by the check handler and consumed here.
const (
	CtxDecisionPath     = "decision_path"
	CtxDecisionIdentity = "decision_identity"
	CtxDecisionDenied   = "decision_denied"
)

// Buffered channel for async decision logging
var decisionChannel chan models.Decision

// Initializes the decision logger
func InitDecisionLogger(repo *repository.DecisionRepository, bufferSize int) {
	decisionChannel = make(chan models.Decision, bufferSize)

	// Start background worker to batch insert decisions
	go func() {
		batch := make([]models.Decision, 0, 100)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case decision := <-decisionChannel:
				batch = append(batch, decision)

				// Insert when batch is full
				if len(batch) >= 100 {
					insertBatch(repo, batch)
					batch = make([]models.Decision, 0, 100)
				}
			case <-ticker.C:
				// Periodically insert remaining decisions
				if len(batch) > 0 {
					insertBatch(repo, batch)
					batch = make([]models.Decision, 0, 100)
				}
			}
		}
	}()
}

// Inserts a batch of decisions into the database
func insertBatch(repo *repository.DecisionRepository, decisions []models.Decision) {
	if err := repo.CreateBatch(context.Background(), decisions); err != nil {
		// Log error but dont block
		println("Failed to insert decisions:", err.Error())
	}
}

// Persists every check outcome the handler stashed in the context
func DecisionLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path, exists := c.Get(CtxDecisionPath)
		if !exists || decisionChannel == nil {
			return
		}

		decision := models.Decision{
			Timestamp: start,
			Identity:  c.GetString(CtxDecisionIdentity),
			Path:      path.(string),
			Denied:    c.GetBool(CtxDecisionDenied),
			LatencyMs: int(time.Since(start).Milliseconds()),
		}

		// Send to channel for async processing
		select {
		case decisionChannel <- decision:
			// Successfully queued
		default:
			// Channel full, skip to avoid blocking
			println("Decision channel full, skipping entry")
		}
	}
}
