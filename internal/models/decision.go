package models

import "time"

// Decision is one audited allow/deny outcome of a check.
type Decision struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	// Identity is the client IP for guest checks or a token hash prefix
	// for token checks. Raw tokens are never persisted.
	Identity  string `gorm:"index" json:"identity"`
	Path      string `gorm:"not null" json:"path"` // "token" or "guest"
	Denied    bool   `gorm:"index" json:"denied"`
	LatencyMs int    `json:"latency_ms"`
}

func (Decision) TableName() string {
	return "decisions"
}
