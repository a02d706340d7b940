package service

import (
	"context"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/models"
	"github.com/aman-churiwal/quota-gate/internal/repository"
)

type AnalyticsService struct {
	repository *repository.DecisionRepository
}

func NewAnalyticsService(repo *repository.DecisionRepository) *AnalyticsService {
	return &AnalyticsService{repository: repo}
}

// Holds decision summary data
type DecisionSummary struct {
	TotalChecks  int64                    `json:"total_checks"`
	DeniedChecks int64                    `json:"denied_checks"`
	DenyRate     float64                  `json:"deny_rate"`
	TopDenied    []map[string]interface{} `json:"top_denied"`
}

// Retrieves a decision summary for a time range
func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time) (*DecisionSummary, error) {
	summary := &DecisionSummary{}

	total, err := s.repository.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalChecks = total

	if total == 0 {
		return summary, nil
	}

	denied, err := s.repository.CountDenied(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.DeniedChecks = denied
	summary.DenyRate = (float64(denied) / float64(total)) * 100

	topDenied, err := s.repository.TopDeniedIdentities(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}
	summary.TopDenied = topDenied

	return summary, nil
}

// Retrieves decisions with pagination
func (s *AnalyticsService) GetDecisions(ctx context.Context, from, to time.Time, limit, offset int) ([]models.Decision, error) {
	return s.repository.FindByTimeRange(ctx, from, to, limit, offset)
}

// Deletes decisions older than the specified retention period
func (s *AnalyticsService) CleanupOldDecisions(ctx context.Context, retentionDays int) (int64, error) {
	cutOffDate := time.Now().AddDate(0, 0, -retentionDays)
	return s.repository.DeleteOldDecisions(ctx, cutOffDate)
}
