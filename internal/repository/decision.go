package repository

import (
	"context"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/models"
	"github.com/aman-churiwal/quota-gate/internal/storage"
)

type DecisionRepository struct {
	db *storage.Postgres
}

func NewDecisionRepository(db *storage.Postgres) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Inserts multiple decisions (for batch insertion)
func (r *DecisionRepository) CreateBatch(ctx context.Context, decisions []models.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&decisions).Error
}

// Retrieves decisions within a time range
func (r *DecisionRepository) FindByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]models.Decision, error) {
	var decisions []models.Decision

	err := r.db.DB.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&decisions).Error

	return decisions, err
}

// Counts decisions in a time range
func (r *DecisionRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.Decision{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

// Counts denied decisions in a time range
func (r *DecisionRepository) CountDenied(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.Decision{}).
		Where("denied = ? AND timestamp BETWEEN ? AND ?", true, from, to).
		Count(&count).Error

	return count, err
}

// Returns the identities with the most denied checks
func (r *DecisionRepository) TopDeniedIdentities(ctx context.Context, from, to time.Time, limit int) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.Decision{}).
		Select("identity, COUNT(*) as count").
		Where("denied = ? AND timestamp BETWEEN ? AND ?", true, from, to).
		Group("identity").
		Order("count DESC").
		Limit(limit).
		Rows()

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var identity string
		var count int64

		if err := rows.Scan(&identity, &count); err != nil {
			return nil, err
		}

		results = append(results, map[string]interface{}{
			"identity": identity,
			"count":    count,
		})
	}

	return results, nil
}

// Deletes decisions older than the specified time
func (r *DecisionRepository) DeleteOldDecisions(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.Decision{})

	return result.RowsAffected, result.Error
}
