package repository

import (
	"context"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/models"
	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRepository struct {
	db *storage.Postgres
}

func NewAssignmentRepository(db *storage.Postgres) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.PlanAssignment) error {
	return r.db.DB.WithContext(ctx).Create(assignment).Error
}

func (r *AssignmentRepository) FindByHash(ctx context.Context, hash string) (*models.PlanAssignment, error) {
	var assignment models.PlanAssignment
	err := r.db.DB.WithContext(ctx).
		Where("token_hash = ? AND is_active = ?", hash, true).
		First(&assignment).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &assignment, err
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.PlanAssignment, error) {
	var assignment models.PlanAssignment
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&assignment).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &assignment, err
}

func (r *AssignmentRepository) List(ctx context.Context) ([]models.PlanAssignment, error) {
	var assignments []models.PlanAssignment
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&assignments).Error

	return assignments, err
}

func (r *AssignmentRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.PlanAssignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *AssignmentRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.PlanAssignment{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PlanAssignment{}).Error
}
