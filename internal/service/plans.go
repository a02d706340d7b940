package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/aman-churiwal/quota-gate/internal/models"
	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
	"github.com/aman-churiwal/quota-gate/internal/repository"
)

// PlanService issues tokens and resolves them back to plan names. Tokens
// are stored as sha256 hashes; the plain token is only visible at issue
// time.
type PlanService struct {
	repository *repository.AssignmentRepository
}

func NewPlanService(repo *repository.AssignmentRepository) *PlanService {
	return &PlanService{repository: repo}
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Issue creates a new token bound to the given plan and returns it.
func (s *PlanService) Issue(ctx context.Context, name, plan string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := "qg_" + base64.URLEncoding.EncodeToString(tokenBytes)

	assignment := models.PlanAssignment{
		TokenHash: hashToken(token),
		Name:      name,
		Plan:      plan,
		IsActive:  true,
	}

	if err := s.repository.Create(ctx, &assignment); err != nil {
		return "", fmt.Errorf("failed to create plan assignment: %w", err)
	}

	return token, nil
}

// Lookup resolves a token to its plan name. An empty name with a nil error
// means the token has no active assignment.
func (s *PlanService) Lookup(ctx context.Context, token string) (string, error) {
	assignment, err := s.repository.FindByHash(ctx, hashToken(token))
	if err != nil {
		return "", err
	}

	if assignment == nil {
		return "", nil
	}

	// Update asynchronously - don't block the check
	go s.repository.UpdateLastUsed(context.WithoutCancel(ctx), assignment.ID)

	return assignment.Plan, nil
}

// LookupFunc adapts the service to the limiter's plan lookup collaborator.
func (s *PlanService) LookupFunc() ratelimit.PlanLookupFunc {
	return s.Lookup
}

func (s *PlanService) Get(ctx context.Context, id string) (*models.PlanAssignment, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *PlanService) List(ctx context.Context) ([]models.PlanAssignment, error) {
	return s.repository.List(ctx)
}

func (s *PlanService) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return s.repository.Update(ctx, id, updates)
}

func (s *PlanService) Delete(ctx context.Context, id string) error {
	return s.repository.Delete(ctx, id)
}
