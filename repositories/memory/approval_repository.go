// Package memory provides in-process repository implementations.
// Contents are lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"go.uber.org/zap"
)

// ApprovalRepository keeps pending approvals in a map
type ApprovalRepository struct {
	mu        sync.RWMutex
	approvals map[uuid.UUID]*models.PendingApproval
	logger    *zap.Logger
}

// NewApprovalRepository creates an empty in-memory approval repository
func NewApprovalRepository(logger *zap.Logger) repositories.ApprovalRepository {
	return &ApprovalRepository{
		approvals: make(map[uuid.UUID]*models.PendingApproval),
		logger:    logger,
	}
}

// Create stores a copy of the approval
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.PendingApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.approvals[approval.ID] = approval.Clone()
	r.logger.Debug("pending approval stored", zap.String("id", approval.ID.String()))
	return nil
}

// GetByID returns a copy of the approval or repositories.ErrNotFound
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	approval, ok := r.approvals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return approval.Clone(), nil
}

// List returns approvals with the given status, oldest first
func (r *ApprovalRepository) List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.PendingApproval, 0, len(r.approvals))
	for _, approval := range r.approvals {
		if status != "" && approval.Status != status {
			continue
		}
		out = append(out, approval.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Resolve applies fn to a copy and stores it only if fn succeeds
func (r *ApprovalRepository) Resolve(ctx context.Context, id uuid.UUID, fn repositories.ResolveFunc) (*models.PendingApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.approvals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	r.approvals[id] = updated
	return updated.Clone(), nil
}

// HealthCheck always succeeds
func (r *ApprovalRepository) HealthCheck(ctx context.Context) error {
	return nil
}
