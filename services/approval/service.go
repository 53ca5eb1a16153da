package approval

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/procurement-agent/internal/observability"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/services"
	"go.uber.org/zap"
)

// Service persists awaiting decisions and resumes them when a reviewer acts
type Service struct {
	repo    repositories.ApprovalRepository
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new approval Service
func NewService(repo repositories.ApprovalRepository, metrics *observability.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Hold stores an awaiting decision under a new order ID and returns the decision stamped with it
func (s *Service) Hold(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	if decision == nil || decision.Status != models.DecisionAwaitingApproval {
		return nil, services.ErrInvalidTransition
	}

	pending := models.NewPendingApproval(decision)
	pending.CreatedAt = s.now()
	if err := s.repo.Create(ctx, pending); err != nil {
		s.logger.Error("failed to hold order for approval",
			zap.String("site", decision.Site),
			zap.Error(err),
		)
		return nil, services.WrapBackingStore("failed to store pending approval", err)
	}

	s.logger.Info("order held for approval",
		zap.String("order_id", pending.ID.String()),
		zap.String("site", decision.Site),
		zap.String("vendor", decision.SelectedVendor),
		zap.Int64("cost", decision.Cost),
		zap.Int64("approval_limit", decision.ApprovalLimit),
	)
	return pending.Decision.Clone(), nil
}

// Approve resumes a held order as approved
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor string) (*models.PendingApproval, error) {
	return s.resolve(ctx, id, actor, models.ApprovalApproved, func(d *models.Decision) (*models.Decision, error) {
		return Approve(d)
	})
}

// Reject resumes a held order as rejected
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*models.PendingApproval, error) {
	return s.resolve(ctx, id, actor, models.ApprovalRejected, func(d *models.Decision) (*models.Decision, error) {
		return Reject(d, reason)
	})
}

func (s *Service) resolve(
	ctx context.Context,
	id uuid.UUID,
	actor string,
	status models.ApprovalStatus,
	transition func(*models.Decision) (*models.Decision, error),
) (*models.PendingApproval, error) {
	resolved, err := s.repo.Resolve(ctx, id, func(a *models.PendingApproval) error {
		if !a.IsPending() {
			return services.NewDomainError(services.ErrorTypeConflict, "approval already resolved", nil).
				WithDetail("status", string(a.Status))
		}
		next, err := transition(a.Decision)
		if err != nil {
			return err
		}
		now := s.now()
		a.Decision = next
		a.Status = status
		a.ResolvedAt = &now
		a.ResolvedBy = actor
		return nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.metrics.RecordApprovalResolution(string(status))
	s.logger.Info("pending approval resolved",
		zap.String("order_id", id.String()),
		zap.String("status", string(status)),
		zap.String("resolved_by", actor),
	)
	return resolved, nil
}

// Get returns one held order
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	approval, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return approval, nil
}

// List returns held orders with the given status; empty means all
func (s *Service) List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error) {
	switch status {
	case "", models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected:
	default:
		return nil, services.NewDomainError(services.ErrorTypeValidation, "unknown approval status", nil).
			WithDetail("status", string(status))
	}

	approvals, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, s.mapError(err)
	}
	return approvals, nil
}

// HealthCheck reports whether the approval store is reachable
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *Service) mapError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrApprovalNotFound
	}
	if errors.Is(err, repositories.ErrConcurrentUpdate) {
		return services.NewDomainError(services.ErrorTypeConflict, "approval resolved concurrently", err)
	}
	if services.GetErrorType(err) != "" {
		return err
	}
	return services.WrapBackingStore("approval store failure", err)
}
