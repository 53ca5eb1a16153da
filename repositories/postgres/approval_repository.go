package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"go.uber.org/zap"
)

const approvalColumns = `id, status, decision, created_at, resolved_at, resolved_by`

// ApprovalRepository implements the repositories.ApprovalRepository interface
type ApprovalRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *DB, logger *zap.Logger) repositories.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new pending approval
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.PendingApproval) error {
	decision, err := json.Marshal(approval.Decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	query := `
		INSERT INTO pending_approvals (id, site, status, decision, created_at, resolved_at, resolved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		approval.ID,
		approval.Decision.Site,
		approval.Status,
		decision,
		approval.CreatedAt,
		approval.ResolvedAt,
		nullString(approval.ResolvedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending approval: %w", err)
	}

	r.logger.Debug("pending approval created", zap.String("id", approval.ID.String()))
	return nil
}

// GetByID retrieves an approval by order ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM pending_approvals WHERE id = $1`

	return scanApproval(r.db.QueryRowContext(ctx, query, id))
}

// List returns approvals with the given status, oldest first
func (r *ApprovalRepository) List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM pending_approvals`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	approvals := make([]*models.PendingApproval, 0)
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending approvals: %w", err)
	}

	return approvals, nil
}

// Resolve locks the row, applies fn and writes the result in one transaction
func (r *ApprovalRepository) Resolve(ctx context.Context, id uuid.UUID, fn repositories.ResolveFunc) (*models.PendingApproval, error) {
	var resolved *models.PendingApproval

	err := r.db.withApprovalTx(ctx, id, func(tx executor) error {
		query := `SELECT ` + approvalColumns + ` FROM pending_approvals WHERE id = $1 FOR UPDATE`
		approval, err := scanApproval(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return err
		}

		if err := fn(approval); err != nil {
			return err
		}

		decision, err := json.Marshal(approval.Decision)
		if err != nil {
			return fmt.Errorf("failed to encode decision: %w", err)
		}

		update := `
			UPDATE pending_approvals
			SET status = $2, decision = $3, resolved_at = $4, resolved_by = $5
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, update,
			approval.ID,
			approval.Status,
			decision,
			approval.ResolvedAt,
			nullString(approval.ResolvedBy),
		); err != nil {
			return fmt.Errorf("failed to update pending approval: %w", err)
		}

		resolved = approval
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("pending approval resolved",
		zap.String("id", id.String()),
		zap.String("status", string(resolved.Status)),
	)
	return resolved, nil
}

// HealthCheck checks the connection pool
func (r *ApprovalRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApproval(row rowScanner) (*models.PendingApproval, error) {
	var (
		approval   models.PendingApproval
		decision   []byte
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)

	err := row.Scan(
		&approval.ID,
		&approval.Status,
		&decision,
		&approval.CreatedAt,
		&resolvedAt,
		&resolvedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan pending approval: %w", err)
	}

	approval.Decision = &models.Decision{}
	if err := json.Unmarshal(decision, approval.Decision); err != nil {
		return nil, fmt.Errorf("failed to decode decision: %w", err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		approval.ResolvedAt = &t
	}
	approval.ResolvedBy = resolvedBy.String

	return &approval, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
