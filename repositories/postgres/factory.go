package postgres

import (
	"context"

	"github.com/upb/procurement-agent/config"
	"github.com/upb/procurement-agent/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages the Postgres-backed repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory opens the connection pool
func NewRepositoryFactory(cfg config.DatabaseConfig, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &RepositoryFactory{db: db, logger: logger}, nil
}

// InitSchema creates the tables used by the repositories
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	return f.db.InitSchema(ctx)
}

// NewApprovalRepository creates the approval repository on this pool
func (f *RepositoryFactory) NewApprovalRepository() repositories.ApprovalRepository {
	return NewApprovalRepository(f.db, f.logger)
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
