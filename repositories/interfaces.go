package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/procurement-agent/models"
)

// RuleDocumentStore persists the whole site rules document.
// Every write replaces the full document; there is no per-site storage.
type RuleDocumentStore interface {
	// Init creates an empty document when none exists
	Init(ctx context.Context) error

	// Load reads the full document. A missing or corrupt document is an error.
	Load(ctx context.Context) (models.RulesDocument, error)

	// Save overwrites the full document
	Save(ctx context.Context, doc models.RulesDocument) error

	// HealthCheck reports whether the document is reachable
	HealthCheck(ctx context.Context) error
}

// RuleRepository reads and writes the rules of a single site
type RuleRepository interface {
	// Write replaces any prior rules for the site and returns what was stored
	Write(ctx context.Context, site string, rules *models.SiteRules) (*models.SiteRules, error)

	// Read returns the rules for a site; found is false for a site never written
	Read(ctx context.Context, site string) (rules *models.SiteRules, found bool, err error)
}

// VendorCatalog is the read-only source of vendors
type VendorCatalog interface {
	// Load returns the full catalog in source order
	Load(ctx context.Context) ([]models.Vendor, error)
}

// ResolveFunc mutates a pending approval under the store's lock.
// Returning an error aborts the update.
type ResolveFunc func(approval *models.PendingApproval) error

// ApprovalRepository holds orders that await a human decision
type ApprovalRepository interface {
	// Create stores a new pending approval
	Create(ctx context.Context, approval *models.PendingApproval) error

	// GetByID retrieves an approval by order ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error)

	// List returns approvals with the given status, oldest first.
	// An empty status lists every approval.
	List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error)

	// Resolve loads the approval, applies fn and persists the result atomically
	Resolve(ctx context.Context, id uuid.UUID, fn ResolveFunc) (*models.PendingApproval, error)

	// HealthCheck reports whether the backing store is reachable
	HealthCheck(ctx context.Context) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Rules     RuleRepository
	Documents RuleDocumentStore
	Catalog   VendorCatalog
	Approvals ApprovalRepository
}
