// Package document stores site procurement rules as a single whole document,
// read fully and rewritten fully on every update.
package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/utils"
	"go.uber.org/zap"
)

// ErrEmptyDocument is returned when the rules document decodes to null
var ErrEmptyDocument = errors.New("rules document is null")

// RuleRepository implements repositories.RuleRepository over a RuleDocumentStore
type RuleRepository struct {
	store  repositories.RuleDocumentStore
	logger *zap.Logger

	// serializes read-modify-write within this process
	mu sync.Mutex
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(store repositories.RuleDocumentStore, logger *zap.Logger) repositories.RuleRepository {
	return &RuleRepository{
		store:  store,
		logger: logger,
	}
}

// Write replaces the rules for site and returns what was stored.
// A nil banned list is stored as an empty one, so Read returns the same value Write did.
func (r *RuleRepository) Write(ctx context.Context, site string, rules *models.SiteRules) (*models.SiteRules, error) {
	if err := utils.ValidateRequired(site, "site"); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, fmt.Errorf("rules are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrEmptyDocument
	}

	stored := *rules
	stored.Site = site
	stored.BannedVendors = append([]string{}, rules.BannedVendors...)
	doc[site] = &stored

	if err := r.store.Save(ctx, doc); err != nil {
		return nil, err
	}

	r.logger.Debug("site rules written",
		zap.String("site", site),
		zap.Int64("approval_limit", stored.ApprovalLimit),
		zap.Strings("banned_vendors", stored.BannedVendors),
	)

	out := stored
	return &out, nil
}

// Read returns the rules for site, or found=false when the site was never written
func (r *RuleRepository) Read(ctx context.Context, site string) (*models.SiteRules, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		return nil, false, ErrEmptyDocument
	}

	rules, ok := doc.Get(site)
	if !ok {
		return nil, false, nil
	}
	if rules.BannedVendors == nil {
		rules.BannedVendors = []string{}
	}
	return rules, true, nil
}
