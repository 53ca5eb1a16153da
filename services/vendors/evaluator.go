package vendors

import (
	"context"
	"strings"
	"time"

	"github.com/upb/procurement-agent/internal/observability"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/services"
	"go.uber.org/zap"
)

// EvaluationResult carries every intermediate artifact so callers can explain a decision
type EvaluationResult struct {
	AllVendors   []models.Vendor `json:"all_vendors"`
	ValidVendors []models.Vendor `json:"valid_vendors"`
	Selected     *models.Vendor  `json:"selected_vendor"`
}

// Evaluator loads the vendor catalog and picks the cheapest allowed vendor
type Evaluator struct {
	catalog repositories.VendorCatalog
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewEvaluator creates a new Evaluator instance
func NewEvaluator(catalog repositories.VendorCatalog, metrics *observability.Metrics, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
	}
}

// LoadCatalog returns the full ordered catalog. Source failures are backing store errors.
func (e *Evaluator) LoadCatalog(ctx context.Context) ([]models.Vendor, error) {
	vendors, err := e.catalog.Load(ctx)
	if err != nil {
		e.logger.Error("failed to load vendor catalog", zap.Error(err))
		return nil, services.WrapBackingStore("failed to load vendor catalog", err)
	}
	return vendors, nil
}

// Filter returns the vendors whose name does not case-insensitively match a banned entry.
// Order is preserved and the input slice is not modified.
func Filter(vendors []models.Vendor, banned []string) []models.Vendor {
	bannedSet := make(map[string]struct{}, len(banned))
	for _, b := range banned {
		bannedSet[strings.ToLower(b)] = struct{}{}
	}

	out := make([]models.Vendor, 0, len(vendors))
	for _, v := range vendors {
		if _, ok := bannedSet[strings.ToLower(v.Name)]; ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

// SelectCheapest returns the lowest-priced vendor, the earliest one on ties,
// or nil for an empty list.
func SelectCheapest(vendors []models.Vendor) *models.Vendor {
	if len(vendors) == 0 {
		return nil
	}
	best := vendors[0]
	for _, v := range vendors[1:] {
		if v.Price < best.Price {
			best = v
		}
	}
	return &best
}

// Evaluate loads the catalog, removes banned vendors and selects the cheapest survivor
func (e *Evaluator) Evaluate(ctx context.Context, banned []string) (*EvaluationResult, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveEvaluation(time.Since(start)) }()

	all, err := e.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	valid := Filter(all, banned)
	selected := SelectCheapest(valid)

	fields := []zap.Field{
		zap.Int("catalog_size", len(all)),
		zap.Int("valid_vendors", len(valid)),
		zap.Strings("banned_vendors", banned),
	}
	if selected != nil {
		fields = append(fields, zap.String("selected_vendor", selected.Name), zap.Int64("price", selected.Price))
	}
	e.logger.Debug("vendors evaluated", fields...)

	return &EvaluationResult{
		AllVendors:   all,
		ValidVendors: valid,
		Selected:     selected,
	}, nil
}
