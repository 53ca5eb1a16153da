// Package procurement exposes the two operations the conversational layer invokes:
// storing site rules and evaluating an order against them.
package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/procurement-agent/internal/observability"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/services"
	"github.com/upb/procurement-agent/services/approval"
	"github.com/upb/procurement-agent/services/vendors"
	"github.com/upb/procurement-agent/utils"
	"go.uber.org/zap"
)

const (
	// StatusRulesStored is the confirmation status returned by StoreRules
	StatusRulesStored = "RULES_STORED"

	// ReasonAllVendorsBanned is the rejection reason when no catalog vendor survives filtering
	ReasonAllVendorsBanned = "all vendors banned"
)

// StoreRulesRequest is the validated input of StoreRules
type StoreRulesRequest struct {
	Site          string   `json:"site" validate:"required"`
	ApprovalLimit int64    `json:"approval_limit" validate:"gte=0"`
	BannedVendors []string `json:"banned_vendors" validate:"dive,required"`
}

// OrderRequest is the validated input of ProcessOrder
type OrderRequest struct {
	Site     string `json:"site" validate:"required"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// RulesConfirmation acknowledges a rules write
type RulesConfirmation struct {
	Status string            `json:"status"`
	Site   string            `json:"site"`
	Rules  *models.SiteRules `json:"rules"`
}

// Service orchestrates rule storage and order evaluation
type Service struct {
	rules     repositories.RuleRepository
	evaluator *vendors.Evaluator
	gate      *approval.Gate
	approvals *approval.Service
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewService creates a new procurement Service.
// approvals may be nil, in which case awaiting decisions are returned without an order ID.
func NewService(
	rules repositories.RuleRepository,
	evaluator *vendors.Evaluator,
	gate *approval.Gate,
	approvals *approval.Service,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		rules:     rules,
		evaluator: evaluator,
		gate:      gate,
		approvals: approvals,
		metrics:   metrics,
		logger:    logger,
	}
}

// StoreRules replaces the rules of a site
func (s *Service) StoreRules(ctx context.Context, req StoreRulesRequest) (*RulesConfirmation, error) {
	req.Site = strings.TrimSpace(req.Site)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	stored, err := s.rules.Write(ctx, req.Site, models.NewSiteRules(req.Site, req.ApprovalLimit, req.BannedVendors))
	if err != nil {
		s.logger.Error("failed to store site rules",
			zap.String("site", req.Site),
			zap.Error(err),
		)
		return nil, services.WrapBackingStore("failed to store site rules", err)
	}

	s.metrics.RecordRuleWrite()
	s.logger.Info("site rules stored",
		zap.String("site", req.Site),
		zap.Int64("approval_limit", stored.ApprovalLimit),
		zap.Strings("banned_vendors", stored.BannedVendors),
	)

	return &RulesConfirmation{
		Status: StatusRulesStored,
		Site:   req.Site,
		Rules:  stored,
	}, nil
}

// GetRules returns the stored rules of a site or ErrRulesNotFound
func (s *Service) GetRules(ctx context.Context, site string) (*models.SiteRules, error) {
	rules, found, err := s.rules.Read(ctx, site)
	if err != nil {
		return nil, services.WrapBackingStore("failed to read site rules", err)
	}
	if !found {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, services.ErrRulesNotFound.Message, nil).
			WithDetail("site", site)
	}
	return rules, nil
}

// ProcessOrder evaluates an order for a site and returns the decision.
// Only backing store failures and invalid input are returned as errors.
func (s *Service) ProcessOrder(ctx context.Context, req OrderRequest) (*models.Decision, error) {
	req.Site = strings.TrimSpace(req.Site)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	decision, err := s.decide(ctx, req)
	if err != nil {
		return nil, err
	}

	if decision.Status == models.DecisionAwaitingApproval && s.approvals != nil {
		decision, err = s.approvals.Hold(ctx, decision)
		if err != nil {
			return nil, err
		}
	}

	s.metrics.RecordDecision(string(decision.Status))
	s.logger.Info("order processed",
		zap.String("site", req.Site),
		zap.String("item", req.Item),
		zap.Int("quantity", req.Quantity),
		zap.String("status", string(decision.Status)),
		zap.String("vendor", decision.SelectedVendor),
	)
	return decision, nil
}

func (s *Service) decide(ctx context.Context, req OrderRequest) (*models.Decision, error) {
	rules, found, err := s.rules.Read(ctx, req.Site)
	if err != nil {
		s.logger.Error("failed to read site rules", zap.String("site", req.Site), zap.Error(err))
		return nil, services.WrapBackingStore("failed to read site rules", err)
	}
	if !found {
		return &models.Decision{
			Status:   models.DecisionError,
			Site:     req.Site,
			Item:     req.Item,
			Quantity: req.Quantity,
			Reason:   fmt.Sprintf("No rules found for site '%s'. Please set up site rules first.", req.Site),
		}, nil
	}

	result, err := s.evaluator.Evaluate(ctx, rules.BannedVendors)
	if err != nil {
		return nil, err
	}

	if result.Selected == nil {
		return &models.Decision{
			Status:        models.DecisionRejected,
			Site:          req.Site,
			Item:          req.Item,
			Quantity:      req.Quantity,
			Reason:        ReasonAllVendorsBanned,
			BannedVendors: append([]string{}, rules.BannedVendors...),
		}, nil
	}

	decision := s.gate.Decide(req.Site, result.Selected.Name, result.Selected.Price, rules.ApprovalLimit)
	decision.Item = req.Item
	decision.Quantity = req.Quantity
	return decision, nil
}

func validationError(err error) error {
	domainErr := services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidInput.Message, err)
	for field, msg := range utils.GetValidationFields(err) {
		domainErr.WithDetail(field, msg)
	}
	return domainErr
}
