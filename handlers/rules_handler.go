package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/procurement-agent/middleware"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/services/procurement"
	"github.com/upb/procurement-agent/utils"
	"go.uber.org/zap"
)

// PutRulesRequest is the body of PUT /api/v1/sites/{site}/rules
type PutRulesRequest struct {
	ApprovalLimit *int64   `json:"approval_limit" validate:"required"`
	BannedVendors []string `json:"banned_vendors"`
}

// RulesService defines the rule operations the handler needs
type RulesService interface {
	StoreRules(ctx context.Context, req procurement.StoreRulesRequest) (*procurement.RulesConfirmation, error)
	GetRules(ctx context.Context, site string) (*models.SiteRules, error)
}

// RulesHandler handles site rules HTTP requests
type RulesHandler struct {
	service RulesService
	logger  *zap.Logger
}

// NewRulesHandler creates a new RulesHandler
func NewRulesHandler(service RulesService, logger *zap.Logger) *RulesHandler {
	return &RulesHandler{
		service: service,
		logger:  logger,
	}
}

// HandlePutRules handles PUT /api/v1/sites/{site}/rules
func (h *RulesHandler) HandlePutRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	site := chi.URLParam(r, "site")

	var req PutRulesRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	banned := req.BannedVendors
	if banned == nil {
		banned = []string{}
	}

	confirmation, err := h.service.StoreRules(ctx, procurement.StoreRulesRequest{
		Site:          site,
		ApprovalLimit: *req.ApprovalLimit,
		BannedVendors: banned,
	})
	if err != nil {
		h.logger.Warn("failed to store rules",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("site", site),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, confirmation)
}

// HandleGetRules handles GET /api/v1/sites/{site}/rules
func (h *RulesHandler) HandleGetRules(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	rules, err := h.service.GetRules(r.Context(), site)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, rules)
}
