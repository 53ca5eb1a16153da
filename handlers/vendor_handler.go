package handlers

import (
	"context"
	"net/http"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/services/vendors"
	"github.com/upb/procurement-agent/utils"
	"go.uber.org/zap"
)

// EvaluateRequest is the body of POST /api/v1/vendors/evaluate
type EvaluateRequest struct {
	BannedVendors []string `json:"banned_vendors"`
}

// VendorService defines the catalog operations the handler needs
type VendorService interface {
	LoadCatalog(ctx context.Context) ([]models.Vendor, error)
	Evaluate(ctx context.Context, banned []string) (*vendors.EvaluationResult, error)
}

// VendorHandler handles vendor catalog HTTP requests
type VendorHandler struct {
	service VendorService
	logger  *zap.Logger
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(service VendorService, logger *zap.Logger) *VendorHandler {
	return &VendorHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListVendors handles GET /api/v1/vendors
func (h *VendorHandler) HandleListVendors(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.LoadCatalog(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, catalog)
}

// HandleEvaluate handles POST /api/v1/vendors/evaluate
func (h *VendorHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.Evaluate(r.Context(), req.BannedVendors)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}
