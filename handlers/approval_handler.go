package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/procurement-agent/middleware"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/utils"
	"go.uber.org/zap"
)

// RejectRequest is the optional body of POST /api/v1/approvals/{id}/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ApprovalService defines the approval operations the handler needs
type ApprovalService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error)
	List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error)
	Approve(ctx context.Context, id uuid.UUID, actor string) (*models.PendingApproval, error)
	Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*models.PendingApproval, error)
}

// ApprovalHandler handles pending approval HTTP requests
type ApprovalHandler struct {
	service ApprovalService
	logger  *zap.Logger
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(service ApprovalService, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListApprovals handles GET /api/v1/approvals?status=pending
// The status filter defaults to pending; status=all lists every record.
func (h *ApprovalHandler) HandleListApprovals(w http.ResponseWriter, r *http.Request) {
	status := models.ApprovalStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = models.ApprovalPending
	case "all":
		status = ""
	}

	approvals, err := h.service.List(r.Context(), status)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, approvals)
}

// HandleGetApproval handles GET /api/v1/approvals/{id}
func (h *ApprovalHandler) HandleGetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	approval, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, approval)
}

// HandleApprove handles POST /api/v1/approvals/{id}/approve
func (h *ApprovalHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	approval, err := h.service.Approve(ctx, id, middleware.ActorFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, approval)
}

// HandleReject handles POST /api/v1/approvals/{id}/reject
func (h *ApprovalHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		HandleValidationError(w, err, h.logger)
		return
	}

	approval, err := h.service.Reject(ctx, id, middleware.ActorFromContext(ctx), req.Reason)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, approval)
}

func (h *ApprovalHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, false
	}
	return id, true
}
