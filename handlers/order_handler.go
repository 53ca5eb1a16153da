package handlers

import (
	"context"
	"net/http"

	"github.com/upb/procurement-agent/middleware"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/services/intent"
	"github.com/upb/procurement-agent/services/procurement"
	"github.com/upb/procurement-agent/utils"
	"go.uber.org/zap"
)

// OrderService defines the order operation the handler needs
type OrderService interface {
	ProcessOrder(ctx context.Context, req procurement.OrderRequest) (*models.Decision, error)
}

// MessageDispatcher defines the conversational entry point
type MessageDispatcher interface {
	HandleMessage(ctx context.Context, text string) (*intent.Reply, error)
}

// MessageRequest is the body of POST /api/v1/messages
type MessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// OrderHandler handles order and message HTTP requests
type OrderHandler struct {
	orders     OrderService
	dispatcher MessageDispatcher
	logger     *zap.Logger
}

// NewOrderHandler creates a new OrderHandler. dispatcher may be nil when no language model is configured.
func NewOrderHandler(orders OrderService, dispatcher MessageDispatcher, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:     orders,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleCreateOrder handles POST /api/v1/orders
func (h *OrderHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req procurement.OrderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	decision, err := h.orders.ProcessOrder(r.Context(), req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeDecision(w, decision)
}

// HandleMessage handles POST /api/v1/messages
func (h *OrderHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.dispatcher == nil {
		_ = utils.WriteError(w, http.StatusServiceUnavailable, "No language model provider is configured", nil)
		return
	}

	var req MessageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	reply, err := h.dispatcher.HandleMessage(ctx, req.Message)
	if err != nil {
		h.logger.Info("message not handled",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if reply.Decision != nil && reply.Decision.Status == models.DecisionAwaitingApproval {
		_ = utils.WriteAccepted(w, reply)
		return
	}
	_ = utils.WriteOK(w, reply)
}

// writeDecision answers 202 for orders held for review and 200 for every other outcome
func writeDecision(w http.ResponseWriter, decision *models.Decision) {
	if decision.Status == models.DecisionAwaitingApproval {
		_ = utils.WriteAccepted(w, decision)
		return
	}
	_ = utils.WriteOK(w, decision)
}
