package intent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/services"
	"github.com/upb/procurement-agent/services/procurement"
	"go.uber.org/zap"
)

// Procurement is the part of procurement.Service the dispatcher calls
type Procurement interface {
	StoreRules(ctx context.Context, req procurement.StoreRulesRequest) (*procurement.RulesConfirmation, error)
	ProcessOrder(ctx context.Context, req procurement.OrderRequest) (*models.Decision, error)
}

// Reply is the outcome of one message. Exactly one of Rules and Decision is set.
type Reply struct {
	Intent   Kind                           `json:"intent"`
	Rules    *procurement.RulesConfirmation `json:"rules,omitempty"`
	Decision *models.Decision               `json:"decision,omitempty"`
}

// Dispatcher routes an extracted intent to the matching procurement operation
type Dispatcher struct {
	extractor   Extractor
	procurement Procurement
	timeout     time.Duration
	logger      *zap.Logger
}

// NewDispatcher creates a new Dispatcher. A zero timeout leaves the caller's deadline in place.
func NewDispatcher(extractor Extractor, procurement Procurement, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		extractor:   extractor,
		procurement: procurement,
		timeout:     timeout,
		logger:      logger,
	}
}

// HandleMessage extracts the intent of text and performs exactly one operation for it
func (d *Dispatcher) HandleMessage(ctx context.Context, text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.ErrEmptyMessage
	}

	intent, err := d.extract(ctx, text)
	if err != nil {
		return nil, err
	}

	switch intent.Kind {
	case KindSetRules:
		confirmation, err := d.procurement.StoreRules(ctx, procurement.StoreRulesRequest{
			Site:          intent.Site,
			ApprovalLimit: intent.ApprovalLimit,
			BannedVendors: intent.BannedVendors,
		})
		if err != nil {
			return nil, err
		}
		return &Reply{Intent: intent.Kind, Rules: confirmation}, nil

	case KindProcurement:
		decision, err := d.procurement.ProcessOrder(ctx, procurement.OrderRequest{
			Site:     intent.Site,
			Item:     intent.Item,
			Quantity: intent.Quantity,
		})
		if err != nil {
			return nil, err
		}
		return &Reply{Intent: intent.Kind, Decision: decision}, nil

	default:
		d.logger.Info("message not understood", zap.Int("length", len(text)))
		return nil, services.ErrIntentUnrecognized
	}
}

func (d *Dispatcher) extract(ctx context.Context, text string) (*Intent, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	intent, err := d.extractor.Extract(ctx, text)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.NewDomainError(services.ErrorTypeExternal, services.ErrProviderTimeout.Message, err)
		}
		return nil, err
	}
	return intent, nil
}
