// Package approval decides whether an order's cost needs human sign-off and
// holds awaiting orders until a reviewer approves or rejects them.
package approval

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/services"
)

// DefaultRejectionReason is attached when a reviewer rejects without a reason
const DefaultRejectionReason = "Rejected by manager"

// Gate compares a cost to an approval limit. It holds no state.
type Gate struct {
	currency string
}

// NewGate creates a gate that formats amounts with the given currency symbol
func NewGate(currencySymbol string) *Gate {
	return &Gate{currency: currencySymbol}
}

// FormatAmount renders an amount with the currency symbol and thousands separators
func (g *Gate) FormatAmount(amount int64) string {
	return g.currency + humanize.Comma(amount)
}

// Decide approves a cost within the limit and pauses anything above it for review
func (g *Gate) Decide(site, vendor string, cost, limit int64) *models.Decision {
	d := &models.Decision{
		Site:           site,
		SelectedVendor: vendor,
		Cost:           cost,
		ApprovalLimit:  limit,
	}

	if cost <= limit {
		d.Status = models.DecisionApproved
		d.Reason = fmt.Sprintf("Cost %s is within approval limit of %s", g.FormatAmount(cost), g.FormatAmount(limit))
		return d
	}

	d.Status = models.DecisionAwaitingApproval
	d.Reason = fmt.Sprintf("Cost %s exceeds site approval limit of %s", g.FormatAmount(cost), g.FormatAmount(limit))
	return d
}

// Approve turns an awaiting decision into an approved one. Fields are copied; d is not modified.
func Approve(d *models.Decision) (*models.Decision, error) {
	if d == nil || d.IsTerminal() {
		return nil, services.ErrInvalidTransition
	}
	out := d.Clone()
	out.Status = models.DecisionApproved
	return out, nil
}

// Reject turns an awaiting decision into a rejected one carrying reason,
// or DefaultRejectionReason when reason is empty.
func Reject(d *models.Decision, reason string) (*models.Decision, error) {
	if d == nil || d.IsTerminal() {
		return nil, services.ErrInvalidTransition
	}
	if reason == "" {
		reason = DefaultRejectionReason
	}
	out := d.Clone()
	out.Status = models.DecisionRejected
	out.RejectionReason = reason
	return out, nil
}
