package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DecisionStatus is the tag of a procurement decision
type DecisionStatus string

const (
	DecisionApproved         DecisionStatus = "APPROVED"
	DecisionAwaitingApproval DecisionStatus = "AWAITING_APPROVAL"
	DecisionRejected         DecisionStatus = "REJECTED"
	DecisionError            DecisionStatus = "ERROR"
)

// Decision is the outcome of an order evaluation. Which fields are set depends on Status:
// Approved and AwaitingApproval carry vendor, cost and limit; Rejected carries a reason
// and either the banned list or a rejection reason; Error carries only a reason.
type Decision struct {
	Status          DecisionStatus `json:"status"`
	OrderID         *uuid.UUID     `json:"order_id,omitempty"`
	Site            string         `json:"site,omitempty"`
	Item            string         `json:"item,omitempty"`
	Quantity        int            `json:"quantity,omitempty"`
	SelectedVendor  string         `json:"selected_vendor,omitempty"`
	Cost            int64          `json:"-"` // see MarshalJSON
	ApprovalLimit   int64          `json:"-"`
	Reason          string         `json:"reason,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	BannedVendors   []string       `json:"banned_vendors,omitempty"`
}

// carriesCost reports whether cost and limit are part of this outcome
func (d Decision) carriesCost() bool {
	return d.Status == DecisionApproved || d.Status == DecisionAwaitingApproval
}

// decisionFields has the same fields as Decision but none of its methods
type decisionFields Decision

// MarshalJSON always writes total_cost and approval_limit for Approved and AwaitingApproval,
// zero included. AwaitingApproval also carries the held amount.
func (d Decision) MarshalJSON() ([]byte, error) {
	out := struct {
		decisionFields
		Cost          *int64 `json:"total_cost,omitempty"`
		ApprovalLimit *int64 `json:"approval_limit,omitempty"`
		Amount        *int64 `json:"amount,omitempty"`
	}{decisionFields: decisionFields(d)}

	if d.carriesCost() {
		cost, limit := d.Cost, d.ApprovalLimit
		out.Cost = &cost
		out.ApprovalLimit = &limit
		if d.Status == DecisionAwaitingApproval {
			out.Amount = &cost
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON
func (d *Decision) UnmarshalJSON(data []byte) error {
	var in struct {
		decisionFields
		Cost          *int64 `json:"total_cost"`
		ApprovalLimit *int64 `json:"approval_limit"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*d = Decision(in.decisionFields)
	if in.Cost != nil {
		d.Cost = *in.Cost
	}
	if in.ApprovalLimit != nil {
		d.ApprovalLimit = *in.ApprovalLimit
	}
	return nil
}

// IsTerminal reports whether no further transition is defined from this decision
func (d *Decision) IsTerminal() bool {
	return d.Status != DecisionAwaitingApproval
}

// Clone returns a deep copy so transitions never mutate their input
func (d *Decision) Clone() *Decision {
	out := *d
	if d.OrderID != nil {
		id := *d.OrderID
		out.OrderID = &id
	}
	if d.BannedVendors != nil {
		out.BannedVendors = append([]string(nil), d.BannedVendors...)
	}
	return &out
}
