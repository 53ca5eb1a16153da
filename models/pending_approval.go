package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus is the lifecycle state of a held order
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PendingApproval is an AwaitingApproval decision held for a human reviewer.
// Once resolved, Decision holds the terminal outcome.
type PendingApproval struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	Decision   *Decision      `json:"decision" db:"decision"`
	Status     ApprovalStatus `json:"status" db:"status"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy string         `json:"resolved_by,omitempty" db:"resolved_by"`
}

// NewPendingApproval wraps an awaiting decision under a fresh order ID and stamps the ID on it.
func NewPendingApproval(decision *Decision) *PendingApproval {
	id := uuid.New()
	held := decision.Clone()
	held.OrderID = &id
	return &PendingApproval{
		ID:        id,
		Decision:  held,
		Status:    ApprovalPending,
		CreatedAt: time.Now().UTC(),
	}
}

// IsPending reports whether the approval is still open
func (p *PendingApproval) IsPending() bool {
	return p.Status == ApprovalPending
}

// Clone returns a deep copy
func (p *PendingApproval) Clone() *PendingApproval {
	out := *p
	if p.Decision != nil {
		out.Decision = p.Decision.Clone()
	}
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}
