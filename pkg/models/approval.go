package models

import "time"

// Risk classifies how destructive an action could be. It drives the
// approval requirement for assisted tasks.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// riskLevels orders risks from least to most severe.
var riskLevels = map[Risk]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Level returns the risk's ordinal severity. Unknown risks map to low.
func (r Risk) Level() int {
	return riskLevels[r]
}

// AtLeast returns true if r is as severe as min or more.
func (r Risk) AtLeast(min Risk) bool {
	return r.Level() >= min.Level()
}

// Valid returns true if the risk is a known value.
func (r Risk) Valid() bool {
	_, ok := riskLevels[r]
	return ok
}

// ApprovalStatus is the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// ApprovalRequest is a pending or resolved human decision. Once the status
// leaves pending the request is immutable; re-deciding is a no-op that
// returns the original decision.
type ApprovalRequest struct {
	ID          string         `json:"id"`
	TaskID      string         `json:"taskId,omitempty"`
	Action      string         `json:"action"`
	Payload     string         `json:"payload,omitempty"`
	Risk        Risk           `json:"risk"`
	RequestedBy string         `json:"requestedBy"`
	Status      ApprovalStatus `json:"status"`
	Created     time.Time      `json:"created"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	DecidedAt   *time.Time     `json:"decidedAt,omitempty"`
	DecidedBy   string         `json:"decidedBy,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}
