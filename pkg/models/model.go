package models

import "time"

// Role is a model's current pipeline assignment. A model holds exactly one
// role at a time.
type Role string

const (
	// RolePlanner models produce proposals for tasks.
	RolePlanner Role = "planner"
	// RoleExecutor models carry out a chosen proposal.
	RoleExecutor Role = "executor"
	// RoleVerifier models run the soft verification check.
	RoleVerifier Role = "verifier"
	// RoleJudge models pick a winner among competing proposals.
	RoleJudge Role = "judge"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePlanner, RoleExecutor, RoleVerifier, RoleJudge:
		return true
	default:
		return false
	}
}

// CostTier is the ordinal cost class of a model, used as the routing
// fallback when no candidate meets the success threshold.
type CostTier string

const (
	CostTierNano     CostTier = "nano"
	CostTierMicro    CostTier = "micro"
	CostTierStandard CostTier = "standard"
	CostTierPremium  CostTier = "premium"
)

// costTierOrdinals orders tiers from cheapest to most expensive.
var costTierOrdinals = map[CostTier]int{
	CostTierNano:     0,
	CostTierMicro:    1,
	CostTierStandard: 2,
	CostTierPremium:  3,
}

// Ordinal returns the tier's position in nano < micro < standard < premium.
// Unknown tiers sort after premium so they are never preferred as a fallback.
func (t CostTier) Ordinal() int {
	if n, ok := costTierOrdinals[t]; ok {
		return n
	}
	return len(costTierOrdinals)
}

// Valid returns true if the tier is a known value.
func (t CostTier) Valid() bool {
	_, ok := costTierOrdinals[t]
	return ok
}

// ModelProfile describes one callable model in the registry.
type ModelProfile struct {
	// ID is the model identifier passed to the gateway.
	ID string `json:"id"`
	// Provider names the implementing backend.
	Provider string `json:"provider"`
	// Role is the current assignment. Mutable only by an explicit
	// human-issued role change; agent suggestions never auto-apply.
	Role Role `json:"role"`
	// CostTier is the ordinal cost class.
	CostTier CostTier `json:"costTier"`
	// CostPer1k is the USD cost per 1,000 tokens.
	CostPer1k float64 `json:"costPer1k"`
	// SuccessRate is the static baseline prior, overridden by empirical
	// per-task-type telemetry once enough calls exist.
	SuccessRate float64 `json:"successRate"`
	// AvgLatencyMs is the advertised average latency.
	AvgLatencyMs int `json:"avgLatencyMs"`
	// Enabled gates routing. A disabled model is never selected.
	Enabled bool `json:"enabled"`
}

// RoleSuggestion is an agent-issued proposal to change a model's role.
// Suggestions are appended to a capped log and never mutate the registry.
type RoleSuggestion struct {
	ID          string    `json:"id"`
	ModelID     string    `json:"modelId"`
	Role        Role      `json:"role"`
	Reason      string    `json:"reason"`
	SuggestedBy string    `json:"suggestedBy"`
	Created     time.Time `json:"created"`
}
