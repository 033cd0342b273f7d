// Package router selects models for pipeline stages by maximizing the
// empirical-success-rate-per-dollar score.
package router

import (
	"log/slog"

	"github.com/example/maestro/internal/registry"
	"github.com/example/maestro/internal/telemetry"
	"github.com/example/maestro/pkg/models"
)

// Router picks the best enabled model for a role and task type.
type Router struct {
	registry  *registry.Registry
	telemetry *telemetry.Telemetry
	log       *slog.Logger

	// Threshold is the minimum effective success rate a candidate must
	// clear before scoring. Candidates below it only win via the
	// cheapest-tier fallback.
	Threshold float64
}

// New creates a Router. threshold <= 0 falls back to the default 0.7.
func New(reg *registry.Registry, tel *telemetry.Telemetry, threshold float64, log *slog.Logger) *Router {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Router{
		registry:  reg,
		telemetry: tel,
		log:       log.With("component", "router"),
		Threshold: threshold,
	}
}

// PickModel returns the enabled model with the given role that maximizes
// effectiveRate / (costPer1k + epsilon) among candidates meeting the
// success threshold. When no candidate meets the threshold it falls back to
// the lowest cost tier, ties broken by registration order, so a model is
// always returned whenever at least one enabled candidate exists. Returns
// nil when no enabled model holds the role.
func (r *Router) PickModel(role models.Role, taskType string) (*models.ModelProfile, error) {
	all, err := r.registry.List()
	if err != nil {
		return nil, err
	}

	var candidates []*models.ModelProfile
	for _, m := range all {
		if m.Enabled && m.Role == role {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *models.ModelProfile
	bestScore := -1.0
	for _, c := range candidates {
		rate := r.telemetry.EffectiveRate(c, taskType)
		if rate < r.Threshold {
			continue
		}
		score := telemetry.Score(rate, c.CostPer1k)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	if best != nil {
		r.log.Debug("routed", "role", role, "task_type", taskType, "model", best.ID)
		return best, nil
	}

	// No survivor met the threshold: cheapest tier wins, first registered
	// breaking ties.
	fallback := candidates[0]
	for _, c := range candidates[1:] {
		if c.CostTier.Ordinal() < fallback.CostTier.Ordinal() {
			fallback = c
		}
	}
	r.log.Debug("routed via cheapest-tier fallback", "role", role, "task_type", taskType, "model", fallback.ID)
	return fallback, nil
}
