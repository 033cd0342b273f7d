// Package registry manages the roster of callable models and the
// append-only role suggestion log.
package registry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/maestro/internal/store"
	"github.com/example/maestro/pkg/models"
)

// Registry holds the roster of callable models. Role and enable changes are
// applied immediately and persisted. Agent suggestions are appended to a
// capped log and never mutate a profile. There is no removal operation;
// models are only enabled or disabled.
type Registry struct {
	db  *store.DB
	log *slog.Logger
}

// New creates a Registry backed by the given store.
func New(db *store.DB, log *slog.Logger) *Registry {
	return &Registry{db: db, log: log.With("component", "registry")}
}

// List returns all model profiles in registration order.
func (r *Registry) List() ([]*models.ModelProfile, error) {
	return r.db.ListModels()
}

// Get returns a model profile by ID, or store.ErrNotFound.
func (r *Registry) Get(id string) (*models.ModelProfile, error) {
	return r.db.GetModel(id)
}

// Register adds or replaces a model profile.
func (r *Registry) Register(m *models.ModelProfile) error {
	if m.Role != "" && !m.Role.Valid() {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	return r.db.SaveModel(m)
}

// SetRole applies a human-issued role and/or enable change. Nil fields are
// left untouched.
func (r *Registry) SetRole(id string, role *models.Role, enabled *bool) (*models.ModelProfile, error) {
	m, err := r.db.GetModel(id)
	if err != nil {
		return nil, err
	}

	if role != nil {
		if !role.Valid() {
			return nil, fmt.Errorf("invalid role %q", *role)
		}
		m.Role = *role
	}
	if enabled != nil {
		m.Enabled = *enabled
	}

	if err := r.db.SaveModel(m); err != nil {
		return nil, err
	}

	r.log.Info("model updated", "model", id, "role", m.Role, "enabled", m.Enabled)
	return m, nil
}

// RecordSuggestion appends an agent-issued role suggestion. The live
// registry is never mutated by a suggestion.
func (r *Registry) RecordSuggestion(id string, role models.Role, reason, suggestedBy string) (*models.RoleSuggestion, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if _, err := r.db.GetModel(id); err != nil {
		return nil, err
	}

	s := &models.RoleSuggestion{
		ID:          uuid.NewString(),
		ModelID:     id,
		Role:        role,
		Reason:      reason,
		SuggestedBy: suggestedBy,
		Created:     time.Now().UTC(),
	}
	if err := r.db.AppendSuggestion(s); err != nil {
		return nil, err
	}

	r.log.Info("role suggestion recorded", "model", id, "role", role, "by", suggestedBy)
	return s, nil
}

// Suggestions returns recorded suggestions newest first, optionally
// filtered by model ID.
func (r *Registry) Suggestions(modelID string) ([]*models.RoleSuggestion, error) {
	return r.db.ListSuggestions(modelID)
}

// SeedDefaults registers the default roster when the registry is empty.
// The roster is operator-editable afterwards.
func (r *Registry) SeedDefaults() error {
	n, err := r.db.CountModels()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, m := range defaultRoster {
		profile := m
		if err := r.db.SaveModel(&profile); err != nil {
			return fmt.Errorf("seed model %s: %w", m.ID, err)
		}
	}

	r.log.Info("seeded default model roster", "models", len(defaultRoster))
	return nil
}

// defaultRoster is the out-of-the-box model set: one model per role across
// cost tiers, with baseline priors that the telemetry loop refines.
var defaultRoster = []models.ModelProfile{
	{ID: "claude-opus-4", Provider: "anthropic", Role: models.RolePlanner, CostTier: models.CostTierPremium, CostPer1k: 0.015, SuccessRate: 0.93, AvgLatencyMs: 4200, Enabled: true},
	{ID: "claude-sonnet-4", Provider: "anthropic", Role: models.RolePlanner, CostTier: models.CostTierStandard, CostPer1k: 0.003, SuccessRate: 0.9, AvgLatencyMs: 2600, Enabled: true},
	{ID: "gpt-4o", Provider: "openai", Role: models.RoleExecutor, CostTier: models.CostTierStandard, CostPer1k: 0.0025, SuccessRate: 0.88, AvgLatencyMs: 2400, Enabled: true},
	{ID: "gpt-4o-mini", Provider: "openai", Role: models.RoleExecutor, CostTier: models.CostTierMicro, CostPer1k: 0.00015, SuccessRate: 0.82, AvgLatencyMs: 1200, Enabled: true},
	{ID: "claude-haiku-3-5", Provider: "anthropic", Role: models.RoleVerifier, CostTier: models.CostTierNano, CostPer1k: 0.0008, SuccessRate: 0.85, AvgLatencyMs: 900, Enabled: true},
	{ID: "gemini-2-flash", Provider: "google", Role: models.RoleJudge, CostTier: models.CostTierMicro, CostPer1k: 0.0001, SuccessRate: 0.84, AvgLatencyMs: 1100, Enabled: true},
}
