package store

import (
	"database/sql"
	"fmt"

	"github.com/example/maestro/pkg/models"
)

// SaveModel inserts or replaces a model profile. Registration order is
// preserved across updates via the seq column, so routing tie-breaks stay
// stable.
func (db *DB) SaveModel(m *models.ModelProfile) error {
	_, err := db.Exec(`
		INSERT INTO model_profiles (id, provider, role, cost_tier, cost_per_1k, success_rate, avg_latency_ms, enabled, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM model_profiles))
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			role = excluded.role,
			cost_tier = excluded.cost_tier,
			cost_per_1k = excluded.cost_per_1k,
			success_rate = excluded.success_rate,
			avg_latency_ms = excluded.avg_latency_ms,
			enabled = excluded.enabled
	`, m.ID, m.Provider, string(m.Role), string(m.CostTier), m.CostPer1k,
		m.SuccessRate, m.AvgLatencyMs, boolToInt(m.Enabled))
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// GetModel retrieves a model profile by ID.
func (db *DB) GetModel(id string) (*models.ModelProfile, error) {
	row := db.QueryRow(`
		SELECT id, provider, role, cost_tier, cost_per_1k, success_rate, avg_latency_ms, enabled
		FROM model_profiles WHERE id = ?
	`, id)

	m, err := scanModel(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// ListModels returns all model profiles in registration order.
func (db *DB) ListModels() ([]*models.ModelProfile, error) {
	rows, err := db.Query(`
		SELECT id, provider, role, cost_tier, cost_per_1k, success_rate, avg_latency_ms, enabled
		FROM model_profiles ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var profiles []*models.ModelProfile
	for rows.Next() {
		m, err := scanModel(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		profiles = append(profiles, m)
	}
	return profiles, rows.Err()
}

// CountModels returns the number of registered model profiles.
func (db *DB) CountModels() (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM model_profiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("count models: %w", err)
	}
	return n, nil
}

// AppendSuggestion appends a role suggestion and trims the log to the most
// recent maxSuggestions entries.
func (db *DB) AppendSuggestion(s *models.RoleSuggestion) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO role_suggestions (id, model_id, role, reason, suggested_by, created)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.ID, s.ModelID, string(s.Role), s.Reason, s.SuggestedBy, formatTime(s.Created))
		if err != nil {
			return fmt.Errorf("insert suggestion: %w", err)
		}

		_, err = tx.Exec(`
			DELETE FROM role_suggestions WHERE id NOT IN (
				SELECT id FROM role_suggestions ORDER BY created DESC, rowid DESC LIMIT ?
			)
		`, db.maxSuggestions)
		if err != nil {
			return fmt.Errorf("trim suggestions: %w", err)
		}
		return nil
	})
}

// ListSuggestions returns suggestions newest first, optionally filtered by
// model ID.
func (db *DB) ListSuggestions(modelID string) ([]*models.RoleSuggestion, error) {
	query := `
		SELECT id, model_id, role, reason, suggested_by, created
		FROM role_suggestions`
	args := []any{}
	if modelID != "" {
		query += " WHERE model_id = ?"
		args = append(args, modelID)
	}
	query += " ORDER BY created DESC, rowid DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []*models.RoleSuggestion
	for rows.Next() {
		var s models.RoleSuggestion
		var role string
		var reason, suggestedBy sql.NullString
		var created string
		if err := rows.Scan(&s.ID, &s.ModelID, &role, &reason, &suggestedBy, &created); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		s.Role = models.Role(role)
		s.Reason = reason.String
		s.SuggestedBy = suggestedBy.String
		s.Created, _ = parseTime(created)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanModel(scan func(dest ...any) error) (*models.ModelProfile, error) {
	var m models.ModelProfile
	var role, tier string
	var enabled int

	err := scan(&m.ID, &m.Provider, &role, &tier, &m.CostPer1k,
		&m.SuccessRate, &m.AvgLatencyMs, &enabled)
	if err != nil {
		return nil, err
	}

	m.Role = models.Role(role)
	m.CostTier = models.CostTier(tier)
	m.Enabled = enabled != 0
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
