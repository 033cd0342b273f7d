package store

import (
	"database/sql"
	"fmt"

	"github.com/example/maestro/pkg/models"
)

// AppendTelemetry appends an immutable telemetry record. When the DB was
// opened with a telemetry cap, the oldest records beyond the cap are pruned
// in the same transaction.
func (db *DB) AppendTelemetry(r *models.TelemetryRecord) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO telemetry (id, ts, model, provider, task_type, success, latency_ms, tokens, cost_usd, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, formatTime(r.TS), r.Model, r.Provider, r.TaskType,
			boolToInt(r.Success), r.LatencyMs, r.Tokens, r.CostUSD, nullString(r.Error))
		if err != nil {
			return fmt.Errorf("insert telemetry: %w", err)
		}

		if db.maxTelemetry > 0 {
			_, err = tx.Exec(`
				DELETE FROM telemetry WHERE id NOT IN (
					SELECT id FROM telemetry ORDER BY ts DESC, rowid DESC LIMIT ?
				)
			`, db.maxTelemetry)
			if err != nil {
				return fmt.Errorf("trim telemetry: %w", err)
			}
		}
		return nil
	})
}

// ListTelemetry returns telemetry records oldest first, optionally filtered
// by model. Records are aggregated by the caller; they are never mutated.
func (db *DB) ListTelemetry(model string) ([]*models.TelemetryRecord, error) {
	query := `
		SELECT id, ts, model, provider, task_type, success, latency_ms, tokens, cost_usd, error
		FROM telemetry`
	args := []any{}
	if model != "" {
		query += " WHERE model = ?"
		args = append(args, model)
	}
	query += " ORDER BY ts ASC, rowid ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	defer rows.Close()

	var out []*models.TelemetryRecord
	for rows.Next() {
		var r models.TelemetryRecord
		var ts string
		var success int
		var provider, recErr sql.NullString
		if err := rows.Scan(&r.ID, &ts, &r.Model, &provider, &r.TaskType,
			&success, &r.LatencyMs, &r.Tokens, &r.CostUSD, &recErr); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		r.TS, _ = parseTime(ts)
		r.Provider = provider.String
		r.Success = success != 0
		r.Error = recErr.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PairCalls returns the number of telemetry records and the number of
// successes for a (model, taskType) pair. The router uses this to decide
// whether empirical data overrides a model's static prior.
func (db *DB) PairCalls(model, taskType string) (calls, successes int, err error) {
	row := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(success), 0)
		FROM telemetry WHERE model = ? AND task_type = ?
	`, model, taskType)
	if err := row.Scan(&calls, &successes); err != nil {
		return 0, 0, fmt.Errorf("pair calls: %w", err)
	}
	return calls, successes, nil
}
