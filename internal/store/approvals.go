package store

import (
	"database/sql"
	"fmt"

	"github.com/example/maestro/pkg/models"
)

// SaveApproval inserts or replaces an approval request row.
func (db *DB) SaveApproval(a *models.ApprovalRequest) error {
	var decidedAt *string
	if a.DecidedAt != nil {
		s := formatTime(*a.DecidedAt)
		decidedAt = &s
	}

	_, err := db.Exec(`
		INSERT INTO approvals (id, task_id, action, payload, risk, requested_by, status,
			created, expires_at, decided_at, decided_by, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			decided_at = excluded.decided_at,
			decided_by = excluded.decided_by,
			reason = excluded.reason
	`, a.ID, a.TaskID, a.Action, a.Payload, string(a.Risk), a.RequestedBy,
		string(a.Status), formatTime(a.Created), formatTime(a.ExpiresAt),
		decidedAt, a.DecidedBy, a.Reason)
	if err != nil {
		return fmt.Errorf("save approval: %w", err)
	}
	return nil
}

// GetApproval retrieves an approval request by ID.
func (db *DB) GetApproval(id string) (*models.ApprovalRequest, error) {
	row := db.QueryRow(`
		SELECT id, task_id, action, payload, risk, requested_by, status,
			created, expires_at, decided_at, decided_by, reason
		FROM approvals WHERE id = ?
	`, id)

	a, err := scanApproval(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return a, nil
}

// ListApprovals returns approval requests newest first, optionally filtered
// by status and capped at limit (0 means no cap).
func (db *DB) ListApprovals(status models.ApprovalStatus, limit int) ([]*models.ApprovalRequest, error) {
	query := `
		SELECT id, task_id, action, payload, risk, requested_by, status,
			created, expires_at, decided_at, decided_by, reason
		FROM approvals`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []*models.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApproval(scan func(dest ...any) error) (*models.ApprovalRequest, error) {
	var a models.ApprovalRequest
	var taskID, payload, requestedBy, decidedBy, reason sql.NullString
	var risk, status, created, expiresAt string
	var decidedAt sql.NullString

	err := scan(&a.ID, &taskID, &a.Action, &payload, &risk, &requestedBy,
		&status, &created, &expiresAt, &decidedAt, &decidedBy, &reason)
	if err != nil {
		return nil, err
	}

	a.TaskID = taskID.String
	a.Payload = payload.String
	a.Risk = models.Risk(risk)
	a.RequestedBy = requestedBy.String
	a.Status = models.ApprovalStatus(status)
	a.Created, _ = parseTime(created)
	a.ExpiresAt, _ = parseTime(expiresAt)
	a.DecidedAt = parseNullableTime(decidedAt)
	a.DecidedBy = decidedBy.String
	a.Reason = reason.String
	return &a, nil
}
