package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/maestro/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SaveTask inserts or replaces a task row. Tasks are never deleted, only
// marked failed on cancellation.
func (db *DB) SaveTask(t *models.Task) error {
	proposals, err := json.Marshal(t.Proposals)
	if err != nil {
		return fmt.Errorf("marshal proposals: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO tasks (id, type, description, autonomy, status, planner, executor, verifier,
			proposal, proposals, result, error, approval_id, created, updated, generation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			planner = excluded.planner,
			executor = excluded.executor,
			verifier = excluded.verifier,
			proposal = excluded.proposal,
			proposals = excluded.proposals,
			result = excluded.result,
			error = excluded.error,
			approval_id = excluded.approval_id,
			updated = excluded.updated,
			generation = excluded.generation
	`, t.ID, t.Type, t.Description, string(t.Autonomy), string(t.Status),
		t.Planner, t.Executor, t.Verifier, t.Proposal, string(proposals),
		t.Result, t.Error, t.ApprovalID, formatTime(t.Created), formatTime(t.Updated), t.Generation)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns ErrNotFound if it does not exist.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, type, description, autonomy, status, planner, executor, verifier,
			proposal, proposals, result, error, approval_id, created, updated, generation
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks newest first, optionally filtered by status and
// capped at limit (0 means no cap). The second return value is the total
// number of tasks matching the filter before the cap.
func (db *DB) ListTasks(status models.TaskStatus, limit int) ([]*models.Task, int, error) {
	var total int
	var err error
	if status != "" {
		err = db.QueryRow("SELECT COUNT(*) FROM tasks WHERE status = ?", string(status)).Scan(&total)
	} else {
		err = db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&total)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := `
		SELECT id, type, description, autonomy, status, planner, executor, verifier,
			proposal, proposals, result, error, approval_id, created, updated, generation
		FROM tasks`
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
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// scanTask reads one task row via the provided scan function.
func scanTask(scan func(dest ...any) error) (*models.Task, error) {
	var t models.Task
	var autonomy, status string
	var planner, executor, verifier, proposal, proposals, result, taskErr, approvalID sql.NullString
	var created, updated string

	err := scan(&t.ID, &t.Type, &t.Description, &autonomy, &status,
		&planner, &executor, &verifier, &proposal, &proposals,
		&result, &taskErr, &approvalID, &created, &updated, &t.Generation)
	if err != nil {
		return nil, err
	}

	t.Autonomy = models.Autonomy(autonomy)
	t.Status = models.TaskStatus(status)
	t.Planner = planner.String
	t.Executor = executor.String
	t.Verifier = verifier.String
	t.Proposal = proposal.String
	t.Result = result.String
	t.Error = taskErr.String
	t.ApprovalID = approvalID.String
	t.Created, _ = parseTime(created)
	t.Updated, _ = parseTime(updated)

	if proposals.Valid && proposals.String != "" && proposals.String != "null" {
		if err := json.Unmarshal([]byte(proposals.String), &t.Proposals); err != nil {
			return nil, fmt.Errorf("unmarshal proposals: %w", err)
		}
	}

	return &t, nil
}
