package task

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fieldops/missiond/errors"
)

// Store handles persistence of pipeline tasks.
type Store struct {
	db *sql.DB
}

// NewStore creates a new task store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `id, org_id, mission_id, parent_task_id, type, status,
	payload, result, error, idempotency_key,
	scheduled_for, processing_started_at, created_at, updated_at`

// Create inserts a new task. If the task carries an idempotency key and a
// task with that key already exists, the insert is silently dropped and
// Create reports created=false with no error.
func (s *Store) Create(t *Task) (created bool, err error) {
	return createWith(s.db, t)
}

// CreateTx inserts a task inside the caller's transaction, so the task and
// related row updates commit or roll back together.
func (s *Store) CreateTx(tx *sql.Tx, t *Task) (created bool, err error) {
	return createWith(tx, t)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func createWith(db execer, t *Task) (created bool, err error) {
	payloadJSON, err := json.Marshal(t.Payload)
	if err != nil {
		return false, errors.Wrap(err, "failed to marshal task payload")
	}

	query := `
		INSERT INTO tasks (
			id, org_id, mission_id, parent_task_id, type, status,
			payload, error, idempotency_key, scheduled_for,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if t.IdempotencyKey != "" {
		query = `
		INSERT OR IGNORE INTO tasks (
			id, org_id, mission_id, parent_task_id, type, status,
			payload, error, idempotency_key, scheduled_for,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	}

	missionID := sql.NullString{String: t.MissionID, Valid: t.MissionID != ""}
	parentID := sql.NullString{String: t.ParentTaskID, Valid: t.ParentTaskID != ""}
	idemKey := sql.NullString{String: t.IdempotencyKey, Valid: t.IdempotencyKey != ""}

	res, err := db.Exec(query,
		t.ID,
		t.OrgID,
		missionID,
		parentID,
		t.Type,
		t.Status,
		string(payloadJSON),
		t.Error,
		idemKey,
		t.ScheduledFor,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to create task %s", t.ID)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows == 1, nil
}

// Get retrieves a task by ID.
func (s *Store) Get(id string) (*Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrTaskNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get task %s", id)
	}
	return t, nil
}

// ListDue returns up to limit pending tasks whose scheduled_for is null or
// has passed, oldest first.
func (s *Store) ListDue(now time.Time, limit int) ([]*Task, error) {
	query := `SELECT ` + selectColumns + `
		FROM tasks
		WHERE status = ?
		  AND (scheduled_for IS NULL OR scheduled_for <= ?)
		ORDER BY created_at ASC
		LIMIT ?`

	rows, err := s.db.Query(query, StatusPending, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due tasks")
	}
	defer rows.Close()

	return scanTasks(rows, "due tasks")
}

// Claim atomically transitions a task from pending to processing. Returns
// false when another driver already claimed it (or it is no longer pending).
// This is the single claim primitive every trigger source goes through; the
// conditional update closes the select-then-mark race between overlapping
// tick drivers.
func (s *Store) Claim(id string, now time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE tasks
		SET status = ?, processing_started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, StatusProcessing, now, now, id, StatusPending)
	if err != nil {
		return false, errors.Wrapf(err, "failed to claim task %s", id)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows == 1, nil
}

// Complete marks a task completed with its structured stage result.
func (s *Store) Complete(id string, result []byte) error {
	res := sql.NullString{String: string(result), Valid: len(result) > 0}
	r, err := s.db.Exec(`
		UPDATE tasks SET status = ?, result = ?, updated_at = ? WHERE id = ?
	`, StatusCompleted, res, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to complete task %s", id)
	}
	return requireRow(r, id)
}

// Fail marks a task failed with the captured error message. Failed tasks are
// terminal: no retry is scheduled, only a human or a new chained task
// restarts that lineage.
func (s *Store) Fail(id string, taskErr error) error {
	msg := "unknown error"
	if taskErr != nil {
		msg = taskErr.Error()
	}
	r, err := s.db.Exec(`
		UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, StatusFailed, msg, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to mark task %s as failed", id)
	}
	return requireRow(r, id)
}

// RecoverStale re-queues tasks stuck in processing longer than olderThan.
// Handles ungraceful shutdowns mid-execution; bounded so a crashed backlog
// does not flood the next tick.
func (s *Store) RecoverStale(olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(`
		UPDATE tasks
		SET status = ?, processing_started_at = NULL, updated_at = ?
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = ? AND processing_started_at < ?
			ORDER BY processing_started_at ASC
			LIMIT ?
		)
	`, StatusPending, time.Now().UTC(), StatusProcessing, cutoff, limit)
	if err != nil {
		return 0, errors.Wrap(err, "failed to recover stale tasks")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

// CleanupOld removes completed/failed tasks older than the given duration.
func (s *Store) CleanupOld(olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(`
		DELETE FROM tasks
		WHERE status IN (?, ?) AND updated_at < ?
	`, StatusCompleted, StatusFailed, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old tasks")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

// Stats holds task counts per status.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// GetStats returns task counts grouped by status.
func (s *Store) GetStats() (*Stats, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count tasks")
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan task counts")
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating task counts")
	}
	return stats, nil
}

// ListByMission returns all tasks for a mission, oldest first.
func (s *Store) ListByMission(missionID string) ([]*Task, error) {
	query := `SELECT ` + selectColumns + `
		FROM tasks WHERE mission_id = ? ORDER BY created_at ASC`

	rows, err := s.db.Query(query, missionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks by mission")
	}
	defer rows.Close()

	return scanTasks(rows, "mission tasks")
}

func requireRow(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrTaskNotFound, "%s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t                   Task
		missionID           sql.NullString
		parentID            sql.NullString
		payloadJSON         sql.NullString
		resultJSON          sql.NullString
		idemKey             sql.NullString
		scheduledFor        sql.NullTime
		processingStartedAt sql.NullTime
	)

	err := row.Scan(
		&t.ID, &t.OrgID, &missionID, &parentID, &t.Type, &t.Status,
		&payloadJSON, &resultJSON, &t.Error, &idemKey,
		&scheduledFor, &processingStartedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if missionID.Valid {
		t.MissionID = missionID.String
	}
	if parentID.Valid {
		t.ParentTaskID = parentID.String
	}
	if payloadJSON.Valid && payloadJSON.String != "" {
		if err := json.Unmarshal([]byte(payloadJSON.String), &t.Payload); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal payload for task %s", t.ID)
		}
	}
	if resultJSON.Valid {
		t.Result = json.RawMessage(resultJSON.String)
	}
	if idemKey.Valid {
		t.IdempotencyKey = idemKey.String
	}
	if scheduledFor.Valid {
		t.ScheduledFor = &scheduledFor.Time
	}
	if processingStartedAt.Valid {
		t.ProcessingStartedAt = &processingStartedAt.Time
	}

	return &t, nil
}

func scanTasks(rows *sql.Rows, context string) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating %s", context)
	}
	return tasks, nil
}
