package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"outreach_engine/internal/model"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotRunning = errors.New("task is not running")
)

// CreateTask stores a new running task and returns it with its generated id.
func (s *Store) CreateTask(ctx context.Context, kind model.TaskKind, payload model.TaskPayload) (model.Task, error) {
	if !kind.Valid() {
		return model.Task{}, fmt.Errorf("unknown task kind %q", kind)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return model.Task{}, err
	}
	now := time.Now()
	task := model.Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    model.TaskRunning,
		Payload:   payload,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
		UpdatedAt: time.UnixMilli(now.UnixMilli()),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, status, message, payload_json, result_json, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, '', ?, ?)
	`, task.ID, string(kind), string(task.Status), string(payloadJSON), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// MarkTerminal moves a running task to status. A task only leaves running once.
func (s *Store) MarkTerminal(ctx context.Context, taskID string, status model.TaskStatus, message string, result *model.CampaignResult) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	resultJSON := ""
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		resultJSON = string(b)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, message = ?, result_json = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(status), message, resultJSON, time.Now().UnixMilli(), taskID, string(model.TaskRunning))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return err
	}
	return ErrTaskNotRunning
}

// FailRunningTasks marks every task still running as error; used at startup after an unclean exit.
func (s *Store) FailRunningTasks(ctx context.Context, message string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, message = ?, updated_at = ? WHERE status = ?
	`, string(model.TaskError), message, time.Now().UnixMilli(), string(model.TaskRunning))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, status, message, payload_json, result_json, created_at, updated_at
		FROM tasks WHERE id = ?
	`, strings.TrimSpace(id))
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrTaskNotFound
	}
	return task, err
}

// ListTasks returns the newest tasks first. An empty kind lists every kind.
func (s *Store) ListTasks(ctx context.Context, kind model.TaskKind, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, kind, status, message, payload_json, result_json, created_at, updated_at
			FROM tasks ORDER BY created_at DESC, id LIMIT ?
		`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, kind, status, message, payload_json, result_json, created_at, updated_at
			FROM tasks WHERE kind = ? ORDER BY created_at DESC, id LIMIT ?
		`, string(kind), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var row struct {
		id          string
		kind        string
		status      string
		message     string
		payloadJSON string
		resultJSON  string
		createdAt   int64
		updatedAt   int64
	}
	if err := r.Scan(&row.id, &row.kind, &row.status, &row.message, &row.payloadJSON, &row.resultJSON, &row.createdAt, &row.updatedAt); err != nil {
		return model.Task{}, err
	}
	task := model.Task{
		ID:        row.id,
		Kind:      model.TaskKind(row.kind),
		Status:    model.TaskStatus(row.status),
		Message:   row.message,
		CreatedAt: time.UnixMilli(row.createdAt),
		UpdatedAt: time.UnixMilli(row.updatedAt),
	}
	_ = json.Unmarshal([]byte(row.payloadJSON), &task.Payload)
	if row.resultJSON != "" {
		var result model.CampaignResult
		if err := json.Unmarshal([]byte(row.resultJSON), &result); err == nil {
			task.Result = &result
		}
	}
	return task, nil
}
