package db

import (
	"context"
	"database/sql"
)

const mainTaskColumns = `id, title, description, status, duration, user_id, created_at, updated_at`

func scanMainTask(row interface{ Scan(...any) error }) (MainTask, error) {
	var t MainTask
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Duration, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const createMainTask = `INSERT INTO main_tasks (` + mainTaskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateMainTaskParams struct {
	ID          string
	Title       string
	Description string
	Status      string
	Duration    sql.NullInt64
	UserID      string
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateMainTask(ctx context.Context, arg CreateMainTaskParams) error {
	_, err := q.db.ExecContext(ctx, createMainTask,
		arg.ID, arg.Title, arg.Description, arg.Status, arg.Duration, arg.UserID, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

const getMainTask = `SELECT ` + mainTaskColumns + ` FROM main_tasks WHERE id = ?`

func (q *Queries) GetMainTask(ctx context.Context, id string) (MainTask, error) {
	return scanMainTask(q.db.QueryRowContext(ctx, getMainTask, id))
}

const listMainTasksByUser = `SELECT ` + mainTaskColumns + ` FROM main_tasks
WHERE user_id = ? ORDER BY created_at DESC, id`

func (q *Queries) ListMainTasksByUser(ctx context.Context, userID string) ([]MainTask, error) {
	rows, err := q.db.QueryContext(ctx, listMainTasksByUser, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []MainTask{}
	for rows.Next() {
		t, err := scanMainTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const countMainTasksByUser = `SELECT COUNT(*) FROM main_tasks WHERE user_id = ?`

func (q *Queries) CountMainTasksByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countMainTasksByUser, userID).Scan(&count)
	return count, err
}

const updateMainTaskStatus = `UPDATE main_tasks SET status = ?, updated_at = ? WHERE id = ?`

type UpdateMainTaskStatusParams struct {
	Status    string
	UpdatedAt int64
	ID        string
}

func (q *Queries) UpdateMainTaskStatus(ctx context.Context, arg UpdateMainTaskStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateMainTaskStatus, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteMainTask = `DELETE FROM main_tasks WHERE id = ?`

func (q *Queries) DeleteMainTask(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMainTask, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const subtaskColumns = `id, task_id, position, title, description, status, duration, start_at, end_at, created_at, updated_at`

func scanSubtask(row interface{ Scan(...any) error }) (Subtask, error) {
	var s Subtask
	err := row.Scan(&s.ID, &s.TaskID, &s.Position, &s.Title, &s.Description, &s.Status,
		&s.Duration, &s.StartAt, &s.EndAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const createSubtask = `INSERT INTO subtasks (` + subtaskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateSubtaskParams struct {
	ID          string
	TaskID      string
	Position    int64
	Title       string
	Description string
	Status      string
	Duration    int64
	StartAt     sql.NullInt64
	EndAt       sql.NullInt64
	CreatedAt   int64
	UpdatedAt   int64
}

func (q *Queries) CreateSubtask(ctx context.Context, arg CreateSubtaskParams) error {
	_, err := q.db.ExecContext(ctx, createSubtask,
		arg.ID, arg.TaskID, arg.Position, arg.Title, arg.Description, arg.Status,
		arg.Duration, arg.StartAt, arg.EndAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return err
}

const getSubtask = `SELECT ` + subtaskColumns + ` FROM subtasks WHERE id = ?`

func (q *Queries) GetSubtask(ctx context.Context, id string) (Subtask, error) {
	return scanSubtask(q.db.QueryRowContext(ctx, getSubtask, id))
}

const listSubtasksByTask = `SELECT ` + subtaskColumns + ` FROM subtasks
WHERE task_id = ? ORDER BY position, id`

func (q *Queries) ListSubtasksByTask(ctx context.Context, taskID string) ([]Subtask, error) {
	rows, err := q.db.QueryContext(ctx, listSubtasksByTask, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Subtask{}
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const countSubtasksByTask = `SELECT COUNT(*) FROM subtasks WHERE task_id = ?`

func (q *Queries) CountSubtasksByTask(ctx context.Context, taskID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSubtasksByTask, taskID).Scan(&count)
	return count, err
}

const updateSubtaskStatus = `UPDATE subtasks SET status = ?, updated_at = ? WHERE id = ?`

type UpdateSubtaskStatusParams struct {
	Status    string
	UpdatedAt int64
	ID        string
}

func (q *Queries) UpdateSubtaskStatus(ctx context.Context, arg UpdateSubtaskStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateSubtaskStatus, arg.Status, arg.UpdatedAt, arg.ID)
	return err
}
