package db

import "context"

// TaskExport is a row of the task_exports table.
type TaskExport struct {
	TaskID    string
	Target    string
	Payload   []byte
	CreatedAt int64
	UpdatedAt int64
}

const upsertTaskExport = `INSERT INTO task_exports (task_id, target, payload, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (task_id, target) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

type UpsertTaskExportParams struct {
	TaskID    string
	Target    string
	Payload   []byte
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) UpsertTaskExport(ctx context.Context, arg UpsertTaskExportParams) error {
	_, err := q.db.ExecContext(ctx, upsertTaskExport, arg.TaskID, arg.Target, arg.Payload, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const getTaskExport = `SELECT task_id, target, payload, created_at, updated_at
FROM task_exports WHERE task_id = ? AND target = ?`

func (q *Queries) GetTaskExport(ctx context.Context, taskID, target string) (TaskExport, error) {
	var e TaskExport
	err := q.db.QueryRowContext(ctx, getTaskExport, taskID, target).
		Scan(&e.TaskID, &e.Target, &e.Payload, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const deleteTaskExport = `DELETE FROM task_exports WHERE task_id = ? AND target = ?`

func (q *Queries) DeleteTaskExport(ctx context.Context, taskID, target string) error {
	_, err := q.db.ExecContext(ctx, deleteTaskExport, taskID, target)
	return err
}
