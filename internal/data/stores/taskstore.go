package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/data/db"
	"github.com/google/uuid"
)

// TaskStore implements task.Store using SQLite.
type TaskStore struct {
	db *db.DB
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(db *db.DB) *TaskStore {
	return &TaskStore{db: db}
}

// CreateWithSubtasks persists a main task and its subtasks in one transaction.
// Missing IDs, timestamps, statuses and subtask durations are filled in, and
// the main task duration is derived from the subtasks.
func (s *TaskStore) CreateWithSubtasks(ctx context.Context, t *task.MainTask) error {
	now := time.Now()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	if !t.Status.IsValid() {
		return &task.ValidationError{Field: "status", Message: "Invalid status value", Value: string(t.Status)}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt

	durations := make([]int, 0, len(t.Subtasks))
	for i := range t.Subtasks {
		sub := &t.Subtasks[i]
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		sub.TaskID = t.ID
		if sub.Status == "" {
			sub.Status = task.StatusPending
		}
		if !sub.Status.IsValid() {
			return &task.ValidationError{Field: fmt.Sprintf("subtasks[%d].status", i), Message: "Invalid status value", Value: string(sub.Status)}
		}
		if sub.Duration <= 0 {
			sub.Duration = task.DefaultSubtaskDuration
		}
		sub.CreatedAt = t.CreatedAt
		sub.UpdatedAt = t.CreatedAt
		durations = append(durations, sub.Duration)
	}
	total := task.TotalDuration(durations)
	t.Duration = &total

	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		err := q.CreateMainTask(ctx, db.CreateMainTaskParams{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.Status),
			Duration:    sql.NullInt64{Int64: int64(total), Valid: true},
			UserID:      t.UserID,
			CreatedAt:   t.CreatedAt.UnixNano(),
			UpdatedAt:   t.UpdatedAt.UnixNano(),
		})
		if err != nil {
			return fmt.Errorf("insert main task: %w", err)
		}

		for i, sub := range t.Subtasks {
			err := q.CreateSubtask(ctx, db.CreateSubtaskParams{
				ID:          sub.ID,
				TaskID:      t.ID,
				Position:    int64(i),
				Title:       sub.Title,
				Description: sub.Description,
				Status:      string(sub.Status),
				Duration:    int64(sub.Duration),
				StartAt:     toNullTime(sub.StartAt),
				EndAt:       toNullTime(sub.EndAt),
				CreatedAt:   sub.CreatedAt.UnixNano(),
				UpdatedAt:   sub.UpdatedAt.UnixNano(),
			})
			if err != nil {
				return fmt.Errorf("insert subtask %d: %w", i, err)
			}
		}

		return nil
	})
	if err != nil {
		if IsConstraintError(err) {
			if _, uerr := s.db.Queries().GetUser(ctx, t.UserID); IsNotFoundError(uerr) {
				return task.ErrUserNotFound
			}
		}
		return fmt.Errorf("create main task: %w", persistenceErr(err))
	}

	return nil
}

// Get returns a main task with its subtasks.
func (s *TaskStore) Get(ctx context.Context, id string) (task.MainTask, error) {
	t, err := loadMainTask(ctx, s.db.Queries(), id)
	if err != nil {
		return task.MainTask{}, err
	}
	return t, nil
}

// ListByUser returns a user's main tasks, newest first.
func (s *TaskStore) ListByUser(ctx context.Context, userID string) ([]task.MainTask, error) {
	q := s.db.Queries()

	rows, err := q.ListMainTasksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list main tasks: %w", persistenceErr(err))
	}

	tasks := make([]task.MainTask, 0, len(rows))
	for _, row := range rows {
		subs, err := q.ListSubtasksByTask(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("list subtasks for %s: %w", row.ID, persistenceErr(err))
		}
		tasks = append(tasks, rowToMainTask(row, subs))
	}

	return tasks, nil
}

// CountByUser returns the number of main tasks owned by a user.
func (s *TaskStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	count, err := s.db.Queries().CountMainTasksByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count main tasks: %w", persistenceErr(err))
	}
	return count, nil
}

// UpdateStatus sets a main task status directly.
func (s *TaskStore) UpdateStatus(ctx context.Context, id string, status task.Status) (task.MainTask, error) {
	var updated task.MainTask
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		n, err := q.UpdateMainTaskStatus(ctx, db.UpdateMainTaskStatusParams{
			Status:    string(status),
			UpdatedAt: time.Now().UnixNano(),
			ID:        id,
		})
		if err != nil {
			return fmt.Errorf("update main task status: %w", persistenceErr(err))
		}
		if n == 0 {
			return task.ErrTaskNotFound
		}

		updated, err = loadMainTask(ctx, q, id)
		return err
	})
	if err != nil {
		return task.MainTask{}, err
	}
	return updated, nil
}

// UpdateSubtaskStatus writes the subtask status and applies the reconciled
// parent status in the same transaction. The parent snapshot handed to
// reconcile is read inside that transaction, before the subtask write.
func (s *TaskStore) UpdateSubtaskStatus(ctx context.Context, subtaskID string, status task.Status, reconcile task.ReconcileFunc) (task.SubtaskUpdate, error) {
	var result task.SubtaskUpdate

	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		current, err := q.GetSubtask(ctx, subtaskID)
		if IsNotFoundError(err) {
			return task.ErrSubtaskNotFound
		}
		if err != nil {
			return fmt.Errorf("get subtask: %w", persistenceErr(err))
		}

		parent, err := loadMainTask(ctx, q, current.TaskID)
		if err != nil {
			return err
		}

		now := time.Now().UnixNano()
		err = q.UpdateSubtaskStatus(ctx, db.UpdateSubtaskStatusParams{
			Status:    string(status),
			UpdatedAt: now,
			ID:        subtaskID,
		})
		if err != nil {
			return fmt.Errorf("update subtask status: %w", persistenceErr(err))
		}

		if reconcile != nil {
			next, changed := reconcile(parent, task.Status(current.Status))
			if changed {
				_, err := q.UpdateMainTaskStatus(ctx, db.UpdateMainTaskStatusParams{
					Status:    string(next),
					UpdatedAt: now,
					ID:        parent.ID,
				})
				if err != nil {
					return fmt.Errorf("update main task status: %w", persistenceErr(err))
				}
				result.MainTaskUpdated = true
			}
		}

		row, err := q.GetSubtask(ctx, subtaskID)
		if err != nil {
			return fmt.Errorf("reload subtask: %w", persistenceErr(err))
		}
		result.Subtask = rowToSubtask(row)

		result.MainTask, err = loadMainTask(ctx, q, parent.ID)
		return err
	})
	if err != nil {
		return task.SubtaskUpdate{}, err
	}

	return result, nil
}

// Delete removes a main task; subtasks go with it through the foreign key cascade.
func (s *TaskStore) Delete(ctx context.Context, id string) (task.MainTask, error) {
	var deleted task.MainTask
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		var err error
		deleted, err = loadMainTask(ctx, q, id)
		if err != nil {
			return err
		}

		if _, err := q.DeleteMainTask(ctx, id); err != nil {
			return fmt.Errorf("delete main task: %w", persistenceErr(err))
		}
		return nil
	})
	if err != nil {
		return task.MainTask{}, err
	}
	return deleted, nil
}

func loadMainTask(ctx context.Context, q *db.Queries, id string) (task.MainTask, error) {
	row, err := q.GetMainTask(ctx, id)
	if IsNotFoundError(err) {
		return task.MainTask{}, task.ErrTaskNotFound
	}
	if err != nil {
		return task.MainTask{}, fmt.Errorf("get main task: %w", persistenceErr(err))
	}

	subs, err := q.ListSubtasksByTask(ctx, id)
	if err != nil {
		return task.MainTask{}, fmt.Errorf("list subtasks: %w", persistenceErr(err))
	}

	return rowToMainTask(row, subs), nil
}

func rowToMainTask(row db.MainTask, subs []db.Subtask) task.MainTask {
	t := task.MainTask{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Status:      task.Status(row.Status),
		UserID:      row.UserID,
		CreatedAt:   time.Unix(0, row.CreatedAt),
		UpdatedAt:   time.Unix(0, row.UpdatedAt),
		Subtasks:    make([]task.Subtask, 0, len(subs)),
	}
	if row.Duration.Valid {
		d := int(row.Duration.Int64)
		t.Duration = &d
	}
	for _, sub := range subs {
		t.Subtasks = append(t.Subtasks, rowToSubtask(sub))
	}
	return t
}

func rowToSubtask(row db.Subtask) task.Subtask {
	return task.Subtask{
		ID:          row.ID,
		TaskID:      row.TaskID,
		Title:       row.Title,
		Description: row.Description,
		Status:      task.Status(row.Status),
		Duration:    int(row.Duration),
		StartAt:     fromNullTime(row.StartAt),
		EndAt:       fromNullTime(row.EndAt),
		CreatedAt:   time.Unix(0, row.CreatedAt),
		UpdatedAt:   time.Unix(0, row.UpdatedAt),
	}
}

func toNullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}
