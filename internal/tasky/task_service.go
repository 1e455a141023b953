package tasky

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/core/validate"
)

// StatusUpdate is the outcome of a subtask status change. MainTask is set
// only when reconciliation changed the parent.
type StatusUpdate struct {
	Subtask         task.Subtask   `json:"subtask"`
	MainTaskUpdated bool           `json:"mainTaskUpdated"`
	MainTask        *task.MainTask `json:"updatedMainTask,omitempty"`
}

// TaskService reads and mutates persisted tasks.
type TaskService struct {
	tasks task.Store
	users task.UserStore
	log   zerolog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks task.Store, users task.UserStore, log zerolog.Logger) *TaskService {
	return &TaskService{
		tasks: tasks,
		users: users,
		log:   log.With().Str("component", "task-service").Logger(),
	}
}

// UpdateSubtaskStatus sets a subtask's status and reconciles its main task
// in the same transaction.
func (s *TaskService) UpdateSubtaskStatus(ctx context.Context, subtaskID, rawStatus string) (StatusUpdate, error) {
	status, err := task.ParseStatus(rawStatus)
	if err != nil {
		return StatusUpdate{}, err
	}

	res, err := s.tasks.UpdateSubtaskStatus(ctx, subtaskID, status, func(parent task.MainTask, prev task.Status) (task.Status, bool) {
		return task.Reconcile(parent, subtaskID, prev, status)
	})
	if err != nil {
		return StatusUpdate{}, fmt.Errorf("update subtask %s: %w", subtaskID, err)
	}

	out := StatusUpdate{
		Subtask:         res.Subtask,
		MainTaskUpdated: res.MainTaskUpdated,
	}
	if res.MainTaskUpdated {
		mt := res.MainTask
		out.MainTask = &mt
		s.log.Debug().Ctx(ctx).
			Str("task_id", mt.ID).
			Str("status", string(mt.Status)).
			Msg("main task reconciled")
	}

	return out, nil
}

// UpdateTaskStatus sets a main task's status directly. Subtasks are left as they are.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, taskID, rawStatus string) (task.MainTask, error) {
	status, err := task.ParseStatus(rawStatus)
	if err != nil {
		return task.MainTask{}, err
	}

	mt, err := s.tasks.UpdateStatus(ctx, taskID, status)
	if err != nil {
		return task.MainTask{}, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return mt, nil
}

// GetTask returns a main task with its subtasks.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (task.MainTask, error) {
	return s.tasks.Get(ctx, taskID)
}

// ListTasks returns the user's main tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]task.MainTask, error) {
	if err := validate.UserID(userID); err != nil {
		return nil, &task.ValidationError{Field: "userId", Message: err.Error()}
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.tasks.ListByUser(ctx, userID)
}

// DeleteTask removes a main task and its subtasks, returning what was deleted.
func (s *TaskService) DeleteTask(ctx context.Context, taskID string) (task.MainTask, error) {
	mt, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return task.MainTask{}, fmt.Errorf("delete task %s: %w", taskID, err)
	}

	s.log.Info().Ctx(ctx).
		Str("task_id", mt.ID).
		Int("subtasks", len(mt.Subtasks)).
		Msg("deleted task")
	return mt, nil
}
