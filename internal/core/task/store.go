package task

import "context"

// ReconcileFunc decides the parent status inside a subtask status write.
// It receives the parent with its subtasks as stored before the write.
type ReconcileFunc func(parent MainTask, prev Status) (Status, bool)

// SubtaskUpdate is the result of a subtask status write.
type SubtaskUpdate struct {
	Subtask         Subtask
	MainTask        MainTask
	MainTaskUpdated bool
}

// UserStore defines persistence for users.
type UserStore interface {
	// Create persists a new user. ID and CreatedAt are populated if empty.
	Create(ctx context.Context, user *User) error

	// Get returns a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	Get(ctx context.Context, id string) (User, error)

	// MarkThreeMainTasks sets the onboarding flag if it is not already set.
	// Returns true when this call flipped the flag.
	MarkThreeMainTasks(ctx context.Context, id string) (bool, error)
}

// Store defines persistence for main tasks and their subtasks.
type Store interface {
	// CreateWithSubtasks persists a main task and all of its subtasks as one
	// transaction. IDs and timestamps are populated on the passed task.
	CreateWithSubtasks(ctx context.Context, t *MainTask) error

	// Get returns a main task with its subtasks.
	// Returns ErrTaskNotFound if the task does not exist.
	Get(ctx context.Context, id string) (MainTask, error)

	// ListByUser returns a user's main tasks, newest first, with subtasks.
	ListByUser(ctx context.Context, userID string) ([]MainTask, error)

	// CountByUser returns the number of main tasks owned by a user.
	CountByUser(ctx context.Context, userID string) (int64, error)

	// UpdateStatus sets a main task status directly.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, id string, status Status) (MainTask, error)

	// UpdateSubtaskStatus writes a subtask status and, in the same
	// transaction, applies the parent status chosen by reconcile.
	// Returns ErrSubtaskNotFound if the subtask does not exist.
	UpdateSubtaskStatus(ctx context.Context, subtaskID string, status Status, reconcile ReconcileFunc) (SubtaskUpdate, error)

	// Delete removes a main task and, by cascade, its subtasks.
	// Returns the deleted task as it was before removal.
	Delete(ctx context.Context, id string) (MainTask, error)
}

// ExportStore records where main tasks were mirrored to. Payloads are
// target specific.
type ExportStore interface {
	// Get decodes the record for a task and target into dest.
	// Returns ErrExportNotFound if the task was never exported there.
	Get(ctx context.Context, taskID, target string, dest any) error

	// Save records value for a task and target, replacing any previous one.
	// Returns ErrTaskNotFound if the task does not exist.
	Save(ctx context.Context, taskID, target string, value any) error
}
