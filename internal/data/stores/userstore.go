package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/data/db"
	"github.com/google/uuid"
)

// UserStore implements task.UserStore using SQLite.
type UserStore struct {
	db *db.DB
}

var _ task.UserStore = (*UserStore)(nil)

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *db.DB) *UserStore {
	return &UserStore{db: db}
}

// Create persists a new user, generating an ID if not set.
func (s *UserStore) Create(ctx context.Context, user *task.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	err := s.db.Queries().CreateUser(ctx, db.CreateUserParams{
		ID:                     user.ID,
		HasAddedThreeMainTasks: user.HasAddedThreeMainTasks,
		CreatedAt:              user.CreatedAt.UnixNano(),
	})
	if IsConstraintError(err) {
		return &task.ValidationError{Field: "id", Message: "User already exists", Value: user.ID}
	}
	if err != nil {
		return fmt.Errorf("create user: %w", persistenceErr(err))
	}

	return nil
}

// Get returns a user by ID.
func (s *UserStore) Get(ctx context.Context, id string) (task.User, error) {
	row, err := s.db.Queries().GetUser(ctx, id)
	if IsNotFoundError(err) {
		return task.User{}, task.ErrUserNotFound
	}
	if err != nil {
		return task.User{}, fmt.Errorf("get user: %w", persistenceErr(err))
	}

	return task.User{
		ID:                     row.ID,
		HasAddedThreeMainTasks: row.HasAddedThreeMainTasks,
		CreatedAt:              time.Unix(0, row.CreatedAt),
	}, nil
}

// MarkThreeMainTasks sets the onboarding flag. The update is conditional on
// the flag being unset, so concurrent callers flip it at most once.
func (s *UserStore) MarkThreeMainTasks(ctx context.Context, id string) (bool, error) {
	n, err := s.db.Queries().MarkUserThreeMainTasks(ctx, id)
	if err != nil {
		return false, fmt.Errorf("mark user milestone: %w", persistenceErr(err))
	}
	return n > 0, nil
}

// persistenceErr tags a driver error as a persistence failure while keeping
// the original error in the chain.
func persistenceErr(err error) error {
	return fmt.Errorf("%w: %w", task.ErrPersistence, err)
}
