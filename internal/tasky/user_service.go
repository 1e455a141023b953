package tasky

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/core/validate"
)

// UserService manages the users that own tasks.
type UserService struct {
	users task.UserStore
	log   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users task.UserStore, log zerolog.Logger) *UserService {
	return &UserService{
		users: users,
		log:   log.With().Str("component", "user-service").Logger(),
	}
}

// Create registers a new user. An empty id is replaced with a generated one.
func (s *UserService) Create(ctx context.Context, id string) (task.User, error) {
	u := task.User{ID: id}
	if err := s.users.Create(ctx, &u); err != nil {
		return task.User{}, err
	}
	s.log.Info().Ctx(ctx).Str("user_id", u.ID).Msg("created user")
	return u, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (task.User, error) {
	if err := validate.UserID(id); err != nil {
		return task.User{}, &task.ValidationError{Field: "userId", Message: err.Error()}
	}
	return s.users.Get(ctx, id)
}
