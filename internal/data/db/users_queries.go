package db

import "context"

const createUser = `INSERT INTO users (id, has_added_three_main_tasks, created_at) VALUES (?, ?, ?)`

type CreateUserParams struct {
	ID                     string
	HasAddedThreeMainTasks bool
	CreatedAt              int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.HasAddedThreeMainTasks, arg.CreatedAt)
	return err
}

const getUser = `SELECT id, has_added_three_main_tasks, created_at FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&u.ID, &u.HasAddedThreeMainTasks, &u.CreatedAt)
	return u, err
}

const markUserThreeMainTasks = `UPDATE users SET has_added_three_main_tasks = 1
WHERE id = ? AND has_added_three_main_tasks = 0`

// MarkUserThreeMainTasks flips the onboarding flag and reports the number of
// rows changed, which is zero when the flag was already set.
func (q *Queries) MarkUserThreeMainTasks(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markUserThreeMainTasks, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
