package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the typed statements for the schema.
type Queries struct {
	db DBTX
}

// New binds a query set to a connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of the query set bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// User is a row of the users table.
type User struct {
	ID                     string
	HasAddedThreeMainTasks bool
	CreatedAt              int64
}

// MainTask is a row of the main_tasks table.
type MainTask struct {
	ID          string
	Title       string
	Description string
	Status      string
	Duration    sql.NullInt64
	UserID      string
	CreatedAt   int64
	UpdatedAt   int64
}

// Subtask is a row of the subtasks table.
type Subtask struct {
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
