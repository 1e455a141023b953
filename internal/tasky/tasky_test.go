package tasky

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/data/db"
	"github.com/colonyops/tasky/internal/data/stores"
	"github.com/colonyops/tasky/internal/llm"
)

var fixedNow = time.Date(2025, 3, 23, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	DB       *db.DB
	Users    *stores.UserStore
	Tasks    *stores.TaskStore
	Generate *GenerateService
	TaskSvc  *TaskService
	UserSvc  *UserService

	// Calls counts completer invocations.
	Calls int
	// Prompts records the messages of every completer call.
	Prompts [][]llm.Message
}

// newTestEnv wires services over a fresh database. reply is what the fake
// model returns; err, when set, is returned instead.
func newTestEnv(t *testing.T, reply string, replyErr error) *testEnv {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	env := &testEnv{
		DB:    database,
		Users: stores.NewUserStore(database),
		Tasks: stores.NewTaskStore(database),
	}

	completer := llm.CompleterFunc(func(ctx context.Context, msgs []llm.Message) (string, error) {
		env.Calls++
		env.Prompts = append(env.Prompts, msgs)
		if replyErr != nil {
			return "", replyErr
		}
		return reply, nil
	})

	log := zerolog.Nop()
	env.Generate = NewGenerateService(env.Users, env.Tasks, completer, log, WithClock(func() time.Time { return fixedNow }))
	env.TaskSvc = NewTaskService(env.Tasks, env.Users, log)
	env.UserSvc = NewUserService(env.Users, log)
	return env
}

func (e *testEnv) user(t *testing.T) task.User {
	t.Helper()
	u, err := e.UserSvc.Create(context.Background(), "")
	require.NoError(t, err)
	return u
}

func (e *testEnv) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.DB.Conn().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
