package tasky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/llm"
)

const twoTasks = "```json\n" + `[
  {
    "title": "Finish math homework",
    "description": "Chapter 5",
    "subtasks": [
      {"title": "1. Solve odd problems", "duration": 45},
      {"title": "2. Check answers"}
    ]
  },
  {"title": "Call Alice", "status": "BOGUS"}
]` + "\n```"

func TestGenerateService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates tasks owned by user", func(t *testing.T) {
		env := newTestEnv(t, twoTasks, nil)
		u := env.user(t)

		created, err := env.Generate.Generate(ctx, GenerateRequest{Prompt: "  homework and call alice  ", UserID: u.ID})
		require.NoError(t, err)
		require.Len(t, created, 2)

		assert.Equal(t, "Finish math homework", created[0].Title)
		assert.Equal(t, "Call Alice", created[1].Title)
		for _, mt := range created {
			assert.NotEmpty(t, mt.ID)
			assert.Equal(t, u.ID, mt.UserID)
			assert.Equal(t, task.StatusPending, mt.Status)
		}

		require.Len(t, created[0].Subtasks, 2)
		assert.Equal(t, "Solve odd problems", created[0].Subtasks[0].Title)
		assert.Equal(t, 45, created[0].Subtasks[0].Duration)
		assert.Equal(t, 30, created[0].Subtasks[1].Duration)
		require.NotNil(t, created[0].Duration)
		assert.Equal(t, 75, *created[0].Duration)
		require.NotNil(t, created[1].Duration)
		assert.Equal(t, task.EmptyTaskDuration, *created[1].Duration)

		// Prompt carried the trimmed text and the injected clock.
		require.Len(t, env.Prompts, 1)
		assert.Equal(t, "Extract tasks from this input:\n\nhomework and call alice", env.Prompts[0][1].Content)
		assert.Contains(t, env.Prompts[0][0].Content, "2025-03-23T09:00:00Z")

		listed, err := env.TaskSvc.ListTasks(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "Call Alice", listed[0].Title, "newest first follows model order")
	})

	t.Run("validation happens before the model call", func(t *testing.T) {
		tests := []struct {
			name    string
			req     GenerateRequest
			wantMsg string
		}{
			{name: "empty prompt", req: GenerateRequest{Prompt: "", UserID: "u"}, wantMsg: "Prompt is required."},
			{name: "whitespace prompt", req: GenerateRequest{Prompt: " \n\t", UserID: "u"}, wantMsg: "Prompt is required."},
			{name: "missing user", req: GenerateRequest{Prompt: "call alice"}, wantMsg: "User ID is required."},
			{name: "both missing", req: GenerateRequest{}, wantMsg: "Prompt is required."},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t, twoTasks, nil)

				_, err := env.Generate.Generate(ctx, tt.req)
				require.Error(t, err)
				assert.ErrorIs(t, err, task.ErrValidation)
				assert.Equal(t, tt.wantMsg, task.UserMessage(err))
				assert.Equal(t, http.StatusBadRequest, task.HTTPStatus(err))
				assert.Zero(t, env.Calls)
				assert.Zero(t, env.countRows(t, "main_tasks"))
			})
		}
	})

	t.Run("unknown user writes nothing", func(t *testing.T) {
		env := newTestEnv(t, twoTasks, nil)

		_, err := env.Generate.Generate(ctx, GenerateRequest{Prompt: "call alice", UserID: "ghost"})
		assert.ErrorIs(t, err, task.ErrUserNotFound)
		assert.Equal(t, "User not found.", task.UserMessage(err))
		assert.Zero(t, env.Calls)
		assert.Zero(t, env.countRows(t, "main_tasks"))
	})

	t.Run("gateway failure surfaces as generation error", func(t *testing.T) {
		env := newTestEnv(t, "", &task.GenerationError{StatusCode: http.StatusTooManyRequests, Err: errors.New("rate limited")})
		u := env.user(t)

		_, err := env.Generate.Generate(ctx, GenerateRequest{Prompt: "call alice", UserID: u.ID})
		assert.ErrorIs(t, err, task.ErrGeneration)
		assert.Equal(t, http.StatusInternalServerError, task.HTTPStatus(err))
		assert.Zero(t, env.countRows(t, "main_tasks"))
	})

	t.Run("malformed output", func(t *testing.T) {
		for _, reply := range []string{"Sorry, I can't.", `{"title":"Call Alice"}`, `[]`} {
			t.Run(reply, func(t *testing.T) {
				env := newTestEnv(t, reply, nil)
				u := env.user(t)

				created, err := env.Generate.Generate(ctx, GenerateRequest{Prompt: "call alice", UserID: u.ID})
				assert.ErrorIs(t, err, task.ErrMalformedOutput)
				assert.Equal(t, "AI failed to generate tasks.", task.UserMessage(err))
				assert.Empty(t, created)
				assert.Zero(t, env.countRows(t, "main_tasks"))
			})
		}
	})
}

// flakyStore fails CreateWithSubtasks for drafts whose title has a prefix.
type flakyStore struct {
	task.Store
	failPrefix string
	calls      atomic.Int32
}

func (f *flakyStore) CreateWithSubtasks(ctx context.Context, mt *task.MainTask) error {
	f.calls.Add(1)
	if strings.HasPrefix(mt.Title, f.failPrefix) {
		return fmt.Errorf("%w: disk full", task.ErrPersistence)
	}
	return f.Store.CreateWithSubtasks(ctx, mt)
}

func TestGenerateService_PartialWrites(t *testing.T) {
	ctx := context.Background()
	reply := `[{"title":"Keep one"},{"title":"Fail one"},{"title":"Keep two"},{"title":"Fail two"}]`

	t.Run("failed drafts do not roll back siblings", func(t *testing.T) {
		env := newTestEnv(t, reply, nil)
		u := env.user(t)
		flaky := &flakyStore{Store: env.Tasks, failPrefix: "Fail"}
		svc := NewGenerateService(env.Users, flaky, llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) {
			return reply, nil
		}), zerolog.Nop(), WithConcurrency(2))

		created, err := svc.Generate(ctx, GenerateRequest{Prompt: "stuff", UserID: u.ID})
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, "Keep one", created[0].Title)
		assert.Equal(t, "Keep two", created[1].Title)
		assert.Equal(t, int32(4), flaky.calls.Load())
		assert.Equal(t, 2, env.countRows(t, "main_tasks"))
	})

	t.Run("all drafts failing is a persistence error", func(t *testing.T) {
		env := newTestEnv(t, reply, nil)
		u := env.user(t)
		flaky := &flakyStore{Store: env.Tasks, failPrefix: ""}
		svc := NewGenerateService(env.Users, flaky, llm.CompleterFunc(func(context.Context, []llm.Message) (string, error) {
			return reply, nil
		}), zerolog.Nop())

		created, err := svc.Generate(ctx, GenerateRequest{Prompt: "stuff", UserID: u.ID})
		assert.ErrorIs(t, err, task.ErrPersistence)
		assert.Empty(t, created)
		assert.Equal(t, http.StatusInternalServerError, task.HTTPStatus(err))
	})
}

func TestGenerateService_Milestone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, `[{"title":"One"},{"title":"Two"}]`, nil)
	u := env.user(t)

	_, err := env.Generate.Generate(ctx, GenerateRequest{Prompt: "first batch", UserID: u.ID})
	require.NoError(t, err)

	got, err := env.UserSvc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.HasAddedThreeMainTasks, "two tasks is below the milestone")

	_, err = env.Generate.Generate(ctx, GenerateRequest{Prompt: "second batch", UserID: u.ID})
	require.NoError(t, err)

	got, err = env.UserSvc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.HasAddedThreeMainTasks)

	// Already flagged: further generation is a no-op for the flag.
	_, err = env.Generate.Generate(ctx, GenerateRequest{Prompt: "third batch", UserID: u.ID})
	require.NoError(t, err)
	got, err = env.UserSvc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.HasAddedThreeMainTasks)
}

func TestGenerateService_CreateTask(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "", nil)
	u := env.user(t)

	mt, err := env.Generate.CreateTask(ctx, u.ID, task.Draft{
		Title: "Test Main Task",
		Subtasks: []task.SubtaskDraft{
			{Title: "Subtask One", Description: "The first subtask.", Duration: 30},
			{Title: "Subtask Two", Description: "The second subtask.", Duration: 45},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, mt.Duration)
	assert.Equal(t, 75, *mt.Duration)
	assert.Equal(t, task.StatusPending, mt.Status)
	assert.Zero(t, env.Calls)

	_, err = env.Generate.CreateTask(ctx, u.ID, task.Draft{Title: "  "})
	assert.ErrorIs(t, err, task.ErrValidation)
	assert.Equal(t, "title is required", task.UserMessage(err))

	_, err = env.Generate.CreateTask(ctx, "ghost", task.Draft{Title: "x"})
	assert.ErrorIs(t, err, task.ErrUserNotFound)
}

func TestGenerateService_Breakdown(t *testing.T) {
	ctx := context.Background()

	t.Run("parses subtasks", func(t *testing.T) {
		env := newTestEnv(t, "1. Outline - 20 min\n2. Draft - 60 min\n3. Edit", nil)

		subs, err := env.Generate.Breakdown(ctx, "Write the essay")
		require.NoError(t, err)
		require.Len(t, subs, 3)
		assert.Equal(t, "Outline", subs[0].Title)
		assert.Equal(t, 60, subs[1].Duration)
		assert.Equal(t, 30, subs[2].Duration)
		require.Len(t, env.Prompts, 1)
		assert.Contains(t, env.Prompts[0][1].Content, "Write the essay")
	})

	t.Run("requires text", func(t *testing.T) {
		env := newTestEnv(t, "", nil)

		_, err := env.Generate.Breakdown(ctx, "  ")
		assert.ErrorIs(t, err, task.ErrValidation)
		assert.Equal(t, "Task text is required", task.UserMessage(err))
		assert.Zero(t, env.Calls)
	})

	t.Run("empty reply", func(t *testing.T) {
		env := newTestEnv(t, "\n\n", nil)

		_, err := env.Generate.Breakdown(ctx, "Write the essay")
		assert.ErrorIs(t, err, task.ErrMalformedOutput)
	})
}
