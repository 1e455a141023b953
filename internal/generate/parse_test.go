package generate

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasky/internal/core/task"
)

func TestParseTasks_Defaults(t *testing.T) {
	raw := "```json\n" + `[
  {
    "title": "Finish math homework",
    "description": "Chapter 5",
    "subtasks": [
      {"title": "Solve odd problems", "duration": 45},
      {"title": "Check answers"}
    ]
  },
  {"title": "Call Alice", "status": "IN_PROGRESS", "subtasks": []}
]` + "\n```"

	drafts, err := ParseTasks(raw)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	first := drafts[0]
	assert.Equal(t, "Finish math homework", first.Title)
	assert.Equal(t, "Chapter 5", first.Description)
	assert.Equal(t, task.StatusPending, first.Status)
	require.Len(t, first.Subtasks, 2)
	assert.Equal(t, 45, first.Subtasks[0].Duration)
	assert.Equal(t, task.DefaultSubtaskDuration, first.Subtasks[1].Duration)
	assert.Equal(t, task.StatusPending, first.Subtasks[1].Status)
	assert.Equal(t, 75, first.Duration())

	second := drafts[1]
	assert.Equal(t, task.StatusInProgress, second.Status)
	assert.Empty(t, second.Subtasks)
	assert.Equal(t, task.EmptyTaskDuration, second.Duration())
}

func TestParseTasks_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "I'm sorry, I can't help with that."},
		{name: "object instead of array", raw: `{"title": "Call Alice"}`},
		{name: "broken json", raw: `[{"title": "a",}]`},
		{name: "empty array", raw: `[]`},
		{name: "no titled elements", raw: `[{"description": "x"}, "string", 42, null]`},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := ParseTasks(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, task.ErrMalformedOutput)
			assert.Empty(t, drafts)
		})
	}
}

func TestParseTasks_BracketedProse(t *testing.T) {
	raw := "Here are your tasks [as requested]:\n" +
		`[{"title":"Write report","subtasks":[{"title":"Outline","duration":20}]}]` +
		"\nNote: durations are estimates [approx]."

	drafts, err := ParseTasks(raw)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Write report", drafts[0].Title)
	require.Len(t, drafts[0].Subtasks, 1)
	assert.Equal(t, 20, drafts[0].Subtasks[0].Duration)
}

func TestParseTasks_DropsInvalidElements(t *testing.T) {
	var buf bytes.Buffer
	p := NewParser(zerolog.New(&buf))

	drafts, err := p.ParseTasks(`[
		"just a string",
		{"title": "   "},
		{"title": "Keep me", "subtasks": [{"description": "no title"}, 7, {"title": "ok"}]}
	]`)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Keep me", drafts[0].Title)
	require.Len(t, drafts[0].Subtasks, 1)
	assert.Equal(t, "ok", drafts[0].Subtasks[0].Title)

	assert.Contains(t, buf.String(), "not an object")
	assert.Contains(t, buf.String(), "missing title")
}

func TestParseTasks_StatusCoercion(t *testing.T) {
	tests := []struct {
		raw  string
		want task.Status
	}{
		{raw: `"COMPLETED"`, want: task.StatusCompleted},
		{raw: `"completed"`, want: task.StatusCompleted},
		{raw: `"in progress"`, want: task.StatusInProgress},
		{raw: `"in-progress"`, want: task.StatusInProgress},
		{raw: `"DONE"`, want: task.StatusPending},
		{raw: `null`, want: task.StatusPending},
		{raw: `3`, want: task.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewParser(zerolog.New(&buf))

			drafts, err := p.ParseTasks(`[{"title":"t","status":` + tt.raw + `,"subtasks":[{"title":"s","status":` + tt.raw + `}]}]`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, drafts[0].Status)
			assert.Equal(t, tt.want, drafts[0].Subtasks[0].Status)
		})
	}
}

func TestParseTasks_Timestamps(t *testing.T) {
	drafts, err := ParseTasks(`[{"title":"t","subtasks":[
		{"title":"a","startAt":"2025-03-23T10:00:00Z","endAt":"2025-03-23T11:00:00Z"},
		{"title":"b","startAt":"2025-03-23T10:00","endAt":"not a time"},
		{"title":"c","startAt":"2025-03-23T10:00:00Z","endAt":"2025-03-23T09:00:00Z"}
	]}]`)
	require.NoError(t, err)
	subs := drafts[0].Subtasks
	require.Len(t, subs, 3)

	require.NotNil(t, subs[0].StartAt)
	require.NotNil(t, subs[0].EndAt)
	assert.Equal(t, time.Hour, subs[0].EndAt.Sub(*subs[0].StartAt))

	require.NotNil(t, subs[1].StartAt)
	assert.Nil(t, subs[1].EndAt)

	assert.NotNil(t, subs[2].StartAt)
	assert.Nil(t, subs[2].EndAt, "end before start is dropped")
}

func TestParseTasks_Deterministic(t *testing.T) {
	raw := `[{"title":"1. Plan trip","subtasks":[{"title":"- Book flights","duration":"2 hours"}]}]`
	a, errA := ParseTasks(raw)
	b, errB := ParseTasks(raw)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Call Alice", want: "Call Alice"},
		{in: "  1. Call Alice ", want: "Call Alice"},
		{in: "2) Book flights", want: "Book flights"},
		{in: "- Pack bags", want: "Pack bags"},
		{in: "* Pack bags", want: "Pack bags"},
		{in: "• Pack bags", want: "Pack bags"},
		{in: "1. - Nested marker", want: "Nested marker"},
		{in: "3 - Review notes", want: "Review notes"},
		{in: "Review   the\tnotes", want: "Review the notes"},
		{in: "3 papers to read", want: "3 papers to read"},
		{in: "1.5 hour workout", want: "1.5 hour workout"},
		{in: "2.0 release notes", want: "2.0 release notes"},
		{in: "4)Call the bank", want: "Call the bank"},
		{in: "5.", want: ""},
		{in: "---", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.in))
		})
	}
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "integer", in: float64(45), want: 45},
		{name: "fraction truncated", in: 22.9, want: 22},
		{name: "string number", in: "45", want: 45},
		{name: "string with unit", in: "45 min", want: 45},
		{name: "no space unit", in: "45min", want: 45},
		{name: "hours", in: "1.5 hours", want: 90},
		{name: "short hours", in: "2h", want: 120},
		{name: "words", in: "about an hour", want: 0},
		{name: "nil", in: nil, want: 0},
		{name: "bool", in: true, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMinutes(tt.in))
		})
	}
}

func TestParseTasks_DurationClamp(t *testing.T) {
	drafts, err := ParseTasks(`[{"title":"t","subtasks":[
		{"title":"zero","duration":0},
		{"title":"negative","duration":-10},
		{"title":"tiny","duration":2},
		{"title":"huge","duration":600},
		{"title":"text","duration":"3 hours"}
	]}]`)
	require.NoError(t, err)

	var got []int
	for _, s := range drafts[0].Subtasks {
		got = append(got, s.Duration)
	}
	assert.Equal(t, []int{30, 30, 5, 120, 120}, got)
}
