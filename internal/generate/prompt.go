// Package generate turns free text into validated task drafts: it builds the
// model prompt, extracts the JSON payload from the completion and normalizes
// what the model returned.
package generate

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/llm"
)

// UserPromptPrefix precedes the user's text in the user message.
const UserPromptPrefix = "Extract tasks from this input:\n\n"

var taskSystemPrompt = template.Must(template.New("system").Parse(`You are a task management assistant. Your job is to extract individual, actionable main tasks and their subtasks from a user's input and format them for storage in a database.

CRITICAL RULES:
1. Identify each main task clearly and concisely.
2. For each main task, extract:
   - title (string, required): at most {{ .MaxTitleWords }} words
   - description (string or null, optional): additional details
   - status (string, required): one of {{ .Statuses }}. If not specified, use {{ .Default }}.
   - duration (integer minutes): the sum of its subtask durations, or {{ .EmptyDuration }} if it has no subtasks
   - subtasks (array, optional): each subtask has
     - title (string, required): at most {{ .MaxTitleWords }} words
     - description (string or null, optional)
     - startAt (ISO 8601 string or null, optional)
     - endAt (ISO 8601 string or null, optional)
     - status (string, required): one of {{ .Statuses }}. If not specified, use {{ .Default }}.
     - duration (integer minutes, required): between {{ .MinDuration }} and {{ .MaxDuration }}. If unsure, use {{ .DefaultDuration }}.
3. Output MUST be a JSON array of main task objects.
4. If a field is not specified in the input, use null (except for required fields).
5. Use the current date and time for interpreting relative times: {{ .Now }}
6. Output ONLY the JSON array. Do not wrap it in markdown code fences and do not add any explanation.

EXAMPLE OUTPUT:
[
  {
    "title": "Finish math homework",
    "description": "Complete all exercises in chapter 5",
    "status": "{{ .Default }}",
    "duration": 75,
    "subtasks": [
      {"title": "Solve odd-numbered problems", "description": null, "startAt": null, "endAt": null, "status": "{{ .Default }}", "duration": 45},
      {"title": "Check answers", "description": "Review with answer key", "startAt": null, "endAt": null, "status": "{{ .Default }}", "duration": {{ .DefaultDuration }}}
    ]
  },
  {
    "title": "Call Alice",
    "description": null,
    "status": "{{ .Default }}",
    "duration": {{ .EmptyDuration }},
    "subtasks": []
  }
]`))

type promptPolicy struct {
	Now             string
	Statuses        string
	Default         task.Status
	MaxTitleWords   int
	MinDuration     int
	MaxDuration     int
	DefaultDuration int
	EmptyDuration   int
}

// BuildTaskPrompt returns the system and user messages that ask the model to
// decompose text into main tasks and subtasks. now is embedded as RFC 3339 so
// the model can resolve relative times.
func BuildTaskPrompt(text string, now time.Time) []llm.Message {
	var buf bytes.Buffer
	// Executing a parsed template against a fixed struct cannot fail.
	_ = taskSystemPrompt.Execute(&buf, promptPolicy{
		Now:             now.UTC().Format(time.RFC3339),
		Statuses:        statusList(),
		Default:         task.StatusPending,
		MaxTitleWords:   task.MaxTitleWords,
		MinDuration:     task.MinSubtaskDuration,
		MaxDuration:     task.MaxSubtaskDuration,
		DefaultDuration: task.DefaultSubtaskDuration,
		EmptyDuration:   task.EmptyTaskDuration,
	})

	return []llm.Message{
		{Role: llm.RoleSystem, Content: buf.String()},
		{Role: llm.RoleUser, Content: UserPromptPrefix + text},
	}
}

// BuildBreakdownPrompt asks the model to split a single task into a short
// list of subtasks, one per line, each with a duration in minutes.
func BuildBreakdownPrompt(text string) []llm.Message {
	return []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: fmt.Sprintf(
				"You split tasks into subtasks. Reply with one subtask per line in the form \"Title - N min\". "+
					"Keep titles to at most %d words and durations between %d and %d minutes. Do not add any other text.",
				task.MaxTitleWords, task.MinSubtaskDuration, task.MaxSubtaskDuration,
			),
		},
		{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Break down this task into 3-5 smaller subtasks with estimated durations in minutes: %q", text),
		},
	}
}

func statusList() string {
	var buf bytes.Buffer
	for i, s := range task.Statuses() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(string(s))
	}
	return buf.String()
}
