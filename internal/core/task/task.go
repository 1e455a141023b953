// Package task defines the main task / subtask domain model, the status enum
// shared by every boundary, and the duration policy used by generation.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a main task or subtask.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses returns every valid status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}
}

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus converts a raw boundary value into a Status. Matching is exact;
// anything outside the enum is a validation failure.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", &ValidationError{
			Field:   "status",
			Message: "Invalid status value",
			Value:   raw,
		}
	}
	return s, nil
}

// Duration policy. The prompt builder and the output validator both read
// from here so the model instructions and the defaults never drift apart.
const (
	DefaultSubtaskDuration = 30
	EmptyTaskDuration      = 5
	MinSubtaskDuration     = 5
	MaxSubtaskDuration     = 120
	MaxTitleWords          = 6

	// ThreeTaskMilestone is the main task count at which a user is flagged
	// as onboarded.
	ThreeTaskMilestone = 3
)

// User is the ownership anchor for main tasks.
type User struct {
	ID                     string    `json:"id"`
	HasAddedThreeMainTasks bool      `json:"hasAddedThreeMainTasks"`
	CreatedAt              time.Time `json:"createdAt"`
}

// MainTask is a top-level unit of work owned by a user.
type MainTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Duration    *int      `json:"duration"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Subtasks    []Subtask `json:"subtasks"`
}

// Subtask is a schedulable piece of a MainTask.
type Subtask struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"taskId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Duration    int        `json:"duration"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Draft is a validated, not yet persisted main task.
type Draft struct {
	Title       string
	Description string
	Status      Status
	Subtasks    []SubtaskDraft
}

// SubtaskDraft is a validated, not yet persisted subtask.
type SubtaskDraft struct {
	Title       string
	Description string
	Status      Status
	Duration    int
	StartAt     *time.Time
	EndAt       *time.Time
}

// Duration returns the aggregate duration the draft will be stored with.
func (d Draft) Duration() int {
	durations := make([]int, 0, len(d.Subtasks))
	for _, s := range d.Subtasks {
		durations = append(durations, s.Duration)
	}
	return TotalDuration(durations)
}

// TotalDuration sums subtask durations, falling back to EmptyTaskDuration
// when there are none.
func TotalDuration(durations []int) int {
	if len(durations) == 0 {
		return EmptyTaskDuration
	}
	total := 0
	for _, d := range durations {
		total += d
	}
	return total
}

// NormalizeSubtaskDuration applies the default and clamps into the
// accepted range. Zero or negative means "unspecified".
func NormalizeSubtaskDuration(minutes int) int {
	switch {
	case minutes <= 0:
		return DefaultSubtaskDuration
	case minutes < MinSubtaskDuration:
		return MinSubtaskDuration
	case minutes > MaxSubtaskDuration:
		return MaxSubtaskDuration
	default:
		return minutes
	}
}

// AllCompleted reports whether every subtask is COMPLETED. Returns false for
// an empty slice.
func AllCompleted(subtasks []Subtask) bool {
	if len(subtasks) == 0 {
		return false
	}
	for _, s := range subtasks {
		if s.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Markdown renders the task as a markdown checklist for terminal display.
func (t MainTask) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "**Status:** %s", t.Status)
	if t.Duration != nil {
		fmt.Fprintf(&b, "  \n**Duration:** %d min", *t.Duration)
	}
	b.WriteString("\n\n")
	if t.Description != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	if len(t.Subtasks) > 0 {
		b.WriteString("## Subtasks\n\n")
		for _, s := range t.Subtasks {
			mark := " "
			if s.Status == StatusCompleted {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s (%d min, %s)\n", mark, s.Title, s.Duration, s.Status)
		}
	}
	return b.String()
}
