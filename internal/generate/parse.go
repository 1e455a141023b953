package generate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasky/internal/core/logging"
	"github.com/colonyops/tasky/internal/core/task"
)

var (
	// Leading list markers left over from loosely structured output:
	// "1. ", "2)", "-", "*", "•", and runs of them. A dotted ordinal needs
	// whitespace after it so "1.5 hours" keeps its number.
	bulletPrefix = regexp.MustCompile(`^(?:[-–—•*·]+|\d+\)+|\d+[.)]+(?:\s+|$)|\d+\s+-)\s*`)

	// "45", "45 min", "1.5 hours", "2h".
	minutesPattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours)?`)
)

// timeLayouts are tried in order for startAt and endAt.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parser normalizes model output into drafts. The zero value logs through
// the global logger.
type Parser struct {
	log zerolog.Logger
}

// NewParser returns a parser that reports dropped and coerced fields to log.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{log: log}
}

var defaultParser = &Parser{log: logging.Component("parser")}

// ParseTasks is Parser.ParseTasks on a parser logging under the "parser" component.
func ParseTasks(raw string) ([]task.Draft, error) {
	return defaultParser.ParseTasks(raw)
}

// ParseTasks extracts and validates the task array in a model completion.
//
// The payload must be a JSON array. Elements that are not objects or have no
// title are dropped. Missing or unknown statuses become PENDING, subtask
// durations are defaulted and clamped, and titles lose leading list markers.
// A payload that is not an array, or that yields no usable task, is
// task.ErrMalformedOutput.
func (p *Parser) ParseTasks(raw string) ([]task.Draft, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &elems); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of tasks: %w", task.ErrMalformedOutput, err)
	}

	drafts := make([]task.Draft, 0, len(elems))
	for i, elem := range elems {
		var obj map[string]any
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			p.log.Warn().Int("index", i).Msg("dropping task: not an object")
			continue
		}

		d, ok := p.draft(i, obj)
		if !ok {
			continue
		}
		drafts = append(drafts, d)
	}

	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no usable tasks in %d elements", task.ErrMalformedOutput, len(elems))
	}

	return drafts, nil
}

func (p *Parser) draft(i int, obj map[string]any) (task.Draft, bool) {
	title := CleanTitle(stringValue(obj["title"]))
	if title == "" {
		p.log.Warn().Int("index", i).Msg("dropping task: missing title")
		return task.Draft{}, false
	}

	d := task.Draft{
		Title:       title,
		Description: strings.TrimSpace(stringValue(obj["description"])),
		Status:      p.status(obj["status"], "task", i),
	}

	rawSubs, ok := obj["subtasks"].([]any)
	if !ok && obj["subtasks"] != nil {
		p.log.Warn().Int("index", i).Msg("ignoring subtasks: not an array")
	}

	d.Subtasks = make([]task.SubtaskDraft, 0, len(rawSubs))
	for j, rs := range rawSubs {
		sobj, ok := rs.(map[string]any)
		if !ok {
			p.log.Warn().Int("index", i).Int("subtask", j).Msg("dropping subtask: not an object")
			continue
		}

		stitle := CleanTitle(stringValue(sobj["title"]))
		if stitle == "" {
			p.log.Warn().Int("index", i).Int("subtask", j).Msg("dropping subtask: missing title")
			continue
		}

		sd := task.SubtaskDraft{
			Title:       stitle,
			Description: strings.TrimSpace(stringValue(sobj["description"])),
			Status:      p.status(sobj["status"], "subtask", j),
			Duration:    task.NormalizeSubtaskDuration(ParseMinutes(sobj["duration"])),
			StartAt:     p.timestamp(sobj["startAt"], "startAt"),
			EndAt:       p.timestamp(sobj["endAt"], "endAt"),
		}
		if sd.StartAt != nil && sd.EndAt != nil && sd.EndAt.Before(*sd.StartAt) {
			p.log.Warn().Str("title", stitle).Msg("dropping endAt: before startAt")
			sd.EndAt = nil
		}

		d.Subtasks = append(d.Subtasks, sd)
	}

	return d, true
}

// status normalizes case and separators, then coerces unknown values to PENDING.
func (p *Parser) status(v any, kind string, idx int) task.Status {
	raw := strings.TrimSpace(stringValue(v))
	if raw == "" {
		return task.StatusPending
	}

	s := task.Status(strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(raw)))
	if !s.IsValid() {
		p.log.Warn().Str("kind", kind).Int("index", idx).Str("status", raw).Msg("coercing unknown status to PENDING")
		return task.StatusPending
	}
	return s
}

func (p *Parser) timestamp(v any, field string) *time.Time {
	raw := strings.TrimSpace(stringValue(v))
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	p.log.Warn().Str("field", field).Str("value", raw).Msg("ignoring unparseable timestamp")
	return nil
}

// CleanTitle strips leading list markers and collapses whitespace.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := bulletPrefix.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return strings.Join(strings.Fields(s), " ")
}

// ParseMinutes reads a duration the model may have written as a number or
// as text like "45 min" or "1.5 hours". Fractions are truncated. Anything
// unreadable is 0, which callers treat as unspecified.
func ParseMinutes(v any) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		m := minutesPattern.FindStringSubmatch(n)
		if m == nil {
			return 0
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if m[2] != "" {
			f *= 60
		}
		return int(f)
	default:
		return 0
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(s)
	default:
		return ""
	}
}
