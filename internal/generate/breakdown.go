package generate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/colonyops/tasky/internal/core/task"
)

var (
	breakdownMinutes = regexp.MustCompile(`(?i)(\d+)\s*min`)
	trailingSep      = regexp.MustCompile(`[\s\-–—:(,]+$`)
)

// ParseBreakdown reads a loosely formatted list such as
//
//	1. Outline the essay - 20 min
//	2. Draft body paragraphs (45 minutes)
//
// into subtask drafts. Lines without a "N min" marker get the default
// duration; lines with no title left after cleanup are skipped.
func ParseBreakdown(text string) []task.SubtaskDraft {
	lines := strings.Split(text, "\n")
	out := make([]task.SubtaskDraft, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		minutes := 0
		title := line
		if locs := breakdownMinutes.FindAllStringSubmatchIndex(line, -1); len(locs) > 0 {
			last := locs[len(locs)-1]
			minutes, _ = strconv.Atoi(line[last[2]:last[3]])
			title = line[:last[0]]
		}

		title = CleanTitle(trailingSep.ReplaceAllString(title, ""))
		if title == "" {
			continue
		}

		out = append(out, task.SubtaskDraft{
			Title:    title,
			Status:   task.StatusPending,
			Duration: task.NormalizeSubtaskDuration(minutes),
		})
	}

	return out
}
