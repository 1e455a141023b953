package tasky

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/integration/googletasks"
)

// ExportTargetGoogle names the Google Tasks mirror in export records.
const ExportTargetGoogle = "google"

// Mirror copies a main task and its subtasks into Google Tasks.
type Mirror interface {
	Export(ctx context.Context, listID string, mt task.MainTask) (googletasks.Exported, error)
}

// ExportRecord is what gets stored after a successful export.
type ExportRecord struct {
	googletasks.Exported
	ExportedAt time.Time `json:"exportedAt"`
}

// ExportService mirrors stored tasks into external task managers and
// remembers where they went so repeated runs do not duplicate them.
type ExportService struct {
	tasks   task.Store
	records task.ExportStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewExportService creates a new ExportService.
func NewExportService(tasks task.Store, records task.ExportStore, log zerolog.Logger) *ExportService {
	return &ExportService{
		tasks:   tasks,
		records: records,
		log:     log.With().Str("component", "export-service").Logger(),
		now:     time.Now,
	}
}

// Lookup returns the stored export record for a task.
func (s *ExportService) Lookup(ctx context.Context, taskID string) (ExportRecord, error) {
	var rec ExportRecord
	if err := s.records.Get(ctx, taskID, ExportTargetGoogle, &rec); err != nil {
		return ExportRecord{}, err
	}
	return rec, nil
}

// Export mirrors a task through m. A task that was already exported is
// rejected unless force is set.
func (s *ExportService) Export(ctx context.Context, m Mirror, taskID, listID string, force bool) (ExportRecord, error) {
	mt, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("export %s: %w", taskID, err)
	}

	if !force {
		prev, err := s.Lookup(ctx, taskID)
		switch {
		case err == nil:
			return prev, &task.ValidationError{
				Field:   "task",
				Message: "Task already exported, use --force to export again",
				Value:   taskID,
			}
		case !errors.Is(err, task.ErrExportNotFound):
			return ExportRecord{}, err
		}
	}

	out, err := m.Export(ctx, listID, mt)
	if err != nil {
		return ExportRecord{}, fmt.Errorf("export %s: %w", taskID, err)
	}

	rec := ExportRecord{Exported: out, ExportedAt: s.now()}
	if err := s.records.Save(ctx, taskID, ExportTargetGoogle, rec); err != nil {
		return rec, fmt.Errorf("record export %s: %w", taskID, err)
	}

	s.log.Info().Ctx(ctx).
		Str("task_id", taskID).
		Str("parent_id", out.ParentID).
		Msg("task mirrored")

	return rec, nil
}
