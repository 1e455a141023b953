package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/data/db"
)

// ExportStore records where main tasks were mirrored to. Payloads are
// target specific and stored as JSON.
type ExportStore struct {
	db *db.DB
}

var _ task.ExportStore = (*ExportStore)(nil)

// NewExportStore creates a new SQLite-backed export store.
func NewExportStore(db *db.DB) *ExportStore {
	return &ExportStore{db: db}
}

// Get decodes the payload recorded for taskID and target into dest.
func (s *ExportStore) Get(ctx context.Context, taskID, target string, dest any) error {
	row, err := s.db.Queries().GetTaskExport(ctx, taskID, target)
	if IsNotFoundError(err) {
		return task.ErrExportNotFound
	}
	if err != nil {
		return fmt.Errorf("get export %s/%s: %w", taskID, target, persistenceErr(err))
	}

	if err := json.Unmarshal(row.Payload, dest); err != nil {
		return fmt.Errorf("get export %s/%s unmarshal: %w", taskID, target, err)
	}
	return nil
}

// Save records value as the export payload for taskID and target,
// replacing any previous record.
func (s *ExportStore) Save(ctx context.Context, taskID, target string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("save export %s/%s marshal: %w", taskID, target, err)
	}

	now := time.Now().UnixNano()
	err = s.db.Queries().UpsertTaskExport(ctx, db.UpsertTaskExportParams{
		TaskID:    taskID,
		Target:    target,
		Payload:   data,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if IsConstraintError(err) {
		return task.ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("save export %s/%s: %w", taskID, target, persistenceErr(err))
	}
	return nil
}

// Delete forgets the export record for taskID and target.
func (s *ExportStore) Delete(ctx context.Context, taskID, target string) error {
	if err := s.db.Queries().DeleteTaskExport(ctx, taskID, target); err != nil {
		return fmt.Errorf("delete export %s/%s: %w", taskID, target, persistenceErr(err))
	}
	return nil
}
