package stores

import (
	"context"
	"testing"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportRecord struct {
	ParentID   string   `json:"parentId"`
	SubtaskIDs []string `json:"subtaskIds"`
}

func TestExportStore(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	user := seedUser(t, database)

	tasks := NewTaskStore(database)
	exports := NewExportStore(database)

	mt := task.MainTask{Title: "Ship release", UserID: user.ID}
	require.NoError(t, tasks.CreateWithSubtasks(ctx, &mt))

	t.Run("missing", func(t *testing.T) {
		var got exportRecord
		assert.ErrorIs(t, exports.Get(ctx, mt.ID, "google", &got), task.ErrExportNotFound)
	})

	t.Run("save and overwrite", func(t *testing.T) {
		require.NoError(t, exports.Save(ctx, mt.ID, "google", exportRecord{ParentID: "g-1"}))
		require.NoError(t, exports.Save(ctx, mt.ID, "google", exportRecord{ParentID: "g-2", SubtaskIDs: []string{"g-3"}}))

		var got exportRecord
		require.NoError(t, exports.Get(ctx, mt.ID, "google", &got))
		assert.Equal(t, exportRecord{ParentID: "g-2", SubtaskIDs: []string{"g-3"}}, got)
	})

	t.Run("unknown task", func(t *testing.T) {
		err := exports.Save(ctx, "ghost", "google", exportRecord{})
		assert.ErrorIs(t, err, task.ErrTaskNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, exports.Delete(ctx, mt.ID, "google"))

		var got exportRecord
		assert.ErrorIs(t, exports.Get(ctx, mt.ID, "google", &got), task.ErrExportNotFound)
	})

	t.Run("cascade on task delete", func(t *testing.T) {
		require.NoError(t, exports.Save(ctx, mt.ID, "google", exportRecord{ParentID: "g-9"}))
		_, err := tasks.Delete(ctx, mt.ID)
		require.NoError(t, err)

		var got exportRecord
		assert.ErrorIs(t, exports.Get(ctx, mt.ID, "google", &got), task.ErrExportNotFound)
	})
}
