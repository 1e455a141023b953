package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasky/internal/data/db"
)

func TestRecoverFromCorruption(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		wantBacks []string
	}{
		{
			name:      "database with wal and shm",
			files:     []string{"", "-wal", "-shm"},
			wantBacks: []string{"", "-wal", "-shm"},
		},
		{
			name:      "database only",
			files:     []string{""},
			wantBacks: []string{""},
		},
		{
			name:      "wal without database",
			files:     []string{"-wal"},
			wantBacks: []string{"-wal"},
		},
		{
			name: "nothing to recover",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dbPath := filepath.Join(dir, db.FileName)

			for _, suffix := range tt.files {
				require.NoError(t, os.WriteFile(dbPath+suffix, []byte("corrupted"), 0o644))
			}

			require.NoError(t, RecoverFromCorruption(dir))

			for _, suffix := range tt.files {
				_, err := os.Stat(dbPath + suffix)
				assert.True(t, os.IsNotExist(err), "%s should be moved aside", db.FileName+suffix)
			}

			backups, err := filepath.Glob(filepath.Join(dir, db.FileName+".corrupt.*"))
			require.NoError(t, err)
			require.Len(t, backups, len(tt.wantBacks))

			for _, b := range backups {
				name := filepath.Base(b)
				assert.GreaterOrEqual(t, len(name), len(db.FileName+".corrupt.20060102-150405"))
			}
		})
	}
}

func TestRecoverFromCorruption_ReopensCleanDatabase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, db.FileName), []byte(strings.Repeat("x", 4096)), 0o644))

	_, err := db.Open(dir, db.DefaultOpenOptions())
	require.Error(t, err)
	require.True(t, IsCorruptionError(err), "got %v", err)

	require.NoError(t, RecoverFromCorruption(dir))

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		corruption   bool
		constraint   bool
		notFoundRows bool
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: fmt.Errorf("get: %w", sql.ErrNoRows), notFoundRows: true},
		{name: "malformed", err: errors.New("database disk image is malformed"), corruption: true},
		{name: "not a database", err: errors.New("file is not a database (26)"), corruption: true},
		{name: "constraint text", err: errors.New("UNIQUE constraint failed: users.id"), constraint: true},
		{name: "other", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.corruption, IsCorruptionError(tt.err))
			assert.Equal(t, tt.constraint, IsConstraintError(tt.err))
			assert.Equal(t, tt.notFoundRows, IsNotFoundError(tt.err))
		})
	}
}
