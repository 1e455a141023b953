package db

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// migrationName matches "0003_create_task_exports.up.sql".
var migrationName = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one numbered schema change and its inverse.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationState reports a known migration and when it reached the database.
// AppliedAt is nil for pending migrations.
type MigrationState struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

func parseMigrationName(base string) (version int, name, direction string, err error) {
	m := migrationName.FindStringSubmatch(base)
	if m == nil {
		return 0, "", "", fmt.Errorf("want NNNN_name.up.sql or NNNN_name.down.sql")
	}
	version, _ = strconv.Atoi(m[1])
	if version == 0 {
		return 0, "", "", fmt.Errorf("version 0000 is reserved")
	}
	return version, m[2], m[3], nil
}

// loadMigrations reads the embedded schema files, pairing each up file with
// its down file, ordered by version.
func loadMigrations() ([]Migration, error) {
	files, err := fs.Glob(schemaFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]*Migration, len(files)/2)
	for _, file := range files {
		base := path.Base(file)
		version, name, direction, err := parseMigrationName(base)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", base, err)
		}

		body, err := fs.ReadFile(schemaFS, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", base, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, fmt.Errorf("migration %q is empty", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %04d is named both %q and %q", version, m.Name, name)
		}

		half := &m.Up
		if direction == "down" {
			half = &m.Down
		}
		if *half != "" {
			return nil, fmt.Errorf("migration %04d has two %s files", version, direction)
		}
		*half = string(body)
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %04d_%s needs both an up and a down file", m.Version, m.Name)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })

	return out, nil
}

// schema is the migration set paired with what the database has applied.
type schema struct {
	conn    *sql.DB
	all     []Migration
	applied map[int]time.Time
}

func readSchema(ctx context.Context, conn *sql.DB) (*schema, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, err
	}

	_, err = conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_versions (
		version    INTEGER PRIMARY KEY,
		name       TEXT    NOT NULL,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create schema_versions: %w", err)
	}

	rows, err := conn.QueryContext(ctx, "SELECT version, applied_at FROM schema_versions")
	if err != nil {
		return nil, fmt.Errorf("read schema_versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at int64
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan schema_versions: %w", err)
		}
		applied[version] = time.UnixMilli(at).UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &schema{conn: conn, all: all, applied: applied}, nil
}

// step runs one migration in a transaction together with its bookkeeping row.
func (s *schema) step(ctx context.Context, m Migration, up bool) error {
	body, record, args := m.Down, "DELETE FROM schema_versions WHERE version = ?", []any{m.Version}
	if up {
		body = m.Up
		record = "INSERT INTO schema_versions (version, name, applied_at) VALUES (?, ?, ?)"
		args = []any{m.Version, m.Name, time.Now().UnixMilli()}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// migrateUp applies every pending migration in version order.
func migrateUp(ctx context.Context, conn *sql.DB) error {
	s, err := readSchema(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range s.all {
		if _, ok := s.applied[m.Version]; ok {
			continue
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		if err := s.step(ctx, m, true); err != nil {
			return fmt.Errorf("apply %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// rollback reverts the n most recent applied migrations, newest first, and
// returns them in the order they were reverted.
func rollback(ctx context.Context, conn *sql.DB, n int) ([]Migration, error) {
	if n < 1 {
		return nil, fmt.Errorf("rollback count must be at least 1, got %d", n)
	}

	s, err := readSchema(ctx, conn)
	if err != nil {
		return nil, err
	}

	var targets []Migration
	for _, m := range slices.Backward(s.all) {
		if len(targets) == n {
			break
		}
		if _, ok := s.applied[m.Version]; ok {
			targets = append(targets, m)
		}
	}
	if len(targets) < n {
		return nil, fmt.Errorf("cannot roll back %d migrations: only %d applied", n, len(targets))
	}

	for i, m := range targets {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("reverting migration")
		if err := s.step(ctx, m, false); err != nil {
			return targets[:i], fmt.Errorf("revert %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return targets, nil
}

// Rollback reverts the n most recent migrations so an older tasky build can
// open the database. The next Open reapplies them.
func (db *DB) Rollback(ctx context.Context, n int) ([]Migration, error) {
	return rollback(ctx, db.conn, n)
}

// Migrations lists every known migration with its applied time.
func (db *DB) Migrations(ctx context.Context) ([]MigrationState, error) {
	s, err := readSchema(ctx, db.conn)
	if err != nil {
		return nil, err
	}

	states := make([]MigrationState, 0, len(s.all))
	for _, m := range s.all {
		state := MigrationState{Version: m.Version, Name: m.Name}
		if at, ok := s.applied[m.Version]; ok {
			state.AppliedAt = &at
		}
		states = append(states, state)
	}
	return states, nil
}
