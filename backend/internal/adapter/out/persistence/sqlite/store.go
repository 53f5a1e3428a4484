package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"x-gates/backend/internal/adapter/out/persistence/sqlite/migrations"
	persistenceport "x-gates/backend/internal/core/port/out/persistence"
)

const migrationTable = "schema_migrations"

// Store хранилище состояния ворот в SQLite
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ persistenceport.Store = (*Store)(nil)

// Open открывает базу и применяет миграции
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Одна запись за раз: очередь записи и так последовательна
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close закрывает соединение
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveHealth сохраняет здоровье ворот
func (s *Store) SaveHealth(ctx context.Context, gateID int64, health float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO gate_state (gate_id, health, updated_at) VALUES (?, ?, ?)
ON CONFLICT(gate_id) DO UPDATE SET
	health = excluded.health,
	updated_at = excluded.updated_at
`, gateID, health, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save health of gate %d: %w", gateID, err)
	}
	return nil
}

// SaveState сохраняет флаги destroyed и active
func (s *Store) SaveState(ctx context.Context, gateID int64, destroyed, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO gate_state (gate_id, destroyed, active, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(gate_id) DO UPDATE SET
	destroyed = excluded.destroyed,
	active = excluded.active,
	updated_at = excluded.updated_at
`, gateID, destroyed, active, s.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save state of gate %d: %w", gateID, err)
	}
	return nil
}

// LoadAll возвращает сохраненные записи всех ворот по возрастанию id
func (s *Store) LoadAll(ctx context.Context) ([]persistenceport.GateRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT gate_id, health, destroyed, active, updated_at
FROM gate_state
ORDER BY gate_id
`)
	if err != nil {
		return nil, fmt.Errorf("load gate state: %w", err)
	}
	defer rows.Close()

	var records []persistenceport.GateRecord
	for rows.Next() {
		var (
			rec       persistenceport.GateRecord
			updatedAt int64
		)
		if err := rows.Scan(&rec.GateID, &rec.Health, &rec.Destroyed, &rec.Active, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan gate state: %w", err)
		}
		rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gate state: %w", err)
	}
	return records, nil
}

// applyMigrations выполняет каждую .sql миграцию не более одного раза
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec("INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection SQL между "-- +migrate Up" и "-- +migrate Down"
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}
	return content
}
