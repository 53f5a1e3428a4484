package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	persistenceport "x-gates/backend/internal/core/port/out/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS gate_state (
	gate_id BIGINT PRIMARY KEY,
	health DOUBLE PRECISION NOT NULL DEFAULT 0,
	destroyed BOOLEAN NOT NULL DEFAULT FALSE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

// Store хранилище состояния ворот в PostgreSQL
type Store struct {
	db *sql.DB
}

var _ persistenceport.Store = (*Store)(nil)

// Open подключается к базе по строке подключения и создает схему
func Open(ctx context.Context, connectionString string) (*Store, error) {
	if strings.TrimSpace(connectionString) == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает пул соединений
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveHealth сохраняет здоровье ворот
func (s *Store) SaveHealth(ctx context.Context, gateID int64, health float64) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO gate_state (gate_id, health) VALUES ($1, $2)
	ON CONFLICT (gate_id)
	DO UPDATE SET health = $2, updated_at = NOW()
	`, gateID, health)
	if err != nil {
		return fmt.Errorf("save health of gate %d: %w", gateID, err)
	}
	return nil
}

// SaveState сохраняет флаги destroyed и active
func (s *Store) SaveState(ctx context.Context, gateID int64, destroyed, active bool) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO gate_state (gate_id, destroyed, active) VALUES ($1, $2, $3)
	ON CONFLICT (gate_id)
	DO UPDATE SET destroyed = $2, active = $3, updated_at = NOW()
	`, gateID, destroyed, active)
	if err != nil {
		return fmt.Errorf("save state of gate %d: %w", gateID, err)
	}
	return nil
}

// LoadAll возвращает записи всех ворот по возрастанию id
func (s *Store) LoadAll(ctx context.Context) ([]persistenceport.GateRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT gate_id, health, destroyed, active, updated_at FROM gate_state ORDER BY gate_id`)
	if err != nil {
		return nil, fmt.Errorf("load gate state: %w", err)
	}
	defer rows.Close()

	var records []persistenceport.GateRecord
	for rows.Next() {
		var rec persistenceport.GateRecord
		if err := rows.Scan(&rec.GateID, &rec.Health, &rec.Destroyed, &rec.Active, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan gate state: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gate state: %w", err)
	}
	return records, nil
}
