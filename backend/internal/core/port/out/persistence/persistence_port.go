package persistence

import (
	"context"
	"time"
)

// Persister асинхронное best-effort зеркалирование состояния ворот.
// Вызовы не блокируют тик и не возвращают результат.
type Persister interface {
	PersistHealth(gateID int64, health float64)
	PersistState(gateID int64, destroyed, active bool)
}

// GateRecord сохраненное состояние одних ворот
type GateRecord struct {
	GateID    int64
	Health    float64
	Destroyed bool
	Active    bool
	UpdatedAt time.Time
}

// Store синхронное хранилище, которое обслуживается очередью записи
type Store interface {
	SaveHealth(ctx context.Context, gateID int64, health float64) error
	SaveState(ctx context.Context, gateID int64, destroyed, active bool) error
	LoadAll(ctx context.Context) ([]GateRecord, error)
	Close() error
}
