package persistence

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	persistenceport "x-gates/backend/internal/core/port/out/persistence"
	"x-gates/backend/internal/telemetry"
)

const tracerName = "x-gates/persistence"

// OutboxConfig параметры очереди записи
type OutboxConfig struct {
	Capacity int           // Максимум задач в очереди
	Timeout  time.Duration // Таймаут одной записи в хранилище
}

// DefaultOutboxConfig значения по умолчанию
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{Capacity: 1024, Timeout: 5 * time.Second}
}

type writeTask struct {
	name   string
	gateID int64
	run    func(ctx context.Context) error
}

// Outbox ограниченная очередь записи состояния ворот.
// При переполнении вытесняется самая старая задача. Ошибки записи логируются
// и не повторяются: состояние в памяти остается главным.
type Outbox struct {
	store  persistenceport.Store
	cfg    OutboxConfig
	tracer trace.Tracer
	tm     *telemetry.TelemetryManager
	logger *log.Logger

	queue  chan writeTask
	mu     sync.Mutex // Защищает отправку в queue и closed
	closed bool
	done   chan struct{}

	statsMu sync.Mutex
	written uint64
	failed  uint64
	dropped uint64
}

var _ persistenceport.Persister = (*Outbox)(nil)

// NewOutbox создает очередь и запускает фоновую горутину записи. tm может быть nil.
func NewOutbox(store persistenceport.Store, cfg OutboxConfig, tm *telemetry.TelemetryManager, logger *log.Logger) *Outbox {
	defaults := DefaultOutboxConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaults.Capacity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = log.Default()
	}

	o := &Outbox{
		store:  store,
		cfg:    cfg,
		tracer: otel.Tracer(tracerName),
		tm:     tm,
		logger: logger,
		queue:  make(chan writeTask, cfg.Capacity),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

// PersistHealth ставит в очередь запись здоровья
func (o *Outbox) PersistHealth(gateID int64, health float64) {
	o.enqueue(writeTask{
		name:   "persist_health",
		gateID: gateID,
		run: func(ctx context.Context) error {
			return o.store.SaveHealth(ctx, gateID, health)
		},
	})
}

// PersistState ставит в очередь запись флагов destroyed/active
func (o *Outbox) PersistState(gateID int64, destroyed, active bool) {
	o.enqueue(writeTask{
		name:   "persist_state",
		gateID: gateID,
		run: func(ctx context.Context) error {
			return o.store.SaveState(ctx, gateID, destroyed, active)
		},
	})
}

func (o *Outbox) enqueue(t writeTask) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		o.logger.Printf("[Outbox] Очередь закрыта, задача %s ворот %d отброшена", t.name, t.gateID)
		return
	}

	for {
		select {
		case o.queue <- t:
			return
		default:
		}

		select {
		case old := <-o.queue:
			o.recordDrop(old)
		default:
			// Воркер успел забрать задачу, пробуем снова
		}
	}
}

func (o *Outbox) recordDrop(t writeTask) {
	o.statsMu.Lock()
	o.dropped++
	o.statsMu.Unlock()

	o.logger.Printf("[Outbox] Очередь переполнена: вытеснена задача %s ворот %d", t.name, t.gateID)
	if o.tm != nil {
		o.tm.Record(telemetry.Event{GateID: t.gateID, Kind: telemetry.EventDropped, State: t.name})
	}
}

func (o *Outbox) run() {
	defer close(o.done)
	for t := range o.queue {
		o.execute(t)
	}
}

func (o *Outbox) execute(t writeTask) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Timeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, t.name, trace.WithAttributes(
		attribute.Int64("gate.id", t.gateID),
	))
	defer span.End()

	err := o.safeRun(ctx, t)

	o.statsMu.Lock()
	if err != nil {
		o.failed++
	} else {
		o.written++
	}
	o.statsMu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Printf("[Outbox] Ошибка записи %s ворот %d: %v", t.name, t.gateID, err)
	}
}

func (o *Outbox) safeRun(ctx context.Context, t writeTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", t.name, r)
		}
	}()
	return t.run(ctx)
}

// Close перестает принимать задачи, дописывает очередь и ждет воркер
// не дольше ctx. Хранилище не закрывает.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("outbox drain: %w", ctx.Err())
	}
}

// Stats счетчики записей
func (o *Outbox) Stats() (written, failed, dropped uint64) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.written, o.failed, o.dropped
}

// Pending задачи, ожидающие записи
func (o *Outbox) Pending() int {
	return len(o.queue)
}
