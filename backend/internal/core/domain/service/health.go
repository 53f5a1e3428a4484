package service

import (
	"log"
	"time"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/port/out/persistence"
	"x-gates/backend/internal/core/port/out/zonesync"
)

// Timer планирует одноразовый вызов в потоке тиков
type Timer interface {
	ScheduleAfter(delay time.Duration, name string, fn func())
}

// LifecycleRecorder учитывает разрушения и респавны в телеметрии
type LifecycleRecorder interface {
	RecordDestroyed(gateID int64)
	RecordRespawned(gateID int64)
}

// HealthLifecycle управляет уроном, разрушением и респавном ворот.
// Сохранение уходит в Persister асинхронно; состояние в памяти главное.
type HealthLifecycle struct {
	placer    *BlockPlacer
	persister persistence.Persister
	notifier  zonesync.LifecycleNotifier
	recorder  LifecycleRecorder
	timer     Timer
	now       func() time.Time
	logger    *log.Logger
}

// NewHealthLifecycle создает HealthLifecycle. persister, notifier и recorder могут быть nil.
func NewHealthLifecycle(
	placer *BlockPlacer,
	persister persistence.Persister,
	notifier zonesync.LifecycleNotifier,
	recorder LifecycleRecorder,
	timer Timer,
	now func() time.Time,
	logger *log.Logger,
) *HealthLifecycle {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HealthLifecycle{
		placer:    placer,
		persister: persister,
		notifier:  notifier,
		recorder:  recorder,
		timer:     timer,
		now:       now,
		logger:    logger,
	}
}

// ApplyDamage наносит урон. Ничего не делает при amount <= 0 или NaN, неуязвимых
// или уже разрушенных воротах. Возвращает true, если урон применен.
func (h *HealthLifecycle) ApplyDamage(g *entity.Gate, amount float64) bool {
	if g == nil || !(amount > 0) || g.Invincible() || g.Destroyed() {
		return false
	}
	health, depleted := g.ApplyDamage(amount)
	if depleted {
		h.Destroy(g)
		return true
	}
	if h.persister != nil {
		h.persister.PersistHealth(g.ID(), health)
	}
	return true
}

// Destroy разрушает ворота: убирает блоки, сохраняет состояние
// и, если разрешено, планирует респавн.
func (h *HealthLifecycle) Destroy(g *entity.Gate) bool {
	if g == nil || g.Destroyed() {
		return false
	}
	cfg := g.Config()

	var respawnAt time.Time
	if cfg.RespawnEnabled {
		respawnAt = h.now().Add(cfg.RespawnDelay())
	}
	g.MarkDestroyed(respawnAt)

	if h.placer != nil {
		h.placer.Reconcile(g)
	}
	if h.persister != nil {
		h.persister.PersistHealth(g.ID(), 0)
		h.persister.PersistState(g.ID(), true, false)
	}
	if cfg.RespawnEnabled {
		h.scheduleRespawn(g, respawnAt)
	}

	h.logger.Printf("[HealthLifecycle] Ворота %d (%s) разрушены", g.ID(), g.Name())
	if h.recorder != nil {
		h.recorder.RecordDestroyed(g.ID())
	}
	if h.notifier != nil {
		h.notifier.OnGateDestroyed(g)
	}
	return true
}

// scheduleRespawn ставит таймер. Таймеры не отменяются: при срабатывании
// устаревший таймер (ворота уже восстановлены или разрушены заново) ничего не делает.
func (h *HealthLifecycle) scheduleRespawn(g *entity.Gate, respawnAt time.Time) {
	if h.timer == nil {
		return
	}
	delay := respawnAt.Sub(h.now())
	if delay < 0 {
		delay = 0
	}
	h.timer.ScheduleAfter(delay, "respawn", func() {
		if !g.Destroyed() || !g.RespawnAt().Equal(respawnAt) {
			h.logger.Printf("[HealthLifecycle] Устаревший таймер респавна ворот %d пропущен", g.ID())
			return
		}
		h.Respawn(g)
	})
}

// Respawn восстанавливает разрушенные ворота с полным здоровьем в закрытом положении
func (h *HealthLifecycle) Respawn(g *entity.Gate) bool {
	if g == nil || !g.Destroyed() {
		return false
	}
	g.Revive()

	if h.placer != nil {
		h.placer.Reconcile(g)
	}
	if h.persister != nil {
		h.persister.PersistHealth(g.ID(), g.Health())
		h.persister.PersistState(g.ID(), false, true)
	}

	h.logger.Printf("[HealthLifecycle] Ворота %d (%s) восстановлены", g.ID(), g.Name())
	if h.recorder != nil {
		h.recorder.RecordRespawned(g.ID())
	}
	if h.notifier != nil {
		h.notifier.OnGateRespawned(g)
	}
	return true
}

// Restore применяет сохраненную запись при запуске и перезапускает таймер
// респавна для разрушенных ворот. Ничего не сохраняет обратно.
func (h *HealthLifecycle) Restore(g *entity.Gate, rec persistence.GateRecord) {
	if g == nil {
		return
	}
	g.Restore(rec.Health, rec.Destroyed, rec.Active)
	if !rec.Destroyed {
		return
	}

	cfg := g.Config()
	if !cfg.RespawnEnabled {
		g.MarkDestroyed(time.Time{})
		return
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = h.now()
	}
	respawnAt := updated.Add(cfg.RespawnDelay())
	g.MarkDestroyed(respawnAt)
	h.scheduleRespawn(g, respawnAt)
}
