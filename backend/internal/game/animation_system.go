package game

import (
	"log"
	"time"

	"x-gates/backend/internal/core/domain/collision"
	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/kinematics"
	"x-gates/backend/internal/core/domain/service"
	"x-gates/backend/internal/core/port/out/world"
	"x-gates/backend/internal/core/port/out/zonesync"
	"x-gates/backend/internal/telemetry"
)

// LoadMonitor источник оценки нагрузки сервера
type LoadMonitor interface {
	Degraded(threshold float64) bool
}

// AnimationConfig параметры планировщика анимации
type AnimationConfig struct {
	LagSampleInterval  time.Duration // Как часто опрашивать нагрузку
	LagTPSThreshold    float64       // Ниже этого TPS сервер считается перегруженным
	CollisionLookahead int           // Сколько кадров вперед предсказывать столкновения
	CollisionThreshold int           // Толкать акторов, если до столкновения строго меньше стольких кадров
	ActorScanMargin    float64       // Запас вокруг ворот при поиске акторов
}

// DefaultAnimationConfig значения по умолчанию
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		LagSampleInterval:  5 * time.Second,
		LagTPSThreshold:    18,
		CollisionLookahead: 5,
		CollisionThreshold: 3,
		ActorScanMargin:    2,
	}
}

// AnimationSystem двигает кадры анимирующихся ворот каждый тик
type AnimationSystem struct {
	name     string
	priority int

	registry  *service.GateRegistry
	placer    *service.BlockPlacer
	actors    world.ActorQuery
	pusher    *collision.Pusher
	zoneSync  zonesync.ZoneSync
	load      LoadMonitor
	telemetry *telemetry.TelemetryManager

	cfg    AnimationConfig
	logger *log.Logger

	lastSample time.Time
	degraded   bool
	updates    uint64
}

// NewAnimationSystem создает систему анимации. actors, zoneSync, load и tm могут быть nil.
func NewAnimationSystem(
	registry *service.GateRegistry,
	placer *service.BlockPlacer,
	actors world.ActorQuery,
	pusher *collision.Pusher,
	zoneSync zonesync.ZoneSync,
	load LoadMonitor,
	tm *telemetry.TelemetryManager,
	cfg AnimationConfig,
	logger *log.Logger,
) *AnimationSystem {
	if logger == nil {
		logger = log.Default()
	}
	if pusher == nil {
		pusher = collision.NewPusher(0)
	}
	defaults := DefaultAnimationConfig()
	if cfg.LagSampleInterval <= 0 {
		cfg.LagSampleInterval = defaults.LagSampleInterval
	}
	if cfg.CollisionLookahead < 0 {
		cfg.CollisionLookahead = defaults.CollisionLookahead
	}
	return &AnimationSystem{
		name:      "AnimationSystem",
		priority:  10, // После очереди команд
		registry:  registry,
		placer:    placer,
		actors:    actors,
		pusher:    pusher,
		zoneSync:  zoneSync,
		load:      load,
		telemetry: tm,
		cfg:       cfg,
		logger:    logger,
	}
}

// Update выполняет один проход по анимирующимся воротам
func (as *AnimationSystem) Update(deltaTime time.Duration) error {
	now := as.registry.Now()
	as.sampleLoad(now)

	as.placer.RetryPending()

	for _, g := range as.registry.Animating() {
		if g.Destroyed() || !g.Active() {
			continue
		}
		as.step(g, now)
	}

	as.updates++
	return nil
}

// Degraded последняя оценка нагрузки
func (as *AnimationSystem) Degraded() bool {
	return as.degraded
}

// sampleLoad опрашивает нагрузку не чаще LagSampleInterval
func (as *AnimationSystem) sampleLoad(now time.Time) {
	if as.load == nil {
		return
	}
	if !as.lastSample.IsZero() && now.Sub(as.lastSample) < as.cfg.LagSampleInterval {
		return
	}
	as.lastSample = now

	degraded := as.load.Degraded(as.cfg.LagTPSThreshold)
	if degraded != as.degraded {
		if degraded {
			as.logger.Printf("[AnimationSystem] Сервер перегружен (TPS < %.1f), анимации после середины завершаются досрочно", as.cfg.LagTPSThreshold)
		} else {
			as.logger.Printf("[AnimationSystem] Нагрузка в норме")
		}
	}
	as.degraded = degraded
}

// frameAt кадр анимации из времени, прошедшего с начала
func (as *AnimationSystem) frameAt(g *entity.Gate, now time.Time) int {
	duration := g.Config().Duration
	tick := as.registry.TickDuration()
	elapsed := 0
	if tick > 0 {
		elapsed = int(now.Sub(g.AnimationStart()) / tick)
	}
	if g.State() == entity.StateClosing {
		return entity.ClampFrame(duration-elapsed, duration)
	}
	return entity.ClampFrame(elapsed, duration)
}

func pastMidpoint(g *entity.Gate, frame int) bool {
	duration := g.Config().Duration
	if g.State() == entity.StateClosing {
		return frame*2 <= duration
	}
	return frame*2 >= duration
}

func (as *AnimationSystem) step(g *entity.Gate, now time.Time) {
	frame := as.frameAt(g, now)
	terminal := g.TerminalFrame()

	snapped := false
	if as.degraded && frame != terminal && pastMidpoint(g, frame) {
		frame = terminal
		snapped = true
	}

	// Мир уже показывает g.Frame(): повторять нечего
	if frame == g.Frame() && frame != terminal {
		return
	}
	if !kinematics.ShouldUpdateFrame(g, frame) {
		return
	}

	as.pushActors(g, frame)

	changes, ok := as.placer.Apply(g, frame, false)
	if !ok {
		// Регион не загружен: повторим на следующем тике
		if as.telemetry != nil {
			as.telemetry.RecordUnloaded(g.ID(), frame)
		}
		return
	}
	g.SetFrame(frame)
	if as.telemetry != nil {
		if snapped {
			as.telemetry.RecordLagSnap(g.ID(), frame)
		}
		as.telemetry.RecordFrame(g.ID(), frame, changes)
	}

	if frame == terminal {
		as.finalize(g)
	}
}

// pushActors толкает акторов, которых блоки заденут в ближайшие кадры
func (as *AnimationSystem) pushActors(g *entity.Gate, frame int) {
	if as.actors == nil || len(g.Blocks()) == 0 {
		return
	}
	bounds, ok := sweptBounds(g, frame, as.cfg.CollisionLookahead)
	if !ok {
		return
	}

	for _, actor := range as.actors.NearbyActors(bounds.Expand(as.cfg.ActorScanMargin)) {
		ttc, err := collision.PredictDirected(g, actor.Bounds(), frame, as.cfg.CollisionLookahead)
		if err != nil || ttc == collision.NoCollision || ttc >= as.cfg.CollisionThreshold {
			continue
		}
		if as.pusher.Push(actor, g) && as.telemetry != nil {
			as.telemetry.RecordPush(g.ID(), actor.ActorID(), frame)
		}
	}
}

// sweptBounds объединение блоков ворот по кадрам окна предсказания
func sweptBounds(g *entity.Gate, frame, lookahead int) (entity.AABB, bool) {
	step := 1
	if g.State() == entity.StateClosing {
		step = -1
	}
	duration := g.Config().Duration

	var bounds entity.AABB
	found := false
	for i := 0; i <= lookahead; i++ {
		f := frame + step*i
		if f < 0 || f > duration {
			break
		}
		positions, err := kinematics.Positions(g, f)
		if err != nil {
			return entity.AABB{}, false
		}
		for _, p := range positions {
			cube := entity.BlockPosOf(p).Bounds()
			if !found {
				bounds = cube
				found = true
				continue
			}
			for axis := 0; axis < 3; axis++ {
				bounds.Min[axis] = min(bounds.Min[axis], cube.Min[axis])
				bounds.Max[axis] = max(bounds.Max[axis], cube.Max[axis])
			}
		}
	}
	return bounds, found
}

// finalize переводит ворота в конечное состояние, выполняет проход коррекции блоков
// и уведомляет синхронизацию зон
func (as *AnimationSystem) finalize(g *entity.Gate) {
	state, err := g.Finish()
	if err != nil {
		as.logger.Printf("[AnimationSystem] Не удалось завершить анимацию ворот %d: %v", g.ID(), err)
		return
	}

	as.placer.Reconcile(g)

	if as.zoneSync != nil {
		as.zoneSync.OnGateStateFinalized(g, state)
	}
	if as.telemetry != nil {
		as.telemetry.RecordFinalized(g.ID(), state.String(), g.Frame())
	}
	as.logger.Printf("[AnimationSystem] Ворота %d (%s) в состоянии %s", g.ID(), g.Name(), state)
}

// GetName возвращает имя системы
func (as *AnimationSystem) GetName() string {
	return as.name
}

// GetPriority возвращает приоритет системы
func (as *AnimationSystem) GetPriority() int {
	return as.priority
}
