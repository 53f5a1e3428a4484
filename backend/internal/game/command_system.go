package game

import (
	"errors"
	"fmt"
	"log"
	"time"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/service"
	"x-gates/backend/internal/core/port/in/gatecontrol"
	"x-gates/backend/internal/core/port/out/zonesync"
)

var (
	ErrDamageIgnored    = errors.New("damage ignored")
	ErrAlreadyDestroyed = errors.New("gate is already destroyed")
	ErrNotDestroyed     = errors.New("gate is not destroyed")
)

type queuedCommand struct {
	req   gatecontrol.Request
	reply func(gatecontrol.Result)
}

// CommandSystem очередь внешних команд, которая выполняется один раз за тик
// до анимации. Реализует gatecontrol.GateControlPort.
type CommandSystem struct {
	name     string
	priority int

	queue chan queuedCommand

	registry *service.GateRegistry
	health   *service.HealthLifecycle
	placer   *service.BlockPlacer
	zoneSync zonesync.ZoneSync
	logger   *log.Logger

	processed uint64
}

var _ gatecontrol.GateControlPort = (*CommandSystem)(nil)

// NewCommandSystem создает очередь команд вместимостью capacity
func NewCommandSystem(
	capacity int,
	registry *service.GateRegistry,
	health *service.HealthLifecycle,
	placer *service.BlockPlacer,
	zoneSync zonesync.ZoneSync,
	logger *log.Logger,
) *CommandSystem {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CommandSystem{
		name:     "CommandSystem",
		priority: 5, // Команды применяются до анимации
		queue:    make(chan queuedCommand, capacity),
		registry: registry,
		health:   health,
		placer:   placer,
		zoneSync: zoneSync,
		logger:   logger,
	}
}

// Submit ставит команду в очередь. Не блокирует: при переполнении ErrQueueFull.
// Безопасно вызывать из любой горутины.
func (cs *CommandSystem) Submit(req gatecontrol.Request, reply func(gatecontrol.Result)) error {
	select {
	case cs.queue <- queuedCommand{req: req, reply: reply}:
		return nil
	default:
		return gatecontrol.ErrQueueFull
	}
}

// Update выполняет команды, накопившиеся к началу тика
func (cs *CommandSystem) Update(deltaTime time.Duration) error {
	pending := len(cs.queue)
	for i := 0; i < pending; i++ {
		cmd := <-cs.queue
		result := cs.Execute(cmd.req)
		cs.processed++
		if cmd.reply != nil {
			cmd.reply(result)
		}
	}
	return nil
}

// Execute выполняет одну команду. Вызывается только в потоке тиков.
func (cs *CommandSystem) Execute(req gatecontrol.Request) gatecontrol.Result {
	g, ok := cs.resolve(req)
	if !ok {
		return gatecontrol.Result{Error: fmt.Sprintf("gate %d %q: %v", req.GateID, req.GateName, service.ErrGateNotFound)}
	}

	var err error
	switch req.Kind {
	case gatecontrol.KindOpen:
		err = cs.registry.Apply(g.ID(), entity.CommandOpen)
	case gatecontrol.KindClose:
		err = cs.registry.Apply(g.ID(), entity.CommandClose)
	case gatecontrol.KindToggle:
		err = cs.registry.ToggleErr(g.ID())
	case gatecontrol.KindForceOpen, gatecontrol.KindForceClose:
		err = cs.force(g, req.Kind == gatecontrol.KindForceOpen)
	case gatecontrol.KindDamage:
		if !cs.health.ApplyDamage(g, req.Amount) {
			err = ErrDamageIgnored
		}
	case gatecontrol.KindDestroy:
		if !cs.health.Destroy(g) {
			err = ErrAlreadyDestroyed
		}
	case gatecontrol.KindRespawn:
		if !cs.health.Respawn(g) {
			err = ErrNotDestroyed
		}
	case gatecontrol.KindStatus:
	default:
		err = fmt.Errorf("%w: %q", entity.ErrUnknownCommand, req.Kind)
	}

	result := gatecontrol.Result{OK: err == nil, Status: StatusOf(g)}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (cs *CommandSystem) resolve(req gatecontrol.Request) (*entity.Gate, bool) {
	if req.GateID != 0 {
		return cs.registry.Get(req.GateID)
	}
	if req.GateName != "" {
		return cs.registry.FindByName(req.GateName)
	}
	return nil, false
}

// force снимает анимацию, приводит блоки к конечному положению и синхронизирует зоны
func (cs *CommandSystem) force(g *entity.Gate, open bool) error {
	if err := cs.registry.ForceStateErr(g.ID(), open); err != nil {
		return err
	}
	if cs.placer != nil {
		cs.placer.Reconcile(g)
	}
	if cs.zoneSync != nil {
		cs.zoneSync.OnGateStateFinalized(g, g.State())
	}
	return nil
}

// Processed число выполненных команд
func (cs *CommandSystem) Processed() uint64 {
	return cs.processed
}

// StatusOf снимок состояния ворот
func StatusOf(g *entity.Gate) *gatecontrol.Status {
	if g == nil {
		return nil
	}
	return &gatecontrol.Status{
		GateID:    g.ID(),
		Name:      g.Name(),
		State:     g.State().String(),
		Frame:     g.Frame(),
		Progress:  g.Progress(),
		Health:    g.Health(),
		Destroyed: g.Destroyed(),
		Active:    g.Active(),
	}
}

// GetName возвращает имя системы
func (cs *CommandSystem) GetName() string {
	return cs.name
}

// GetPriority возвращает приоритет системы
func (cs *CommandSystem) GetPriority() int {
	return cs.priority
}
