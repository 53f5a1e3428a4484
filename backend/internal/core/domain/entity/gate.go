package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrGateInactive    = errors.New("gate is inactive")
	ErrGateDestroyed   = errors.New("gate is destroyed")
)

// GateType тег вида ворот
type GateType string

const (
	GateSliding    GateType = "SLIDING"
	GatePortcullis GateType = "PORTCULLIS"
	GateDrawbridge GateType = "DRAWBRIDGE"
	GateDoor       GateType = "DOOR"
)

// GeometryMode способ задания геометрии ворот
type GeometryMode string

const (
	// GeometryFill - блоки генерируются из width x height x depth одного материала
	GeometryFill GeometryMode = "FILL"
	// GeometryExplicit - блоки перечислены в определении
	GeometryExplicit GeometryMode = "EXPLICIT"
)

// Basis локальные оси ворот: U - ширина, V - высота, N - нормаль/ось движения
type Basis struct {
	U mgl64.Vec3
	V mgl64.Vec3
	N mgl64.Vec3
}

// Config неизменяемая конфигурация ворот, заполняется загрузчиком
type Config struct {
	ID       int64
	Name     string
	Type     GateType
	Geometry GeometryMode
	Face     FaceDirection

	// Duration - длительность анимации в тиках (число кадров)
	Duration int
	// TickRate - шаг обновления блоков в кадрах, >= 1
	TickRate int

	Anchor mgl64.Vec3
	Width  int
	Height int
	Depth  int

	Motion Motion
	Basis  Basis

	HealthMax           float64
	Invincible          bool
	RespawnEnabled      bool
	RespawnDelaySeconds int

	Blocks []BlockSnapshot
}

// MotionType возвращает тег движения
func (c Config) MotionType() MotionType {
	return c.Motion.Type()
}

// MotionVector вектор смещения при полном открытии; нулевой для вращения
func (c Config) MotionVector() mgl64.Vec3 {
	if m, ok := c.Motion.(LinearMotion); ok {
		return m.Vector
	}
	return mgl64.Vec3{}
}

// HingeAxis ось петли; нулевая для линейного движения
func (c Config) HingeAxis() mgl64.Vec3 {
	if m, ok := c.Motion.(RotationalMotion); ok {
		return m.Hinge
	}
	return mgl64.Vec3{}
}

// RotationMaxAngle максимальный угол поворота в градусах; 0 для линейного движения
func (c Config) RotationMaxAngle() float64 {
	if m, ok := c.Motion.(RotationalMotion); ok {
		return m.MaxAngle
	}
	return 0
}

// RespawnDelay задержка респавна
func (c Config) RespawnDelay() time.Duration {
	return time.Duration(c.RespawnDelaySeconds) * time.Second
}

// runtime изменяемое состояние ворот.
// Меняется только через методы Gate на тике симуляции.
type runtime struct {
	state          AnimationState
	frame          int
	animationStart time.Time

	health     float64
	active     bool
	destroyed  bool
	invincible bool
	respawnAt  time.Time

	openZone   string
	closedZone string
}

// Gate ворота: неизменяемая конфигурация плюс состояние выполнения
type Gate struct {
	cfg Config
	rt  runtime
}

// NewGate проверяет конфигурацию и создает ворота в состоянии CLOSED
func NewGate(cfg Config) (*Gate, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("gate %d: name is required: %w", cfg.ID, ErrInvalidArgument)
	}
	if cfg.Motion == nil {
		return nil, fmt.Errorf("gate %d: motion is required: %w", cfg.ID, ErrInvalidArgument)
	}
	if cfg.Duration < 0 {
		return nil, fmt.Errorf("gate %d: duration must be >= 0: %w", cfg.ID, ErrInvalidArgument)
	}
	if cfg.TickRate < 1 {
		return nil, fmt.Errorf("gate %d: tick rate must be >= 1: %w", cfg.ID, ErrInvalidArgument)
	}
	if cfg.HealthMax < 0 {
		return nil, fmt.Errorf("gate %d: health max must be >= 0: %w", cfg.ID, ErrInvalidArgument)
	}
	if cfg.RespawnDelaySeconds < 0 {
		return nil, fmt.Errorf("gate %d: respawn delay must be >= 0: %w", cfg.ID, ErrInvalidArgument)
	}

	blocks := make([]BlockSnapshot, len(cfg.Blocks))
	copy(blocks, cfg.Blocks)
	SortBlocks(blocks)
	cfg.Blocks = blocks

	return &Gate{
		cfg: cfg,
		rt: runtime{
			state:      StateClosed,
			health:     cfg.HealthMax,
			active:     true,
			invincible: cfg.Invincible,
		},
	}, nil
}

func (g *Gate) ID() int64      { return g.cfg.ID }
func (g *Gate) Name() string   { return g.cfg.Name }
func (g *Gate) Config() Config { return g.cfg }

// Blocks возвращает блоки в порядке SortOrder. Срез не должен изменяться.
func (g *Gate) Blocks() []BlockSnapshot { return g.cfg.Blocks }

func (g *Gate) State() AnimationState     { return g.rt.state }
func (g *Gate) Frame() int                { return g.rt.frame }
func (g *Gate) AnimationStart() time.Time { return g.rt.animationStart }
func (g *Gate) Health() float64           { return g.rt.health }
func (g *Gate) Active() bool              { return g.rt.active }
func (g *Gate) Destroyed() bool           { return g.rt.destroyed }
func (g *Gate) Invincible() bool          { return g.rt.invincible }
func (g *Gate) RespawnAt() time.Time      { return g.rt.respawnAt }

// Zones возвращает идентификаторы зон для внешней синхронизации
func (g *Gate) Zones() (openZone, closedZone string) {
	return g.rt.openZone, g.rt.closedZone
}

// IsAnimating true, если ворота сейчас открываются или закрываются
func (g *Gate) IsAnimating() bool {
	return g.rt.state.IsAnimating()
}

// Progress доля открытия 0..1
func (g *Gate) Progress() float64 {
	if g.cfg.Duration <= 0 {
		if g.rt.state == StateOpen {
			return 1
		}
		return 0
	}
	return float64(g.rt.frame) / float64(g.cfg.Duration)
}

// TerminalFrame конечный кадр текущей анимации: duration для открытия, 0 для закрытия
func (g *Gate) TerminalFrame() int {
	if g.rt.state == StateOpening || g.rt.state == StateOpen {
		return g.cfg.Duration
	}
	return 0
}

// Begin запускает анимацию командой open/close в момент now.
// open всегда начинает с кадра 0, close с кадра duration, в том числе
// посреди встречной анимации.
func (g *Gate) Begin(cmd Command, now time.Time) error {
	if cmd != CommandOpen && cmd != CommandClose {
		return fmt.Errorf("begin %s: %w", cmd, ErrUnknownCommand)
	}
	if g.rt.destroyed && cmd == CommandOpen {
		return ErrGateDestroyed
	}
	if !g.rt.active {
		return ErrGateInactive
	}

	next, err := Transition(g.rt.state, cmd)
	if err != nil {
		return err
	}

	if next == StateOpening {
		g.rt.frame = 0
	} else {
		g.rt.frame = g.cfg.Duration
	}
	g.rt.animationStart = now
	g.rt.state = next
	return nil
}

// SetFrame устанавливает кадр анимации, ограничивая его [0, duration]
func (g *Gate) SetFrame(frame int) {
	g.rt.frame = ClampFrame(frame, g.cfg.Duration)
}

// Finish завершает анимацию и переводит ворота в конечное состояние
func (g *Gate) Finish() (AnimationState, error) {
	next, err := Transition(g.rt.state, CommandFinish)
	if err != nil {
		return g.rt.state, err
	}
	g.rt.state = next
	if next == StateOpen {
		g.rt.frame = g.cfg.Duration
	} else {
		g.rt.frame = 0
	}
	return next, nil
}

// Force переводит ворота в конечное состояние без анимации
func (g *Gate) Force(open bool) AnimationState {
	cmd := CommandForceClose
	if open {
		cmd = CommandForceOpen
	}
	next, _ := Transition(g.rt.state, cmd)
	g.rt.state = next
	if next == StateOpen {
		g.rt.frame = g.cfg.Duration
	} else {
		g.rt.frame = 0
	}
	return next
}

// ApplyDamage уменьшает здоровье, не опуская его ниже нуля.
// Возвращает новое здоровье и признак того, что оно исчерпано.
func (g *Gate) ApplyDamage(amount float64) (float64, bool) {
	// !(amount > 0) отсекает и NaN
	if !(amount > 0) {
		return g.rt.health, g.rt.health <= 0
	}
	g.rt.health -= amount
	if g.rt.health < 0 {
		g.rt.health = 0
	}
	return g.rt.health, g.rt.health <= 0
}

// MarkDestroyed переводит ворота в разрушенное состояние.
// respawnAt нулевой, если респавн не запланирован.
func (g *Gate) MarkDestroyed(respawnAt time.Time) {
	g.rt.destroyed = true
	g.rt.active = false
	g.rt.state = StateClosed
	g.rt.frame = 0
	g.rt.health = 0
	g.rt.respawnAt = respawnAt
}

// Revive восстанавливает разрушенные ворота с полным здоровьем
func (g *Gate) Revive() {
	g.rt.destroyed = false
	g.rt.active = true
	g.rt.health = g.cfg.HealthMax
	g.rt.respawnAt = time.Time{}
}

// Restore применяет сохраненное состояние при загрузке
func (g *Gate) Restore(health float64, destroyed, active bool) {
	if health < 0 {
		health = 0
	}
	if health > g.cfg.HealthMax {
		health = g.cfg.HealthMax
	}
	g.rt.health = health
	g.rt.active = active
	if destroyed {
		g.rt.health = 0
		g.MarkDestroyed(g.rt.respawnAt)
	} else {
		g.rt.destroyed = false
	}
}

// SetInvincible включает или выключает неуязвимость
func (g *Gate) SetInvincible(invincible bool) {
	g.rt.invincible = invincible
}

// SetZones задает идентификаторы зон для внешней синхронизации
func (g *Gate) SetZones(openZone, closedZone string) {
	g.rt.openZone = openZone
	g.rt.closedZone = closedZone
}

// ClampFrame ограничивает кадр диапазоном [0, duration]
func ClampFrame(frame, duration int) int {
	if duration < 0 {
		duration = 0
	}
	if frame < 0 {
		return 0
	}
	if frame > duration {
		return duration
	}
	return frame
}
