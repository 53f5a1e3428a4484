package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"x-gates/backend/internal/core/domain/entity"
)

var (
	ErrGateNotFound  = errors.New("gate not found")
	ErrDuplicateGate = errors.New("duplicate gate")
	ErrAnimating     = errors.New("gate is animating")
)

// GateRegistry хранит ворота по id и реализует команды машины состояний.
//
// Вся мутация выполняется в потоке тиков симуляции: внешние вызывающие
// попадают сюда только через очередь команд, поэтому блокировок нет.
type GateRegistry struct {
	gates map[int64]*entity.Gate
	order []int64

	tickDuration time.Duration
	now          func() time.Time
	logger       *log.Logger
}

// NewGateRegistry создает пустой реестр.
// tickDuration - длительность одного тика симуляции, now - источник времени.
func NewGateRegistry(tickDuration time.Duration, now func() time.Time, logger *log.Logger) *GateRegistry {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &GateRegistry{
		gates:        make(map[int64]*entity.Gate),
		tickDuration: tickDuration,
		now:          now,
		logger:       logger,
	}
}

// TickDuration длительность тика, по которой кадры считаются из времени
func (r *GateRegistry) TickDuration() time.Duration {
	return r.tickDuration
}

// Now текущее время по часам реестра
func (r *GateRegistry) Now() time.Time {
	return r.now()
}

// Register добавляет ворота; id и имя (без учета регистра) должны быть уникальны
func (r *GateRegistry) Register(g *entity.Gate) error {
	if g == nil {
		return fmt.Errorf("register: %w", entity.ErrInvalidArgument)
	}
	if _, exists := r.gates[g.ID()]; exists {
		return fmt.Errorf("register gate %d: %w", g.ID(), ErrDuplicateGate)
	}
	if other, ok := r.FindByName(g.Name()); ok {
		return fmt.Errorf("register gate %d: name %q taken by gate %d: %w", g.ID(), g.Name(), other.ID(), ErrDuplicateGate)
	}
	r.gates[g.ID()] = g
	r.order = append(r.order, g.ID())
	return nil
}

// Get возвращает ворота по id
func (r *GateRegistry) Get(id int64) (*entity.Gate, bool) {
	g, ok := r.gates[id]
	return g, ok
}

// FindByName ищет ворота по имени без учета регистра.
// Линейный поиск: ворот на сервере десятки.
func (r *GateRegistry) FindByName(name string) (*entity.Gate, bool) {
	for _, id := range r.order {
		g := r.gates[id]
		if strings.EqualFold(g.Name(), name) {
			return g, true
		}
	}
	return nil, false
}

// All возвращает все ворота в порядке регистрации
func (r *GateRegistry) All() []*entity.Gate {
	result := make([]*entity.Gate, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.gates[id])
	}
	return result
}

// Animating возвращает ворота в состоянии OPENING или CLOSING
func (r *GateRegistry) Animating() []*entity.Gate {
	var result []*entity.Gate
	for _, id := range r.order {
		if g := r.gates[id]; g.IsAnimating() {
			result = append(result, g)
		}
	}
	return result
}

// Len количество ворот
func (r *GateRegistry) Len() int {
	return len(r.gates)
}

// Apply выполняет команду open или close и возвращает причину отказа
func (r *GateRegistry) Apply(id int64, cmd entity.Command) error {
	g, ok := r.gates[id]
	if !ok {
		return fmt.Errorf("gate %d: %w", id, ErrGateNotFound)
	}
	if err := g.Begin(cmd, r.now()); err != nil {
		return err
	}
	r.logger.Printf("[GateRegistry] Ворота %d (%s): %s -> %s", id, g.Name(), cmd, g.State())
	return nil
}

// Open начинает открытие. false, если ворота неизвестны, уже открыты/открываются,
// неактивны или разрушены.
func (r *GateRegistry) Open(id int64) bool {
	return r.Apply(id, entity.CommandOpen) == nil
}

// Close начинает закрытие. false, если ворота неизвестны, уже закрыты/закрываются
// или неактивны.
func (r *GateRegistry) Close(id int64) bool {
	return r.Apply(id, entity.CommandClose) == nil
}

// ToggleErr открывает закрытые и закрывает открытые ворота; во время анимации - ErrAnimating
func (r *GateRegistry) ToggleErr(id int64) error {
	g, ok := r.gates[id]
	if !ok {
		return fmt.Errorf("gate %d: %w", id, ErrGateNotFound)
	}
	switch g.State() {
	case entity.StateClosed:
		return r.Apply(id, entity.CommandOpen)
	case entity.StateOpen:
		return r.Apply(id, entity.CommandClose)
	default:
		return fmt.Errorf("gate %d: %w", id, ErrAnimating)
	}
}

// Toggle см. ToggleErr
func (r *GateRegistry) Toggle(id int64) bool {
	return r.ToggleErr(id) == nil
}

// ForceStateErr переводит ворота в конечное состояние без анимации.
// Разрушенные ворота нельзя принудительно открыть.
func (r *GateRegistry) ForceStateErr(id int64, open bool) error {
	g, ok := r.gates[id]
	if !ok {
		return fmt.Errorf("gate %d: %w", id, ErrGateNotFound)
	}
	if open && g.Destroyed() {
		return fmt.Errorf("gate %d: %w", id, entity.ErrGateDestroyed)
	}
	state := g.Force(open)
	r.logger.Printf("[GateRegistry] Ворота %d (%s) принудительно переведены в %s", id, g.Name(), state)
	return nil
}

// ForceState см. ForceStateErr
func (r *GateRegistry) ForceState(id int64, open bool) bool {
	return r.ForceStateErr(id, open) == nil
}

// IsAnimating false для неизвестных ворот
func (r *GateRegistry) IsAnimating(id int64) bool {
	g, ok := r.gates[id]
	return ok && g.IsAnimating()
}

// Progress доля открытия 0..1 или -1 для неизвестных ворот
func (r *GateRegistry) Progress(id int64) float64 {
	g, ok := r.gates[id]
	if !ok {
		return -1
	}
	return g.Progress()
}
