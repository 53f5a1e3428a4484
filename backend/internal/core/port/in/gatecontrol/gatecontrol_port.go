package gatecontrol

import "errors"

// CommandKind вид внешней команды управления воротами
type CommandKind string

const (
	KindOpen       CommandKind = "open"
	KindClose      CommandKind = "close"
	KindToggle     CommandKind = "toggle"
	KindForceOpen  CommandKind = "force_open"
	KindForceClose CommandKind = "force_close"
	KindDamage     CommandKind = "damage"
	KindDestroy    CommandKind = "destroy"
	KindRespawn    CommandKind = "respawn"
	KindStatus     CommandKind = "status"
)

var ErrQueueFull = errors.New("command queue is full")

// Request команда к воротам. Ворота ищутся по GateID, если он не ноль, иначе по имени.
type Request struct {
	Kind     CommandKind
	GateID   int64
	GateName string
	Amount   float64
}

// Status снимок состояния ворот для ответа
type Status struct {
	GateID    int64   `json:"gate_id"`
	Name      string  `json:"name"`
	State     string  `json:"state"`
	Frame     int     `json:"frame"`
	Progress  float64 `json:"progress"`
	Health    float64 `json:"health"`
	Destroyed bool    `json:"destroyed"`
	Active    bool    `json:"active"`
}

// Result результат выполнения команды
type Result struct {
	OK     bool
	Error  string
	Status *Status
}

// GateControlPort принимает команды от внешних триггеров.
// Команда выполняется на тике симуляции, reply вызывается из потока тиков.
type GateControlPort interface {
	Submit(req Request, reply func(Result)) error
}
