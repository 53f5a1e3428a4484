package ws

import (
	"time"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/port/in/gatecontrol"
)

// Типы сообщений
const (
	MessageTypePing          = "ping"           // Пинг для измерения задержки
	MessageTypePong          = "pong"           // Ответ на пинг
	MessageTypeGateCommand   = "gate_command"   // Команда воротам от клиента
	MessageTypeGateAck       = "gate_ack"       // Результат команды
	MessageTypeGateState     = "gate_state"     // Ворота пришли в конечное состояние
	MessageTypeGateDestroyed = "gate_destroyed" // Ворота разрушены
	MessageTypeGateRespawned = "gate_respawned" // Ворота восстановлены
	MessageTypeActorUpdate   = "actor_update"   // Клиент сообщает габариты актора
	MessageTypeActorRemove   = "actor_remove"   // Актор покинул мир
	MessageTypeActorState    = "actor_state"    // Текущая скорость актора
	MessageTypeError         = "error"          // Ошибка разбора сообщения
)

// Envelope общий заголовок входящего сообщения
type Envelope struct {
	Type string `json:"type"`
}

// GateCommandMessage входящая команда воротам
type GateCommandMessage struct {
	Type      string  `json:"type"`
	RequestID string  `json:"request_id,omitempty"`
	Command   string  `json:"command"`
	GateID    int64   `json:"gate_id,omitempty"`
	GateName  string  `json:"gate_name,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

// Vec3Message координаты в JSON
type Vec3Message struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ActorUpdateMessage габариты актора рядом с воротами
type ActorUpdateMessage struct {
	Type    string      `json:"type"`
	ActorID string      `json:"actor_id"`
	Min     Vec3Message `json:"min"`
	Max     Vec3Message `json:"max"`
}

// GateAckMessage ответ на команду
type GateAckMessage struct {
	Type       string              `json:"type"`
	RequestID  string              `json:"request_id,omitempty"`
	OK         bool                `json:"ok"`
	Error      string              `json:"error,omitempty"`
	Status     *gatecontrol.Status `json:"status,omitempty"`
	ServerTime int64               `json:"server_time"`
}

// GateEventMessage событие ворот для всех клиентов
type GateEventMessage struct {
	Type       string             `json:"type"`
	Status     gatecontrol.Status `json:"status"`
	OpenZone   string             `json:"open_zone,omitempty"`
	ClosedZone string             `json:"closed_zone,omitempty"`
	ServerTime int64              `json:"server_time"`
}

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewPongMessage создает новое сообщение-ответ на пинг
func NewPongMessage(clientTime float64) map[string]interface{} {
	return map[string]interface{}{
		"type":        MessageTypePong,
		"client_time": clientTime,
		"server_time": GetCurrentServerTime(),
	}
}

// NewErrorMessage сообщение об ошибке разбора
func NewErrorMessage(message string) map[string]interface{} {
	return map[string]interface{}{
		"type":    MessageTypeError,
		"message": message,
	}
}

// NewAckMessage ответ на команду
func NewAckMessage(requestID string, result gatecontrol.Result) GateAckMessage {
	return GateAckMessage{
		Type:       MessageTypeGateAck,
		RequestID:  requestID,
		OK:         result.OK,
		Error:      result.Error,
		Status:     result.Status,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewGateEventMessage снимок ворот для рассылки. Вызывается в потоке тиков.
func NewGateEventMessage(messageType string, g *entity.Gate) GateEventMessage {
	openZone, closedZone := g.Zones()
	return GateEventMessage{
		Type: messageType,
		Status: gatecontrol.Status{
			GateID:    g.ID(),
			Name:      g.Name(),
			State:     g.State().String(),
			Frame:     g.Frame(),
			Progress:  g.Progress(),
			Health:    g.Health(),
			Destroyed: g.Destroyed(),
			Active:    g.Active(),
		},
		OpenZone:   openZone,
		ClosedZone: closedZone,
		ServerTime: GetCurrentServerTime(),
	}
}
