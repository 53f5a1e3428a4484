package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/port/in/gatecontrol"
	"x-gates/backend/internal/core/port/out/zonesync"
	"x-gates/backend/internal/world"
)

const (
	defaultSendQueue = 64
	writeTimeout     = 5 * time.Second
)

// ActorTracker индекс акторов, которых двигают ворота
type ActorTracker interface {
	Upsert(id string, bounds entity.AABB) *world.Avatar
	Remove(id string)
}

type handlerFunc func(c *client, raw []byte) error

// WSAdapter принимает команды воротам по WebSocket и рассылает события ворот.
// Реализует zonesync.ZoneSync и zonesync.LifecycleNotifier.
type WSAdapter struct {
	upgrader  websocket.Upgrader
	handlers  map[string]handlerFunc
	control   gatecontrol.GateControlPort
	actors    ActorTracker
	sendQueue int

	clients   map[*client]bool // Для хранения активных клиентов
	clientsMu sync.Mutex       // Мьютекс для безопасного доступа к списку клиентов

	logger *log.Logger
}

var (
	_ zonesync.ZoneSync          = (*WSAdapter)(nil)
	_ zonesync.LifecycleNotifier = (*WSAdapter)(nil)
)

// NewWSAdapter создает адаптер. actors может быть nil.
func NewWSAdapter(control gatecontrol.GateControlPort, actors ActorTracker, logger *log.Logger) *WSAdapter {
	if logger == nil {
		logger = log.Default()
	}
	a := &WSAdapter{
		control:   control,
		actors:    actors,
		sendQueue: defaultSendQueue,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		handlers: make(map[string]handlerFunc),
		clients:  make(map[*client]bool),
		logger:   logger,
	}
	a.registerHandlers()
	return a
}

// SafeWriter обеспечивает потокобезопасную запись в WebSocket
type SafeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{conn: conn}
}

// WriteMessage потокобезопасно отправляет готовое сообщение
func (w *SafeWriter) WriteMessage(data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Close закрывает соединение WebSocket
func (w *SafeWriter) Close() error {
	return w.conn.Close()
}

// client соединение с очередью исходящих сообщений.
// Поток тиков только кладет в очередь и никогда не ждет сеть.
type client struct {
	writer *SafeWriter
	send   chan []byte
	once   sync.Once
	done   chan struct{}
}

func newClient(conn *websocket.Conn, queue int) *client {
	return &client{
		writer: NewSafeWriter(conn),
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
	}
}

// enqueue кладет сообщение в очередь. false, если очередь полна или клиент закрыт.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.writer.Close()
	})
}

func (c *client) writeLoop(logger *log.Logger) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.writer.WriteMessage(data); err != nil {
				logger.Printf("[WSAdapter] Ошибка отправки клиенту: %v", err)
				c.close()
				return
			}
		}
	}
}

func (a *WSAdapter) sendTo(c *client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Printf("[WSAdapter] Ошибка сериализации: %v", err)
		return
	}
	if !c.enqueue(data) {
		a.logger.Printf("[WSAdapter] Очередь клиента переполнена, сообщение отброшено")
	}
}

// registerHandlers регистрирует обработчики сообщений
func (a *WSAdapter) registerHandlers() {
	a.handlers[MessageTypePing] = func(c *client, raw []byte) error {
		var msg struct {
			ClientTime float64 `json:"client_time"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		a.sendTo(c, NewPongMessage(msg.ClientTime))
		return nil
	}

	a.handlers[MessageTypeGateCommand] = func(c *client, raw []byte) error {
		var msg GateCommandMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		if msg.GateID == 0 && msg.GateName == "" {
			a.sendTo(c, NewAckMessage(msg.RequestID, gatecontrol.Result{Error: "gate_id or gate_name is required"}))
			return nil
		}

		if a.control == nil {
			a.sendTo(c, NewAckMessage(msg.RequestID, gatecontrol.Result{Error: "gate control is not available"}))
			return nil
		}

		req := gatecontrol.Request{
			Kind:     gatecontrol.CommandKind(msg.Command),
			GateID:   msg.GateID,
			GateName: msg.GateName,
			Amount:   msg.Amount,
		}
		err := a.control.Submit(req, func(result gatecontrol.Result) {
			// Вызывается в потоке тиков
			a.sendTo(c, NewAckMessage(msg.RequestID, result))
		})
		if err != nil {
			if errors.Is(err, gatecontrol.ErrQueueFull) {
				a.logger.Printf("[WSAdapter] Очередь команд переполнена, команда %s отклонена", msg.Command)
			}
			a.sendTo(c, NewAckMessage(msg.RequestID, gatecontrol.Result{Error: err.Error()}))
		}
		return nil
	}

	a.handlers[MessageTypeActorUpdate] = func(c *client, raw []byte) error {
		if a.actors == nil {
			return fmt.Errorf("actor tracking is disabled")
		}
		var msg ActorUpdateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		if msg.ActorID == "" {
			return fmt.Errorf("actor_id is required")
		}
		bounds := entity.AABB{
			Min: mgl64.Vec3{msg.Min.X, msg.Min.Y, msg.Min.Z},
			Max: mgl64.Vec3{msg.Max.X, msg.Max.Y, msg.Max.Z},
		}
		avatar := a.actors.Upsert(msg.ActorID, bounds)

		v := avatar.Velocity()
		a.sendTo(c, map[string]interface{}{
			"type":     MessageTypeActorState,
			"actor_id": msg.ActorID,
			"velocity": Vec3Message{X: v[0], Y: v[1], Z: v[2]},
		})
		return nil
	}

	a.handlers[MessageTypeActorRemove] = func(c *client, raw []byte) error {
		if a.actors == nil {
			return nil
		}
		var msg ActorUpdateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		a.actors.Remove(msg.ActorID)
		return nil
	}
}

// HandleWS обрабатывает WebSocket соединения
func (a *WSAdapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Printf("[WSAdapter] Ошибка при установке WebSocket соединения: %v", err)
		return
	}

	c := newClient(conn, a.sendQueue)
	a.clientsMu.Lock()
	a.clients[c] = true
	total := len(a.clients)
	a.clientsMu.Unlock()
	a.logger.Printf("[WSAdapter] Клиент подключен (%s), всего: %d", r.RemoteAddr, total)

	go c.writeLoop(a.logger)

	defer func() {
		a.clientsMu.Lock()
		delete(a.clients, c)
		a.clientsMu.Unlock()
		c.close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.logger.Printf("[WSAdapter] Ошибка при чтении сообщения: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
			a.sendTo(c, NewErrorMessage("message type is required"))
			continue
		}

		handler, ok := a.handlers[env.Type]
		if !ok {
			a.sendTo(c, NewErrorMessage(fmt.Sprintf("unknown message type %q", env.Type)))
			continue
		}
		if err := handler(c, raw); err != nil {
			a.logger.Printf("[WSAdapter] Ошибка обработки сообщения типа %s: %v", env.Type, err)
			a.sendTo(c, NewErrorMessage(err.Error()))
		}
	}
}

// Broadcast рассылает сообщение всем клиентам, не дожидаясь отправки
func (a *WSAdapter) Broadcast(v interface{}) int {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Printf("[WSAdapter] Ошибка сериализации рассылки: %v", err)
		return 0
	}

	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()

	sent := 0
	for c := range a.clients {
		if c.enqueue(data) {
			sent++
		}
	}
	if dropped := len(a.clients) - sent; dropped > 0 {
		a.logger.Printf("[WSAdapter] Рассылка не доставлена %d клиентам (очередь полна)", dropped)
	}
	return sent
}

// OnGateStateFinalized рассылает конечное состояние ворот
func (a *WSAdapter) OnGateStateFinalized(g *entity.Gate, state entity.AnimationState) {
	msg := NewGateEventMessage(MessageTypeGateState, g)
	msg.Status.State = state.String()
	a.Broadcast(msg)
}

// OnGateDestroyed рассылает разрушение ворот
func (a *WSAdapter) OnGateDestroyed(g *entity.Gate) {
	a.Broadcast(NewGateEventMessage(MessageTypeGateDestroyed, g))
}

// OnGateRespawned рассылает восстановление ворот
func (a *WSAdapter) OnGateRespawned(g *entity.Gate) {
	a.Broadcast(NewGateEventMessage(MessageTypeGateRespawned, g))
}

// SetControl задает порт команд. Вызывается до приема соединений.
func (a *WSAdapter) SetControl(control gatecontrol.GateControlPort) {
	a.control = control
}

// ClientCount число подключенных клиентов
func (a *WSAdapter) ClientCount() int {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	return len(a.clients)
}

// Shutdown закрывает все соединения
func (a *WSAdapter) Shutdown() {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	for c := range a.clients {
		c.close()
	}
}
