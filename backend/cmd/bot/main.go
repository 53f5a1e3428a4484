package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"x-gates/backend/internal/adapter/in/ws"
)

// Bot актор, который ходит сквозь проем ворот и периодически их переключает
type Bot struct {
	ID         string
	ServerURL  string
	Conn       *websocket.Conn
	Running    bool
	Stats      BotStats
	Gate       string
	Center     ws.Vec3Message
	Span       float64
	Duration   time.Duration
	UpdateRate time.Duration
	ToggleRate time.Duration
	mu         sync.RWMutex
	writeMu    sync.Mutex // Запись в WebSocket из нескольких горутин
	requestSeq int
}

// BotStats статистика работы бота
type BotStats struct {
	UpdatesSent  int
	CommandsSent int
	AcksReceived int
	Pushes       int
	GateEvents   int
	Errors       int
	StartTime    time.Time
	mu           sync.RWMutex
}

// NewBot создает нового бота
func NewBot(id, serverURL, gate string, center ws.Vec3Message, span float64, duration, updateRate, toggleRate time.Duration) *Bot {
	return &Bot{
		ID:         id,
		ServerURL:  serverURL,
		Gate:       gate,
		Center:     center,
		Span:       span,
		Duration:   duration,
		UpdateRate: updateRate,
		ToggleRate: toggleRate,
		Stats: BotStats{
			StartTime: time.Now(),
		},
	}
}

// Connect подключается к серверу
func (b *Bot) Connect() error {
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("неверный URL: %v", err)
	}

	log.Printf("[Bot %s] Подключение к %s", b.ID, u.String())

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %v", err)
	}

	b.mu.Lock()
	b.Conn = conn
	b.Running = true
	b.mu.Unlock()

	log.Printf("[Bot %s] Успешно подключен", b.ID)
	return nil
}

// Disconnect удаляет актора из мира и закрывает соединение
func (b *Bot) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Conn == nil || !b.Running {
		return
	}
	b.Running = false

	b.writeMu.Lock()
	_ = b.Conn.WriteJSON(map[string]interface{}{
		"type":     ws.MessageTypeActorRemove,
		"actor_id": b.ID,
	})
	b.writeMu.Unlock()

	b.Conn.Close()
	log.Printf("[Bot %s] Отключен", b.ID)
}

func (b *Bot) isRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.Running
}

// position точка маршрута: челнок вдоль оси Z через центр ворот
func (b *Bot) position() ws.Vec3Message {
	elapsed := time.Since(b.Stats.StartTime).Seconds()
	offset := math.Sin(elapsed*0.5) * b.Span
	return ws.Vec3Message{X: b.Center.X, Y: b.Center.Y, Z: b.Center.Z + offset}
}

func (b *Bot) write(v interface{}) error {
	b.mu.RLock()
	conn := b.Conn
	b.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("соединение не установлено")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// sendActorUpdate сообщает серверу габариты актора 0.6x1.8x0.6
func (b *Bot) sendActorUpdate() error {
	p := b.position()
	msg := ws.ActorUpdateMessage{
		Type:    ws.MessageTypeActorUpdate,
		ActorID: b.ID,
		Min:     ws.Vec3Message{X: p.X - 0.3, Y: p.Y, Z: p.Z - 0.3},
		Max:     ws.Vec3Message{X: p.X + 0.3, Y: p.Y + 1.8, Z: p.Z + 0.3},
	}
	if err := b.write(msg); err != nil {
		return fmt.Errorf("ошибка отправки позиции: %v", err)
	}

	b.Stats.mu.Lock()
	b.Stats.UpdatesSent++
	b.Stats.mu.Unlock()
	return nil
}

// sendToggle переключает ворота
func (b *Bot) sendToggle() error {
	b.requestSeq++
	msg := ws.GateCommandMessage{
		Type:      ws.MessageTypeGateCommand,
		RequestID: fmt.Sprintf("%s-%d", b.ID, b.requestSeq),
		Command:   "toggle",
		GateName:  b.Gate,
	}
	if err := b.write(msg); err != nil {
		return fmt.Errorf("ошибка отправки команды: %v", err)
	}

	b.Stats.mu.Lock()
	b.Stats.CommandsSent++
	b.Stats.mu.Unlock()
	return nil
}

// handleMessage обрабатывает входящие сообщения
func (b *Bot) handleMessage(messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[Bot %s] Ошибка разбора сообщения: %v", b.ID, err)
		return
	}

	msgType, ok := msg["type"].(string)
	if !ok {
		log.Printf("[Bot %s] Сообщение без типа: %v", b.ID, msg)
		return
	}

	switch msgType {
	case ws.MessageTypeGateAck:
		b.Stats.mu.Lock()
		b.Stats.AcksReceived++
		b.Stats.mu.Unlock()
		if okValue, _ := msg["ok"].(bool); !okValue {
			log.Printf("[Bot %s] Команда отклонена: %v", b.ID, msg["error"])
		}

	case ws.MessageTypeActorState:
		velocity, _ := msg["velocity"].(map[string]interface{})
		vx, _ := velocity["x"].(float64)
		vy, _ := velocity["y"].(float64)
		vz, _ := velocity["z"].(float64)
		if vx != 0 || vy != 0 || vz != 0 {
			b.Stats.mu.Lock()
			b.Stats.Pushes++
			b.Stats.mu.Unlock()
			log.Printf("[Bot %s] Оттолкнут воротами: (%.2f, %.2f, %.2f)", b.ID, vx, vy, vz)
		}

	case ws.MessageTypeGateState, ws.MessageTypeGateDestroyed, ws.MessageTypeGateRespawned:
		b.Stats.mu.Lock()
		b.Stats.GateEvents++
		b.Stats.mu.Unlock()
		if status, ok := msg["status"].(map[string]interface{}); ok {
			log.Printf("[Bot %s] %s: %v -> %v", b.ID, msgType, status["name"], status["state"])
		}

	case ws.MessageTypePong:
		// Задержка не измеряется

	case ws.MessageTypeError:
		log.Printf("[Bot %s] Ошибка сервера: %v", b.ID, msg["message"])

	default:
		log.Printf("[Bot %s] Неизвестный тип сообщения: %s", b.ID, msgType)
	}
}

// Run запускает бота
func (b *Bot) Run() error {
	if err := b.Connect(); err != nil {
		return err
	}
	defer b.Disconnect()

	go func() {
		for b.isRunning() {
			messageType, data, err := b.Conn.ReadMessage()
			if err != nil {
				if b.isRunning() {
					log.Printf("[Bot %s] Ошибка чтения сообщения: %v", b.ID, err)
					b.Stats.mu.Lock()
					b.Stats.Errors++
					b.Stats.mu.Unlock()
				}
				return
			}
			b.handleMessage(messageType, data)
		}
	}()

	updateTicker := time.NewTicker(b.UpdateRate)
	defer updateTicker.Stop()

	var toggleC <-chan time.Time
	if b.Gate != "" && b.ToggleRate > 0 {
		toggleTicker := time.NewTicker(b.ToggleRate)
		defer toggleTicker.Stop()
		toggleC = toggleTicker.C
	}

	endTime := time.Now().Add(b.Duration)

	for b.isRunning() && time.Now().Before(endTime) {
		var err error
		select {
		case <-updateTicker.C:
			err = b.sendActorUpdate()
		case <-toggleC:
			err = b.sendToggle()
		}
		if err != nil {
			log.Printf("[Bot %s] %v", b.ID, err)
			b.Stats.mu.Lock()
			b.Stats.Errors++
			b.Stats.mu.Unlock()
		}
	}

	log.Printf("[Bot %s] Завершение работы", b.ID)
	return nil
}

// PrintStats выводит статистику бота
func (b *Bot) PrintStats() {
	b.Stats.mu.RLock()
	defer b.Stats.mu.RUnlock()

	duration := time.Since(b.Stats.StartTime)
	log.Printf("[Bot %s] Статистика:", b.ID)
	log.Printf("  Время работы: %v", duration)
	log.Printf("  Позиций отправлено: %d", b.Stats.UpdatesSent)
	log.Printf("  Команд отправлено: %d, ответов: %d", b.Stats.CommandsSent, b.Stats.AcksReceived)
	log.Printf("  Толчков: %d", b.Stats.Pushes)
	log.Printf("  Событий ворот: %d", b.Stats.GateEvents)
	log.Printf("  Ошибок: %d", b.Stats.Errors)
}

func main() {
	var (
		serverURL  = flag.String("url", "ws://localhost:8080/ws", "URL WebSocket сервера")
		botID      = flag.String("id", "bot1", "ID актора")
		gate       = flag.String("gate", "", "Имя ворот для переключения (пусто - не переключать)")
		x          = flag.Float64("x", 100.5, "Центр маршрута X")
		y          = flag.Float64("y", 64, "Центр маршрута Y (ноги актора)")
		z          = flag.Float64("z", 100.5, "Центр маршрута Z")
		span       = flag.Float64("span", 3, "Амплитуда челнока по Z")
		duration   = flag.Duration("duration", 30*time.Second, "Длительность работы бота")
		updateRate = flag.Duration("rate", 100*time.Millisecond, "Частота отправки позиции")
		toggleRate = flag.Duration("toggle", 5*time.Second, "Частота переключения ворот")
	)
	flag.Parse()

	bot := NewBot(*botID, *serverURL, *gate, ws.Vec3Message{X: *x, Y: *y, Z: *z}, *span, *duration, *updateRate, *toggleRate)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		log.Printf("[Bot %s] Получен сигнал прерывания, завершение работы...", bot.ID)
		bot.Disconnect()
		bot.PrintStats()
		os.Exit(0)
	}()

	if err := bot.Run(); err != nil {
		log.Printf("[Bot %s] Ошибка: %v", bot.ID, err)
		os.Exit(1)
	}

	bot.PrintStats()
}
