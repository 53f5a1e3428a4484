package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"x-gates/backend/internal/adapter/in/ws"
)

// gatectl отправляет одну команду воротам и печатает ответ и последующие события
func main() {
	var (
		serverURL = flag.String("url", "ws://localhost:8080/ws", "URL WebSocket сервера")
		command   = flag.String("cmd", "status", "Команда: open, close, toggle, force_open, force_close, damage, destroy, respawn, status")
		gate      = flag.String("gate", "", "ID или имя ворот")
		amount    = flag.Float64("amount", 0, "Урон для команды damage")
		follow    = flag.Duration("follow", 0, "Сколько ждать событий ворот после ответа")
	)
	flag.Parse()

	if *gate == "" {
		log.Fatalf("Не указаны ворота (-gate)")
	}

	u, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Неверный URL: %v", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Ошибка подключения: %v", err)
	}
	defer conn.Close()

	msg := ws.GateCommandMessage{
		Type:      ws.MessageTypeGateCommand,
		RequestID: strconv.FormatInt(time.Now().UnixNano(), 36),
		Command:   *command,
		Amount:    *amount,
	}
	if id, err := strconv.ParseInt(*gate, 10, 64); err == nil {
		msg.GateID = id
	} else {
		msg.GateName = *gate
	}

	if err := conn.WriteJSON(msg); err != nil {
		log.Fatalf("Ошибка отправки команды: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	acked := false
	for {
		if acked {
			if *follow <= 0 {
				return
			}
			deadline = time.Now().Add(*follow)
			*follow = 0
		}
		_ = conn.SetReadDeadline(deadline)

		_, data, err := conn.ReadMessage()
		if err != nil {
			if acked {
				return
			}
			log.Fatalf("Ошибка чтения ответа: %v", err)
		}

		var env ws.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Ошибка разбора сообщения: %v", err)
			continue
		}

		switch env.Type {
		case ws.MessageTypeGateAck:
			var ack ws.GateAckMessage
			if err := json.Unmarshal(data, &ack); err != nil {
				log.Fatalf("Ошибка разбора ответа: %v", err)
			}
			if ack.RequestID != msg.RequestID {
				continue
			}
			acked = true
			printAck(ack)
			if !ack.OK {
				os.Exit(1)
			}

		case ws.MessageTypeGateState, ws.MessageTypeGateDestroyed, ws.MessageTypeGateRespawned:
			var ev ws.GateEventMessage
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("Ошибка разбора события: %v", err)
				continue
			}
			log.Printf("%s: ворота %d (%s) %s, кадр %d, здоровье %.1f",
				ev.Type, ev.Status.GateID, ev.Status.Name, ev.Status.State, ev.Status.Frame, ev.Status.Health)

		case ws.MessageTypeError:
			log.Printf("Ошибка сервера: %s", data)
		}
	}
}

func printAck(ack ws.GateAckMessage) {
	if !ack.OK {
		fmt.Printf("ОШИБКА: %s\n", ack.Error)
	}
	if ack.Status == nil {
		return
	}
	out, err := json.MarshalIndent(ack.Status, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}
