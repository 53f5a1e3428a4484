package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"
)

// EventKind вид события анимации
type EventKind string

const (
	EventFrame     EventKind = "frame"      // кадр применен к миру
	EventLagSnap   EventKind = "lag_snap"   // анимация досрочно завершена из-за лагов
	EventPush      EventKind = "push"       // актор оттолкнут от ворот
	EventUnloaded  EventKind = "unloaded"   // регион не загружен, ворота пропущены
	EventFinalized EventKind = "finalized"  // ворота пришли в конечное состояние
	EventDestroyed EventKind = "destroyed"  // ворота разрушены
	EventRespawned EventKind = "respawned"  // ворота восстановлены
	EventDropped   EventKind = "drop_write" // запись в хранилище вытеснена из очереди
)

// Event запись телеметрии по воротам
type Event struct {
	Timestamp int64     `json:"timestamp"` // Время в миллисекундах
	GateID    int64     `json:"gate_id"`
	Kind      EventKind `json:"kind"`
	Frame     int       `json:"frame"`
	State     string    `json:"state,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Changes   int       `json:"changes,omitempty"` // Сколько блоков изменено
}

// TelemetryManager управляет сбором и выводом телеметрии ворот
type TelemetryManager struct {
	enabled    bool
	data       []Event
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики с момента последней сводки и за все время
	counters      map[EventKind]int
	totals        map[EventKind]uint64
	lastPrint     time.Time
	printInterval time.Duration

	logger *log.Logger
	now    func() time.Time
}

// NewTelemetryManager создает новый менеджер телеметрии
func NewTelemetryManager(logger *log.Logger) *TelemetryManager {
	if logger == nil {
		logger = log.Default()
	}
	return &TelemetryManager{
		enabled:       true,
		data:          make([]Event, 0),
		maxEntries:    200, // Храним последние 200 записей
		counters:      make(map[EventKind]int),
		totals:        make(map[EventKind]uint64),
		lastPrint:     time.Now(),
		printInterval: 30 * time.Second,
		logger:        logger,
		now:           time.Now,
	}
}

// Record записывает событие
func (tm *TelemetryManager) Record(e Event) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}
	if e.Timestamp == 0 {
		e.Timestamp = tm.now().UnixMilli()
	}

	tm.data = append(tm.data, e)

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[1:]
	}

	tm.counters[e.Kind]++
	tm.totals[e.Kind]++
}

// RecordFrame кадр применен к миру
func (tm *TelemetryManager) RecordFrame(gateID int64, frame, changes int) {
	tm.Record(Event{GateID: gateID, Kind: EventFrame, Frame: frame, Changes: changes})
}

// RecordLagSnap анимация досрочно переведена в конечный кадр
func (tm *TelemetryManager) RecordLagSnap(gateID int64, frame int) {
	tm.Record(Event{GateID: gateID, Kind: EventLagSnap, Frame: frame})
}

// RecordPush актор оттолкнут
func (tm *TelemetryManager) RecordPush(gateID int64, actorID string, frame int) {
	tm.Record(Event{GateID: gateID, Kind: EventPush, ActorID: actorID, Frame: frame})
}

// RecordUnloaded ворота пропущены из-за незагруженного региона
func (tm *TelemetryManager) RecordUnloaded(gateID int64, frame int) {
	tm.Record(Event{GateID: gateID, Kind: EventUnloaded, Frame: frame})
}

// RecordFinalized ворота пришли в конечное состояние
func (tm *TelemetryManager) RecordFinalized(gateID int64, state string, frame int) {
	tm.Record(Event{GateID: gateID, Kind: EventFinalized, State: state, Frame: frame})
}

// RecordDestroyed ворота разрушены
func (tm *TelemetryManager) RecordDestroyed(gateID int64) {
	tm.Record(Event{GateID: gateID, Kind: EventDestroyed})
}

// RecordRespawned ворота восстановлены
func (tm *TelemetryManager) RecordRespawned(gateID int64) {
	tm.Record(Event{GateID: gateID, Kind: EventRespawned})
}

// Total число событий вида kind за все время
func (tm *TelemetryManager) Total(kind EventKind) uint64 {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.totals[kind]
}

// Recent последние n событий, от старых к новым
func (tm *TelemetryManager) Recent(n int) []Event {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	if n <= 0 || n > len(tm.data) {
		n = len(tm.data)
	}
	result := make([]Event, n)
	copy(result, tm.data[len(tm.data)-n:])
	return result
}

// PrintSummary выводит сводку, не чаще printInterval
func (tm *TelemetryManager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	now := tm.now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}

	tm.logger.Println("🔬 [Telemetry] ===== ТЕЛЕМЕТРИЯ ВОРОТ =====")
	tm.logger.Printf("📊 [Telemetry] Всего записей: %d", len(tm.data))

	kinds := make([]string, 0, len(tm.counters))
	for kind := range tm.counters {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		tm.logger.Printf("📈 [Telemetry] %s: %d", kind, tm.counters[EventKind(kind)])
	}

	tm.printRecentFinalized()

	// Сброс счетчиков интервала
	tm.counters = make(map[EventKind]int)
	tm.lastPrint = now

	tm.logger.Println("🔬 [Telemetry] ===================================")
}

// printRecentFinalized выводит последнее конечное состояние каждых ворот; вызывается под mutex
func (tm *TelemetryManager) printRecentFinalized() {
	latest := make(map[int64]Event)
	for i := len(tm.data) - 1; i >= 0; i-- {
		entry := tm.data[i]
		if entry.Kind != EventFinalized {
			continue
		}
		if _, exists := latest[entry.GateID]; !exists {
			latest[entry.GateID] = entry
		}
	}

	ids := make([]int64, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		e := latest[id]
		tm.logger.Printf("🚪 [Telemetry] Ворота %d [%s]: %s",
			id, time.UnixMilli(e.Timestamp).Format("15:04:05.000"), e.State)
	}
}

// GetTelemetryJSON возвращает телеметрию в JSON формате
func (tm *TelemetryManager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	jsonData, err := json.MarshalIndent(tm.data, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonData), nil
}

// SetEnabled включает/выключает телеметрию
func (tm *TelemetryManager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Printf("🔬 [Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// SetPrintInterval задает минимальный интервал между сводками
func (tm *TelemetryManager) SetPrintInterval(interval time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.printInterval = interval
}
