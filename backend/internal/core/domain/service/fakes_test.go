package service

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
)

var quietLogger = log.New(io.Discard, "[TEST] ", log.LstdFlags)

// MockWorld запоминает блоки и умеет "выгружать" регион
type MockWorld struct {
	blocks   map[entity.BlockPos]string
	unloaded bool
	places   int
	removes  int
}

func NewMockWorld() *MockWorld {
	return &MockWorld{blocks: make(map[entity.BlockPos]string)}
}

func (w *MockWorld) PlaceBlock(pos mgl64.Vec3, blockData string) bool {
	if w.unloaded {
		return false
	}
	w.places++
	w.blocks[entity.BlockPosOf(pos)] = blockData
	return true
}

func (w *MockWorld) RemoveBlock(pos mgl64.Vec3) bool {
	if w.unloaded {
		return false
	}
	w.removes++
	delete(w.blocks, entity.BlockPosOf(pos))
	return true
}

func (w *MockWorld) IsRegionLoaded(mgl64.Vec3) bool {
	return !w.unloaded
}

func (w *MockWorld) Has(x, y, z int) bool {
	_, ok := w.blocks[entity.BlockPos{X: x, Y: y, Z: z}]
	return ok
}

// MockPersister записывает вызовы сохранения
type MockPersister struct {
	health []float64
	states [][2]bool
}

func (p *MockPersister) PersistHealth(_ int64, health float64) {
	p.health = append(p.health, health)
}

func (p *MockPersister) PersistState(_ int64, destroyed, active bool) {
	p.states = append(p.states, [2]bool{destroyed, active})
}

// MockNotifier считает события жизненного цикла
type MockNotifier struct {
	destroyed int
	respawned int
}

func (n *MockNotifier) OnGateDestroyed(*entity.Gate) { n.destroyed++ }
func (n *MockNotifier) OnGateRespawned(*entity.Gate) { n.respawned++ }

type scheduledTask struct {
	delay time.Duration
	fn    func()
}

// MockTimer копит задачи, тест запускает их вручную
type MockTimer struct {
	tasks []scheduledTask
}

func (t *MockTimer) ScheduleAfter(delay time.Duration, _ string, fn func()) {
	t.tasks = append(t.tasks, scheduledTask{delay: delay, fn: fn})
}

func (t *MockTimer) RunAll() {
	tasks := t.tasks
	t.tasks = nil
	for _, task := range tasks {
		task.fn()
	}
}

// fakeClock ручные часы
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func portcullis(t *testing.T, id int64, name string) *entity.Gate {
	t.Helper()
	g, err := entity.NewGate(entity.Config{
		ID:                  id,
		Name:                name,
		Type:                entity.GatePortcullis,
		Duration:            30,
		TickRate:            1,
		Anchor:              mgl64.Vec3{10, 64, 10},
		Motion:              entity.LinearMotion{Kind: entity.MotionVertical, Vector: mgl64.Vec3{0, 3, 0}},
		HealthMax:           100,
		RespawnEnabled:      true,
		RespawnDelaySeconds: 60,
		Blocks: []entity.BlockSnapshot{
			{RelativePosition: mgl64.Vec3{0, 0, 0}, BlockData: "iron_bars", SortOrder: 0},
			{RelativePosition: mgl64.Vec3{0, 1, 0}, BlockData: "iron_bars", SortOrder: 1},
			{RelativePosition: mgl64.Vec3{0, 2, 0}, BlockData: "iron_bars", SortOrder: 2},
		},
	})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}
