package game

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
)

var testLogger = log.New(io.Discard, "[TEST] ", log.LstdFlags)

// MockWorld мир блоков для тестов систем
type MockWorld struct {
	blocks   map[entity.BlockPos]string
	unloaded bool
}

func NewMockWorld() *MockWorld {
	return &MockWorld{blocks: make(map[entity.BlockPos]string)}
}

func (w *MockWorld) PlaceBlock(pos mgl64.Vec3, blockData string) bool {
	if w.unloaded {
		return false
	}
	w.blocks[entity.BlockPosOf(pos)] = blockData
	return true
}

func (w *MockWorld) RemoveBlock(pos mgl64.Vec3) bool {
	if w.unloaded {
		return false
	}
	delete(w.blocks, entity.BlockPosOf(pos))
	return true
}

func (w *MockWorld) IsRegionLoaded(mgl64.Vec3) bool { return !w.unloaded }

func (w *MockWorld) Has(x, y, z int) bool {
	_, ok := w.blocks[entity.BlockPos{X: x, Y: y, Z: z}]
	return ok
}

// MockActor актор с изменяемой скоростью
type MockActor struct {
	id       string
	bounds   entity.AABB
	velocity mgl64.Vec3
}

func (a *MockActor) ActorID() string          { return a.id }
func (a *MockActor) Bounds() entity.AABB      { return a.bounds }
func (a *MockActor) Velocity() mgl64.Vec3     { return a.velocity }
func (a *MockActor) SetVelocity(v mgl64.Vec3) { a.velocity = v }

// MockActors возвращает акторов, пересекающих запрошенную область
type MockActors struct {
	actors []entity.Actor
}

func (m *MockActors) NearbyActors(bounds entity.AABB) []entity.Actor {
	var result []entity.Actor
	for _, a := range m.actors {
		if a.Bounds().Intersects(bounds) {
			result = append(result, a)
		}
	}
	return result
}

type finalizedEvent struct {
	gateID int64
	state  entity.AnimationState
}

// MockZoneSync записывает финальные состояния
type MockZoneSync struct {
	events []finalizedEvent
}

func (z *MockZoneSync) OnGateStateFinalized(g *entity.Gate, state entity.AnimationState) {
	z.events = append(z.events, finalizedEvent{gateID: g.ID(), state: state})
}

// MockLoad управляемая оценка нагрузки
type MockLoad struct {
	degraded bool
	calls    int
}

func (l *MockLoad) Degraded(float64) bool {
	l.calls++
	return l.degraded
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newPortcullis(t *testing.T, id int64, name string, tickRate int) *entity.Gate {
	t.Helper()
	g, err := entity.NewGate(entity.Config{
		ID:                  id,
		Name:                name,
		Type:                entity.GatePortcullis,
		Face:                entity.FaceNorth,
		Duration:            30,
		TickRate:            tickRate,
		Anchor:              mgl64.Vec3{10, 64, 10},
		Motion:              entity.LinearMotion{Kind: entity.MotionVertical, Vector: mgl64.Vec3{0, 3, 0}},
		HealthMax:           100,
		RespawnEnabled:      true,
		RespawnDelaySeconds: 30,
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
