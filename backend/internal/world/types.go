package world

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
)

// DefaultChunkSize размер чанка по X и Z в блоках
const DefaultChunkSize = 16

// ChunkPos координаты чанка. Чанк занимает всю высоту мира.
type ChunkPos struct {
	X, Z int
}

// ChunkOf чанк, содержащий блок
func ChunkOf(p entity.BlockPos, size int) ChunkPos {
	return ChunkPos{X: floorDiv(p.X, size), Z: floorDiv(p.Z, size)}
}

func floorDiv(a, b int) int {
	return int(math.Floor(float64(a) / float64(b)))
}

// Avatar актор, о котором сообщил клиент: игрок или моб рядом с воротами.
// Реализует entity.Actor.
type Avatar struct {
	id string

	mu       sync.RWMutex
	bounds   entity.AABB
	velocity mgl64.Vec3
}

var _ entity.Actor = (*Avatar)(nil)

// NewAvatar создает актора с заданными габаритами
func NewAvatar(id string, bounds entity.AABB) *Avatar {
	return &Avatar{id: id, bounds: bounds}
}

func (a *Avatar) ActorID() string { return a.id }

func (a *Avatar) Bounds() entity.AABB {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bounds
}

func (a *Avatar) Velocity() mgl64.Vec3 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.velocity
}

func (a *Avatar) SetVelocity(v mgl64.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.velocity = v
}

// setBounds обновляет габариты; индекс сетки обновляет ActorGrid
func (a *Avatar) setBounds(b entity.AABB) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bounds = b
}
