package world

import (
	"math"
	"sort"
	"sync"

	"x-gates/backend/internal/core/domain/entity"
	worldport "x-gates/backend/internal/core/port/out/world"
)

type cellKey struct {
	X, Y, Z int
}

// ActorGrid пространственная сетка акторов для поиска соседей ворот
type ActorGrid struct {
	cellSize float64

	cells  map[cellKey]map[string]struct{}
	actors map[string]*Avatar
	keys   map[string][]cellKey // ячейки, которые занимает актор
	mu     sync.RWMutex
}

var _ worldport.ActorQuery = (*ActorGrid)(nil)

// NewActorGrid создает сетку с ячейкой cellSize блоков
func NewActorGrid(cellSize float64) *ActorGrid {
	if cellSize <= 0 {
		cellSize = 4
	}
	return &ActorGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[string]struct{}),
		actors:   make(map[string]*Avatar),
		keys:     make(map[string][]cellKey),
	}
}

func (g *ActorGrid) cellRange(b entity.AABB) (lo, hi cellKey) {
	lo = cellKey{
		X: int(math.Floor(b.Min[0] / g.cellSize)),
		Y: int(math.Floor(b.Min[1] / g.cellSize)),
		Z: int(math.Floor(b.Min[2] / g.cellSize)),
	}
	hi = cellKey{
		X: int(math.Floor(b.Max[0] / g.cellSize)),
		Y: int(math.Floor(b.Max[1] / g.cellSize)),
		Z: int(math.Floor(b.Max[2] / g.cellSize)),
	}
	return lo, hi
}

// Upsert добавляет актора или обновляет его габариты. Возвращает актора из сетки.
func (g *ActorGrid) Upsert(id string, bounds entity.AABB) *Avatar {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.actors[id]
	if !ok {
		a = NewAvatar(id, bounds)
		g.actors[id] = a
	} else {
		a.setBounds(bounds)
	}

	g.unindex(id)
	lo, hi := g.cellRange(bounds)
	var keys []cellKey
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				k := cellKey{X: x, Y: y, Z: z}
				cell, exists := g.cells[k]
				if !exists {
					cell = make(map[string]struct{})
					g.cells[k] = cell
				}
				cell[id] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	g.keys[id] = keys
	return a
}

// Remove удаляет актора из сетки
func (g *ActorGrid) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.unindex(id)
	delete(g.actors, id)
}

// unindex убирает актора из ячеек; вызывается под mu
func (g *ActorGrid) unindex(id string) {
	for _, k := range g.keys[id] {
		cell := g.cells[k]
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
	delete(g.keys, id)
}

// Get актор по идентификатору
func (g *ActorGrid) Get(id string) (*Avatar, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.actors[id]
	return a, ok
}

// NearbyActors акторы, пересекающие область, в порядке идентификаторов
func (g *ActorGrid) NearbyActors(bounds entity.AABB) []entity.Actor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	lo, hi := g.cellRange(bounds)
	seen := make(map[string]struct{})
	var ids []string
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for id := range g.cells[cellKey{X: x, Y: y, Z: z}] {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
					if g.actors[id].Bounds().Intersects(bounds) {
						ids = append(ids, id)
					}
				}
			}
		}
	}
	sort.Strings(ids)

	result := make([]entity.Actor, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.actors[id])
	}
	return result
}

// Len число акторов
func (g *ActorGrid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.actors)
}
