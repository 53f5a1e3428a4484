package service

import (
	"log"
	"sort"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/kinematics"
	"x-gates/backend/internal/core/port/out/world"
)

// Target блок, который должен стоять в мире
type Target struct {
	Pos       entity.BlockPos
	BlockData string
}

type placedSet struct {
	order []entity.BlockPos
	data  map[entity.BlockPos]string
}

func newPlacedSet() *placedSet {
	return &placedSet{data: make(map[entity.BlockPos]string)}
}

// BlockPlacer приводит блоки ворот в мире к нужному кадру.
//
// Правило видимости блока: для линейного движения блок твердый, только пока его
// смещенная позиция лежит внутри закрытого контура ворот (открытие постепенно
// освобождает проем, закрытие постепенно его заполняет). Для вращения твердыми
// считаются все повернутые позиции.
//
// Помнит, какие блоки поставлены, и меняет только разницу. Работает в потоке тиков.
type BlockPlacer struct {
	world     world.BlockMutator
	placed    map[int64]*placedSet
	footprint map[int64]map[entity.BlockPos]struct{}
	pending   map[int64]*entity.Gate
	logger    *log.Logger
}

// NewBlockPlacer создает BlockPlacer поверх мутатора мира
func NewBlockPlacer(w world.BlockMutator, logger *log.Logger) *BlockPlacer {
	if logger == nil {
		logger = log.Default()
	}
	return &BlockPlacer{
		world:     w,
		placed:    make(map[int64]*placedSet),
		footprint: make(map[int64]map[entity.BlockPos]struct{}),
		pending:   make(map[int64]*entity.Gate),
		logger:    logger,
	}
}

func (p *BlockPlacer) closedFootprint(g *entity.Gate) map[entity.BlockPos]struct{} {
	if fp, ok := p.footprint[g.ID()]; ok {
		return fp
	}
	fp := make(map[entity.BlockPos]struct{}, len(g.Blocks()))
	anchor := g.Config().Anchor
	for _, b := range g.Blocks() {
		fp[entity.BlockPosOf(anchor.Add(b.RelativePosition))] = struct{}{}
	}
	p.footprint[g.ID()] = fp
	return fp
}

// Desired возвращает блоки, которые должны стоять на кадре, в порядке SortOrder.
// У разрушенных ворот блоков нет.
func (p *BlockPlacer) Desired(g *entity.Gate, frame int) []Target {
	if g.Destroyed() {
		return nil
	}
	positions, err := kinematics.Positions(g, frame)
	if err != nil {
		return nil
	}

	_, rotating := g.Config().Motion.(entity.RotationalMotion)
	fp := p.closedFootprint(g)
	blocks := g.Blocks()

	seen := make(map[entity.BlockPos]struct{}, len(positions))
	targets := make([]Target, 0, len(positions))
	for i, worldPos := range positions {
		pos := entity.BlockPosOf(worldPos)
		if _, dup := seen[pos]; dup {
			continue
		}
		if !rotating {
			if _, inside := fp[pos]; !inside {
				continue
			}
		}
		seen[pos] = struct{}{}
		targets = append(targets, Target{Pos: pos, BlockData: blocks[i].BlockData})
	}
	return targets
}

// Apply ставит и убирает блоки под кадр frame. Сначала удаления, затем установка,
// обе в порядке SortOrder. При force ставятся все нужные блоки и очищается закрытый
// контур, даже если кэш считает мир согласованным.
//
// Если хоть один затронутый регион не загружен, ничего не меняется и возвращается false.
func (p *BlockPlacer) Apply(g *entity.Gate, frame int, force bool) (int, bool) {
	desired := p.Desired(g, frame)
	want := make(map[entity.BlockPos]string, len(desired))
	for _, t := range desired {
		want[t.Pos] = t.BlockData
	}

	set, ok := p.placed[g.ID()]
	if !ok {
		set = newPlacedSet()
		p.placed[g.ID()] = set
	}

	var removals []entity.BlockPos
	queued := make(map[entity.BlockPos]struct{})
	for _, pos := range set.order {
		if _, keep := want[pos]; !keep {
			removals = append(removals, pos)
			queued[pos] = struct{}{}
		}
	}
	if force {
		for _, pos := range p.sortedFootprint(g) {
			_, keep := want[pos]
			_, already := queued[pos]
			if !keep && !already {
				removals = append(removals, pos)
				queued[pos] = struct{}{}
			}
		}
	}

	var placements []Target
	for _, t := range desired {
		if current, ok := set.data[t.Pos]; force || !ok || current != t.BlockData {
			placements = append(placements, t)
		}
	}

	for _, pos := range removals {
		if !p.world.IsRegionLoaded(pos.Vec3()) {
			return 0, false
		}
	}
	for _, t := range placements {
		if !p.world.IsRegionLoaded(t.Pos.Vec3()) {
			return 0, false
		}
	}

	changes := 0
	for _, pos := range removals {
		if p.world.RemoveBlock(pos.Vec3()) {
			delete(set.data, pos)
			changes++
		}
	}
	for _, t := range placements {
		if p.world.PlaceBlock(t.Pos.Vec3(), t.BlockData) {
			set.data[t.Pos] = t.BlockData
			changes++
		}
	}

	// Порядок: сначала нужные блоки по SortOrder, затем те, что не удалось убрать
	order := make([]entity.BlockPos, 0, len(set.data))
	for _, t := range desired {
		if _, ok := set.data[t.Pos]; ok {
			order = append(order, t.Pos)
		}
	}
	for _, pos := range set.order {
		if _, keep := want[pos]; keep {
			continue
		}
		if _, ok := set.data[pos]; ok {
			order = append(order, pos)
		}
	}
	set.order = order

	return changes, true
}

func (p *BlockPlacer) sortedFootprint(g *entity.Gate) []entity.BlockPos {
	anchor := g.Config().Anchor
	result := make([]entity.BlockPos, 0, len(g.Blocks()))
	for _, b := range g.Blocks() {
		result = append(result, entity.BlockPosOf(anchor.Add(b.RelativePosition)))
	}
	return result
}

// Reconcile принудительно приводит мир к текущему состоянию ворот.
// Если регион не загружен, ворота ставятся в очередь повторов.
func (p *BlockPlacer) Reconcile(g *entity.Gate) bool {
	if _, ok := p.Apply(g, g.Frame(), true); !ok {
		if _, queued := p.pending[g.ID()]; !queued {
			p.logger.Printf("[BlockPlacer] Регион ворот %d не загружен, повтор на следующем тике", g.ID())
		}
		p.pending[g.ID()] = g
		return false
	}
	delete(p.pending, g.ID())
	return true
}

// RetryPending повторяет отложенные Reconcile. Анимирующиеся ворота пропускаются:
// их блоки ведет планировщик анимации.
func (p *BlockPlacer) RetryPending() int {
	if len(p.pending) == 0 {
		return 0
	}
	ids := make([]int64, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	done := 0
	for _, id := range ids {
		g := p.pending[id]
		if g.IsAnimating() {
			delete(p.pending, id)
			continue
		}
		if p.Reconcile(g) {
			done++
		}
	}
	return done
}

// Pending число ворот, ожидающих повторной синхронизации
func (p *BlockPlacer) Pending() int {
	return len(p.pending)
}

// Placed возвращает поставленные блоки ворот в порядке установки
func (p *BlockPlacer) Placed(gateID int64) []Target {
	set, ok := p.placed[gateID]
	if !ok {
		return nil
	}
	result := make([]Target, 0, len(set.order))
	for _, pos := range set.order {
		result = append(result, Target{Pos: pos, BlockData: set.data[pos]})
	}
	return result
}
