package service

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
)

func TestBlockPlacer_OpeningClearsProgressively(t *testing.T) {
	w := NewMockWorld()
	p := NewBlockPlacer(w, quietLogger)
	g := portcullis(t, 1, "gate")

	if changes, ok := p.Apply(g, 0, true); !ok || changes != 3 {
		t.Fatalf("начальная установка: %d %t", changes, ok)
	}
	if !w.Has(10, 64, 10) || !w.Has(10, 65, 10) || !w.Has(10, 66, 10) {
		t.Fatal("закрытые ворота должны занимать весь контур")
	}

	// Треть пути: нижний ряд освобождается, материал "едет" вверх
	changes, ok := p.Apply(g, 10, false)
	if !ok || changes != 1 {
		t.Fatalf("кадр 10: %d %t", changes, ok)
	}
	if w.Has(10, 64, 10) || !w.Has(10, 65, 10) || !w.Has(10, 66, 10) {
		t.Fatalf("кадр 10: неверные блоки %v", w.blocks)
	}

	if _, ok := p.Apply(g, 30, false); !ok {
		t.Fatal("кадр 30 не применен")
	}
	if len(w.blocks) != 0 || len(p.Placed(1)) != 0 {
		t.Fatalf("открытый проем должен быть пуст: %v", w.blocks)
	}

	// Закрытие заполняет проем обратно
	if _, ok := p.Apply(g, 0, false); !ok || len(w.blocks) != 3 {
		t.Fatalf("закрытие: %v", w.blocks)
	}
}

func TestBlockPlacer_PlacedFollowsSortOrder(t *testing.T) {
	p := NewBlockPlacer(NewMockWorld(), quietLogger)
	g := portcullis(t, 1, "gate")
	p.Apply(g, 0, false)

	placed := p.Placed(1)
	if len(placed) != 3 {
		t.Fatalf("Placed: %v", placed)
	}
	for i, target := range placed {
		if target.Pos.Y != 64+i {
			t.Fatalf("блок %d не в порядке SortOrder: %v", i, target.Pos)
		}
	}
}

func TestBlockPlacer_UnloadedRegionSkipsAndRetries(t *testing.T) {
	w := NewMockWorld()
	p := NewBlockPlacer(w, quietLogger)
	g := portcullis(t, 1, "gate")

	w.unloaded = true
	if _, ok := p.Apply(g, 0, false); ok {
		t.Fatal("выгруженный регион должен пропускаться")
	}
	if w.places != 0 || w.removes != 0 {
		t.Fatal("при пропуске мир не должен меняться")
	}

	if p.Reconcile(g) || p.Pending() != 1 {
		t.Fatal("Reconcile должен отложить ворота")
	}
	w.unloaded = false
	if done := p.RetryPending(); done != 1 || p.Pending() != 0 {
		t.Fatalf("RetryPending: %d, осталось %d", done, p.Pending())
	}
	if len(w.blocks) != 3 {
		t.Fatalf("после повтора ворота должны стоять: %v", w.blocks)
	}
}

func TestBlockPlacer_ForceRepairsDrift(t *testing.T) {
	w := NewMockWorld()
	p := NewBlockPlacer(w, quietLogger)
	g := portcullis(t, 1, "gate")
	p.Apply(g, 0, false)

	// Кто-то сломал блок мимо движка
	delete(w.blocks, entity.BlockPos{X: 10, Y: 65, Z: 10})
	if _, ok := p.Apply(g, 0, false); !ok || w.Has(10, 65, 10) {
		t.Fatal("без force кэш считает мир согласованным")
	}
	if !p.Reconcile(g) || !w.Has(10, 65, 10) {
		t.Fatal("Reconcile должен восстановить блок")
	}
}

func TestBlockPlacer_DestroyedGateHasNoBlocks(t *testing.T) {
	w := NewMockWorld()
	p := NewBlockPlacer(w, quietLogger)
	g := portcullis(t, 1, "gate")
	p.Reconcile(g)

	g.MarkDestroyed(g.RespawnAt())
	p.Reconcile(g)
	if len(w.blocks) != 0 {
		t.Fatalf("разрушенные ворота должны исчезнуть: %v", w.blocks)
	}
}

func TestBlockPlacer_RotationKeepsAllBlocksSolid(t *testing.T) {
	g, err := entity.NewGate(entity.Config{
		ID: 5, Name: "drawbridge", Duration: 90, TickRate: 1,
		Anchor: mgl64.Vec3{0, 64, 0},
		Motion: entity.RotationalMotion{Hinge: mgl64.Vec3{1, 0, 0}, MaxAngle: 90},
		Blocks: []entity.BlockSnapshot{
			{RelativePosition: mgl64.Vec3{0, 1, 0}, BlockData: "planks", SortOrder: 0},
			{RelativePosition: mgl64.Vec3{0, 2, 0}, BlockData: "planks", SortOrder: 1},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	p := NewBlockPlacer(NewMockWorld(), quietLogger)

	open := p.Desired(g, 90)
	if len(open) != 2 {
		t.Fatalf("все блоки моста должны быть твердыми: %v", open)
	}
	// Поворот (0,1,0) на 90 градусов вокруг X дает (0,0,1)
	if open[0].Pos != (entity.BlockPos{X: 0, Y: 64, Z: 1}) {
		t.Fatalf("неверная позиция открытого моста: %v", open[0].Pos)
	}
}
