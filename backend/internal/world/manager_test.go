package world

import (
	"io"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
)

var testLogger = log.New(io.Discard, "", 0)

func TestChunkOf_NegativeCoordinates(t *testing.T) {
	tests := []struct {
		pos  entity.BlockPos
		want ChunkPos
	}{
		{entity.BlockPos{X: 0, Y: 64, Z: 0}, ChunkPos{0, 0}},
		{entity.BlockPos{X: 15, Y: 0, Z: 15}, ChunkPos{0, 0}},
		{entity.BlockPos{X: 16, Y: 0, Z: -1}, ChunkPos{1, -1}},
		{entity.BlockPos{X: -16, Y: 0, Z: -17}, ChunkPos{-1, -2}},
	}
	for _, tt := range tests {
		if got := ChunkOf(tt.pos, 16); got != tt.want {
			t.Errorf("ChunkOf(%v) = %v, ожидалось %v", tt.pos, got, tt.want)
		}
	}
}

func TestBlockWorld_RejectsUnloadedChunks(t *testing.T) {
	w := NewBlockWorld(16, testLogger)
	pos := mgl64.Vec3{3.5, 64, 3.5}

	if w.IsRegionLoaded(pos) {
		t.Fatal("новый мир не должен иметь загруженных чанков")
	}
	if w.PlaceBlock(pos, "stone") || w.RemoveBlock(pos) {
		t.Fatal("изменения в незагруженном чанке должны отклоняться")
	}

	w.LoadChunk(w.ChunkAt(pos))
	if !w.PlaceBlock(pos, "stone") {
		t.Fatal("PlaceBlock в загруженном чанке")
	}
	if data, ok := w.BlockAt(mgl64.Vec3{3, 64, 3}); !ok || data != "stone" {
		t.Fatalf("BlockAt = %q, %v", data, ok)
	}
}

func TestBlockWorld_UnloadKeepsBlocks(t *testing.T) {
	w := NewBlockWorld(16, testLogger)
	pos := mgl64.Vec3{-5, 70, 20}
	w.LoadChunk(w.ChunkAt(pos))
	w.PlaceBlock(pos, "oak_planks")

	w.UnloadChunk(w.ChunkAt(pos))
	if _, ok := w.BlockAt(pos); ok {
		t.Fatal("блок выгруженного чанка недоступен")
	}
	if w.BlockCount() != 1 {
		t.Fatalf("блоки выгруженного чанка сохраняются: %d", w.BlockCount())
	}

	w.LoadChunk(w.ChunkAt(pos))
	if !w.RemoveBlock(pos) || !w.RemoveBlock(pos) {
		t.Fatal("удаление, в том числе повторное, должно быть успешным")
	}
	if w.BlockCount() != 0 {
		t.Fatalf("блоков после удаления: %d", w.BlockCount())
	}
}

func TestBlockWorld_PreloadAround(t *testing.T) {
	w := NewBlockWorld(16, testLogger)

	if added := w.PreloadAround(mgl64.Vec3{0, 64, 0}, 1); added != 9 {
		t.Fatalf("загружено %d чанков, ожидалось 9", added)
	}
	if added := w.PreloadAround(mgl64.Vec3{16, 64, 0}, 1); added != 3 {
		t.Fatalf("повторная загрузка соседей: %d, ожидалось 3", added)
	}
	if !w.IsRegionLoaded(mgl64.Vec3{-16, 0, 31}) {
		t.Fatal("чанк (-1, 1) входит в радиус")
	}
	if w.IsRegionLoaded(mgl64.Vec3{-17, 0, 0}) {
		t.Fatal("чанк (-2, 0) вне радиуса")
	}
	if w.LoadedChunks() != 12 {
		t.Fatalf("LoadedChunks = %d", w.LoadedChunks())
	}
}
