package world

import (
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
	worldport "x-gates/backend/internal/core/port/out/world"
)

// BlockWorld мир блоков в памяти, разбитый на чанки.
// Изменения в незагруженных чанках отклоняются, блоки выгруженных чанков сохраняются.
type BlockWorld struct {
	chunkSize int

	blocks map[ChunkPos]map[entity.BlockPos]string
	loaded map[ChunkPos]bool
	mu     sync.RWMutex

	logger *log.Logger
}

var _ worldport.BlockMutator = (*BlockWorld)(nil)

// NewBlockWorld создает пустой мир. chunkSize <= 0 означает DefaultChunkSize.
func NewBlockWorld(chunkSize int, logger *log.Logger) *BlockWorld {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BlockWorld{
		chunkSize: chunkSize,
		blocks:    make(map[ChunkPos]map[entity.BlockPos]string),
		loaded:    make(map[ChunkPos]bool),
		logger:    logger,
	}
}

// ChunkAt чанк, содержащий мировую позицию
func (w *BlockWorld) ChunkAt(pos mgl64.Vec3) ChunkPos {
	return ChunkOf(entity.BlockPosOf(pos), w.chunkSize)
}

// LoadChunk помечает чанк загруженным
func (w *BlockWorld) LoadChunk(cp ChunkPos) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaded[cp] = true
}

// UnloadChunk выгружает чанк. Блоки остаются и станут видны при повторной загрузке.
func (w *BlockWorld) UnloadChunk(cp ChunkPos) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.loaded, cp)
}

// PreloadAround загружает квадрат чанков радиуса radius вокруг позиции.
// Возвращает число впервые загруженных чанков.
func (w *BlockWorld) PreloadAround(center mgl64.Vec3, radius int) int {
	if radius < 0 {
		radius = 0
	}
	c := w.ChunkAt(center)

	w.mu.Lock()
	defer w.mu.Unlock()

	added := 0
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			cp := ChunkPos{X: c.X + dx, Z: c.Z + dz}
			if !w.loaded[cp] {
				w.loaded[cp] = true
				added++
			}
		}
	}
	return added
}

// IsRegionLoaded true, если чанк позиции загружен
func (w *BlockWorld) IsRegionLoaded(pos mgl64.Vec3) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loaded[w.ChunkAt(pos)]
}

// PlaceBlock ставит блок в позицию, заменяя существующий
func (w *BlockWorld) PlaceBlock(pos mgl64.Vec3, blockData string) bool {
	bp := entity.BlockPosOf(pos)
	cp := ChunkOf(bp, w.chunkSize)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded[cp] {
		return false
	}
	chunk, ok := w.blocks[cp]
	if !ok {
		chunk = make(map[entity.BlockPos]string)
		w.blocks[cp] = chunk
	}
	chunk[bp] = blockData
	return true
}

// RemoveBlock делает позицию воздухом. Удаление пустой позиции успешно.
func (w *BlockWorld) RemoveBlock(pos mgl64.Vec3) bool {
	bp := entity.BlockPosOf(pos)
	cp := ChunkOf(bp, w.chunkSize)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded[cp] {
		return false
	}
	if chunk, ok := w.blocks[cp]; ok {
		delete(chunk, bp)
		if len(chunk) == 0 {
			delete(w.blocks, cp)
		}
	}
	return true
}

// BlockAt данные блока в позиции. false для воздуха и незагруженных чанков.
func (w *BlockWorld) BlockAt(pos mgl64.Vec3) (string, bool) {
	bp := entity.BlockPosOf(pos)
	cp := ChunkOf(bp, w.chunkSize)

	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.loaded[cp] {
		return "", false
	}
	data, ok := w.blocks[cp][bp]
	return data, ok
}

// BlockCount число блоков во всех чанках, включая выгруженные
func (w *BlockWorld) BlockCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	total := 0
	for _, chunk := range w.blocks {
		total += len(chunk)
	}
	return total
}

// LoadedChunks число загруженных чанков
func (w *BlockWorld) LoadedChunks() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.loaded)
}

// GetStats статистика мира для метрик
func (w *BlockWorld) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"chunk_size":    w.chunkSize,
		"loaded_chunks": w.LoadedChunks(),
		"blocks":        w.BlockCount(),
	}
}
