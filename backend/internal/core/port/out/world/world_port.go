package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
)

// BlockMutator определяет примитивы изменения блоков общего мира.
// false означает "повторить позже", а не ошибку.
type BlockMutator interface {
	// PlaceBlock ставит блок в мировую позицию
	PlaceBlock(pos mgl64.Vec3, blockData string) bool

	// RemoveBlock убирает блок из мировой позиции
	RemoveBlock(pos mgl64.Vec3) bool

	// IsRegionLoaded проверяет, загружен ли регион (чанк) с позицией
	IsRegionLoaded(pos mgl64.Vec3) bool
}

// ActorQuery перечисляет акторов рядом с областью
type ActorQuery interface {
	// NearbyActors возвращает акторов, чьи границы пересекают bounds
	NearbyActors(bounds entity.AABB) []entity.Actor
}
