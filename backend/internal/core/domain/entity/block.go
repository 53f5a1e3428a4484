package entity

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// blockSnapEpsilon компенсирует погрешность float перед округлением вниз,
// чтобы 66.99999999999 попадало в блок 67
const blockSnapEpsilon = 1e-9

// BlockSnapshot неизменяемое описание одного блока ворот
type BlockSnapshot struct {
	// RelativePosition - смещение от якоря ворот (уже в мировой ориентации)
	RelativePosition mgl64.Vec3
	// BlockData - ссылка на материал/данные блока
	BlockData string
	// SortOrder - порядок установки/удаления, задается загрузчиком
	SortOrder int
}

// SortBlocks стабильно упорядочивает блоки по SortOrder
func SortBlocks(blocks []BlockSnapshot) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].SortOrder < blocks[j].SortOrder
	})
}

// BlockPos целочисленная позиция блока в мире
type BlockPos struct {
	X, Y, Z int
}

// BlockPosOf округляет мировую позицию вниз до блока
func BlockPosOf(v mgl64.Vec3) BlockPos {
	return BlockPos{
		X: int(math.Floor(v[0] + blockSnapEpsilon)),
		Y: int(math.Floor(v[1] + blockSnapEpsilon)),
		Z: int(math.Floor(v[2] + blockSnapEpsilon)),
	}
}

// Vec3 возвращает угол блока как мировую позицию
func (p BlockPos) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
}

// Bounds возвращает единичный куб блока
func (p BlockPos) Bounds() AABB {
	corner := p.Vec3()
	return AABB{Min: corner, Max: corner.Add(mgl64.Vec3{1, 1, 1})}
}

func (p BlockPos) String() string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}
