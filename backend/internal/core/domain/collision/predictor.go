// Package collision предсказывает столкновения блоков ворот с акторами
// и расталкивает акторов перед движением блоков.
package collision

import (
	"fmt"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/kinematics"
)

// NoCollision - в окне предсказания столкновений нет
const NoCollision = -1

// PredictCollision сканирует кадры [currentFrame, min(duration, currentFrame+lookahead)]
// и возвращает число кадров до первого пересечения блока ворот с bounds.
// Каждый блок - единичный куб в округленной вниз позиции.
func PredictCollision(g *entity.Gate, bounds entity.AABB, currentFrame, lookahead int) (int, error) {
	return predict(g, bounds, currentFrame, lookahead, 1)
}

// PredictDirected учитывает направление анимации: закрывающиеся ворота идут к кадру 0,
// поэтому кадры сканируются по убыванию.
func PredictDirected(g *entity.Gate, bounds entity.AABB, currentFrame, lookahead int) (int, error) {
	if g != nil && g.State() == entity.StateClosing {
		return predict(g, bounds, currentFrame, lookahead, -1)
	}
	return PredictCollision(g, bounds, currentFrame, lookahead)
}

func predict(g *entity.Gate, bounds entity.AABB, currentFrame, lookahead, step int) (int, error) {
	if g == nil {
		return NoCollision, fmt.Errorf("predict collision: gate is required: %w", entity.ErrInvalidArgument)
	}
	blocks := g.Blocks()
	if len(blocks) == 0 || lookahead < 0 {
		return NoCollision, nil
	}

	duration := g.Config().Duration
	start := entity.ClampFrame(currentFrame, duration)
	end := entity.ClampFrame(start+step*lookahead, duration)

	for offset := 0; ; offset++ {
		frame := start + step*offset
		if (step > 0 && frame > end) || (step < 0 && frame < end) {
			break
		}
		positions, err := kinematics.Positions(g, frame)
		if err != nil {
			return NoCollision, err
		}
		for _, p := range positions {
			if entity.BlockPosOf(p).Bounds().Intersects(bounds) {
				return offset, nil
			}
		}
	}
	return NoCollision, nil
}
