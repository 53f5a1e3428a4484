// Package kinematics вычисляет положение блоков ворот на заданном кадре анимации.
package kinematics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/vecmath"
)

// Progress возвращает долю анимации для кадра после ограничения [0, duration]
func Progress(g *entity.Gate, frame int) float64 {
	duration := g.Config().Duration
	if duration <= 0 {
		return 0
	}
	return float64(entity.ClampFrame(frame, duration)) / float64(duration)
}

// PositionAt возвращает мировую позицию блока на кадре frame.
// Кадры вне [0, duration] ограничиваются.
func PositionAt(g *entity.Gate, block *entity.BlockSnapshot, frame int) (mgl64.Vec3, error) {
	if g == nil || block == nil {
		return mgl64.Vec3{}, fmt.Errorf("position at: gate and block are required: %w", entity.ErrInvalidArgument)
	}
	return positionAt(g.Config(), block, Progress(g, frame)), nil
}

func positionAt(cfg entity.Config, block *entity.BlockSnapshot, progress float64) mgl64.Vec3 {
	switch m := cfg.Motion.(type) {
	case entity.RotationalMotion:
		angle := m.MaxAngle * progress
		return cfg.Anchor.Add(vecmath.RotateAroundAxis(block.RelativePosition, m.Hinge, angle))
	case entity.LinearMotion:
		return cfg.Anchor.Add(block.RelativePosition).Add(m.Vector.Mul(progress))
	default:
		// Motion закрыт: сюда попадаем только при nil
		return cfg.Anchor.Add(block.RelativePosition)
	}
}

// Positions возвращает позиции всех блоков на кадре в порядке SortOrder
func Positions(g *entity.Gate, frame int) ([]mgl64.Vec3, error) {
	if g == nil {
		return nil, fmt.Errorf("positions: gate is required: %w", entity.ErrInvalidArgument)
	}
	cfg := g.Config()
	progress := Progress(g, frame)

	result := make([]mgl64.Vec3, len(cfg.Blocks))
	for i := range cfg.Blocks {
		result[i] = positionAt(cfg, &cfg.Blocks[i], progress)
	}
	return result, nil
}

// StepVector линейное смещение за один кадр.
// Нулевой вектор при duration <= 0 или отсутствии вектора движения.
func StepVector(g *entity.Gate) mgl64.Vec3 {
	cfg := g.Config()
	if cfg.Duration <= 0 {
		return mgl64.Vec3{}
	}
	return cfg.MotionVector().Mul(1 / float64(cfg.Duration))
}

// AngleStep угол поворота за один кадр в градусах; 0 при duration <= 0
func AngleStep(g *entity.Gate) float64 {
	cfg := g.Config()
	if cfg.Duration <= 0 {
		return 0
	}
	return cfg.RotationMaxAngle() / float64(cfg.Duration)
}

// ShouldUpdateFrame решает, нужно ли обновлять блоки мира на этом кадре.
// Первый и последний кадр обновляются всегда, остальные - каждые tickRate кадров.
func ShouldUpdateFrame(g *entity.Gate, frame int) bool {
	cfg := g.Config()
	if frame == 0 || frame == cfg.Duration {
		return true
	}
	rate := cfg.TickRate
	if rate < 1 {
		rate = 1
	}
	return frame%rate == 0
}
