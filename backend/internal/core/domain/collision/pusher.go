package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/vecmath"
)

// DefaultPushMagnitude скорость отталкивания в блоках за тик
const DefaultPushMagnitude = 0.5

// Pusher отталкивает акторов от движущихся ворот
type Pusher struct {
	Magnitude float64
}

// NewPusher создает Pusher; magnitude <= 0 заменяется значением по умолчанию
func NewPusher(magnitude float64) *Pusher {
	if magnitude <= 0 {
		magnitude = DefaultPushMagnitude
	}
	return &Pusher{Magnitude: magnitude}
}

// Direction выбирает горизонтальное направление толчка:
// тег лицевой стороны, затем нормаль базиса, затем вектор движения.
// Берется первый ненулевой источник; если после обнуления Y он вырождается, толчка нет.
func Direction(g *entity.Gate) (mgl64.Vec3, bool) {
	cfg := g.Config()

	candidates := make([]mgl64.Vec3, 0, 3)
	if v, ok := cfg.Face.Vector(); ok {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, cfg.Basis.N, cfg.MotionVector())

	for _, c := range candidates {
		if vecmath.IsZero(c) {
			continue
		}
		flat := vecmath.NormalizeOrZero(mgl64.Vec3{c[0], 0, c[2]})
		return flat, !vecmath.IsZero(flat)
	}
	return mgl64.Vec3{}, false
}

// Push заменяет скорость актора на толчок от ворот. Возвращает false, если направления нет.
func (p *Pusher) Push(actor entity.Actor, g *entity.Gate) bool {
	if actor == nil || g == nil {
		return false
	}
	dir, ok := Direction(g)
	if !ok {
		return false
	}
	actor.SetVelocity(dir.Mul(p.Magnitude))
	return true
}
