package entity

import "github.com/go-gl/mathgl/mgl64"

// AABB ограничивающий параллелепипед, выровненный по осям
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Intersects проверяет пересечение двух AABB. Касание гранями пересечением не считается.
func (b AABB) Intersects(other AABB) bool {
	return b.Min[0] < other.Max[0] && b.Max[0] > other.Min[0] &&
		b.Min[1] < other.Max[1] && b.Max[1] > other.Min[1] &&
		b.Min[2] < other.Max[2] && b.Max[2] > other.Min[2]
}

// Center возвращает центр параллелепипеда
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Expand расширяет параллелепипед на margin во все стороны
func (b AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Actor - подвижная сущность рядом с воротами (игрок, моб)
type Actor interface {
	ActorID() string
	Bounds() AABB
	Velocity() mgl64.Vec3
	// SetVelocity заменяет скорость актора
	SetVelocity(v mgl64.Vec3)
}
