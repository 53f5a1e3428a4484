package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MotionType тег кинематической категории движения
type MotionType int

const (
	MotionVertical MotionType = iota
	MotionLateral
	MotionRotation
)

func (m MotionType) String() string {
	switch m {
	case MotionVertical:
		return "VERTICAL"
	case MotionLateral:
		return "LATERAL"
	case MotionRotation:
		return "ROTATION"
	default:
		return fmt.Sprintf("MotionType(%d)", int(m))
	}
}

// ParseMotionType разбирает тег типа движения
func ParseMotionType(name string) (MotionType, error) {
	switch name {
	case "VERTICAL":
		return MotionVertical, nil
	case "LATERAL":
		return MotionLateral, nil
	case "ROTATION":
		return MotionRotation, nil
	}
	return MotionVertical, fmt.Errorf("unknown motion type %q", name)
}

// Motion - закрытое объединение видов движения: LinearMotion или RotationalMotion.
// Реализовать его вне пакета нельзя.
type Motion interface {
	Type() MotionType
	sealedMotion()
}

// LinearMotion - сдвиг ворот (VERTICAL или LATERAL) на вектор Vector в полностью открытом положении
type LinearMotion struct {
	Kind   MotionType
	Vector mgl64.Vec3
}

func (m LinearMotion) Type() MotionType { return m.Kind }
func (LinearMotion) sealedMotion()      {}

// RotationalMotion - поворот вокруг петли Hinge на угол до MaxAngle градусов
type RotationalMotion struct {
	Hinge    mgl64.Vec3
	MaxAngle float64
}

func (RotationalMotion) Type() MotionType { return MotionRotation }
func (RotationalMotion) sealedMotion()    {}

// NewLinearMotion проверяет вид движения и создает LinearMotion
func NewLinearMotion(kind MotionType, vector mgl64.Vec3) (LinearMotion, error) {
	if kind != MotionVertical && kind != MotionLateral {
		return LinearMotion{}, fmt.Errorf("linear motion requires VERTICAL or LATERAL, got %s", kind)
	}
	return LinearMotion{Kind: kind, Vector: vector}, nil
}
