// Package vecmath содержит чистые функции для работы с 3D векторами поверх mgl64.
package vecmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MinAngleDegrees - углы меньше этого значения считаются нулевым поворотом
	MinAngleDegrees = 0.001

	// axisEpsilon - длина оси, ниже которой ось считается вырожденной
	axisEpsilon = 1e-12
)

var (
	AxisX = mgl64.Vec3{1, 0, 0}
	AxisY = mgl64.Vec3{0, 1, 0}
	AxisZ = mgl64.Vec3{0, 0, 1}
)

// RotateAroundAxis поворачивает вектор v вокруг оси axis на angleDegrees градусов
// по формуле Родрига: v' = v*cos + (k x v)*sin + k*(k.v)*(1-cos), k = normalize(axis).
// Вырожденные случаи (почти нулевой угол или нулевая ось) возвращают v без изменений.
func RotateAroundAxis(v, axis mgl64.Vec3, angleDegrees float64) mgl64.Vec3 {
	if math.Abs(angleDegrees) < MinAngleDegrees {
		return v
	}

	length := axis.Len()
	if length < axisEpsilon || math.IsNaN(length) {
		return v
	}
	k := axis.Mul(1 / length)

	theta := mgl64.DegToRad(angleDegrees)
	cos := math.Cos(theta)
	sin := math.Sin(theta)

	return v.Mul(cos).
		Add(k.Cross(v).Mul(sin)).
		Add(k.Mul(k.Dot(v) * (1 - cos)))
}

// RotateX поворачивает вектор вокруг оси X
func RotateX(v mgl64.Vec3, angleDegrees float64) mgl64.Vec3 {
	if math.Abs(angleDegrees) < MinAngleDegrees {
		return v
	}
	return mgl64.Rotate3DX(mgl64.DegToRad(angleDegrees)).Mul3x1(v)
}

// RotateY поворачивает вектор вокруг оси Y
func RotateY(v mgl64.Vec3, angleDegrees float64) mgl64.Vec3 {
	if math.Abs(angleDegrees) < MinAngleDegrees {
		return v
	}
	return mgl64.Rotate3DY(mgl64.DegToRad(angleDegrees)).Mul3x1(v)
}

// RotateZ поворачивает вектор вокруг оси Z
func RotateZ(v mgl64.Vec3, angleDegrees float64) mgl64.Vec3 {
	if math.Abs(angleDegrees) < MinAngleDegrees {
		return v
	}
	return mgl64.Rotate3DZ(mgl64.DegToRad(angleDegrees)).Mul3x1(v)
}

// Lerp линейно интерполирует между a и b, t ограничивается диапазоном [0, 1]
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	t = mgl64.Clamp(t, 0, 1)
	return a.Add(b.Sub(a).Mul(t))
}

// AngleBetween возвращает угол между векторами в градусах (0-180).
// Для нулевого вектора возвращается 0.
func AngleBetween(v1, v2 mgl64.Vec3) float64 {
	l1 := v1.Len()
	l2 := v2.Len()
	if l1 < axisEpsilon || l2 < axisEpsilon {
		return 0
	}

	// Косинус может немного выйти за [-1, 1] из-за погрешности float
	cos := mgl64.Clamp(v1.Dot(v2)/(l1*l2), -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// NormalizeOrZero нормализует вектор или возвращает нулевой вектор для вырожденного входа
func NormalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	length := v.Len()
	if length < axisEpsilon || math.IsNaN(length) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / length)
}

// IsZero проверяет, что вектор практически нулевой
func IsZero(v mgl64.Vec3) bool {
	return v.Len() < axisEpsilon
}
