package entity

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// FaceDirection направление лицевой стороны ворот по компасу
type FaceDirection string

const (
	FaceNone      FaceDirection = ""
	FaceNorth     FaceDirection = "NORTH"
	FaceNorthEast FaceDirection = "NORTH_EAST"
	FaceEast      FaceDirection = "EAST"
	FaceSouthEast FaceDirection = "SOUTH_EAST"
	FaceSouth     FaceDirection = "SOUTH"
	FaceSouthWest FaceDirection = "SOUTH_WEST"
	FaceWest      FaceDirection = "WEST"
	FaceNorthWest FaceDirection = "NORTH_WEST"
)

var diagonal = 1 / math.Sqrt2

// Мировые оси: север = -Z, юг = +Z, восток = +X, запад = -X
var faceVectors = map[FaceDirection]mgl64.Vec3{
	FaceNorth:     {0, 0, -1},
	FaceNorthEast: {diagonal, 0, -diagonal},
	FaceEast:      {1, 0, 0},
	FaceSouthEast: {diagonal, 0, diagonal},
	FaceSouth:     {0, 0, 1},
	FaceSouthWest: {-diagonal, 0, diagonal},
	FaceWest:      {-1, 0, 0},
	FaceNorthWest: {-diagonal, 0, -diagonal},
}

// Vector возвращает единичный вектор направления; false для FaceNone
func (f FaceDirection) Vector() (mgl64.Vec3, bool) {
	v, ok := faceVectors[f]
	return v, ok
}

// ParseFaceDirection разбирает тег направления; пустая строка и NONE дают FaceNone
func ParseFaceDirection(name string) (FaceDirection, error) {
	if name == "" || name == "NONE" {
		return FaceNone, nil
	}
	f := FaceDirection(name)
	if _, ok := faceVectors[f]; !ok {
		return FaceNone, fmt.Errorf("unknown face direction %q", name)
	}
	return f, nil
}
