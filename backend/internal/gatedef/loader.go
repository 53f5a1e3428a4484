package gatedef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/vecmath"
)

const defaultMaxAngle = 90

// File корень YAML файла определений
type File struct {
	Gates []GateSpec `yaml:"gates"`
}

// GateSpec описание одних ворот
type GateSpec struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Geometry string `yaml:"geometry"`
	Face     string `yaml:"face"`

	Duration int `yaml:"duration"`
	TickRate int `yaml:"tick_rate"`

	// Опорные точки: начало, точка по ширине, точка по высоте
	Origin      []float64 `yaml:"origin"`
	WidthPoint  []float64 `yaml:"width_point"`
	HeightPoint []float64 `yaml:"height_point"`

	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Depth    int    `yaml:"depth"`
	Material string `yaml:"material"`

	Motion   string    `yaml:"motion"`
	Distance float64   `yaml:"distance"`
	Hinge    []float64 `yaml:"hinge"`
	MaxAngle float64   `yaml:"max_angle"`

	Blocks []BlockSpec `yaml:"blocks"`

	Health       float64 `yaml:"health"`
	Invincible   bool    `yaml:"invincible"`
	Respawn      bool    `yaml:"respawn"`
	RespawnDelay int     `yaml:"respawn_delay"`

	Zones ZoneSpec `yaml:"zones"`
}

// BlockSpec блок для геометрии EXPLICIT
type BlockSpec struct {
	Offset []float64 `yaml:"offset"`
	Data   string    `yaml:"data"`
	Order  *int      `yaml:"order"`
}

// ZoneSpec идентификаторы зон для синхронизации
type ZoneSpec struct {
	Open   string `yaml:"open"`
	Closed string `yaml:"closed"`
}

// LoadFile читает определения ворот из файла
func LoadFile(filename string) ([]*entity.Gate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("gatedef: load %s: %w", filename, err)
	}
	gates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("gatedef: %s: %w", filename, err)
	}
	return gates, nil
}

// Parse разбирает YAML и строит ворота. Неизвестные поля считаются ошибкой.
func Parse(data []byte) ([]*entity.Gate, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)
	gates := make([]*entity.Gate, 0, len(file.Gates))
	for i, spec := range file.Gates {
		if spec.ID <= 0 {
			return nil, fmt.Errorf("gate #%d: id must be positive", i)
		}
		if ids[spec.ID] {
			return nil, fmt.Errorf("gate %d: duplicate id", spec.ID)
		}
		key := strings.ToLower(strings.TrimSpace(spec.Name))
		if key != "" && names[key] {
			return nil, fmt.Errorf("gate %d: duplicate name %q", spec.ID, spec.Name)
		}

		g, err := Build(spec)
		if err != nil {
			return nil, err
		}
		ids[spec.ID] = true
		names[key] = true
		gates = append(gates, g)
	}
	return gates, nil
}

// Build строит ворота из описания
func Build(spec GateSpec) (*entity.Gate, error) {
	wrap := func(err error) error {
		return fmt.Errorf("gate %d: %w", spec.ID, err)
	}

	origin, err := vec3(spec.Origin, "origin")
	if err != nil {
		return nil, wrap(err)
	}
	widthPoint, err := vec3(spec.WidthPoint, "width_point")
	if err != nil {
		return nil, wrap(err)
	}
	heightPoint, err := vec3(spec.HeightPoint, "height_point")
	if err != nil {
		return nil, wrap(err)
	}
	basis, err := ComputeBasis(origin, widthPoint, heightPoint)
	if err != nil {
		return nil, wrap(err)
	}

	face, err := entity.ParseFaceDirection(strings.ToUpper(spec.Face))
	if err != nil {
		return nil, wrap(err)
	}

	width, height, depth := spec.Width, spec.Height, spec.Depth
	if width <= 0 {
		width = int(math.Round(widthPoint.Sub(origin).Len())) + 1
	}
	if height <= 0 {
		height = int(math.Round(heightPoint.Sub(origin).Len())) + 1
	}
	if depth <= 0 {
		depth = 1
	}

	motion, err := buildMotion(spec, basis, width, height)
	if err != nil {
		return nil, wrap(err)
	}

	geometry := entity.GeometryMode(strings.ToUpper(spec.Geometry))
	if geometry == "" {
		geometry = entity.GeometryFill
	}
	var blocks []entity.BlockSnapshot
	switch geometry {
	case entity.GeometryFill:
		if strings.TrimSpace(spec.Material) == "" {
			return nil, wrap(fmt.Errorf("material is required for FILL geometry"))
		}
		blocks = FillBlocks(basis, width, height, depth, spec.Material)
	case entity.GeometryExplicit:
		blocks, err = explicitBlocks(spec.Blocks)
		if err != nil {
			return nil, wrap(err)
		}
	default:
		return nil, wrap(fmt.Errorf("unknown geometry %q", spec.Geometry))
	}

	tickRate := spec.TickRate
	if tickRate == 0 {
		tickRate = 1
	}
	gateType := entity.GateType(strings.ToUpper(spec.Type))
	if gateType == "" {
		gateType = entity.GateSliding
	}

	g, err := entity.NewGate(entity.Config{
		ID:                  spec.ID,
		Name:                strings.TrimSpace(spec.Name),
		Type:                gateType,
		Geometry:            geometry,
		Face:                face,
		Duration:            spec.Duration,
		TickRate:            tickRate,
		Anchor:              origin,
		Width:               width,
		Height:              height,
		Depth:               depth,
		Motion:              motion,
		Basis:               basis,
		HealthMax:           spec.Health,
		Invincible:          spec.Invincible,
		RespawnEnabled:      spec.Respawn,
		RespawnDelaySeconds: spec.RespawnDelay,
		Blocks:              blocks,
	})
	if err != nil {
		return nil, err
	}
	g.SetZones(spec.Zones.Open, spec.Zones.Closed)
	return g, nil
}

// ComputeBasis строит оси ворот по трем опорным точкам:
// U = norm(W-O), V = norm(H-O), N = norm(U x V)
func ComputeBasis(origin, widthPoint, heightPoint mgl64.Vec3) (entity.Basis, error) {
	u := vecmath.NormalizeOrZero(widthPoint.Sub(origin))
	v := vecmath.NormalizeOrZero(heightPoint.Sub(origin))
	if vecmath.IsZero(u) || vecmath.IsZero(v) {
		return entity.Basis{}, fmt.Errorf("reference points must differ from origin: %w", entity.ErrInvalidArgument)
	}
	n := vecmath.NormalizeOrZero(u.Cross(v))
	if vecmath.IsZero(n) {
		return entity.Basis{}, fmt.Errorf("width and height directions are parallel: %w", entity.ErrInvalidArgument)
	}
	return entity.Basis{U: u, V: v, N: n}, nil
}

func buildMotion(spec GateSpec, basis entity.Basis, width, height int) (entity.Motion, error) {
	kind := strings.ToUpper(spec.Motion)
	if kind == "" {
		kind = entity.MotionVertical.String()
	}
	motionType, err := entity.ParseMotionType(kind)
	if err != nil {
		return nil, err
	}

	switch motionType {
	case entity.MotionRotation:
		hinge := basis.U
		if len(spec.Hinge) > 0 {
			h, err := vec3(spec.Hinge, "hinge")
			if err != nil {
				return nil, err
			}
			hinge = vecmath.NormalizeOrZero(h)
			if vecmath.IsZero(hinge) {
				return nil, fmt.Errorf("hinge axis must not be zero: %w", entity.ErrInvalidArgument)
			}
		}
		maxAngle := spec.MaxAngle
		if maxAngle == 0 {
			maxAngle = defaultMaxAngle
		}
		return entity.RotationalMotion{Hinge: hinge, MaxAngle: maxAngle}, nil

	case entity.MotionLateral:
		distance := spec.Distance
		if distance == 0 {
			distance = float64(width)
		}
		return entity.NewLinearMotion(motionType, basis.U.Mul(distance))

	default:
		distance := spec.Distance
		if distance == 0 {
			distance = float64(height)
		}
		return entity.NewLinearMotion(motionType, basis.V.Mul(distance))
	}
}

// FillBlocks генерирует width x height x depth блоков одного материала.
// Порядок установки: снизу вверх, внутри ряда по ширине, затем по глубине.
func FillBlocks(basis entity.Basis, width, height, depth int, material string) []entity.BlockSnapshot {
	blocks := make([]entity.BlockSnapshot, 0, width*height*depth)
	order := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for d := 0; d < depth; d++ {
				rel := basis.U.Mul(float64(x)).
					Add(basis.V.Mul(float64(y))).
					Add(basis.N.Mul(float64(d)))
				blocks = append(blocks, entity.BlockSnapshot{
					RelativePosition: rel,
					BlockData:        material,
					SortOrder:        order,
				})
				order++
			}
		}
	}
	return blocks
}

func explicitBlocks(specs []BlockSpec) ([]entity.BlockSnapshot, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("EXPLICIT geometry requires blocks")
	}
	blocks := make([]entity.BlockSnapshot, 0, len(specs))
	for i, b := range specs {
		offset, err := vec3(b.Offset, fmt.Sprintf("blocks[%d].offset", i))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(b.Data) == "" {
			return nil, fmt.Errorf("blocks[%d]: data is required", i)
		}
		order := i
		if b.Order != nil {
			order = *b.Order
		}
		blocks = append(blocks, entity.BlockSnapshot{RelativePosition: offset, BlockData: b.Data, SortOrder: order})
	}
	return blocks, nil
}

func vec3(values []float64, field string) (mgl64.Vec3, error) {
	if len(values) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%s must have 3 coordinates, got %d", field, len(values))
	}
	return mgl64.Vec3{values[0], values[1], values[2]}, nil
}
