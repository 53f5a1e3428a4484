package entity

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(Config{
		ID:        7,
		Name:      "North Gate",
		Type:      GatePortcullis,
		Geometry:  GeometryFill,
		Face:      FaceNorth,
		Duration:  60,
		TickRate:  2,
		Anchor:    mgl64.Vec3{100, 64, 100},
		Width:     1,
		Height:    3,
		Depth:     1,
		Motion:    LinearMotion{Kind: MotionVertical, Vector: mgl64.Vec3{0, 3, 0}},
		HealthMax: 100,
		Blocks: []BlockSnapshot{
			{RelativePosition: mgl64.Vec3{0, 2, 0}, BlockData: "iron_bars", SortOrder: 2},
			{RelativePosition: mgl64.Vec3{0, 0, 0}, BlockData: "iron_bars", SortOrder: 0},
			{RelativePosition: mgl64.Vec3{0, 1, 0}, BlockData: "iron_bars", SortOrder: 1},
		},
	})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    AnimationState
		cmd     Command
		want    AnimationState
		wantErr error
	}{
		{StateClosed, CommandOpen, StateOpening, nil},
		{StateOpening, CommandOpen, StateOpening, ErrAlreadyOpen},
		{StateOpen, CommandOpen, StateOpen, ErrAlreadyOpen},
		{StateClosing, CommandOpen, StateOpening, nil},

		{StateOpen, CommandClose, StateClosing, nil},
		{StateClosing, CommandClose, StateClosing, ErrAlreadyClosed},
		{StateClosed, CommandClose, StateClosed, ErrAlreadyClosed},
		{StateOpening, CommandClose, StateClosing, nil},

		{StateOpening, CommandFinish, StateOpen, nil},
		{StateClosing, CommandFinish, StateClosed, nil},
		{StateOpen, CommandFinish, StateOpen, ErrNotAnimating},
		{StateClosed, CommandFinish, StateClosed, ErrNotAnimating},

		{StateClosing, CommandForceOpen, StateOpen, nil},
		{StateOpening, CommandForceClose, StateClosed, nil},
		{StateOpen, Command(99), StateOpen, ErrUnknownCommand},
	}

	for _, tc := range cases {
		got, err := Transition(tc.from, tc.cmd)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s --%s-->: ошибка %v, ожидалась %v", tc.from, tc.cmd, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("%s --%s-->: состояние %s, ожидалось %s", tc.from, tc.cmd, got, tc.want)
		}
	}
}

func TestNewGate_SortsBlocksAndInitialisesRuntime(t *testing.T) {
	g := newTestGate(t)

	for i, b := range g.Blocks() {
		if b.SortOrder != i {
			t.Fatalf("блоки не отсортированы: позиция %d имеет порядок %d", i, b.SortOrder)
		}
	}
	if g.State() != StateClosed || g.Frame() != 0 {
		t.Errorf("ожидалось CLOSED/0, получено %s/%d", g.State(), g.Frame())
	}
	if g.Health() != 100 || !g.Active() || g.Destroyed() {
		t.Errorf("неверное начальное здоровье/флаги: %f %t %t", g.Health(), g.Active(), g.Destroyed())
	}
}

func TestNewGate_Validation(t *testing.T) {
	base := Config{ID: 1, Name: "g", Motion: LinearMotion{Kind: MotionVertical}, TickRate: 1}

	bad := []Config{}
	c := base
	c.Name = " "
	bad = append(bad, c)
	c = base
	c.Motion = nil
	bad = append(bad, c)
	c = base
	c.Duration = -1
	bad = append(bad, c)
	c = base
	c.TickRate = 0
	bad = append(bad, c)
	c = base
	c.HealthMax = -5
	bad = append(bad, c)

	for i, cfg := range bad {
		if _, err := NewGate(cfg); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("случай %d: ожидалась ErrInvalidArgument, получено %v", i, err)
		}
	}
	if _, err := NewGate(base); err != nil {
		t.Fatalf("корректная конфигурация отклонена: %v", err)
	}
}

func TestBegin_OpenAndClose(t *testing.T) {
	g := newTestGate(t)
	now := time.Unix(1000, 0)

	if err := g.Begin(CommandOpen, now); err != nil {
		t.Fatalf("open: %v", err)
	}
	if g.State() != StateOpening || g.Frame() != 0 || !g.AnimationStart().Equal(now) {
		t.Fatalf("после open: %s кадр %d старт %v", g.State(), g.Frame(), g.AnimationStart())
	}

	g.SetFrame(1000)
	if g.Frame() != 60 {
		t.Fatalf("кадр должен ограничиваться длительностью, получено %d", g.Frame())
	}
	if state, err := g.Finish(); err != nil || state != StateOpen {
		t.Fatalf("finish: %s %v", state, err)
	}

	later := now.Add(10 * time.Second)
	if err := g.Begin(CommandClose, later); err != nil {
		t.Fatalf("close: %v", err)
	}
	if g.State() != StateClosing || g.Frame() != 60 || !g.AnimationStart().Equal(later) {
		t.Fatalf("после close: %s кадр %d", g.State(), g.Frame())
	}
}

func TestBegin_MidAnimationRestartsFromTerminalFrame(t *testing.T) {
	g := newTestGate(t)
	now := time.Unix(1000, 0)

	_ = g.Begin(CommandOpen, now)
	g.SetFrame(20)

	closeAt := now.Add(time.Second)
	if err := g.Begin(CommandClose, closeAt); err != nil {
		t.Fatalf("close во время открытия: %v", err)
	}
	if g.State() != StateClosing || g.Frame() != 60 || !g.AnimationStart().Equal(closeAt) {
		t.Fatalf("после close: %s кадр %d старт %v", g.State(), g.Frame(), g.AnimationStart())
	}

	g.SetFrame(15)
	openAt := closeAt.Add(time.Second)
	if err := g.Begin(CommandOpen, openAt); err != nil {
		t.Fatalf("open во время закрытия: %v", err)
	}
	if g.State() != StateOpening || g.Frame() != 0 || !g.AnimationStart().Equal(openAt) {
		t.Fatalf("после open: %s кадр %d старт %v", g.State(), g.Frame(), g.AnimationStart())
	}
}

func TestBegin_RejectsInactiveAndDestroyed(t *testing.T) {
	g := newTestGate(t)
	g.MarkDestroyed(time.Time{})

	if err := g.Begin(CommandOpen, time.Now()); !errors.Is(err, ErrGateDestroyed) {
		t.Errorf("open разрушенных ворот: %v", err)
	}
	if err := g.Begin(CommandClose, time.Now()); !errors.Is(err, ErrGateInactive) {
		t.Errorf("close разрушенных ворот: %v", err)
	}
}

func TestDamageNeverNegative(t *testing.T) {
	g := newTestGate(t)

	health, depleted := g.ApplyDamage(30)
	if health != 70 || depleted {
		t.Fatalf("ожидалось 70/false, получено %f/%t", health, depleted)
	}
	health, depleted = g.ApplyDamage(math.NaN())
	if health != 70 || depleted {
		t.Fatalf("NaN урон: %f/%t", health, depleted)
	}
	health, depleted = g.ApplyDamage(500)
	if health != 0 || !depleted {
		t.Fatalf("ожидалось 0/true, получено %f/%t", health, depleted)
	}
}

func TestMarkDestroyedAndRevive(t *testing.T) {
	g := newTestGate(t)
	_ = g.Begin(CommandOpen, time.Now())
	g.SetFrame(30)

	respawnAt := time.Unix(5000, 0)
	g.MarkDestroyed(respawnAt)
	if !g.Destroyed() || g.Active() || g.State() != StateClosed || g.Frame() != 0 || g.Health() != 0 {
		t.Fatalf("нарушены инварианты разрушения: %+v", g.rt)
	}
	if !g.RespawnAt().Equal(respawnAt) {
		t.Fatalf("время респавна не сохранено")
	}

	g.Revive()
	if g.Destroyed() || !g.Active() || g.Health() != 100 || !g.RespawnAt().IsZero() {
		t.Fatalf("неверное состояние после Revive: %+v", g.rt)
	}
}

func TestProgress(t *testing.T) {
	g := newTestGate(t)
	g.SetFrame(15)
	if got := g.Progress(); got != 0.25 {
		t.Fatalf("Progress = %f", got)
	}

	zero, _ := NewGate(Config{ID: 2, Name: "z", Motion: LinearMotion{Kind: MotionLateral}, TickRate: 1})
	if zero.Progress() != 0 {
		t.Fatal("закрытые ворота с нулевой длительностью должны иметь прогресс 0")
	}
	zero.Force(true)
	if zero.Progress() != 1 {
		t.Fatal("открытые ворота с нулевой длительностью должны иметь прогресс 1")
	}
}

func TestBlockPosOf(t *testing.T) {
	cases := []struct {
		in   mgl64.Vec3
		want BlockPos
	}{
		{mgl64.Vec3{100, 65.5, 100}, BlockPos{100, 65, 100}},
		{mgl64.Vec3{-0.5, 0, 0.999}, BlockPos{-1, 0, 0}},
		{mgl64.Vec3{66.99999999999, 0, 0}, BlockPos{67, 0, 0}},
	}
	for _, tc := range cases {
		if got := BlockPosOf(tc.in); got != tc.want {
			t.Errorf("BlockPosOf(%v) = %v, ожидалось %v", tc.in, got, tc.want)
		}
	}
}

func TestFaceDirectionVectors(t *testing.T) {
	v, ok := FaceNorthEast.Vector()
	if !ok || !mgl64.FloatEqualThreshold(v.Len(), 1, 1e-12) {
		t.Fatalf("диагональ должна быть единичной: %v", v)
	}
	if _, ok := FaceNone.Vector(); ok {
		t.Fatal("FaceNone не должен иметь вектора")
	}
	if _, err := ParseFaceDirection("UP"); err == nil {
		t.Fatal("ожидалась ошибка для неизвестного направления")
	}
}

func TestAABBIntersects(t *testing.T) {
	a := BlockPos{0, 0, 0}.Bounds()
	b := AABB{Min: mgl64.Vec3{0.5, 0.5, 0.5}, Max: mgl64.Vec3{2, 2, 2}}
	c := BlockPos{1, 0, 0}.Bounds()

	if !a.Intersects(b) {
		t.Error("a и b должны пересекаться")
	}
	if a.Intersects(c) {
		t.Error("соседние блоки только касаются")
	}
}
