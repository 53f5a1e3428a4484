package service

import (
	"errors"
	"testing"
	"time"

	"x-gates/backend/internal/core/domain/entity"
)

func newTestRegistry(t *testing.T) (*GateRegistry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := NewGateRegistry(50*time.Millisecond, clock.Now, quietLogger)
	if err := r.Register(portcullis(t, 1, "North Gate")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(portcullis(t, 2, "South Gate")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r, clock
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r, _ := newTestRegistry(t)

	if err := r.Register(portcullis(t, 1, "Other")); !errors.Is(err, ErrDuplicateGate) {
		t.Errorf("дубликат id: %v", err)
	}
	if err := r.Register(portcullis(t, 3, "north gate")); !errors.Is(err, ErrDuplicateGate) {
		t.Errorf("дубликат имени: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestRegistry_FindByNameIgnoresCase(t *testing.T) {
	r, _ := newTestRegistry(t)

	g, ok := r.FindByName("SOUTH gate")
	if !ok || g.ID() != 2 {
		t.Fatalf("FindByName: %v %v", g, ok)
	}
	if _, ok := r.FindByName("west gate"); ok {
		t.Fatal("неизвестное имя найдено")
	}
}

func TestRegistry_OpenCloseSymmetry(t *testing.T) {
	r, clock := newTestRegistry(t)

	if !r.Open(1) {
		t.Fatal("open закрытых ворот должен пройти")
	}
	g, _ := r.Get(1)
	if g.State() != entity.StateOpening || g.Frame() != 0 || !g.AnimationStart().Equal(clock.Now()) {
		t.Fatalf("после open: %s кадр %d", g.State(), g.Frame())
	}
	if r.Open(1) {
		t.Fatal("повторный open должен вернуть false")
	}

	g.Force(true)
	if r.Open(1) || g.State() != entity.StateOpen {
		t.Fatal("open открытых ворот должен вернуть false без изменений")
	}

	if !r.Close(1) {
		t.Fatal("close открытых ворот должен пройти")
	}
	if g.State() != entity.StateClosing || g.Frame() != g.Config().Duration {
		t.Fatalf("после close: %s кадр %d", g.State(), g.Frame())
	}
	g.Force(false)
	if r.Close(1) || g.State() != entity.StateClosed {
		t.Fatal("close закрытых ворот должен вернуть false без изменений")
	}
}

func TestRegistry_MidAnimationOpenCloseStartFromTerminalFrame(t *testing.T) {
	r, clock := newTestRegistry(t)
	g, _ := r.Get(1)
	duration := g.Config().Duration

	g.Force(true)
	if !r.Close(1) {
		t.Fatal("close открытых ворот должен пройти")
	}
	g.SetFrame(duration / 2)
	clock.Advance(time.Second)

	if !r.Open(1) {
		t.Fatal("open закрывающихся ворот должен пройти")
	}
	if g.State() != entity.StateOpening || g.Frame() != 0 || !g.AnimationStart().Equal(clock.Now()) {
		t.Fatalf("open посреди закрытия: %s кадр %d старт %v", g.State(), g.Frame(), g.AnimationStart())
	}

	g.SetFrame(duration / 2)
	clock.Advance(time.Second)

	if !r.Close(1) {
		t.Fatal("close открывающихся ворот должен пройти")
	}
	if g.State() != entity.StateClosing || g.Frame() != duration || !g.AnimationStart().Equal(clock.Now()) {
		t.Fatalf("close посреди открытия: %s кадр %d старт %v", g.State(), g.Frame(), g.AnimationStart())
	}
}

func TestRegistry_UnknownIDsAreNoops(t *testing.T) {
	r, _ := newTestRegistry(t)

	if r.Open(99) || r.Close(99) || r.Toggle(99) || r.ForceState(99, true) || r.IsAnimating(99) {
		t.Fatal("операции с неизвестным id должны возвращать false")
	}
	if r.Progress(99) != -1 {
		t.Fatalf("Progress неизвестных ворот = %f", r.Progress(99))
	}
	if err := r.Apply(99, entity.CommandOpen); !errors.Is(err, ErrGateNotFound) {
		t.Fatalf("Apply: %v", err)
	}
}

func TestRegistry_ToggleRefusesMidAnimation(t *testing.T) {
	r, _ := newTestRegistry(t)

	if !r.Toggle(1) {
		t.Fatal("toggle закрытых ворот должен открыть их")
	}
	if err := r.ToggleErr(1); !errors.Is(err, ErrAnimating) {
		t.Fatalf("toggle во время анимации: %v", err)
	}
	if !r.IsAnimating(1) {
		t.Fatal("ворота должны анимироваться")
	}

	g, _ := r.Get(1)
	g.Force(true)
	if !r.Toggle(1) || g.State() != entity.StateClosing {
		t.Fatalf("toggle открытых ворот: %s", g.State())
	}
}

func TestRegistry_DestroyedGateRules(t *testing.T) {
	r, _ := newTestRegistry(t)
	g, _ := r.Get(2)
	g.MarkDestroyed(time.Time{})

	if r.Open(2) {
		t.Fatal("разрушенные ворота нельзя открыть")
	}
	if r.ForceState(2, true) {
		t.Fatal("разрушенные ворота нельзя принудительно открыть")
	}
	if !r.ForceState(2, false) || g.State() != entity.StateClosed {
		t.Fatal("принудительное закрытие разрушенных ворот допустимо")
	}
}

func TestRegistry_ProgressAndAnimating(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.ForceState(2, true)

	if r.Progress(2) != 1 || r.Progress(1) != 0 {
		t.Fatalf("Progress: %f %f", r.Progress(2), r.Progress(1))
	}
	r.Open(1)
	animating := r.Animating()
	if len(animating) != 1 || animating[0].ID() != 1 {
		t.Fatalf("Animating: %v", animating)
	}
	if all := r.All(); len(all) != 2 || all[0].ID() != 1 || all[1].ID() != 2 {
		t.Fatalf("All должен сохранять порядок регистрации")
	}
}
