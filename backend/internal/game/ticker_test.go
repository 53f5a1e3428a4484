package game

import (
	"errors"
	"testing"
	"time"
)

type recordingSystem struct {
	name     string
	priority int
	calls    *[]string
	err      error
	panics   bool
}

func (s *recordingSystem) Update(time.Duration) error {
	*s.calls = append(*s.calls, s.name)
	if s.panics {
		panic("boom")
	}
	return s.err
}

func (s *recordingSystem) GetName() string  { return s.name }
func (s *recordingSystem) GetPriority() int { return s.priority }

func newTestTicker(clock *fakeClock) *GameTicker {
	gt := NewGameTicker(20, testLogger)
	gt.now = clock.Now
	gt.startTime = clock.Now()
	gt.lastTickTime = clock.Now()
	return gt
}

func TestGameTicker_SystemsRunByPriority(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	gt := newTestTicker(clock)

	var calls []string
	gt.RegisterSystem(&recordingSystem{name: "late", priority: 200, calls: &calls})
	gt.RegisterSystem(&recordingSystem{name: "early", priority: 5, calls: &calls})
	gt.RegisterSystem(&recordingSystem{name: "middle", priority: 10, calls: &calls})

	clock.Advance(50 * time.Millisecond)
	gt.executeTick(clock.Now())

	want := []string{"early", "middle", "late"}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("порядок систем %v, ожидалось %v", calls, want)
		}
	}
	if gt.GetTickCount() != 1 {
		t.Fatalf("тиков: %d", gt.GetTickCount())
	}
}

func TestGameTicker_RecoversAndCountsErrors(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	gt := newTestTicker(clock)

	var calls []string
	gt.RegisterSystem(&recordingSystem{name: "panicky", priority: 1, calls: &calls, panics: true})
	gt.RegisterSystem(&recordingSystem{name: "failing", priority: 2, calls: &calls, err: errors.New("fail")})
	gt.RegisterSystem(&recordingSystem{name: "healthy", priority: 3, calls: &calls})

	clock.Advance(50 * time.Millisecond)
	gt.executeTick(clock.Now())

	if len(calls) != 3 {
		t.Fatalf("паника одной системы не должна останавливать остальные: %v", calls)
	}
	for _, name := range []string{"panicky", "failing"} {
		m, ok := gt.GetPerformanceMonitor().GetSystemMetrics(name)
		if !ok || m.Errors != 1 {
			t.Fatalf("ошибки системы %s: %+v", name, m)
		}
	}
}

func TestGameTicker_SystemsStatsReportEverySystem(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	gt := newTestTicker(clock)

	var calls []string
	gt.RegisterSystem(&recordingSystem{name: "commands", priority: 5, calls: &calls})
	gt.RegisterSystem(&recordingSystem{name: "failing", priority: 6, calls: &calls, err: errors.New("fail")})

	for i := 0; i < 3; i++ {
		clock.Advance(50 * time.Millisecond)
		gt.executeTick(clock.Now())
	}

	stats := gt.GetPerformanceMonitor().GetSystemsStats()
	if len(stats) != 2 {
		t.Fatalf("систем в статистике: %d", len(stats))
	}
	commands, ok := stats["commands"].(map[string]interface{})
	if !ok || commands["total_executions"] != uint64(3) || commands["errors"] != uint64(0) {
		t.Fatalf("статистика commands: %v", stats["commands"])
	}
	failing, ok := stats["failing"].(map[string]interface{})
	if !ok || failing["errors"] != uint64(3) {
		t.Fatalf("статистика failing: %v", stats["failing"])
	}
}

func TestGameTicker_ScheduleAfterRunsOnTick(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	gt := newTestTicker(clock)

	var order []string
	gt.ScheduleAfter(200*time.Millisecond, "second", func() { order = append(order, "second") })
	gt.ScheduleAfter(100*time.Millisecond, "first", func() { order = append(order, "first") })
	gt.ScheduleAfter(time.Hour, "later", func() { order = append(order, "later") })
	gt.ScheduleAfter(0, "panics", func() { panic("task") })

	clock.Advance(50 * time.Millisecond)
	gt.executeTick(clock.Now())
	if len(order) != 0 {
		t.Fatalf("задачи выполнены раньше срока: %v", order)
	}

	clock.Advance(200 * time.Millisecond)
	gt.executeTick(clock.Now())
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("порядок задач: %v", order)
	}
	if gt.PendingTasks() != 1 {
		t.Fatalf("осталось задач: %d", gt.PendingTasks())
	}
}

func TestGameTicker_ActualTPSAndDegraded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	gt := newTestTicker(clock)

	if gt.ActualTPS() != 20 {
		t.Fatalf("до первого тика TPS равен целевому: %f", gt.ActualTPS())
	}

	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		gt.executeTick(clock.Now())
	}
	if tps := gt.ActualTPS(); tps < 9.99 || tps > 10.01 {
		t.Fatalf("ActualTPS = %f, ожидалось 10", tps)
	}
	if !gt.Degraded(18) {
		t.Fatal("10 TPS ниже порога 18")
	}
	if gt.Degraded(5) {
		t.Fatal("10 TPS выше порога 5")
	}
}

func TestGameTicker_StartStop(t *testing.T) {
	gt := NewGameTicker(100, testLogger)

	done := make(chan struct{})
	gt.ScheduleAfter(0, "signal", func() { close(done) })

	if err := gt.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("задача не выполнена работающим циклом")
	}
	gt.Stop()
	if stats := gt.GetStats(); stats["is_running"].(bool) {
		t.Fatal("цикл должен быть остановлен")
	}
}
