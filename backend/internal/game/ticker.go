package game

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// GameTicker основной менеджер цикла симуляции.
// Все системы и отложенные задачи выполняются в одной горутине цикла.
type GameTicker struct {
	// Конфигурация
	targetTPS    int           // Целевая частота тиков в секунду
	tickDuration time.Duration // Длительность одного тика
	maxTickTime  time.Duration // Максимальное время на один тик

	// Состояние
	isRunning    bool
	tickCount    uint64
	startTime    time.Time
	lastTickTime time.Time

	// Системы
	systems      []TickSystem
	systemsMutex sync.RWMutex

	// Одноразовые задачи, которые нужно выполнить в потоке тиков
	tasks      []scheduledTask
	tasksMutex sync.Mutex
	nextTaskID uint64

	// Мониторинг производительности
	perfMonitor *PerformanceMonitor

	// Управление
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Метрики
	statsMutex      sync.RWMutex
	averageTickTime time.Duration
	averageInterval time.Duration
	maxObservedTick time.Duration
	skippedTicks    uint64

	// Логирование
	logger           *log.Logger
	warningThreshold time.Duration

	now func() time.Time
}

// TickSystem интерфейс для всех систем симуляции
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

type scheduledTask struct {
	id   uint64
	name string
	due  time.Time
	fn   func()
}

// PerformanceMonitor отслеживает производительность каждой системы
type PerformanceMonitor struct {
	systemMetrics map[string]*SystemMetrics
	mutex         sync.RWMutex

	// Настройки мониторинга
	metricsWindow     int           // Количество последних тиков для усреднения
	warningThreshold  time.Duration // Порог предупреждения для системы
	criticalThreshold time.Duration // Критический порог
}

// SystemMetrics метрики производительности системы
type SystemMetrics struct {
	Name              string
	LastExecutionTime time.Duration
	AverageTime       time.Duration
	MaxTime           time.Duration
	TotalExecutions   uint64
	Errors            uint64

	// Скользящее окно для вычисления среднего
	recentTimes  []time.Duration
	recentIndex  int
	windowFilled bool
}

// NewGameTicker создает новый тикер симуляции
func NewGameTicker(targetTPS int, logger *log.Logger) *GameTicker {
	if targetTPS <= 0 {
		targetTPS = 20 // По умолчанию 20 TPS
	}

	if logger == nil {
		logger = log.Default()
	}

	tickDuration := time.Second / time.Duration(targetTPS)
	maxTickTime := tickDuration * 2 // Максимум в 2 раза больше целевого времени

	ctx, cancel := context.WithCancel(context.Background())

	return &GameTicker{
		targetTPS:        targetTPS,
		tickDuration:     tickDuration,
		maxTickTime:      maxTickTime,
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(50, tickDuration/4), // Предупреждение при 25% от тика
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
		logger:           logger,
		warningThreshold: tickDuration / 2, // Предупреждение при 50% от времени тика
		now:              time.Now,
	}
}

// NewPerformanceMonitor создает новый монитор производительности
func NewPerformanceMonitor(windowSize int, warningThreshold time.Duration) *PerformanceMonitor {
	return &PerformanceMonitor{
		systemMetrics:     make(map[string]*SystemMetrics),
		metricsWindow:     windowSize,
		warningThreshold:  warningThreshold,
		criticalThreshold: warningThreshold * 2,
	}
}

// Start запускает цикл симуляции
func (gt *GameTicker) Start() error {
	if gt.isRunning {
		return nil // Уже запущен
	}

	gt.isRunning = true
	gt.startTime = gt.now()
	gt.lastTickTime = gt.startTime

	gt.logger.Printf("[GameTicker] Запуск цикла симуляции: %d TPS (тик каждые %v)",
		gt.targetTPS, gt.tickDuration)

	go gt.gameLoop()

	return nil
}

// Stop останавливает цикл и ждет завершения текущего тика
func (gt *GameTicker) Stop() {
	if !gt.isRunning {
		return
	}

	gt.logger.Printf("[GameTicker] Остановка цикла симуляции (выполнено тиков: %d)", gt.GetTickCount())

	gt.cancel()
	<-gt.done
	gt.isRunning = false
}

// RegisterSystem добавляет систему в цикл
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()

	// Добавляем систему
	gt.systems = append(gt.systems, system)

	// Сортируем по приоритету (меньше = выше приоритет)
	for i := len(gt.systems) - 1; i > 0; i-- {
		if gt.systems[i].GetPriority() < gt.systems[i-1].GetPriority() {
			gt.systems[i], gt.systems[i-1] = gt.systems[i-1], gt.systems[i]
		} else {
			break
		}
	}

	// Инициализируем метрики для системы
	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Printf("[GameTicker] Зарегистрирована система: %s (приоритет: %d)",
		system.GetName(), system.GetPriority())
}

// ScheduleAfter планирует одноразовый вызов fn в потоке тиков не раньше чем через delay.
// Безопасно вызывать из любой горутины.
func (gt *GameTicker) ScheduleAfter(delay time.Duration, name string, fn func()) {
	if fn == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}

	gt.tasksMutex.Lock()
	defer gt.tasksMutex.Unlock()

	gt.nextTaskID++
	gt.tasks = append(gt.tasks, scheduledTask{
		id:   gt.nextTaskID,
		name: name,
		due:  gt.now().Add(delay),
		fn:   fn,
	})
}

// PendingTasks количество ожидающих задач
func (gt *GameTicker) PendingTasks() int {
	gt.tasksMutex.Lock()
	defer gt.tasksMutex.Unlock()
	return len(gt.tasks)
}

// gameLoop основной цикл
func (gt *GameTicker) gameLoop() {
	defer close(gt.done)

	ticker := time.NewTicker(gt.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-gt.ctx.Done():
			return

		case tickTime := <-ticker.C:
			gt.executeTick(tickTime)
		}
	}
}

// executeTick выполняет один тик: сначала созревшие задачи, затем системы
func (gt *GameTicker) executeTick(tickTime time.Time) {
	tickStart := gt.now()
	deltaTime := tickTime.Sub(gt.lastTickTime)

	// Проверяем, не слишком ли большая задержка между тиками
	if deltaTime > gt.tickDuration*2 {
		gt.logger.Printf("[GameTicker] ПРЕДУПРЕЖДЕНИЕ: Большая задержка между тиками: %v (ожидалось: %v)",
			deltaTime, gt.tickDuration)
		gt.statsMutex.Lock()
		gt.skippedTicks++
		gt.statsMutex.Unlock()
	}

	gt.statsMutex.Lock()
	gt.tickCount++
	gt.updateInterval(deltaTime)
	gt.statsMutex.Unlock()
	gt.lastTickTime = tickTime

	gt.runDueTasks(tickTime)

	// Выполняем все системы
	gt.executeAllSystems(deltaTime)

	// Измеряем общее время тика
	totalTickTime := gt.now().Sub(tickStart)
	gt.updateTickMetrics(totalTickTime)

	// Проверяем производительность
	gt.checkPerformance(totalTickTime)
}

// runDueTasks выполняет задачи со сроком не позже tickTime в порядке срока
func (gt *GameTicker) runDueTasks(tickTime time.Time) {
	gt.tasksMutex.Lock()
	var due []scheduledTask
	remaining := gt.tasks[:0]
	for _, task := range gt.tasks {
		if !task.due.After(tickTime) {
			due = append(due, task)
		} else {
			remaining = append(remaining, task)
		}
	}
	gt.tasks = remaining
	gt.tasksMutex.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})

	for _, task := range due {
		gt.runTask(task)
	}
}

func (gt *GameTicker) runTask(task scheduledTask) {
	defer func() {
		if r := recover(); r != nil {
			gt.logger.Printf("[GameTicker] КРИТИЧЕСКАЯ ОШИБКА в задаче %s: %v", task.name, r)
		}
	}()
	task.fn()
}

// executeAllSystems выполняет все зарегистрированные системы
func (gt *GameTicker) executeAllSystems(deltaTime time.Duration) {
	gt.systemsMutex.RLock()
	systems := make([]TickSystem, len(gt.systems))
	copy(systems, gt.systems)
	gt.systemsMutex.RUnlock()

	for _, system := range systems {
		gt.executeSystem(system, deltaTime)
	}
}

// executeSystem выполняет одну систему с замером времени
func (gt *GameTicker) executeSystem(system TickSystem, deltaTime time.Duration) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Printf("[GameTicker] КРИТИЧЕСКАЯ ОШИБКА в системе %s: %v", systemName, r)
			gt.perfMonitor.recordError(systemName)
		}
	}()

	// Выполняем систему
	err := system.Update(deltaTime)

	executionTime := time.Since(systemStart)

	// Записываем метрики
	gt.perfMonitor.recordExecution(systemName, executionTime)

	// Обрабатываем ошибки
	if err != nil {
		gt.logger.Printf("[GameTicker] Ошибка в системе %s: %v", systemName, err)
		gt.perfMonitor.recordError(systemName)
	}
}

// TickDuration длительность одного тика
func (gt *GameTicker) TickDuration() time.Duration {
	return gt.tickDuration
}

// TargetTPS целевая частота тиков
func (gt *GameTicker) TargetTPS() int {
	return gt.targetTPS
}

// ActualTPS измеренная частота тиков по скользящему среднему интервала.
// До первого тика равна целевой.
func (gt *GameTicker) ActualTPS() float64 {
	gt.statsMutex.RLock()
	defer gt.statsMutex.RUnlock()

	if gt.averageInterval <= 0 {
		return float64(gt.targetTPS)
	}
	return float64(time.Second) / float64(gt.averageInterval)
}

// Degraded true, если измеренный TPS ниже threshold
func (gt *GameTicker) Degraded(threshold float64) bool {
	return gt.ActualTPS() < threshold
}

// GetStats возвращает статистику цикла
func (gt *GameTicker) GetStats() map[string]interface{} {
	gt.statsMutex.RLock()
	uptime := gt.now().Sub(gt.startTime)
	stats := map[string]interface{}{
		"target_tps":        gt.targetTPS,
		"tick_count":        gt.tickCount,
		"uptime_seconds":    uptime.Seconds(),
		"average_tick_time": gt.averageTickTime,
		"max_observed_tick": gt.maxObservedTick,
		"skipped_ticks":     gt.skippedTicks,
		"is_running":        gt.isRunning,
	}
	gt.statsMutex.RUnlock()

	stats["actual_tps"] = gt.ActualTPS()
	stats["pending_tasks"] = gt.PendingTasks()

	gt.systemsMutex.RLock()
	stats["systems_count"] = len(gt.systems)
	gt.systemsMutex.RUnlock()

	return stats
}

// GetTickCount возвращает текущее количество тиков
func (gt *GameTicker) GetTickCount() uint64 {
	gt.statsMutex.RLock()
	defer gt.statsMutex.RUnlock()
	return gt.tickCount
}

// GetPerformanceMonitor монитор производительности систем
func (gt *GameTicker) GetPerformanceMonitor() *PerformanceMonitor {
	return gt.perfMonitor
}

// Вспомогательные методы для мониторинга производительности
func (pm *PerformanceMonitor) initSystemMetrics(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.systemMetrics[systemName] = &SystemMetrics{
		Name:        systemName,
		recentTimes: make([]time.Duration, pm.metricsWindow),
	}
}

func (pm *PerformanceMonitor) recordExecution(systemName string, executionTime time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	metrics, exists := pm.systemMetrics[systemName]
	if !exists {
		return
	}

	metrics.LastExecutionTime = executionTime
	metrics.TotalExecutions++

	// Обновляем максимальное время
	if executionTime > metrics.MaxTime {
		metrics.MaxTime = executionTime
	}

	// Добавляем в скользящее окно
	metrics.recentTimes[metrics.recentIndex] = executionTime
	metrics.recentIndex = (metrics.recentIndex + 1) % pm.metricsWindow

	if !metrics.windowFilled && metrics.recentIndex == 0 {
		metrics.windowFilled = true
	}

	// Пересчитываем среднее время
	pm.recalculateAverage(metrics)
}

func (pm *PerformanceMonitor) recordError(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if metrics, exists := pm.systemMetrics[systemName]; exists {
		metrics.Errors++
	}
}

func (pm *PerformanceMonitor) recalculateAverage(metrics *SystemMetrics) {
	var total time.Duration
	var count int

	limit := pm.metricsWindow
	if !metrics.windowFilled {
		limit = metrics.recentIndex
	}

	for i := 0; i < limit; i++ {
		total += metrics.recentTimes[i]
		count++
	}

	if count > 0 {
		metrics.AverageTime = total / time.Duration(count)
	}
}

// GetSystemMetrics копия метрик системы
func (pm *PerformanceMonitor) GetSystemMetrics(systemName string) (SystemMetrics, bool) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	metrics, ok := pm.systemMetrics[systemName]
	if !ok {
		return SystemMetrics{}, false
	}
	return SystemMetrics{
		Name:              metrics.Name,
		LastExecutionTime: metrics.LastExecutionTime,
		AverageTime:       metrics.AverageTime,
		MaxTime:           metrics.MaxTime,
		TotalExecutions:   metrics.TotalExecutions,
		Errors:            metrics.Errors,
	}, true
}

// GetSystemsStats метрики всех систем для /healthz
func (pm *PerformanceMonitor) GetSystemsStats() map[string]interface{} {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	systemsStats := make(map[string]interface{})

	for name, metrics := range pm.systemMetrics {
		systemsStats[name] = map[string]interface{}{
			"last_execution_time": metrics.LastExecutionTime,
			"average_time":        metrics.AverageTime,
			"max_time":            metrics.MaxTime,
			"total_executions":    metrics.TotalExecutions,
			"errors":              metrics.Errors,
		}
	}

	return systemsStats
}

// updateInterval ведет скользящее среднее интервала между тиками; вызывается под statsMutex
func (gt *GameTicker) updateInterval(deltaTime time.Duration) {
	if deltaTime <= 0 {
		return
	}
	if gt.averageInterval == 0 {
		gt.averageInterval = deltaTime
	} else {
		gt.averageInterval = (gt.averageInterval*9 + deltaTime) / 10
	}
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.statsMutex.Lock()
	defer gt.statsMutex.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}

	// Простое скользящее среднее
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	if tickTime > gt.maxTickTime {
		gt.logger.Printf("[GameTicker] КРИТИЧЕСКОЕ ПРЕДУПРЕЖДЕНИЕ: Тик превысил максимальное время! %v > %v (цель: %v)",
			tickTime, gt.maxTickTime, gt.tickDuration)
	} else if tickTime > gt.warningThreshold {
		gt.logger.Printf("[GameTicker] ПРЕДУПРЕЖДЕНИЕ: Медленный тик: %v (цель: %v)",
			tickTime, gt.tickDuration)
	}
}
