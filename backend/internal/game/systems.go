package game

import (
	"log"
	"time"

	"x-gates/backend/internal/core/domain/service"
	"x-gates/backend/internal/telemetry"
)

// GateMetricsSystem система сбора метрик симуляции ворот
type GateMetricsSystem struct {
	name       string
	priority   int
	gameTicker *GameTicker
	registry   *service.GateRegistry
	placer     *service.BlockPlacer
	telemetry  *telemetry.TelemetryManager
	logger     *log.Logger

	// Счетчики для метрик
	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGateMetricsSystem создает новую систему сбора метрик
func NewGateMetricsSystem(
	gameTicker *GameTicker,
	registry *service.GateRegistry,
	placer *service.BlockPlacer,
	tm *telemetry.TelemetryManager,
	logger *log.Logger,
) *GateMetricsSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &GateMetricsSystem{
		name:            "GateMetricsSystem",
		priority:        200, // Очень низкий приоритет - метрики в самом конце
		gameTicker:      gameTicker,
		registry:        registry,
		placer:          placer,
		telemetry:       tm,
		logger:          logger,
		metricsInterval: 30 * time.Second, // Логируем метрики каждые 30 секунд
	}
}

// Update собирает и логирует метрики
func (gms *GateMetricsSystem) Update(deltaTime time.Duration) error {
	now := time.Now()
	if now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	stats := gms.gameTicker.GetStats()
	animating := len(gms.registry.Animating())

	gms.logger.Printf("[GateMetrics] TPS: %.1f/%d, Ворот: %d, В движении: %d, Отложено: %d, Тиков: %d, Время тика: %v",
		stats["actual_tps"], stats["target_tps"], gms.registry.Len(), animating,
		gms.placer.Pending(), stats["tick_count"], stats["average_tick_time"])

	// Проверяем производительность
	if actualTPS := stats["actual_tps"].(float64); actualTPS < float64(stats["target_tps"].(int))*0.9 {
		gms.logger.Printf("[GateMetrics] ПРЕДУПРЕЖДЕНИЕ: TPS снижен до %.1f", actualTPS)
	}

	if gms.telemetry != nil {
		gms.telemetry.PrintSummary()
	}
	return nil
}

// GetName возвращает имя системы
func (gms *GateMetricsSystem) GetName() string {
	return gms.name
}

// GetPriority возвращает приоритет системы
func (gms *GateMetricsSystem) GetPriority() int {
	return gms.priority
}
