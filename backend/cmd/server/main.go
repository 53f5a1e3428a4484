package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"x-gates/backend/internal/adapter/in/ws"
	"x-gates/backend/internal/adapter/out/persistence"
	"x-gates/backend/internal/adapter/out/persistence/postgres"
	"x-gates/backend/internal/adapter/out/persistence/sqlite"
	"x-gates/backend/internal/config"
	"x-gates/backend/internal/core/domain/collision"
	"x-gates/backend/internal/core/domain/entity"
	"x-gates/backend/internal/core/domain/service"
	persistenceport "x-gates/backend/internal/core/port/out/persistence"
	"x-gates/backend/internal/game"
	"x-gates/backend/internal/gatedef"
	"x-gates/backend/internal/telemetry"
	"x-gates/backend/internal/world"
)

const serviceName = "x-gates"

func main() {
	logger := log.New(os.Stdout, "[X-Gates] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Ошибка конфигурации: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("Сервер остановлен с ошибкой: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (persistenceport.Store, error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.DBTypeSQLite:
		return sqlite.Open(cfg.SQLitePath)
	default:
		return nil, nil
	}
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Printf("Ошибка выгрузки трассировки: %v", err)
		}
	}()

	tm := telemetry.NewTelemetryManager(logger)

	// Хранилище и очередь записи
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	var persister persistenceport.Persister
	var outbox *persistence.Outbox
	if store != nil {
		defer store.Close()
		outbox = persistence.NewOutbox(store, persistence.OutboxConfig{
			Capacity: cfg.OutboxSize,
			Timeout:  cfg.PersistTTL,
		}, tm, logger)
		persister = outbox
		logger.Printf("Хранилище состояния: %s", cfg.DBType)
	} else {
		logger.Printf("Хранилище отключено, состояние ворот не сохраняется")
	}

	// Мир блоков и акторы
	blockWorld := world.NewBlockWorld(cfg.ChunkSize, logger)
	actors := world.NewActorGrid(4)

	gates, err := gatedef.LoadFile(cfg.DefinitionsFile)
	if err != nil {
		return err
	}

	gameTicker := game.NewGameTicker(cfg.TargetTPS, logger)
	registry := service.NewGateRegistry(gameTicker.TickDuration(), time.Now, logger)
	placer := service.NewBlockPlacer(blockWorld, logger)

	wsAdapter := ws.NewWSAdapter(nil, actors, logger)
	health := service.NewHealthLifecycle(placer, persister, wsAdapter, tm, gameTicker, time.Now, logger)

	for _, g := range gates {
		if err := registry.Register(g); err != nil {
			return err
		}
		blockWorld.PreloadAround(g.Config().Anchor, cfg.PreloadRadius)
	}

	if store != nil {
		if err := restoreState(ctx, store, registry, health, logger); err != nil {
			return err
		}
	}
	for _, g := range registry.All() {
		placer.Reconcile(g)
	}
	logger.Printf("Загружено ворот: %d, чанков: %d, блоков: %d",
		registry.Len(), blockWorld.LoadedChunks(), blockWorld.BlockCount())

	commands := game.NewCommandSystem(cfg.CommandQueueSize, registry, health, placer, wsAdapter, logger)
	wsAdapter.SetControl(commands)

	animation := game.NewAnimationSystem(
		registry,
		placer,
		actors,
		collision.NewPusher(cfg.PushMagnitude),
		wsAdapter,
		gameTicker,
		tm,
		game.AnimationConfig{
			LagSampleInterval:  cfg.LagSampleInterval,
			LagTPSThreshold:    cfg.LagTPSThreshold,
			CollisionLookahead: cfg.CollisionLookahead,
			CollisionThreshold: cfg.CollisionThreshold,
			ActorScanMargin:    cfg.ActorScanMargin,
		},
		logger,
	)

	metrics := game.NewGateMetricsSystem(gameTicker, registry, placer, tm, logger)

	gameTicker.RegisterSystem(commands)  // Приоритет 5
	gameTicker.RegisterSystem(animation) // Приоритет 10
	gameTicker.RegisterSystem(metrics)   // Приоритет 200

	if err := gameTicker.Start(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsAdapter.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := gameTicker.GetStats()
		stats["systems"] = gameTicker.GetPerformanceMonitor().GetSystemsStats()
		stats["world"] = blockWorld.GetStats()
		stats["ws_clients"] = wsAdapter.ClientCount()
		if outbox != nil {
			written, failed, dropped := outbox.Stats()
			stats["outbox"] = map[string]interface{}{
				"pending": outbox.Pending(),
				"written": written,
				"failed":  failed,
				"dropped": dropped,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		data, err := tm.GetTelemetryJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(data))
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("Сервер слушает %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Printf("Получен сигнал остановки")
	case err := <-serveErr:
		if err != nil {
			logger.Printf("Ошибка HTTP сервера: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Ошибка остановки HTTP сервера: %v", err)
	}
	wsAdapter.Shutdown()
	gameTicker.Stop()

	if outbox != nil {
		if err := outbox.Close(shutdownCtx); err != nil {
			logger.Printf("Очередь записи не дописана: %v", err)
		}
	}
	logger.Printf("Сервер остановлен")
	return nil
}

// restoreState применяет сохраненное здоровье и разрушение до первого тика
func restoreState(ctx context.Context, store persistenceport.Store, registry *service.GateRegistry, health *service.HealthLifecycle, logger *log.Logger) error {
	records, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, rec := range records {
		g, ok := registry.Get(rec.GateID)
		if !ok {
			logger.Printf("Сохраненное состояние неизвестных ворот %d пропущено", rec.GateID)
			continue
		}
		health.Restore(g, rec)
		restored++
		if g.Destroyed() {
			logRespawn(logger, g)
		}
	}
	logger.Printf("Восстановлено состояние ворот: %d", restored)
	return nil
}

func logRespawn(logger *log.Logger, g *entity.Gate) {
	if g.RespawnAt().IsZero() {
		logger.Printf("Ворота %d (%s) разрушены без респавна", g.ID(), g.Name())
		return
	}
	logger.Printf("Ворота %d (%s) разрушены, респавн в %s", g.ID(), g.Name(), g.RespawnAt().Format(time.RFC3339))
}
