package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Тип хранилища состояния ворот
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeNone     = "none"
)

// Config настройки сервера ворот из переменных окружения
type Config struct {
	// ListenAddr адрес HTTP/WebSocket сервера
	ListenAddr string `env:"X_GATES_LISTEN_ADDR" envDefault:":8080"`

	// TargetTPS целевая частота тиков симуляции
	TargetTPS int `env:"X_GATES_TARGET_TPS" envDefault:"20"`

	// DefinitionsFile YAML файл с описанием ворот
	DefinitionsFile string `env:"X_GATES_DEFINITIONS_FILE" envDefault:"gates.yaml"`

	// Хранилище
	DBType      string        `env:"X_GATES_DB_TYPE" envDefault:"sqlite"`
	SQLitePath  string        `env:"X_GATES_SQLITE_PATH" envDefault:"x-gates.db"`
	DatabaseURL string        `env:"DATABASE_URL"`
	OutboxSize  int           `env:"X_GATES_OUTBOX_CAPACITY" envDefault:"1024"`
	PersistTTL  time.Duration `env:"X_GATES_PERSIST_TIMEOUT" envDefault:"5s"`

	// Планировщик анимации
	LagSampleInterval  time.Duration `env:"X_GATES_LAG_SAMPLE_INTERVAL" envDefault:"5s"`
	LagTPSThreshold    float64       `env:"X_GATES_LAG_TPS_THRESHOLD" envDefault:"18"`
	PushMagnitude      float64       `env:"X_GATES_PUSH_MAGNITUDE" envDefault:"0.5"`
	CollisionLookahead int           `env:"X_GATES_COLLISION_LOOKAHEAD" envDefault:"5"`
	CollisionThreshold int           `env:"X_GATES_COLLISION_THRESHOLD" envDefault:"3"`
	ActorScanMargin    float64       `env:"X_GATES_ACTOR_SCAN_MARGIN" envDefault:"2"`
	CommandQueueSize   int           `env:"X_GATES_COMMAND_QUEUE" envDefault:"256"`

	// Мир
	ChunkSize     int `env:"X_GATES_CHUNK_SIZE" envDefault:"16"`
	PreloadRadius int `env:"X_GATES_CHUNK_PRELOAD_RADIUS" envDefault:"1"`

	// OTLPEndpoint пустой выключает трассировку
	OTLPEndpoint string `env:"X_GATES_OTEL_ENDPOINT"`
}

// ParseEnv загружает переменные окружения в target
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load читает и проверяет конфигурацию
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет значения
func (c Config) Validate() error {
	if c.TargetTPS <= 0 {
		return fmt.Errorf("target tps must be positive, got %d", c.TargetTPS)
	}
	switch c.DBType {
	case DBTypeSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DBTypePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres")
		}
	case DBTypeNone:
	default:
		return fmt.Errorf("unknown db type %q", c.DBType)
	}
	if c.CollisionLookahead < 0 || c.CollisionThreshold < 0 {
		return fmt.Errorf("collision lookahead and threshold must not be negative")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// TickDuration длительность тика при TargetTPS
func (c Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TargetTPS)
}
