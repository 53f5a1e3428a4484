package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetTPS != 20 || cfg.TickDuration() != 50*time.Millisecond {
		t.Fatalf("TPS по умолчанию: %d, тик %v", cfg.TargetTPS, cfg.TickDuration())
	}
	if cfg.DBType != DBTypeSQLite || cfg.ChunkSize != 16 || cfg.LagTPSThreshold != 18 {
		t.Fatalf("значения по умолчанию: %+v", cfg)
	}
	if cfg.LagSampleInterval != 5*time.Second || cfg.PushMagnitude != 0.5 {
		t.Fatalf("параметры анимации: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("X_GATES_TARGET_TPS", "40")
	t.Setenv("X_GATES_DB_TYPE", " Postgres ")
	t.Setenv("DATABASE_URL", "postgres://gates@localhost/gates")
	t.Setenv("X_GATES_LAG_SAMPLE_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetTPS != 40 || cfg.DBType != DBTypePostgres || cfg.LagSampleInterval != 2*time.Second {
		t.Fatalf("переопределения: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad int", "X_GATES_TARGET_TPS", "fast", "parse env:"},
		{"zero tps", "X_GATES_TARGET_TPS", "0", "target tps"},
		{"unknown db", "X_GATES_DB_TYPE", "mongo", "unknown db type"},
		{"postgres without url", "X_GATES_DB_TYPE", "postgres", "DATABASE_URL"},
		{"zero chunk", "X_GATES_CHUNK_SIZE", "0", "chunk size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			t.Setenv("DATABASE_URL", "")
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("ожидалась ошибка %q, получено %v", tt.want, err)
			}
		})
	}
}
