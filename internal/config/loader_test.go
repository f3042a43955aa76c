package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var bookingKeys = []string{
	"BOOKING_HTTP_PORT",
	"BOOKING_SQLITE_PATH",
	"BOOKING_LOG_LEVEL",
	"BOOKING_SHUTDOWN_TIMEOUT",
	"BOOKING_CONFLICT_LOOKAHEAD_DAYS",
	"BOOKING_SLOT_SEARCH_START_HOUR",
	"BOOKING_LOCK_TTL",
	"BOOKING_REDIS_ADDR",
	"BOOKING_REDIS_PASSWORD",
	"BOOKING_REDIS_DB",
	"BOOKING_EVENTS_BACKEND",
	"BOOKING_KAFKA_BROKERS",
	"BOOKING_KAFKA_TOPIC",
	"BOOKING_AMQP_URL",
	"BOOKING_AMQP_QUEUE",
}

// clearEnv blanks every BOOKING_ variable and points BOOKING_ENV_FILE at a
// file that does not exist.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range bookingKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
	t.Setenv("BOOKING_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "booking.db" {
			t.Fatalf("unexpected default path: %q", cfg.SQLitePath)
		}
		if cfg.ConflictLookaheadDays != 366 {
			t.Fatalf("expected lookahead 366, got %d", cfg.ConflictLookaheadDays)
		}
		if cfg.SlotSearchStartHour != 11 {
			t.Fatalf("expected slot search hour 11, got %d", cfg.SlotSearchStartHour)
		}
		if cfg.LockTTL != 5*time.Second {
			t.Fatalf("expected lock TTL 5s, got %s", cfg.LockTTL)
		}
		if cfg.EventsBackend != EventsBackendLog {
			t.Fatalf("expected log backend, got %q", cfg.EventsBackend)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("expected info level, got %s", cfg.LogLevel)
		}
		if cfg.RedisAddr != "" {
			t.Fatalf("expected redis to be disabled, got %q", cfg.RedisAddr)
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKING_HTTP_PORT", "9090")
		t.Setenv("BOOKING_SQLITE_PATH", "/tmp/booking.db")
		t.Setenv("BOOKING_LOG_LEVEL", "debug")
		t.Setenv("BOOKING_LOCK_TTL", "2s")
		t.Setenv("BOOKING_SHUTDOWN_TIMEOUT", "30s")
		t.Setenv("BOOKING_CONFLICT_LOOKAHEAD_DAYS", "90")
		t.Setenv("BOOKING_SLOT_SEARCH_START_HOUR", "0")
		t.Setenv("BOOKING_REDIS_ADDR", "localhost:6379")
		t.Setenv("BOOKING_REDIS_DB", "2")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.SQLitePath != "/tmp/booking.db" {
			t.Fatalf("unexpected port/path: %d %q", cfg.HTTPPort, cfg.SQLitePath)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected debug level, got %s", cfg.LogLevel)
		}
		if cfg.LockTTL != 2*time.Second || cfg.ShutdownTimeout != 30*time.Second {
			t.Fatalf("unexpected durations: %s %s", cfg.LockTTL, cfg.ShutdownTimeout)
		}
		if cfg.ConflictLookaheadDays != 90 || cfg.SlotSearchStartHour != 0 {
			t.Fatalf("unexpected lookahead/hour: %d %d", cfg.ConflictLookaheadDays, cfg.SlotSearchStartHour)
		}
		if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
			t.Fatalf("unexpected redis settings: %q %d", cfg.RedisAddr, cfg.RedisDB)
		}
	})

	t.Run("reports every invalid value together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKING_HTTP_PORT", "zero")
		t.Setenv("BOOKING_LOCK_TTL", "-1s")
		t.Setenv("BOOKING_SLOT_SEARCH_START_HOUR", "24")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid environment variables: BOOKING_HTTP_PORT, BOOKING_LOCK_TTL, BOOKING_SLOT_SEARCH_START_HOUR"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("requires broker settings for the selected backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BOOKING_EVENTS_BACKEND", "kafka")

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "missing required environment variables: BOOKING_KAFKA_BROKERS") {
			t.Fatalf("expected missing kafka brokers, got %v", err)
		}

		t.Setenv("BOOKING_KAFKA_BROKERS", "k1:9092, k2:9092 ,")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
			t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
		}

		t.Setenv("BOOKING_EVENTS_BACKEND", "nats")
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BOOKING_EVENTS_BACKEND") {
			t.Fatalf("expected unknown backend error, got %v", err)
		}
	})

	t.Run("reads values from the env file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "booking.env")
		content := "BOOKING_HTTP_PORT=7070\nBOOKING_SQLITE_PATH=/data/from-file.db\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}
		t.Setenv("BOOKING_ENV_FILE", path)
		t.Setenv("BOOKING_SQLITE_PATH", "/data/from-env.db")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected port from file, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "/data/from-env.db" {
			t.Fatalf("expected environment to win, got %q", cfg.SQLitePath)
		}
	})
}
