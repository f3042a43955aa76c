package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Event backends accepted by BOOKING_EVENTS_BACKEND.
const (
	EventsBackendLog   = "log"
	EventsBackendKafka = "kafka"
	EventsBackendAMQP  = "amqp"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	ConflictLookaheadDays int
	SlotSearchStartHour   int
	LockTTL               time.Duration

	// RedisAddr enables the distributed room lock when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EventsBackend string
	KafkaBrokers  []string
	KafkaTopic    string
	AMQPURL       string
	AMQPQueue     string
}

// Load parses configuration values from the current process environment.
//
// Variables from the file named by BOOKING_ENV_FILE (default ".env") are
// loaded first without overriding anything already set. A missing file is
// ignored. All missing and invalid entries are reported in one error.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("BOOKING_ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	cfg := Config{
		HTTPPort:              8080,
		SQLitePath:            "booking.db",
		LogLevel:              slog.LevelInfo,
		ShutdownTimeout:       10 * time.Second,
		ConflictLookaheadDays: 366,
		SlotSearchStartHour:   11,
		LockTTL:               5 * time.Second,
		EventsBackend:         EventsBackendLog,
		KafkaTopic:            "booking-events",
		AMQPQueue:             "booking-events",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	positiveInt := func(key string, dst *int) {
		if value := lookup(key); value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = parsed
		}
	}
	positiveDuration := func(key string, dst *time.Duration) {
		if value := lookup(key); value != "" {
			parsed, err := time.ParseDuration(value)
			if err != nil || parsed <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = parsed
		}
	}

	positiveInt("BOOKING_HTTP_PORT", &cfg.HTTPPort)
	positiveInt("BOOKING_CONFLICT_LOOKAHEAD_DAYS", &cfg.ConflictLookaheadDays)
	positiveDuration("BOOKING_LOCK_TTL", &cfg.LockTTL)
	positiveDuration("BOOKING_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if path := lookup("BOOKING_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if level := lookup("BOOKING_LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			invalid = append(invalid, "BOOKING_LOG_LEVEL")
		}
	}

	if value := lookup("BOOKING_SLOT_SEARCH_START_HOUR"); value != "" {
		hour, err := strconv.Atoi(value)
		if err != nil || hour < 0 || hour > 23 {
			invalid = append(invalid, "BOOKING_SLOT_SEARCH_START_HOUR")
		} else {
			cfg.SlotSearchStartHour = hour
		}
	}

	cfg.RedisAddr = lookup("BOOKING_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("BOOKING_REDIS_PASSWORD")
	if value := lookup("BOOKING_REDIS_DB"); value != "" {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			invalid = append(invalid, "BOOKING_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if backend := lookup("BOOKING_EVENTS_BACKEND"); backend != "" {
		cfg.EventsBackend = strings.ToLower(backend)
	}
	if brokers := lookup("BOOKING_KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	if topic := lookup("BOOKING_KAFKA_TOPIC"); topic != "" {
		cfg.KafkaTopic = topic
	}
	cfg.AMQPURL = lookup("BOOKING_AMQP_URL")
	if queue := lookup("BOOKING_AMQP_QUEUE"); queue != "" {
		cfg.AMQPQueue = queue
	}

	switch cfg.EventsBackend {
	case EventsBackendLog:
	case EventsBackendKafka:
		if len(cfg.KafkaBrokers) == 0 {
			missing = append(missing, "BOOKING_KAFKA_BROKERS")
		}
	case EventsBackendAMQP:
		if cfg.AMQPURL == "" {
			missing = append(missing, "BOOKING_AMQP_URL")
		}
	default:
		invalid = append(invalid, "BOOKING_EVENTS_BACKEND")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required environment variables: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
