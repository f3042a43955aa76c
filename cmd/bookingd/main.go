package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/events"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/locking"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
	"github.com/example/room-booking/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("booking service stopped with error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired service graph and the resources it must release.
type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Error("failed to release resource", "error", err)
		}
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr, "events_backend", cfg.EventsBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.close(logger)
			a = nil
		}
	}()

	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return a, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, storage.Close)

	if err = storage.Migrate(ctx); err != nil {
		return a, fmt.Errorf("apply migrations: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, closeLocker)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, publisher.Close)

	bookingService := application.NewBookingService(application.BookingServiceConfig{
		Bookings:            storage.Bookings,
		Rooms:               storage.Rooms,
		Memberships:         storage.Memberships,
		Detector:            scheduler.NewDetector(cfg.ConflictLookaheadDays),
		Locker:              locker,
		Publisher:           publisher,
		SlotSearchStartHour: cfg.SlotSearchStartHour,
		LockTimeout:         cfg.LockTTL,
		Logger:              logger,
	})
	roomService := application.NewRoomServiceWithLogger(storage.Rooms, storage.Memberships, publisher, nil, nil, logger)
	companyService := application.NewCompanyService(application.CompanyServiceConfig{
		Users:       storage.Users,
		Companies:   storage.Companies,
		Memberships: storage.Memberships,
		Logger:      logger,
	})

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:  httptransport.NewBookingHandler(bookingService, logger),
		Rooms:     httptransport.NewRoomHandler(roomService, logger),
		Companies: httptransport.NewCompanyHandler(companyService, logger),
		Health:    storage.Ping,
		Logger:    logger,
	})
	return a, nil
}

// newLocker returns the Redis locker when BOOKING_REDIS_ADDR is set and an
// in-process locker otherwise.
func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (locking.Locker, func() error, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-process room locks")
		return locking.NewLocalLocker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis room locks", "addr", cfg.RedisAddr)
	return locking.NewRedisLocker(client, cfg.LockTTL, logger), client.Close, nil
}

func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsBackendKafka:
		publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case config.EventsBackendAMQP:
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case config.EventsBackendLog, "":
		return events.NewLogPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}
