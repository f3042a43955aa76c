package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timestampLayout = time.RFC3339

// Storage bundles the connection pool with the repositories built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Users       *UserRepository
	Companies   *CompanyRepository
	Memberships *MembershipRepository
	Rooms       *RoomRepository
	Bookings    *BookingRepository
}

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		pool:        pool,
		logger:      logger,
		Users:       NewUserRepository(pool),
		Companies:   NewCompanyRepository(pool),
		Memberships: NewMembershipRepository(pool),
		Rooms:       NewRoomRepository(pool),
		Bookings:    NewBookingRepository(pool),
	}, nil
}

// Close releases the pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationsFS),
		migration.NewExecutor(s.pool.DB()),
		"migrations",
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t.UTC(), nil
}
