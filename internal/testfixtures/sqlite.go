package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
	"github.com/example/room-booking/internal/recurrence"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database file.
type SQLiteHarness struct {
	Storage     *sqlite.Storage
	Users       persistence.UserRepository
	Companies   persistence.CompanyRepository
	Memberships persistence.MembershipRepository
	Rooms       persistence.RoomRepository
	Bookings    persistence.BookingRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir. Close is
// registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "booking.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := context.Background()
	storage, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:     storage,
		Users:       storage.Users,
		Companies:   storage.Companies,
		Memberships: storage.Memberships,
		Rooms:       storage.Rooms,
		Bookings:    storage.Bookings,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUser stores user.
func (h *SQLiteHarness) SeedUser(tb testing.TB, user UserFixture) UserFixture {
	tb.Helper()
	if err := h.Users.UpsertUser(context.Background(), user.Persistence()); err != nil {
		tb.Fatalf("failed to seed user %s: %v", user.ID, err)
	}
	return user
}

// SeedCompany stores company with its creator as admin. The creator must
// already exist.
func (h *SQLiteHarness) SeedCompany(tb testing.TB, company CompanyFixture) CompanyFixture {
	tb.Helper()
	owner := persistence.Membership{UserID: company.CreatedBy, IsAdmin: true, JoinedAt: company.CreatedAt}
	if err := h.Companies.CreateCompany(context.Background(), company.Persistence(), owner); err != nil {
		tb.Fatalf("failed to seed company %s: %v", company.ID, err)
	}
	return company
}

// SeedMember adds userID to companyID.
func (h *SQLiteHarness) SeedMember(tb testing.TB, companyID, userID string, isAdmin bool) {
	tb.Helper()
	membership := persistence.Membership{UserID: userID, CompanyID: companyID, IsAdmin: isAdmin, JoinedAt: referenceTime}
	if _, err := h.Memberships.AddMember(context.Background(), membership); err != nil {
		tb.Fatalf("failed to seed membership %s/%s: %v", companyID, userID, err)
	}
}

// SeedRoom stores room.
func (h *SQLiteHarness) SeedRoom(tb testing.TB, room RoomFixture) RoomFixture {
	tb.Helper()
	if err := h.Rooms.CreateRoom(context.Background(), room.Persistence()); err != nil {
		tb.Fatalf("failed to seed room %s: %v", room.ID, err)
	}
	return room
}

// SeedBooking stores booking without a conflict check.
func (h *SQLiteHarness) SeedBooking(tb testing.TB, booking BookingFixture) recurrence.Definition {
	tb.Helper()
	def := booking.Persistence()
	if err := h.Bookings.InsertDefinition(context.Background(), def, nil); err != nil {
		tb.Fatalf("failed to seed booking %s: %v", def.ID, err)
	}
	return def
}
