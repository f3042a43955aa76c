package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool  *ConnectionPool
	retry *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:  pool,
		retry: NewRetryHelper(DefaultRetryConfig()),
	}
}

const bookingSelect = `
	SELECT b.id, b.room_id, b.company_id, b.user_id, b.title, b.start_dt, b.end_dt,
	       COALESCE(b.recurrence_type, ''), COALESCE(b.recurrence_days, ''), COALESCE(b.recurrence_until, ''),
	       b.is_cancelled, b.created_at,
	       COALESCE(r.name, ''), COALESCE(u.username, ''), COALESCE(u.full_name, '')
	FROM bookings b
	LEFT JOIN rooms r ON r.id = b.room_id
	LEFT JOIN users u ON u.id = b.user_id
`

// LoadActiveDefinitions returns the non-cancelled bookings of a room ordered
// by anchor start.
func (r *BookingRepository) LoadActiveDefinitions(ctx context.Context, roomID string) ([]persistence.Booking, error) {
	return loadActive(ctx, r.pool.DB(), roomID)
}

func loadActive(ctx context.Context, q querier, roomID string) ([]persistence.Booking, error) {
	query := bookingSelect + `
		WHERE b.room_id = ? AND b.is_cancelled = 0
		ORDER BY b.start_dt ASC, b.id ASC
	`
	return queryBookings(ctx, q, query, roomID)
}

// InsertDefinition stores def. The room's active bookings are read, checked
// by guard and the row is inserted inside a single immediate transaction,
// so two concurrent inserts for the same room cannot both pass the guard.
// Busy errors are retried with backoff.
func (r *BookingRepository) InsertDefinition(ctx context.Context, def recurrence.Definition, guard persistence.BookingGuard) error {
	if def.ID == "" || def.RoomID == "" {
		return persistence.ErrConstraintViolation
	}
	if !def.End.After(def.Start) {
		return persistence.ErrConstraintViolation
	}

	encoded := recurrence.EncodeRule(def.Rule)
	const insert = `
		INSERT INTO bookings (
			id, room_id, company_id, user_id, title, start_dt, end_dt,
			recurrence_type, recurrence_days, recurrence_until, is_cancelled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if guard != nil {
				active, err := loadActive(ctx, tx, def.RoomID)
				if err != nil {
					return err
				}
				if err := guard(active); err != nil {
					return err
				}
			}

			_, err := tx.ExecContext(ctx, insert,
				def.ID,
				def.RoomID,
				def.CompanyID,
				def.UserID,
				def.Title,
				recurrence.FormatTimestamp(def.Start),
				recurrence.FormatTimestamp(def.End),
				nullString(encoded.Type),
				nullString(encoded.Days),
				nullString(encoded.Until),
				def.Cancelled,
				formatTime(def.CreatedAt),
			)
			return MapError(err)
		})
	})
}

// GetBooking retrieves a booking by ID, cancelled or not.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	query := bookingSelect + ` WHERE b.id = ?`
	booking, err := scanBooking(r.pool.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, MapError(err)
	}
	return booking, nil
}

// CancelDefinition marks a booking cancelled. Cancelling twice is not an error.
func (r *BookingRepository) CancelDefinition(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `UPDATE bookings SET is_cancelled = 1 WHERE id = ?`, id)
	if err != nil {
		return MapError(err)
	}
	return requireAffected(result)
}

// ListUserBookings returns the user's active bookings in a company, newest
// anchor first.
func (r *BookingRepository) ListUserBookings(ctx context.Context, userID, companyID string) ([]persistence.Booking, error) {
	query := bookingSelect + `
		WHERE b.user_id = ? AND b.company_id = ? AND b.is_cancelled = 0
		ORDER BY b.start_dt DESC, b.id ASC
	`
	return queryBookings(ctx, r.pool.DB(), query, userID, companyID)
}

func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking               persistence.Booking
		encoded               recurrence.Encoded
		start, end, createdAt string
	)
	def := &booking.Definition
	if err := row.Scan(
		&def.ID,
		&def.RoomID,
		&def.CompanyID,
		&def.UserID,
		&def.Title,
		&start,
		&end,
		&encoded.Type,
		&encoded.Days,
		&encoded.Until,
		&def.Cancelled,
		&createdAt,
		&booking.RoomName,
		&booking.Username,
		&booking.FullName,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if def.Start, err = recurrence.ParseTimestamp(start); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_dt of booking %s: %w", def.ID, err)
	}
	if def.End, err = recurrence.ParseTimestamp(end); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_dt of booking %s: %w", def.ID, err)
	}
	if def.Rule, err = recurrence.DecodeRule(encoded); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to decode recurrence of booking %s: %w", def.ID, err)
	}
	if def.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
