package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, company_id, name, description, capacity, is_active, created_at, updated_at`

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity != nil && *room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO rooms (` + roomColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.pool.DB().ExecContext(ctx, query,
		room.ID,
		room.CompanyID,
		room.Name,
		room.Description,
		room.Capacity,
		room.IsActive,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return MapError(err)
}

// GetRoom retrieves a room by ID, active or not.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(r.pool.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, MapError(err)
	}
	return room, nil
}

// UpdateRoom applies the set fields of patch and returns the stored room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, id string, patch persistence.RoomPatch, updatedAt time.Time) (persistence.Room, error) {
	if patch.IsEmpty() {
		return r.GetRoom(ctx, id)
	}
	if patch.Capacity.Set && patch.Capacity.Value != nil && *patch.Capacity.Value <= 0 {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}

	var (
		assignments []string
		args        []any
	)
	if patch.Name.Set {
		assignments = append(assignments, "name = ?")
		args = append(args, patch.Name.Value)
	}
	if patch.Description.Set {
		assignments = append(assignments, "description = ?")
		args = append(args, patch.Description.Value)
	}
	if patch.Capacity.Set {
		assignments = append(assignments, "capacity = ?")
		args = append(args, patch.Capacity.Value)
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, formatTime(updatedAt), id)

	query := `UPDATE rooms SET ` + strings.Join(assignments, ", ") + ` WHERE id = ? RETURNING ` + roomColumns
	room, err := scanRoom(r.pool.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, MapError(err)
	}
	return room, nil
}

// ToggleRoomActive flips the active flag and returns the new value.
func (r *RoomRepository) ToggleRoomActive(ctx context.Context, id string, updatedAt time.Time) (bool, error) {
	const query = `
		UPDATE rooms
		SET is_active = 1 - is_active, updated_at = ?
		WHERE id = ?
		RETURNING is_active
	`
	var active bool
	err := r.pool.DB().QueryRowContext(ctx, query, formatTime(updatedAt), id).Scan(&active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, persistence.ErrNotFound
		}
		return false, MapError(err)
	}
	return active, nil
}

// ListRooms returns the company's rooms ordered by name.
func (r *RoomRepository) ListRooms(ctx context.Context, companyID string, includeInactive bool) ([]persistence.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE company_id = ?`
	if !includeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return rooms, nil
}

// DeleteRoom cancels every active booking of the room and removes it.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) (int64, error) {
	var cancelled int64

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET is_cancelled = 1 WHERE room_id = ? AND is_cancelled = 0`, id)
		if err != nil {
			return MapError(err)
		}
		if cancelled, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		result, err = tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return MapError(err)
		}
		return requireAffected(result)
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		description          sql.NullString
		capacity             sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&room.ID,
		&room.CompanyID,
		&room.Name,
		&description,
		&capacity,
		&room.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Room{}, err
	}

	if description.Valid {
		value := description.String
		room.Description = &value
	}
	if capacity.Valid {
		value := int(capacity.Int64)
		room.Capacity = &value
	}

	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}
