package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/room-booking/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// UpsertUser inserts the user or refreshes the profile of an existing one.
// The original created_at is preserved.
func (r *UserRepository) UpsertUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}

	const query = `
		INSERT INTO users (id, username, full_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		user.ID,
		nullString(user.Username),
		nullString(user.FullName),
		formatTime(user.CreatedAt),
	)
	return MapError(err)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	const query = `
		SELECT id, COALESCE(username, ''), COALESCE(full_name, ''), created_at
		FROM users
		WHERE id = ?
	`

	var (
		user      persistence.User
		createdAt string
	)
	err := r.pool.DB().QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.FullName, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, MapError(err)
	}

	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
