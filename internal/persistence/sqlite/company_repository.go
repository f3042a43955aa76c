package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/room-booking/internal/persistence"
)

// CompanyRepository implements persistence.CompanyRepository using SQLite.
type CompanyRepository struct {
	pool *ConnectionPool
}

// NewCompanyRepository creates a new SQLite company repository.
func NewCompanyRepository(pool *ConnectionPool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// CreateCompany inserts the company and the owner's membership atomically.
func (r *CompanyRepository) CreateCompany(ctx context.Context, company persistence.Company, owner persistence.Membership) error {
	if company.ID == "" || owner.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		const insertCompany = `
			INSERT INTO companies (id, name, passcode_hash, created_by, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, insertCompany,
			company.ID,
			company.Name,
			company.PasscodeHash,
			company.CreatedBy,
			formatTime(company.CreatedAt),
		); err != nil {
			return MapError(err)
		}

		owner.CompanyID = company.ID
		if _, err := insertMembership(ctx, tx, owner); err != nil {
			return err
		}
		return nil
	})
}

// GetCompany retrieves a company by ID.
func (r *CompanyRepository) GetCompany(ctx context.Context, id string) (persistence.Company, error) {
	const query = `
		SELECT id, name, passcode_hash, created_by, created_at
		FROM companies
		WHERE id = ?
	`

	var (
		company   persistence.Company
		createdAt string
	)
	err := r.pool.DB().QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.PasscodeHash,
		&company.CreatedBy,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Company{}, persistence.ErrNotFound
		}
		return persistence.Company{}, MapError(err)
	}

	if company.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Company{}, err
	}
	return company, nil
}

// UpdatePasscode replaces the company's passcode hash.
func (r *CompanyRepository) UpdatePasscode(ctx context.Context, id, passcodeHash string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE companies SET passcode_hash = ? WHERE id = ?`, passcodeHash, id)
	if err != nil {
		return MapError(err)
	}
	return requireAffected(result)
}

// DeleteCompany cancels the company's bookings, deactivates its rooms and
// removes its memberships and the company itself in one transaction.
func (r *CompanyRepository) DeleteCompany(ctx context.Context, id string) (int64, error) {
	var cancelled int64

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET is_cancelled = 1 WHERE company_id = ? AND is_cancelled = 0`, id)
		if err != nil {
			return MapError(err)
		}
		if cancelled, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE rooms SET is_active = 0 WHERE company_id = ?`, id); err != nil {
			return MapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE company_id = ?`, id); err != nil {
			return MapError(err)
		}

		result, err = tx.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
		if err != nil {
			return MapError(err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

// MembershipRepository implements persistence.MembershipRepository using SQLite.
type MembershipRepository struct {
	pool *ConnectionPool
}

// NewMembershipRepository creates a new SQLite membership repository.
func NewMembershipRepository(pool *ConnectionPool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// AddMember inserts the membership. An existing membership is left untouched
// and reported with false.
func (r *MembershipRepository) AddMember(ctx context.Context, membership persistence.Membership) (bool, error) {
	return insertMembership(ctx, r.pool.DB(), membership)
}

func insertMembership(ctx context.Context, q querier, membership persistence.Membership) (bool, error) {
	const query = `
		INSERT INTO memberships (user_id, company_id, is_admin, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, company_id) DO NOTHING
	`
	result, err := q.ExecContext(ctx, query,
		membership.UserID,
		membership.CompanyID,
		membership.IsAdmin,
		formatTime(membership.JoinedAt),
	)
	if err != nil {
		return false, MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetMembership retrieves one membership together with the company name.
func (r *MembershipRepository) GetMembership(ctx context.Context, userID, companyID string) (persistence.Membership, error) {
	const query = `
		SELECT m.user_id, m.company_id, m.is_admin, m.joined_at,
		       c.name, COALESCE(u.username, ''), COALESCE(u.full_name, '')
		FROM memberships m
		JOIN companies c ON c.id = m.company_id
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.user_id = ? AND m.company_id = ?
	`
	membership, err := scanMembership(r.pool.DB().QueryRowContext(ctx, query, userID, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Membership{}, persistence.ErrNotFound
		}
		return persistence.Membership{}, MapError(err)
	}
	return membership, nil
}

// ListMemberships returns the companies the user belongs to, ordered by
// company name.
func (r *MembershipRepository) ListMemberships(ctx context.Context, userID string) ([]persistence.Membership, error) {
	const query = `
		SELECT m.user_id, m.company_id, m.is_admin, m.joined_at,
		       c.name, COALESCE(u.username, ''), COALESCE(u.full_name, '')
		FROM memberships m
		JOIN companies c ON c.id = m.company_id
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.user_id = ?
		ORDER BY c.name ASC, c.id ASC
	`
	return r.list(ctx, query, userID)
}

// ListMembers returns the members of a company, admins first and then by
// full name.
func (r *MembershipRepository) ListMembers(ctx context.Context, companyID string) ([]persistence.Membership, error) {
	const query = `
		SELECT m.user_id, m.company_id, m.is_admin, m.joined_at,
		       c.name, COALESCE(u.username, ''), COALESCE(u.full_name, '')
		FROM memberships m
		JOIN companies c ON c.id = m.company_id
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.company_id = ?
		ORDER BY m.is_admin DESC, COALESCE(u.full_name, '') ASC, m.user_id ASC
	`
	return r.list(ctx, query, companyID)
}

func (r *MembershipRepository) list(ctx context.Context, query string, arg string) ([]persistence.Membership, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, arg)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	var memberships []persistence.Membership
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			return nil, MapError(err)
		}
		memberships = append(memberships, membership)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return memberships, nil
}

// SetAdmin grants or revokes admin rights.
func (r *MembershipRepository) SetAdmin(ctx context.Context, userID, companyID string, isAdmin bool) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE memberships SET is_admin = ? WHERE user_id = ? AND company_id = ?`,
		isAdmin, userID, companyID)
	if err != nil {
		return MapError(err)
	}
	return requireAffected(result)
}

// RemoveMember deletes a membership.
func (r *MembershipRepository) RemoveMember(ctx context.Context, userID, companyID string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = ? AND company_id = ?`,
		userID, companyID)
	if err != nil {
		return MapError(err)
	}
	return requireAffected(result)
}

// CountAdmins returns the number of admins of a company.
func (r *MembershipRepository) CountAdmins(ctx context.Context, companyID string) (int, error) {
	var count int
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE company_id = ? AND is_admin = 1`,
		companyID).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (persistence.Membership, error) {
	var (
		membership persistence.Membership
		joinedAt   string
	)
	if err := row.Scan(
		&membership.UserID,
		&membership.CompanyID,
		&membership.IsAdmin,
		&joinedAt,
		&membership.CompanyName,
		&membership.Username,
		&membership.FullName,
	); err != nil {
		return persistence.Membership{}, err
	}

	var err error
	if membership.JoinedAt, err = parseTime("joined_at", joinedAt); err != nil {
		return persistence.Membership{}, err
	}
	return membership, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
