package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/room-booking/internal/persistence"
)

// access resolves a principal's role inside a company.
type access struct {
	memberships persistence.MembershipRepository
}

// member returns the principal's membership or ErrUnauthorized.
func (a access) member(ctx context.Context, principal Principal, companyID string) (persistence.Membership, error) {
	if principal.UserID == "" || a.memberships == nil {
		return persistence.Membership{}, ErrUnauthorized
	}
	membership, err := a.memberships.GetMembership(ctx, principal.UserID, companyID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Membership{}, ErrUnauthorized
		}
		return persistence.Membership{}, fmt.Errorf("load membership: %w", err)
	}
	return membership, nil
}

// admin returns the principal's membership when it carries admin rights.
func (a access) admin(ctx context.Context, principal Principal, companyID string) (persistence.Membership, error) {
	membership, err := a.member(ctx, principal, companyID)
	if err != nil {
		return persistence.Membership{}, err
	}
	if !membership.IsAdmin {
		return persistence.Membership{}, ErrUnauthorized
	}
	return membership, nil
}

// roomFor loads a room and checks that the principal belongs to its company.
// Admin rights are required when requireAdmin is set.
func (a access) roomFor(ctx context.Context, rooms persistence.RoomRepository, principal Principal, roomID string, requireAdmin bool) (persistence.Room, persistence.Membership, error) {
	room, err := rooms.GetRoom(ctx, roomID)
	if err != nil {
		return persistence.Room{}, persistence.Membership{}, mapRepoError(err)
	}

	check := a.member
	if requireAdmin {
		check = a.admin
	}
	membership, err := check(ctx, principal, room.CompanyID)
	if err != nil {
		return persistence.Room{}, persistence.Membership{}, err
	}
	return room, membership, nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrBusy):
		return fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("_", "value rejected by storage constraints")
		return vErr
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
