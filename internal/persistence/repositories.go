package persistence

import (
	"context"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// UserRepository stores chat identities.
type UserRepository interface {
	UpsertUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
}

// CompanyRepository stores companies. Creating a company also records the
// creator's admin membership.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, company Company, owner Membership) error
	GetCompany(ctx context.Context, id string) (Company, error)
	UpdatePasscode(ctx context.Context, id, passcodeHash string) error
	// DeleteCompany cancels the company's bookings, deactivates its rooms and
	// removes memberships and the company record. It returns the number of
	// cancelled bookings.
	DeleteCompany(ctx context.Context, id string) (int64, error)
}

// MembershipRepository stores company memberships.
type MembershipRepository interface {
	// AddMember inserts the membership and reports whether it was new.
	AddMember(ctx context.Context, membership Membership) (bool, error)
	GetMembership(ctx context.Context, userID, companyID string) (Membership, error)
	ListMemberships(ctx context.Context, userID string) ([]Membership, error)
	ListMembers(ctx context.Context, companyID string) ([]Membership, error)
	SetAdmin(ctx context.Context, userID, companyID string, isAdmin bool) error
	RemoveMember(ctx context.Context, userID, companyID string) error
	CountAdmins(ctx context.Context, companyID string) (int, error)
}

// RoomRepository stores rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, id string, patch RoomPatch, updatedAt time.Time) (Room, error)
	// ToggleRoomActive flips the active flag and returns the new value.
	ToggleRoomActive(ctx context.Context, id string, updatedAt time.Time) (bool, error)
	// ListRooms returns the company's rooms ordered by name.
	ListRooms(ctx context.Context, companyID string, includeInactive bool) ([]Room, error)
	// DeleteRoom cancels the room's bookings and removes the room. It returns
	// the number of cancelled bookings.
	DeleteRoom(ctx context.Context, id string) (int64, error)
}

// BookingRepository stores booking definitions.
type BookingRepository interface {
	// LoadActiveDefinitions returns the non-cancelled bookings of a room.
	LoadActiveDefinitions(ctx context.Context, roomID string) ([]Booking, error)
	// InsertDefinition stores def. When guard is non-nil it runs inside the
	// same write transaction against the room's active bookings.
	InsertDefinition(ctx context.Context, def recurrence.Definition, guard BookingGuard) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	CancelDefinition(ctx context.Context, id string) error
	// ListUserBookings returns the user's non-cancelled bookings in a company,
	// newest anchor first.
	ListUserBookings(ctx context.Context, userID, companyID string) ([]Booking, error)
}
