package persistence

import (
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// User is a chat identity known to the service.
type User struct {
	ID        string
	Username  string
	FullName  string
	CreatedAt time.Time
}

// Company groups members and rooms. The passcode is stored as a bcrypt hash.
type Company struct {
	ID           string
	Name         string
	PasscodeHash string
	CreatedBy    string
	CreatedAt    time.Time
}

// Membership links a user to a company.
type Membership struct {
	UserID    string
	CompanyID string
	IsAdmin   bool
	JoinedAt  time.Time

	// Populated by list queries.
	CompanyName string
	Username    string
	FullName    string
}

// Room is a bookable room owned by a company.
type Room struct {
	ID          string
	CompanyID   string
	Name        string
	Description *string
	Capacity    *int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Optional distinguishes "leave unchanged" from "set to Value".
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns an Optional holding value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Value: value, Set: true}
}

// RoomPatch updates any subset of a room's editable fields. Description and
// Capacity may be set to nil to clear them.
type RoomPatch struct {
	Name        Optional[string]
	Description Optional[*string]
	Capacity    Optional[*int]
}

// IsEmpty reports whether the patch changes nothing.
func (p RoomPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set && !p.Capacity.Set
}

// Booking is a stored definition together with the display data joined from
// its room and owner.
type Booking struct {
	Definition recurrence.Definition
	RoomName   string
	Username   string
	FullName   string
}

// BookingGuard inspects the active bookings of a room inside the insert
// transaction. Returning an error aborts the insert.
type BookingGuard func(active []Booking) error
