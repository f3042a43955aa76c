package application

import (
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// Principal represents the user invoking a service method. Company roles are
// resolved per call from memberships.
type Principal struct {
	UserID string
}

// RecurrenceInput captures the caller provided repetition of a booking.
type RecurrenceInput struct {
	Type  string `json:"type" validate:"omitempty,oneof=none daily weekly monthly"`
	Days  []int  `json:"days" validate:"omitempty,dive,min=0,max=31"`
	Until string `json:"until" validate:"omitempty,datetime=2006-01-02"`
	// UntilOneYear sets Until to the anchor date one year later.
	UntilOneYear bool `json:"until_one_year"`
}

// BookingInput captures caller provided booking fields in boundary format.
type BookingInput struct {
	Title      string          `json:"title" validate:"required,max=128"`
	Start      string          `json:"start" validate:"required,datetime=2006-01-02 15:04"`
	End        string          `json:"end" validate:"required,datetime=2006-01-02 15:04"`
	Recurrence RecurrenceInput `json:"recurrence"`
}

// CheckAvailabilityParams wraps the data required to dry-run a booking.
type CheckAvailabilityParams struct {
	Principal Principal
	RoomID    string
	Input     BookingInput
	// ExcludeBookingID skips one existing booking, e.g. the one being replaced.
	ExcludeBookingID string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	RoomID    string
	Input     BookingInput
}

// FreeRoomsParams wraps the data required to search free rooms.
type FreeRoomsParams struct {
	Principal Principal
	CompanyID string
	Start     string
	End       string
}

// RoomScheduleParams wraps the data required to list a room's occurrences.
type RoomScheduleParams struct {
	Principal Principal
	RoomID    string
	From      string
	To        string
}

// SuggestStartTimesParams wraps the data required to suggest start times.
type SuggestStartTimesParams struct {
	Principal Principal
	RoomID    string
	Date      string
	Limit     int
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string  `json:"name" validate:"required,max=64"`
	Description *string `json:"description" validate:"omitempty,max=512"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=1"`
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	CompanyID string
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to patch a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Patch     persistence.RoomPatch
}

// UserInput captures the chat identity of a user.
type UserInput struct {
	ID       string `json:"id" validate:"required,max=64"`
	Username string `json:"username" validate:"omitempty,max=64"`
	FullName string `json:"full_name" validate:"omitempty,max=128"`
}

// CompanyInput captures caller provided company fields.
type CompanyInput struct {
	Name     string `json:"name" validate:"required,min=2,max=64"`
	Passcode string `json:"passcode" validate:"required,min=3,max=32"`
}

// CreateCompanyParams wraps the data required to create a company.
type CreateCompanyParams struct {
	Principal Principal
	Input     CompanyInput
}

// JoinCompanyParams wraps the data required to join a company.
type JoinCompanyParams struct {
	Principal Principal
	CompanyID string
	Passcode  string
}

// ChangePasscodeParams wraps the data required to rotate a company passcode.
type ChangePasscodeParams struct {
	Principal Principal
	CompanyID string
	Passcode  string
}

// Company is a company as returned to callers, without its passcode hash.
type Company struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// Schedule lists a room's occurrences between two dates, inclusive.
type Schedule struct {
	Room  persistence.Room
	From  time.Time
	To    time.Time
	Slots []scheduler.Slot
}
