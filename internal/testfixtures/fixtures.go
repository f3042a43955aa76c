package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
)

var (
	userCounter    uint64
	companyCounter uint64
	roomCounter    uint64
	bookingCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic chat identity.
type UserFixture struct {
	ID        string
	Username  string
	FullName  string
	CreatedAt time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:        fmt.Sprintf("user-%03d", idx),
		Username:  fmt.Sprintf("user%03d", idx),
		FullName:  fmt.Sprintf("User %03d", idx),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserFullName overrides the generated full name.
func WithUserFullName(name string) UserOption {
	return func(f *UserFixture) {
		f.FullName = name
	}
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) {
		f.Username = username
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:        f.ID,
		Username:  f.Username,
		FullName:  f.FullName,
		CreatedAt: f.CreatedAt,
	}
}

// --------------------------- Company fixtures ----------------------------

// CompanyFixture represents a deterministic company record.
type CompanyFixture struct {
	ID           string
	Name         string
	PasscodeHash string
	CreatedBy    string
	CreatedAt    time.Time
}

// CompanyOption configures the generated company fixture.
type CompanyOption func(*CompanyFixture)

// NewCompanyFixture returns a deterministic company fixture created by
// ownerID.
func NewCompanyFixture(ownerID string, opts ...CompanyOption) CompanyFixture {
	idx := atomic.AddUint64(&companyCounter, 1)
	fixture := CompanyFixture{
		ID:           fmt.Sprintf("company-%03d", idx),
		Name:         fmt.Sprintf("Company %03d", idx),
		PasscodeHash: "not-a-real-hash",
		CreatedBy:    ownerID,
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCompanyID overrides the generated company ID.
func WithCompanyID(id string) CompanyOption {
	return func(f *CompanyFixture) {
		f.ID = id
	}
}

// WithCompanyPasscodeHash sets the stored passcode hash.
func WithCompanyPasscodeHash(hash string) CompanyOption {
	return func(f *CompanyFixture) {
		f.PasscodeHash = hash
	}
}

// Persistence returns the fixture as a persistence.Company value.
func (f CompanyFixture) Persistence() persistence.Company {
	return persistence.Company{
		ID:           f.ID,
		Name:         f.Name,
		PasscodeHash: f.PasscodeHash,
		CreatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room record.
type RoomFixture struct {
	ID          string
	CompanyID   string
	Name        string
	Description *string
	Capacity    *int
	IsActive    bool
	CreatedAt   time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns an active room fixture owned by companyID.
func NewRoomFixture(companyID string, opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		CompanyID: companyID,
		Name:      fmt.Sprintf("Room %03d", idx),
		IsActive:  true,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity sets the room capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		c := capacity
		f.Capacity = &c
	}
}

// WithRoomInactive marks the room as deactivated.
func WithRoomInactive() RoomOption {
	return func(f *RoomFixture) {
		f.IsActive = false
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:          f.ID,
		CompanyID:   f.CompanyID,
		Name:        f.Name,
		Description: copyStringPtr(f.Description),
		Capacity:    copyIntPtr(f.Capacity),
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking definition.
type BookingFixture struct {
	Definition recurrence.Definition
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a one-hour, non-recurring booking of room by
// userID starting at start.
func NewBookingFixture(room RoomFixture, userID string, start time.Time, opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		Definition: recurrence.Definition{
			ID:        fmt.Sprintf("booking-%03d", idx),
			RoomID:    room.ID,
			CompanyID: room.CompanyID,
			UserID:    userID,
			Title:     fmt.Sprintf("Booking %03d", idx),
			Start:     start,
			End:       start.Add(time.Hour),
			CreatedAt: referenceTime,
		},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.Definition.ID = id
	}
}

// WithBookingDuration sets the length of each occurrence.
func WithBookingDuration(d time.Duration) BookingOption {
	return func(f *BookingFixture) {
		f.Definition.End = f.Definition.Start.Add(d)
	}
}

// WithBookingRule sets the recurrence rule.
func WithBookingRule(rule recurrence.Rule) BookingOption {
	return func(f *BookingFixture) {
		f.Definition.Rule = rule
	}
}

// Persistence returns the definition stored by the fixture.
func (f BookingFixture) Persistence() recurrence.Definition {
	def := f.Definition
	def.Rule.Days = append([]int(nil), f.Definition.Rule.Days...)
	return def
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func copyIntPtr(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
