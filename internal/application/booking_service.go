package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/events"
	"github.com/example/room-booking/internal/locking"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
	"github.com/example/room-booking/internal/scheduler"
)

const (
	// DefaultSlotSearchStartHour is the first hour offered for future dates.
	DefaultSlotSearchStartHour = 11
	// DefaultStartTimeLimit is the number of start times suggested by default.
	DefaultStartTimeLimit = 4
	maxStartTimeLimit     = 48
	slotLength            = 30 * time.Minute
)

// DurationPresets are the booking lengths offered after a start time is picked.
var DurationPresets = []time.Duration{30 * time.Minute, 60 * time.Minute, 90 * time.Minute, 120 * time.Minute}

// BookingServiceConfig collects the dependencies of a BookingService.
type BookingServiceConfig struct {
	Bookings    persistence.BookingRepository
	Rooms       persistence.RoomRepository
	Memberships persistence.MembershipRepository
	Detector    *scheduler.Detector
	Locker      locking.Locker
	Publisher   events.Publisher
	IDGenerator func() string
	Now         func() time.Time
	// SlotSearchStartHour is the first hour suggested for dates after today.
	SlotSearchStartHour int
	// LockTimeout bounds the wait for a room lock.
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// BookingService checks, creates and lists room bookings.
type BookingService struct {
	bookings      persistence.BookingRepository
	rooms         persistence.RoomRepository
	access        access
	detector      *scheduler.Detector
	locker        locking.Locker
	publisher     events.Publisher
	validator     *inputValidator
	idGenerator   func() string
	now           func() time.Time
	slotStartHour int
	lockTimeout   time.Duration
	logger        *slog.Logger
}

// NewBookingService constructs a booking service. Missing optional
// dependencies fall back to in-process defaults.
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	logger := defaultLogger(cfg.Logger)
	if cfg.Detector == nil {
		cfg.Detector = scheduler.NewDetector(scheduler.DefaultLookaheadDays)
	}
	if cfg.Locker == nil {
		cfg.Locker = locking.NewLocalLocker()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewLogPublisher(logger)
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SlotSearchStartHour <= 0 || cfg.SlotSearchStartHour > 23 {
		cfg.SlotSearchStartHour = DefaultSlotSearchStartHour
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	return &BookingService{
		bookings:      cfg.Bookings,
		rooms:         cfg.Rooms,
		access:        access{memberships: cfg.Memberships},
		detector:      cfg.Detector,
		locker:        cfg.Locker,
		publisher:     cfg.Publisher,
		validator:     newInputValidator(),
		idGenerator:   cfg.IDGenerator,
		now:           cfg.Now,
		slotStartHour: cfg.SlotSearchStartHour,
		lockTimeout:   cfg.LockTimeout,
		logger:        logger,
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// localNow returns the service clock as a naive minute-precision timestamp,
// matching how booking times are stored.
func (s *BookingService) localNow() time.Time {
	t := s.now()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// CheckAvailability validates a proposed booking and returns the existing
// occurrences it would collide with. Nothing is stored.
func (s *BookingService) CheckAvailability(ctx context.Context, params CheckAvailabilityParams) (conflicts []scheduler.Conflict, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to check availability", err)
			return
		}
		logger.DebugContext(ctx, "availability checked", "conflicts", len(conflicts))
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, params.Principal, params.RoomID, false)
	if err != nil {
		return
	}

	candidate, err := s.buildDefinition(room, params.Principal, params.Input)
	if err != nil {
		return
	}

	entries, err := s.activeEntries(ctx, room.ID)
	if err != nil {
		return
	}

	conflicts = s.detector.Check(candidate, entries, params.ExcludeBookingID)
	return
}

// CreateBooking validates and stores a booking. The room lock and the
// guarded insert make the conflict check authoritative; a collision is
// reported as *ConflictError.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking persistence.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.rooms == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to create booking", err)
			return
		}
		logger.With("booking_id", booking.Definition.ID).InfoContext(ctx, "booking created")
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, params.Principal, params.RoomID, false)
	if err != nil {
		return
	}
	if !room.IsActive {
		err = ErrRoomInactive
		return
	}

	def, err := s.buildDefinition(room, params.Principal, params.Input)
	if err != nil {
		return
	}
	def.ID = s.idGenerator()
	def.CreatedAt = s.now().UTC()

	unlock, err := s.lockRoom(ctx, room.ID)
	if err != nil {
		return
	}
	defer unlock()

	guard := func(active []persistence.Booking) error {
		if conflicts := s.detector.Check(def, toEntries(active), ""); len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		return nil
	}
	if err = s.bookings.InsertDefinition(ctx, def, guard); err != nil {
		var conflictErr *ConflictError
		if errors.As(err, &conflictErr) {
			err = conflictErr
			return
		}
		err = mapRepoError(err)
		return
	}

	booking = persistence.Booking{Definition: def, RoomName: room.Name}
	publishEvent(ctx, s.publisher, logger, bookingEvent(events.TypeBookingCreated, def, s.now()))
	return
}

func (s *BookingService) lockRoom(ctx context.Context, roomID string) (locking.Unlock, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, locking.RoomKey(roomID))
	if err != nil {
		if errors.Is(err, locking.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %w", ErrLockUnavailable, err)
		}
		return nil, fmt.Errorf("lock room %s: %w", roomID, err)
	}
	return unlock, nil
}

// CancelBooking cancels a booking on behalf of its owner or a company admin.
// Cancelling an already cancelled booking succeeds without side effects.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to cancel booking", err)
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	def := booking.Definition
	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if def.UserID != principal.UserID {
		if _, err = s.access.admin(ctx, principal, def.CompanyID); err != nil {
			return
		}
	}
	if def.Cancelled {
		return nil
	}

	if err = s.bookings.CancelDefinition(ctx, def.ID); err != nil {
		err = mapRepoError(err)
		return
	}

	publishEvent(ctx, s.publisher, logger, bookingEvent(events.TypeBookingCancelled, def, s.now()))
	return nil
}

// ListUserBookings returns the principal's active bookings in a company,
// newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, principal Principal, companyID string) (bookings []persistence.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListUserBookings",
		"principal_id", principal.UserID,
		"company_id", companyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list bookings", err)
		}
	}()

	if _, err = s.access.member(ctx, principal, companyID); err != nil {
		return
	}

	bookings, err = s.bookings.ListUserBookings(ctx, principal.UserID, companyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// FreeRooms returns the company's active rooms without a booking in
// [start, end), ordered by name.
func (s *BookingService) FreeRooms(ctx context.Context, params FreeRoomsParams) (rooms []persistence.Room, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "FreeRooms",
		"principal_id", params.Principal.UserID,
		"company_id", params.CompanyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to find free rooms", err)
			return
		}
		logger.DebugContext(ctx, "free rooms found", "count", len(rooms))
	}()

	if _, err = s.access.member(ctx, params.Principal, params.CompanyID); err != nil {
		return
	}

	start, end, err := s.parseInterval(params.Start, params.End)
	if err != nil {
		return
	}

	candidates, err := s.rooms.ListRooms(ctx, params.CompanyID, false)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	byID := make(map[string]persistence.Room, len(candidates))
	finderRooms := make([]scheduler.Room, 0, len(candidates))
	for _, room := range candidates {
		byID[room.ID] = room
		finderRooms = append(finderRooms, scheduler.Room{ID: room.ID, CompanyID: room.CompanyID, Name: room.Name})
	}

	free, err := s.detector.FindFree(ctx, finderRooms, start, end, scheduler.EntrySourceFunc(s.activeEntries))
	if err != nil {
		return
	}

	rooms = make([]persistence.Room, 0, len(free))
	for _, room := range free {
		rooms = append(rooms, byID[room.ID])
	}
	return
}

// RoomSchedule returns every occurrence of the room's bookings between two
// dates, inclusive.
func (s *BookingService) RoomSchedule(ctx context.Context, params RoomScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RoomSchedule",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to build schedule", err)
		}
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, params.Principal, params.RoomID, false)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	from, fromErr := recurrence.ParseDate(strings.TrimSpace(params.From))
	if fromErr != nil {
		vErr.add("from", "must use the format YYYY-MM-DD")
	}
	to, toErr := recurrence.ParseDate(strings.TrimSpace(params.To))
	if toErr != nil {
		vErr.add("to", "must use the format YYYY-MM-DD")
	}
	if fromErr == nil && toErr == nil {
		switch {
		case to.Before(from):
			vErr.add("to", "must not be before from")
		case to.Sub(from) > time.Duration(s.detector.LookaheadDays())*24*time.Hour:
			vErr.add("to", fmt.Sprintf("window must not exceed %d days", s.detector.LookaheadDays()))
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	return s.schedule(ctx, room, from, to)
}

// WeekSchedule returns the occurrences of the Monday to Sunday week that is
// offset weeks away from the current one.
func (s *BookingService) WeekSchedule(ctx context.Context, principal Principal, roomID string, offset int) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "WeekSchedule",
		"principal_id", principal.UserID,
		"room_id", roomID,
		"offset", offset,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to build week schedule", err)
		}
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, principal, roomID, false)
	if err != nil {
		return
	}

	monday, sunday := scheduler.WeekWindow(s.localNow(), offset)
	return s.schedule(ctx, room, monday, sunday)
}

func (s *BookingService) schedule(ctx context.Context, room persistence.Room, from, to time.Time) (Schedule, error) {
	entries, err := s.activeEntries(ctx, room.ID)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{
		Room:  room,
		From:  from,
		To:    to,
		Slots: scheduler.BuildSchedule(entries, from, to),
	}, nil
}

// SuggestStartTimes returns up to Limit free half-hour start times on Date.
// Today's search starts at the current minute, later dates at the configured
// start hour. Slots reaching midnight are never offered and past dates yield
// nothing.
func (s *BookingService) SuggestStartTimes(ctx context.Context, params SuggestStartTimesParams) (starts []time.Time, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SuggestStartTimes",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to suggest start times", err)
		}
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, params.Principal, params.RoomID, false)
	if err != nil {
		return
	}

	date, parseErr := recurrence.ParseDate(strings.TrimSpace(params.Date))
	if parseErr != nil {
		vErr := &ValidationError{}
		vErr.add("date", "must use the format YYYY-MM-DD")
		err = vErr
		return
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultStartTimeLimit
	}
	if limit > maxStartTimeLimit {
		limit = maxStartTimeLimit
	}

	now := s.localNow()
	today := recurrence.DateOf(now)
	if date.Before(today) {
		return nil, nil
	}

	startHour, startMinute := s.slotStartHour, 0
	if date.Equal(today) {
		startHour, startMinute = now.Hour(), now.Minute()
	}

	entries, err := s.activeEntries(ctx, room.ID)
	if err != nil {
		return
	}

	starts = make([]time.Time, 0, limit)
	for hour := startHour; hour < 24; hour++ {
		for _, minute := range []int{0, 30} {
			if hour == startHour && minute < startMinute {
				continue
			}
			if hour*60+minute+int(slotLength/time.Minute) >= 24*60 {
				break
			}
			start := date.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
			candidate := recurrence.Definition{Start: start, End: start.Add(slotLength)}
			if len(s.detector.Check(candidate, entries, "")) == 0 {
				starts = append(starts, start)
				if len(starts) >= limit {
					return
				}
			}
		}
	}
	return
}

// AvailableDurations returns the DurationPresets that fit at start without
// colliding with an existing booking.
func (s *BookingService) AvailableDurations(ctx context.Context, principal Principal, roomID, start string) (durations []time.Duration, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AvailableDurations",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to compute durations", err)
		}
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, principal, roomID, false)
	if err != nil {
		return
	}

	startAt, parseErr := recurrence.ParseTimestamp(strings.TrimSpace(start))
	if parseErr != nil {
		vErr := &ValidationError{}
		vErr.add("start", "must use the format YYYY-MM-DD HH:MM")
		err = vErr
		return
	}

	entries, err := s.activeEntries(ctx, room.ID)
	if err != nil {
		return
	}

	durations = make([]time.Duration, 0, len(DurationPresets))
	for _, d := range DurationPresets {
		candidate := recurrence.Definition{Start: startAt, End: startAt.Add(d)}
		if len(s.detector.Check(candidate, entries, "")) == 0 {
			durations = append(durations, d)
		}
	}
	return
}

func (s *BookingService) parseInterval(startValue, endValue string) (time.Time, time.Time, error) {
	vErr := &ValidationError{}
	start, startErr := recurrence.ParseTimestamp(strings.TrimSpace(startValue))
	if startErr != nil {
		vErr.add("start", "must use the format YYYY-MM-DD HH:MM")
	}
	end, endErr := recurrence.ParseTimestamp(strings.TrimSpace(endValue))
	if endErr != nil {
		vErr.add("end", "must use the format YYYY-MM-DD HH:MM")
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		vErr.add("end", "must be after start")
	}
	if vErr.HasErrors() {
		return time.Time{}, time.Time{}, vErr
	}
	return start, end, nil
}

func (s *BookingService) activeEntries(ctx context.Context, roomID string) ([]scheduler.Entry, error) {
	bookings, err := s.bookings.LoadActiveDefinitions(ctx, roomID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return toEntries(bookings), nil
}

func toEntries(bookings []persistence.Booking) []scheduler.Entry {
	entries := make([]scheduler.Entry, 0, len(bookings))
	for _, b := range bookings {
		entries = append(entries, scheduler.Entry{
			Definition: b.Definition,
			Occupant: scheduler.Occupant{
				UserID:   b.Definition.UserID,
				Username: b.Username,
				FullName: b.FullName,
			},
		})
	}
	return entries
}
