package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/events"
	"github.com/example/room-booking/internal/persistence"
)

// RoomService manages the rooms of a company. Mutations require admin rights.
type RoomService struct {
	rooms       persistence.RoomRepository
	access      access
	publisher   events.Publisher
	validator   *inputValidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms persistence.RoomRepository, memberships persistence.MembershipRepository, publisher events.Publisher, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, memberships, publisher, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms persistence.RoomRepository, memberships persistence.MembershipRepository, publisher events.Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	logger = defaultLogger(logger)
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &RoomService{
		rooms:       rooms,
		access:      access{memberships: memberships},
		publisher:   publisher,
		validator:   newInputValidator(),
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and stores an active room in the company.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room persistence.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
		"company_id", params.CompanyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to create room", err)
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if _, err = s.access.admin(ctx, params.Principal, params.CompanyID); err != nil {
		return
	}

	input := params.Input
	input.Name = strings.TrimSpace(input.Name)
	input.Description = normalizeOptionalString(input.Description)
	if vErr := s.validator.Struct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	candidate := persistence.Room{
		ID:          s.idGenerator(),
		CompanyID:   params.CompanyID,
		Name:        input.Name,
		Description: input.Description,
		Capacity:    input.Capacity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.rooms.CreateRoom(ctx, candidate); err != nil {
		err = mapRepoError(err)
		return
	}

	room = candidate
	return
}

// UpdateRoom applies the set fields of the patch. An empty patch returns the
// room unchanged.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room persistence.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to update room", err)
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	existing, _, err := s.access.roomFor(ctx, s.rooms, params.Principal, params.RoomID, true)
	if err != nil {
		return
	}

	patch, vErr := s.normalizePatch(params.Patch)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if patch.IsEmpty() {
		room = existing
		return
	}

	room, err = s.rooms.UpdateRoom(ctx, existing.ID, patch, s.now().UTC())
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

func (s *RoomService) normalizePatch(patch persistence.RoomPatch) (persistence.RoomPatch, *ValidationError) {
	vErr := &ValidationError{}

	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		s.validator.Var(vErr, "name", patch.Name.Value, "required,max=64")
	}
	if patch.Description.Set {
		patch.Description.Value = normalizeOptionalString(patch.Description.Value)
		if patch.Description.Value != nil {
			s.validator.Var(vErr, "description", *patch.Description.Value, "max=512")
		}
	}
	if patch.Capacity.Set && patch.Capacity.Value != nil {
		s.validator.Var(vErr, "capacity", *patch.Capacity.Value, "min=1")
	}
	return patch, vErr
}

// ToggleRoomActive flips the room's active flag and returns the new value.
// Deactivated rooms keep their bookings but accept no new ones.
func (s *RoomService) ToggleRoomActive(ctx context.Context, principal Principal, roomID string) (active bool, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ToggleRoomActive",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to toggle room", err)
			return
		}
		logger.InfoContext(ctx, "room toggled", "is_active", active)
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, principal, roomID, true)
	if err != nil {
		return
	}

	active, err = s.rooms.ToggleRoomActive(ctx, room.ID, s.now().UTC())
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// DeleteRoom removes the room and cancels its bookings. The number of
// cancelled bookings is returned.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) (cancelled int64, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to delete room", err)
			return
		}
		logger.InfoContext(ctx, "room deleted", "cancelled_bookings", cancelled)
	}()

	room, _, err := s.access.roomFor(ctx, s.rooms, principal, roomID, true)
	if err != nil {
		return
	}

	cancelled, err = s.rooms.DeleteRoom(ctx, room.ID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	publishEvent(ctx, s.publisher, logger, events.Event{
		Type:              events.TypeRoomDeleted,
		OccurredAt:        s.now().UTC(),
		RoomID:            room.ID,
		CompanyID:         room.CompanyID,
		CancelledBookings: cancelled,
	})
	return
}

// GetRoom returns one room of a company the principal belongs to.
func (s *RoomService) GetRoom(ctx context.Context, principal Principal, roomID string) (room persistence.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	room, _, err = s.access.roomFor(ctx, s.rooms, principal, roomID, false)
	if err != nil {
		logOutcome(ctx, s.loggerWith(ctx, "GetRoom", "principal_id", principal.UserID, "room_id", roomID), "failed to load room", err)
	}
	return
}

// ListRooms returns the company's rooms ordered by name. Inactive rooms are
// only listed for admins that ask for them.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal, companyID string, includeInactive bool) (rooms []persistence.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms",
		"principal_id", principal.UserID,
		"company_id", companyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list rooms", err)
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	membership, err := s.access.member(ctx, principal, companyID)
	if err != nil {
		return
	}

	rooms, err = s.rooms.ListRooms(ctx, companyID, includeInactive && membership.IsAdmin)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}
