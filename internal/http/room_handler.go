package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (persistence.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (persistence.Room, error)
	ToggleRoomActive(ctx context.Context, principal application.Principal, roomID string) (bool, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) (int64, error)
	GetRoom(ctx context.Context, principal application.Principal, roomID string) (persistence.Room, error)
	ListRooms(ctx context.Context, principal application.Principal, companyID string, includeInactive bool) ([]persistence.Room, error)
}

// RoomHandler serves room management endpoints.
type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

// Create handles POST /companies/:companyID/rooms.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var input application.RoomInput
	if err := decodeJSON(r, &input); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		CompanyID: ps.ByName("companyID"),
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

// Get handles GET /rooms/:roomID.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	room, err := h.service.GetRoom(r.Context(), principal, ps.ByName("roomID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

// Update handles PATCH /rooms/:roomID. Absent fields stay unchanged; null
// clears description or capacity.
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())
	roomID := ps.ByName("roomID")

	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	patch, err := parseRoomPatch(raw)
	if err != nil {
		h.log(r.Context(), "Update", "room_id", roomID).DebugContext(r.Context(), "invalid room patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	room, err := h.service.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Patch:     patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

// Toggle handles POST /rooms/:roomID/toggle.
func (h *RoomHandler) Toggle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	active, err := h.service.ToggleRoomActive(r.Context(), principal, ps.ByName("roomID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toggleRoomResponse{IsActive: active})
}

// Delete handles DELETE /rooms/:roomID.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	cancelled, err := h.service.DeleteRoom(r.Context(), principal, ps.ByName("roomID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, deleteResponse{CancelledBookings: cancelled})
}

// List handles GET /companies/:companyID/rooms?include_inactive=.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	includeInactive := false
	if raw := r.URL.Query().Get("include_inactive"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadQuery)
			return
		}
		includeInactive = parsed
	}

	rooms, err := h.service.ListRooms(r.Context(), principal, ps.ByName("companyID"), includeInactive)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

var jsonNull = []byte("null")

func parseRoomPatch(raw map[string]json.RawMessage) (persistence.RoomPatch, error) {
	var patch persistence.RoomPatch
	for key, value := range raw {
		switch key {
		case "name":
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return patch, fmt.Errorf("name must be a string")
			}
			patch.Name = persistence.Some(name)
		case "description":
			if bytes.Equal(bytes.TrimSpace(value), jsonNull) {
				patch.Description = persistence.Some[*string](nil)
				continue
			}
			var description string
			if err := json.Unmarshal(value, &description); err != nil {
				return patch, fmt.Errorf("description must be a string or null")
			}
			patch.Description = persistence.Some(&description)
		case "capacity":
			if bytes.Equal(bytes.TrimSpace(value), jsonNull) {
				patch.Capacity = persistence.Some[*int](nil)
				continue
			}
			var capacity int
			if err := json.Unmarshal(value, &capacity); err != nil {
				return patch, fmt.Errorf("capacity must be an integer or null")
			}
			patch.Capacity = persistence.Some(&capacity)
		default:
			return patch, fmt.Errorf("unknown field %q", key)
		}
	}
	return patch, nil
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type toggleRoomResponse struct {
	IsActive bool `json:"is_active"`
}

type deleteResponse struct {
	CancelledBookings int64 `json:"cancelled_bookings"`
}

type roomDTO struct {
	ID          string  `json:"id"`
	CompanyID   string  `json:"company_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Capacity    *int    `json:"capacity,omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toRoomDTO(room persistence.Room) roomDTO {
	return roomDTO{
		ID:          room.ID,
		CompanyID:   room.CompanyID,
		Name:        room.Name,
		Description: room.Description,
		Capacity:    room.Capacity,
		IsActive:    room.IsActive,
		CreatedAt:   room.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   room.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toRoomDTOs(rooms []persistence.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}
