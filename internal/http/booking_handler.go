package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
	"github.com/example/room-booking/internal/scheduler"
)

type bookingService interface {
	CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) ([]scheduler.Conflict, error)
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (persistence.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) error
	ListUserBookings(ctx context.Context, principal application.Principal, companyID string) ([]persistence.Booking, error)
	FreeRooms(ctx context.Context, params application.FreeRoomsParams) ([]persistence.Room, error)
	RoomSchedule(ctx context.Context, params application.RoomScheduleParams) (application.Schedule, error)
	WeekSchedule(ctx context.Context, principal application.Principal, roomID string, offset int) (application.Schedule, error)
	SuggestStartTimes(ctx context.Context, params application.SuggestStartTimesParams) ([]time.Time, error)
	AvailableDurations(ctx context.Context, principal application.Principal, roomID, start string) ([]time.Duration, error)
}

// BookingHandler serves availability, booking and schedule endpoints.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// CheckAvailability handles POST /rooms/:roomID/availability.
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	conflicts, err := h.service.CheckAvailability(r.Context(), application.CheckAvailabilityParams{
		Principal:        principal,
		RoomID:           ps.ByName("roomID"),
		Input:            req.BookingInput,
		ExcludeBookingID: req.ExcludeBookingID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Available: len(conflicts) == 0,
		Conflicts: toConflictDTOs(conflicts),
	})
}

// Create handles POST /rooms/:roomID/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var input application.BookingInput
	if err := decodeJSON(r, &input); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		RoomID:    ps.ByName("roomID"),
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "booking_id", booking.Definition.ID).DebugContext(r.Context(), "booking response written")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

// Cancel handles DELETE /bookings/:bookingID.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.CancelBooking(r.Context(), principal, ps.ByName("bookingID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListMine handles GET /me/bookings?company_id=.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	companyID := strings.TrimSpace(r.URL.Query().Get("company_id"))
	if companyID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadQuery)
		return
	}

	bookings, err := h.service.ListUserBookings(r.Context(), principal, companyID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: out})
}

// FreeRooms handles GET /companies/:companyID/free-rooms?start=&end=.
func (h *BookingHandler) FreeRooms(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	rooms, err := h.service.FreeRooms(r.Context(), application.FreeRoomsParams{
		Principal: principal,
		CompanyID: ps.ByName("companyID"),
		Start:     query.Get("start"),
		End:       query.Get("end"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Schedule handles GET /rooms/:roomID/schedule?from=&to=.
func (h *BookingHandler) Schedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	schedule, err := h.service.RoomSchedule(r.Context(), application.RoomScheduleParams{
		Principal: principal,
		RoomID:    ps.ByName("roomID"),
		From:      query.Get("from"),
		To:        query.Get("to"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toScheduleResponse(schedule))
}

// Week handles GET /rooms/:roomID/week?offset=.
func (h *BookingHandler) Week(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	offset, ok := intQuery(r, "offset", 0)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadQuery)
		return
	}

	schedule, err := h.service.WeekSchedule(r.Context(), principal, ps.ByName("roomID"), offset)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toScheduleResponse(schedule))
}

// StartTimes handles GET /rooms/:roomID/start-times?date=&limit=.
func (h *BookingHandler) StartTimes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	limit, ok := intQuery(r, "limit", 0)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadQuery)
		return
	}

	starts, err := h.service.SuggestStartTimes(r.Context(), application.SuggestStartTimesParams{
		Principal: principal,
		RoomID:    ps.ByName("roomID"),
		Date:      r.URL.Query().Get("date"),
		Limit:     limit,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]string, 0, len(starts))
	for _, s := range starts {
		out = append(out, recurrence.FormatTimestamp(s))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, startTimesResponse{StartTimes: out})
}

// Durations handles GET /rooms/:roomID/durations?start=.
func (h *BookingHandler) Durations(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	durations, err := h.service.AvailableDurations(r.Context(), principal, ps.ByName("roomID"), r.URL.Query().Get("start"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	minutes := make([]int, 0, len(durations))
	for _, d := range durations {
		minutes = append(minutes, int(d/time.Minute))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, durationsResponse{Minutes: minutes})
}

func intQuery(r *http.Request, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

type availabilityRequest struct {
	application.BookingInput
	ExcludeBookingID string `json:"exclude_booking_id"`
}

type availabilityResponse struct {
	Available bool          `json:"available"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type recurrenceDTO struct {
	Type  string `json:"type"`
	Days  []int  `json:"days,omitempty"`
	Until string `json:"until,omitempty"`
}

type bookingDTO struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	RoomName   string         `json:"room_name,omitempty"`
	CompanyID  string         `json:"company_id"`
	UserID     string         `json:"user_id"`
	Title      string         `json:"title"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	Recurrence *recurrenceDTO `json:"recurrence,omitempty"`
	Cancelled  bool           `json:"cancelled"`
}

func toBookingDTO(booking persistence.Booking) bookingDTO {
	def := booking.Definition
	dto := bookingDTO{
		ID:        def.ID,
		RoomID:    def.RoomID,
		RoomName:  booking.RoomName,
		CompanyID: def.CompanyID,
		UserID:    def.UserID,
		Title:     def.Title,
		Start:     recurrence.FormatTimestamp(def.Start),
		End:       recurrence.FormatTimestamp(def.End),
		Cancelled: def.Cancelled,
	}
	if def.Rule.Recurring() {
		dto.Recurrence = &recurrenceDTO{
			Type:  def.Rule.Kind.String(),
			Days:  def.Rule.Days,
			Until: recurrence.FormatDate(def.Rule.Until),
		}
	}
	return dto
}

type scheduleResponse struct {
	RoomID string    `json:"room_id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Slots  []slotDTO `json:"slots"`
}

type slotDTO struct {
	BookingID string `json:"booking_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	BookedBy  string `json:"booked_by"`
	Recurring bool   `json:"recurring"`
}

func toScheduleResponse(schedule application.Schedule) scheduleResponse {
	slots := make([]slotDTO, 0, len(schedule.Slots))
	for _, slot := range schedule.Slots {
		slots = append(slots, slotDTO{
			BookingID: slot.Occurrence.DefinitionID,
			Title:     slot.Title,
			Start:     recurrence.FormatTimestamp(slot.Occurrence.Start),
			End:       recurrence.FormatTimestamp(slot.Occurrence.End),
			BookedBy:  slot.Occupant.DisplayName(),
			Recurring: slot.Recurring,
		})
	}
	return scheduleResponse{
		RoomID: schedule.Room.ID,
		From:   recurrence.FormatDate(schedule.From),
		To:     recurrence.FormatDate(schedule.To),
		Slots:  slots,
	}
}

type startTimesResponse struct {
	StartTimes []string `json:"start_times"`
}

type durationsResponse struct {
	Minutes []int `json:"minutes"`
}
