package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/recurrence"
	"github.com/example/room-booking/internal/scheduler"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON for this endpoint")
	errBadQuery       = errors.New("query parameters are invalid")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: "BAD_REQUEST", Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "unknown error"})
		return
	}

	var conflictErr *application.ConflictError
	if errors.As(err, &conflictErr) {
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BOOKING_CONFLICT",
			Message:   "the room is already booked for at least one occurrence",
			Conflicts: toConflictDTOs(conflictErr.Conflicts),
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	status, code, message := statusForError(err)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func statusForError(err error) (int, string, string) {
	switch {
	case errors.Is(err, application.ErrInvalidPasscode):
		return http.StatusForbidden, "INVALID_PASSCODE", "the passcode is not correct"
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, "FORBIDDEN", "you are not allowed to perform this operation"
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "the requested resource does not exist"
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS", "the resource already exists"
	case errors.Is(err, application.ErrLastAdmin):
		return http.StatusConflict, "LAST_ADMIN", "a company must keep at least one admin"
	case errors.Is(err, application.ErrRoomInactive):
		return http.StatusConflict, "ROOM_INACTIVE", "the room is deactivated"
	case errors.Is(err, application.ErrLockUnavailable):
		return http.StatusLocked, "ROOM_LOCKED", "the room is being booked by someone else, try again"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal server error"
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	BookingID string `json:"booking_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	UserID    string `json:"user_id"`
	BookedBy  string `json:"booked_by"`
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			BookingID: c.Definition.ID,
			Title:     c.Definition.Title,
			Start:     recurrence.FormatTimestamp(c.Occurrence.Start),
			End:       recurrence.FormatTimestamp(c.Occurrence.End),
			UserID:    c.Occupant.UserID,
			BookedBy:  c.Occupant.DisplayName(),
		})
	}
	return out
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errBadRequestBody
	}
	return nil
}
