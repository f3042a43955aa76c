package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const healthTimeout = 2 * time.Second

// RouterConfig wires handlers into the HTTP surface. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Bookings   *BookingHandler
	Rooms      *RoomHandler
	Companies  *CompanyHandler
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the application router. Every route except /healthz
// requires the X-User-ID header.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	resp := newResponder(logger)
	requireUser := RequireUser(logger)

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: "route not found"})
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{ErrorCode: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	protected := func(method, path string, handle httprouter.Handle) {
		router.Handler(method, path, requireUser(withParams(handle)))
	}

	router.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				resp.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				resp.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		resp.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	if h := cfg.Companies; h != nil {
		protected(http.MethodPut, "/me", h.RegisterMe)
		protected(http.MethodGet, "/me/memberships", h.Memberships)
		protected(http.MethodPost, "/companies", h.Create)
		protected(http.MethodGet, "/companies/:companyID", h.Get)
		protected(http.MethodDelete, "/companies/:companyID", h.Delete)
		protected(http.MethodPut, "/companies/:companyID/passcode", h.ChangePasscode)
		protected(http.MethodPost, "/companies/:companyID/members", h.Join)
		protected(http.MethodGet, "/companies/:companyID/members", h.Members)
		protected(http.MethodPut, "/companies/:companyID/members/:userID/admin", h.SetAdmin)
		protected(http.MethodDelete, "/companies/:companyID/members/:userID", h.RemoveMember)
	}

	if h := cfg.Rooms; h != nil {
		protected(http.MethodGet, "/companies/:companyID/rooms", h.List)
		protected(http.MethodPost, "/companies/:companyID/rooms", h.Create)
		protected(http.MethodGet, "/rooms/:roomID", h.Get)
		protected(http.MethodPatch, "/rooms/:roomID", h.Update)
		protected(http.MethodDelete, "/rooms/:roomID", h.Delete)
		protected(http.MethodPost, "/rooms/:roomID/toggle", h.Toggle)
	}

	if h := cfg.Bookings; h != nil {
		protected(http.MethodGet, "/me/bookings", h.ListMine)
		protected(http.MethodGet, "/companies/:companyID/free-rooms", h.FreeRooms)
		protected(http.MethodGet, "/rooms/:roomID/schedule", h.Schedule)
		protected(http.MethodGet, "/rooms/:roomID/week", h.Week)
		protected(http.MethodGet, "/rooms/:roomID/start-times", h.StartTimes)
		protected(http.MethodGet, "/rooms/:roomID/durations", h.Durations)
		protected(http.MethodPost, "/rooms/:roomID/availability", h.CheckAvailability)
		protected(http.MethodPost, "/rooms/:roomID/bookings", h.Create)
		protected(http.MethodDelete, "/bookings/:bookingID", h.Cancel)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return RequestLogger(logger)(Recoverer(logger)(handler))
}

// withParams adapts an httprouter.Handle so it can sit behind plain
// net/http middleware. Route params travel in the request context.
func withParams(handle httprouter.Handle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle(w, r, httprouter.ParamsFromContext(r.Context()))
	})
}

type healthResponse struct {
	Status string `json:"status"`
}
