// Package events publishes booking lifecycle notifications to a message
// broker.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event types.
const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeRoomDeleted      = "room.deleted"
)

// Recurrence is the wire form of a booking's recurrence rule.
type Recurrence struct {
	Type  string `json:"type,omitempty"`
	Days  string `json:"days,omitempty"`
	Until string `json:"until,omitempty"`
}

// Event is the JSON payload published for every notification. Booking fields
// are empty for room events.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	RoomID     string    `json:"room_id"`
	CompanyID  string    `json:"company_id"`

	BookingID  string      `json:"booking_id,omitempty"`
	UserID     string      `json:"user_id,omitempty"`
	Title      string      `json:"title,omitempty"`
	Start      string      `json:"start,omitempty"`
	End        string      `json:"end,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`

	CancelledBookings int64 `json:"cancelled_bookings,omitempty"`
}

// Key returns the partitioning key. Events of one room share a key so that
// brokers preserve their order.
func (e Event) Key() string {
	return e.RoomID
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to a slog.Logger. It is the default when no
// broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "events")}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "event published", "type", event.Type, "key", event.Key(), "payload", string(body))
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error {
	return nil
}
