package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/events"
	"github.com/example/room-booking/internal/recurrence"
)

func bookingEvent(eventType string, def recurrence.Definition, occurredAt time.Time) events.Event {
	event := events.Event{
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		RoomID:     def.RoomID,
		CompanyID:  def.CompanyID,
		BookingID:  def.ID,
		UserID:     def.UserID,
		Title:      def.Title,
		Start:      recurrence.FormatTimestamp(def.Start),
		End:        recurrence.FormatTimestamp(def.End),
	}
	if def.Rule.Recurring() {
		enc := recurrence.EncodeRule(def.Rule)
		event.Recurrence = &events.Recurrence{Type: enc.Type, Days: enc.Days, Until: enc.Until}
	}
	return event
}

// publishEvent delivers event on a best-effort basis. The operation that
// produced it has already been committed.
func publishEvent(ctx context.Context, publisher events.Publisher, logger *slog.Logger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.Type,
			"room_id", event.RoomID,
			"error", err,
		)
	}
}
