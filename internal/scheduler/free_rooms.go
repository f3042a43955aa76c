package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// Room is the subset of room data the finder needs.
type Room struct {
	ID        string
	CompanyID string
	Name      string
}

// EntrySource loads the active booking definitions of a room.
type EntrySource interface {
	ActiveEntries(ctx context.Context, roomID string) ([]Entry, error)
}

// EntrySourceFunc adapts a function to EntrySource.
type EntrySourceFunc func(ctx context.Context, roomID string) ([]Entry, error)

// ActiveEntries implements EntrySource.
func (f EntrySourceFunc) ActiveEntries(ctx context.Context, roomID string) ([]Entry, error) {
	return f(ctx, roomID)
}

// FindFree returns the rooms without conflicts for the single interval
// [start, end). Input order is preserved.
func (d *Detector) FindFree(ctx context.Context, rooms []Room, start, end time.Time, source EntrySource) ([]Room, error) {
	candidate := recurrence.Definition{Start: start, End: end}

	free := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := source.ActiveEntries(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("load bookings for room %s: %w", room.ID, err)
		}
		if len(d.Check(candidate, entries, "")) == 0 {
			free = append(free, room)
		}
	}
	return free, nil
}
