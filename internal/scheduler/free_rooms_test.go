package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/room-booking/internal/recurrence"
)

func TestDetector_FindFree(t *testing.T) {
	t.Parallel()

	rooms := []Room{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}, {ID: "c", Name: "Gamma"}}

	t.Run("keeps rooms without overlapping bookings in input order", func(t *testing.T) {
		t.Parallel()

		// 2024-03-05 is a Tuesday.
		bookings := map[string][]Entry{
			"a": {{Definition: single(t, "a1", "2024-03-05 13:00", "2024-03-05 14:00")}},
			"b": {{Definition: single(t, "b1", "2024-03-05 14:30", "2024-03-05 15:30")}},
			"c": {{Definition: single(t, "c1", "2024-03-05 15:00", "2024-03-05 16:00")}},
		}
		source := EntrySourceFunc(func(_ context.Context, roomID string) ([]Entry, error) {
			return bookings[roomID], nil
		})

		free, err := NewDetector(0).FindFree(context.Background(), rooms, ts(t, "2024-03-05 14:00"), ts(t, "2024-03-05 15:00"), source)
		if err != nil {
			t.Fatalf("FindFree returned error: %v", err)
		}
		want := []Room{rooms[0], rooms[2]}
		if !reflect.DeepEqual(free, want) {
			t.Fatalf("unexpected rooms: got %+v want %+v", free, want)
		}
	})

	t.Run("recurring bookings block matching days", func(t *testing.T) {
		t.Parallel()

		weekly := single(t, "w", "2024-03-05 14:00", "2024-03-05 15:00")
		weekly.Rule.Kind = recurrence.KindWeekly
		weekly.Rule.Days = []int{1}
		weekly.Rule.Until = date(t, "2024-06-30")

		source := EntrySourceFunc(func(_ context.Context, roomID string) ([]Entry, error) {
			if roomID == "a" {
				return []Entry{{Definition: weekly}}, nil
			}
			return nil, nil
		})

		free, err := NewDetector(0).FindFree(context.Background(), rooms, ts(t, "2024-04-02 14:30"), ts(t, "2024-04-02 16:00"), source)
		if err != nil {
			t.Fatalf("FindFree returned error: %v", err)
		}
		if len(free) != 2 || free[0].ID != "b" || free[1].ID != "c" {
			t.Fatalf("unexpected rooms: %+v", free)
		}
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		source := EntrySourceFunc(func(context.Context, string) ([]Entry, error) {
			return nil, boom
		})

		if _, err := NewDetector(0).FindFree(context.Background(), rooms, ts(t, "2024-03-05 14:00"), ts(t, "2024-03-05 15:00"), source); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped storage error, got %v", err)
		}
	})
}
