package scheduler

import (
	"reflect"
	"testing"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := recurrence.ParseTimestamp(value)
	if err != nil {
		t.Fatalf("parse timestamp %q: %v", value, err)
	}
	return parsed
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := recurrence.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

func single(t *testing.T, id, start, end string) recurrence.Definition {
	t.Helper()
	return recurrence.Definition{ID: id, RoomID: "room-1", Title: "Booking " + id, Start: ts(t, start), End: ts(t, end)}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	occ := func(start, end string) recurrence.Occurrence {
		return recurrence.Occurrence{Start: ts(t, start), End: ts(t, end)}
	}

	tests := []struct {
		name string
		a, b recurrence.Occurrence
		want bool
	}{
		{name: "partial overlap", a: occ("2024-03-04 10:00", "2024-03-04 11:00"), b: occ("2024-03-04 10:30", "2024-03-04 11:30"), want: true},
		{name: "containment", a: occ("2024-03-04 09:00", "2024-03-04 12:00"), b: occ("2024-03-04 10:00", "2024-03-04 11:00"), want: true},
		{name: "identical", a: occ("2024-03-04 10:00", "2024-03-04 11:00"), b: occ("2024-03-04 10:00", "2024-03-04 11:00"), want: true},
		{name: "touching endpoints", a: occ("2024-03-04 09:00", "2024-03-04 10:00"), b: occ("2024-03-04 10:00", "2024-03-04 11:00"), want: false},
		{name: "disjoint", a: occ("2024-03-04 08:00", "2024-03-04 09:00"), b: occ("2024-03-05 08:00", "2024-03-05 09:00"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetector_Check(t *testing.T) {
	t.Parallel()

	detector := NewDetector(0)
	existing := []Entry{{
		Definition: single(t, "existing", "2024-03-04 10:00", "2024-03-04 11:00"),
		Occupant:   Occupant{UserID: "u1", FullName: "Anna"},
	}}

	t.Run("overlapping candidate reports existing occurrence", func(t *testing.T) {
		t.Parallel()

		conflicts := detector.Check(single(t, "", "2024-03-04 10:30", "2024-03-04 11:30"), existing, "")
		if len(conflicts) != 1 {
			t.Fatalf("expected one conflict, got %d", len(conflicts))
		}
		got := conflicts[0]
		if got.Definition.ID != "existing" || got.Occupant.DisplayName() != "Anna" {
			t.Fatalf("unexpected conflict owner: %+v", got)
		}
		if recurrence.FormatTimestamp(got.Occurrence.Start) != "2024-03-04 10:00" || recurrence.FormatTimestamp(got.Occurrence.End) != "2024-03-04 11:00" {
			t.Fatalf("unexpected occurrence: %+v", got.Occurrence)
		}
	})

	t.Run("adjacent candidate is free", func(t *testing.T) {
		t.Parallel()

		if conflicts := detector.Check(single(t, "", "2024-03-04 11:00", "2024-03-04 12:00"), existing, ""); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("excluded and cancelled definitions are ignored", func(t *testing.T) {
		t.Parallel()

		cancelled := single(t, "cancelled", "2024-03-04 10:00", "2024-03-04 11:00")
		cancelled.Cancelled = true
		entries := append([]Entry{{Definition: cancelled}}, existing...)

		if conflicts := detector.Check(single(t, "", "2024-03-04 10:15", "2024-03-04 10:45"), entries, "existing"); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("recurring candidate against recurring existing is ordered", func(t *testing.T) {
		t.Parallel()

		daily := recurrence.Definition{
			ID:    "b-daily",
			Start: ts(t, "2024-03-01 09:00"),
			End:   ts(t, "2024-03-01 10:00"),
			Rule:  recurrence.Rule{Kind: recurrence.KindDaily, Until: date(t, "2024-12-31")},
		}
		weekly := recurrence.Definition{
			ID:    "a-weekly",
			Start: ts(t, "2024-03-06 09:30"),
			End:   ts(t, "2024-03-06 10:30"),
			Rule:  recurrence.Rule{Kind: recurrence.KindWeekly, Days: []int{2}, Until: date(t, "2024-12-31")},
		}
		candidate := recurrence.Definition{
			Start: ts(t, "2024-03-04 09:45"),
			End:   ts(t, "2024-03-04 10:15"),
			Rule:  recurrence.Rule{Kind: recurrence.KindWeekly, Days: []int{0, 2}, Until: date(t, "2024-03-13")},
		}

		conflicts := detector.Check(candidate, []Entry{{Definition: daily}, {Definition: weekly}}, "")

		type key struct {
			id    string
			start string
		}
		got := make([]key, len(conflicts))
		for i, c := range conflicts {
			got[i] = key{id: c.Definition.ID, start: recurrence.FormatTimestamp(c.Occurrence.Start)}
		}
		want := []key{
			{id: "b-daily", start: "2024-03-04 09:00"},
			{id: "b-daily", start: "2024-03-06 09:00"},
			{id: "a-weekly", start: "2024-03-06 09:30"},
			{id: "b-daily", start: "2024-03-11 09:00"},
			{id: "b-daily", start: "2024-03-13 09:00"},
			{id: "a-weekly", start: "2024-03-13 09:30"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("unexpected conflicts:\n got %+v\nwant %+v", got, want)
		}
	})

	t.Run("ties break by definition id", func(t *testing.T) {
		t.Parallel()

		entries := []Entry{
			{Definition: single(t, "z", "2024-03-04 10:00", "2024-03-04 11:00")},
			{Definition: single(t, "a", "2024-03-04 10:00", "2024-03-04 11:00")},
		}
		conflicts := detector.Check(single(t, "", "2024-03-04 10:00", "2024-03-04 10:30"), entries, "")
		if len(conflicts) != 2 || conflicts[0].Definition.ID != "a" || conflicts[1].Definition.ID != "z" {
			t.Fatalf("unexpected order: %+v", conflicts)
		}
	})

	t.Run("candidate without occurrences yields nothing", func(t *testing.T) {
		t.Parallel()

		candidate := recurrence.Definition{
			Start: ts(t, "2024-03-04 10:00"),
			End:   ts(t, "2024-03-04 11:00"),
			Rule:  recurrence.Rule{Kind: recurrence.KindDaily, Until: date(t, "2024-03-01")},
		}
		if conflicts := detector.Check(candidate, existing, ""); conflicts != nil {
			t.Fatalf("expected nil result, got %+v", conflicts)
		}
	})

	t.Run("existing booking crossing midnight into candidate date", func(t *testing.T) {
		t.Parallel()

		overnight := []Entry{{Definition: single(t, "overnight", "2024-03-05 23:00", "2024-03-06 02:00")}}
		conflicts := detector.Check(single(t, "", "2024-03-06 00:30", "2024-03-06 01:00"), overnight, "")
		if len(conflicts) != 1 || conflicts[0].Definition.ID != "overnight" {
			t.Fatalf("expected overnight conflict, got %+v", conflicts)
		}
		if recurrence.FormatTimestamp(conflicts[0].Occurrence.Start) != "2024-03-05 23:00" {
			t.Fatalf("unexpected occurrence: %+v", conflicts[0].Occurrence)
		}
	})

	t.Run("recurring candidate crossing midnight past until", func(t *testing.T) {
		t.Parallel()

		candidate := recurrence.Definition{
			Start: ts(t, "2024-03-04 23:00"),
			End:   ts(t, "2024-03-05 01:00"),
			Rule:  recurrence.Rule{Kind: recurrence.KindDaily, Until: date(t, "2024-03-06")},
		}
		early := []Entry{{Definition: single(t, "early", "2024-03-07 00:30", "2024-03-07 01:30")}}
		conflicts := detector.Check(candidate, early, "")
		if len(conflicts) != 1 || conflicts[0].Definition.ID != "early" {
			t.Fatalf("expected conflict with early booking, got %+v", conflicts)
		}
	})

	t.Run("check is idempotent", func(t *testing.T) {
		t.Parallel()

		candidate := single(t, "", "2024-03-04 10:30", "2024-03-04 11:30")
		first := detector.Check(candidate, existing, "")
		second := detector.Check(candidate, existing, "")
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("expected identical results")
		}
	})
}

func TestDetector_Window(t *testing.T) {
	t.Parallel()

	candidate := single(t, "", "2024-03-04 10:00", "2024-03-04 11:00")

	start, end := NewDetector(0).Window(candidate)
	if recurrence.FormatDate(start) != "2024-03-04" || recurrence.FormatDate(end) != "2025-03-05" {
		t.Fatalf("unexpected default window: %s..%s", recurrence.FormatDate(start), recurrence.FormatDate(end))
	}

	_, end = NewDetector(30).Window(candidate)
	if recurrence.FormatDate(end) != "2024-04-03" {
		t.Fatalf("unexpected configured window end: %s", recurrence.FormatDate(end))
	}

	candidate.Rule = recurrence.Rule{Kind: recurrence.KindDaily, Until: date(t, "2024-03-10")}
	_, end = NewDetector(0).Window(candidate)
	if recurrence.FormatDate(end) != "2024-03-10" {
		t.Fatalf("expected until to bound the window, got %s", recurrence.FormatDate(end))
	}
}

func TestOccupant_DisplayName(t *testing.T) {
	t.Parallel()

	if got := (Occupant{UserID: "42", Username: "anna"}).DisplayName(); got != "@anna" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := (Occupant{UserID: "42"}).DisplayName(); got != "42" {
		t.Fatalf("unexpected display name %q", got)
	}
}
