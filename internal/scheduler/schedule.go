package scheduler

import (
	"sort"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// Slot is an occurrence annotated for display.
type Slot struct {
	Occurrence recurrence.Occurrence
	Title      string
	Occupant   Occupant
	Recurring  bool
}

// BuildSchedule expands every non-cancelled entry over the inclusive window
// and returns the occurrences ordered by start, then definition ID. A booking
// from the day before that runs past midnight into the window is included.
func BuildSchedule(entries []Entry, windowStart, windowEnd time.Time) []Slot {
	windowStart = recurrence.DateOf(windowStart)
	slots := make([]Slot, 0)
	if windowStart.After(recurrence.DateOf(windowEnd)) {
		return slots
	}
	for _, entry := range entries {
		def := entry.Definition
		if def.Cancelled {
			continue
		}
		for _, occ := range recurrence.Expand(def, windowStart.AddDate(0, 0, -1), windowEnd) {
			if !occ.End.After(windowStart) {
				continue
			}
			slots = append(slots, Slot{
				Occurrence: occ,
				Title:      def.Title,
				Occupant:   entry.Occupant,
				Recurring:  def.Rule.Recurring(),
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		left, right := slots[i].Occurrence, slots[j].Occurrence
		if !left.Start.Equal(right.Start) {
			return left.Start.Before(right.Start)
		}
		return left.DefinitionID < right.DefinitionID
	})

	return slots
}

// WeekWindow returns Monday and Sunday of the week containing reference,
// shifted by offset weeks.
func WeekWindow(reference time.Time, offset int) (time.Time, time.Time) {
	day := recurrence.DateOf(reference)
	monday := day.AddDate(0, 0, -recurrence.Weekday(day)+7*offset)
	return monday, monday.AddDate(0, 0, 6)
}
