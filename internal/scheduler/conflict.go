package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// DefaultLookaheadDays caps the conflict window of a candidate without an
// until date.
const DefaultLookaheadDays = 366

// Occupant carries the display identity of a booking owner.
type Occupant struct {
	UserID   string
	Username string
	FullName string
}

// DisplayName returns the best available human readable name.
func (o Occupant) DisplayName() string {
	if name := strings.TrimSpace(o.FullName); name != "" {
		return name
	}
	if o.Username != "" {
		return "@" + o.Username
	}
	return o.UserID
}

// Entry is an existing booking definition together with its owner.
type Entry struct {
	Definition recurrence.Definition
	Occupant   Occupant
}

// Conflict identifies one occurrence of an existing definition that overlaps
// the candidate.
type Conflict struct {
	Definition recurrence.Definition
	Occupant   Occupant
	Occurrence recurrence.Occurrence
}

// Detector checks candidate definitions against a room's existing bookings.
type Detector struct {
	lookaheadDays int
}

// NewDetector constructs a Detector. Non-positive lookahead values fall back
// to DefaultLookaheadDays.
func NewDetector(lookaheadDays int) *Detector {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	return &Detector{lookaheadDays: lookaheadDays}
}

// LookaheadDays reports the configured cap for open-ended candidates.
func (d *Detector) LookaheadDays() int {
	if d == nil || d.lookaheadDays <= 0 {
		return DefaultLookaheadDays
	}
	return d.lookaheadDays
}

// Window returns the inclusive date range a candidate is checked over.
func (d *Detector) Window(candidate recurrence.Definition) (time.Time, time.Time) {
	start := candidate.AnchorDate()
	if candidate.Rule.Recurring() && !candidate.Rule.Until.IsZero() {
		return start, recurrence.DateOf(candidate.Rule.Until)
	}
	return start, start.AddDate(0, 0, d.LookaheadDays())
}

// Check expands candidate over its window and every existing definition over
// that window widened by one day on each side, so occurrences crossing
// midnight into or out of the window are compared too. It reports each
// overlapping existing occurrence. The definition
// whose ID equals excludeID and cancelled definitions are skipped.
//
// Conflicts are ordered by the existing occurrence start, then by definition
// ID, so truncated displays are deterministic.
func (d *Detector) Check(candidate recurrence.Definition, existing []Entry, excludeID string) []Conflict {
	windowStart, windowEnd := d.Window(candidate)
	candidateOccurrences := recurrence.Expand(candidate, windowStart, windowEnd)
	if len(candidateOccurrences) == 0 {
		return nil
	}

	existingStart := windowStart.AddDate(0, 0, -1)
	existingEnd := windowEnd.AddDate(0, 0, 1)

	var conflicts []Conflict
	for _, entry := range existing {
		def := entry.Definition
		if def.Cancelled {
			continue
		}
		if excludeID != "" && def.ID == excludeID {
			continue
		}

		for _, occ := range recurrence.Expand(def, existingStart, existingEnd) {
			for _, cand := range candidateOccurrences {
				if Overlaps(cand, occ) {
					conflicts = append(conflicts, Conflict{
						Definition: def,
						Occupant:   entry.Occupant,
						Occurrence: occ,
					})
				}
			}
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		left, right := conflicts[i].Occurrence, conflicts[j].Occurrence
		if !left.Start.Equal(right.Start) {
			return left.Start.Before(right.Start)
		}
		return conflicts[i].Definition.ID < conflicts[j].Definition.ID
	})

	return conflicts
}

// Overlaps reports whether two occurrences intersect. Intervals are half-open,
// so touching endpoints do not overlap.
func Overlaps(a, b recurrence.Occurrence) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
