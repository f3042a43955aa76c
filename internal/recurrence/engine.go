package recurrence

import (
	"time"
)

// Kind represents supported recurrence intervals.
type Kind int

const (
	// KindNone yields exactly one occurrence, the anchor itself.
	KindNone Kind = iota
	// KindDaily yields an occurrence on every calendar day through Until.
	KindDaily
	// KindWeekly yields occurrences on the selected weekdays (0 = Monday).
	KindWeekly
	// KindMonthly yields occurrences on the selected days of month (1..31).
	KindMonthly
)

// Rule describes how a booking definition repeats.
type Rule struct {
	Kind Kind
	// Days holds weekday numbers for weekly rules and days of month for
	// monthly rules. It is ignored for the other kinds.
	Days []int
	// Until is the last date (inclusive) an occurrence may fall on. It is the
	// zero time for non-recurring rules.
	Until time.Time
}

// Recurring reports whether the rule produces more than the anchor.
func (r Rule) Recurring() bool {
	return r.Kind != KindNone
}

// Definition is the durable booking unit stored per room. The same value is
// used for proposed candidates and for persisted bookings.
type Definition struct {
	ID        string
	RoomID    string
	CompanyID string
	UserID    string
	Title     string
	Start     time.Time
	End       time.Time
	Rule      Rule
	Cancelled bool
	CreatedAt time.Time
}

// Duration returns the length shared by every occurrence of the definition.
func (d Definition) Duration() time.Duration {
	return d.End.Sub(d.Start)
}

// AnchorDate returns the calendar date of the first occurrence.
func (d Definition) AnchorDate() time.Time {
	return DateOf(d.Start)
}

// Occurrence is one concrete interval produced by expanding a definition.
type Occurrence struct {
	DefinitionID string
	Start        time.Time
	End          time.Time
}

// Expand produces the occurrences of def whose dates fall inside the
// inclusive window [windowStart, windowEnd]. Only the date part of the window
// bounds is considered. The result is ordered by start time.
//
// Malformed inputs never fail: an inverted window, an Until before the anchor
// date, or an unknown kind all produce an empty result. A recurring rule with
// a zero Until repeats up to windowEnd.
func Expand(def Definition, windowStart, windowEnd time.Time) []Occurrence {
	windowStart = DateOf(windowStart)
	windowEnd = DateOf(windowEnd)
	if windowStart.After(windowEnd) {
		return nil
	}

	anchor := def.AnchorDate()
	if def.Rule.Kind == KindNone {
		if anchor.Before(windowStart) || anchor.After(windowEnd) {
			return nil
		}
		return []Occurrence{{DefinitionID: def.ID, Start: def.Start, End: def.End}}
	}

	lowerBound := anchor
	if windowStart.After(lowerBound) {
		lowerBound = windowStart
	}
	upperBound := windowEnd
	if !def.Rule.Until.IsZero() && DateOf(def.Rule.Until).Before(upperBound) {
		upperBound = DateOf(def.Rule.Until)
	}
	if lowerBound.After(upperBound) {
		return nil
	}

	daySet := make(map[int]struct{}, len(def.Rule.Days))
	for _, day := range def.Rule.Days {
		daySet[day] = struct{}{}
	}

	offset := def.Start.Sub(anchor)
	duration := def.Duration()
	occurrences := make([]Occurrence, 0)

	for current := lowerBound; !current.After(upperBound); current = current.AddDate(0, 0, 1) {
		if !shouldInclude(def.Rule.Kind, daySet, current) {
			continue
		}
		start := current.Add(offset)
		occurrences = append(occurrences, Occurrence{
			DefinitionID: def.ID,
			Start:        start,
			End:          start.Add(duration),
		})
	}

	return occurrences
}

func shouldInclude(kind Kind, daySet map[int]struct{}, day time.Time) bool {
	switch kind {
	case KindDaily:
		return true
	case KindWeekly:
		_, ok := daySet[Weekday(day)]
		return ok
	case KindMonthly:
		_, ok := daySet[day.Day()]
		return ok
	default:
		return false
	}
}

// Weekday returns the weekday number of t with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DateOf truncates t to midnight of its calendar date. Timestamps are naive,
// so the wall clock fields are reused as-is in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddYear returns the same calendar date one year later. February 29 maps to
// February 28 of the following year.
func AddYear(date time.Time) time.Time {
	date = DateOf(date)
	y, m, d := date.Date()
	next := time.Date(y+1, m, d, 0, 0, 0, 0, time.UTC)
	if next.Month() != m {
		next = time.Date(y+1, m+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return next
}
