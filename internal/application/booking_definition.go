package application

import (
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
)

// maxBookingDuration keeps consecutive occurrences of one definition from
// overlapping each other.
const maxBookingDuration = 24 * time.Hour

// buildDefinition validates input and turns it into a definition for room
// owned by principal. ID and CreatedAt are left for the caller.
func (s *BookingService) buildDefinition(room persistence.Room, principal Principal, input BookingInput) (recurrence.Definition, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Start = strings.TrimSpace(input.Start)
	input.End = strings.TrimSpace(input.End)
	input.Recurrence.Type = strings.ToLower(strings.TrimSpace(input.Recurrence.Type))
	input.Recurrence.Until = strings.TrimSpace(input.Recurrence.Until)

	vErr := s.validator.Struct(input)

	def := recurrence.Definition{
		RoomID:    room.ID,
		CompanyID: room.CompanyID,
		UserID:    principal.UserID,
		Title:     input.Title,
	}

	_, startBad := vErr.FieldErrors["start"]
	_, endBad := vErr.FieldErrors["end"]
	if !startBad && !endBad {
		// Both parse: the datetime tag already checked the layout.
		def.Start, _ = recurrence.ParseTimestamp(input.Start)
		def.End, _ = recurrence.ParseTimestamp(input.End)
		switch {
		case !def.End.After(def.Start):
			vErr.add("end", "must be after start")
		case def.End.Sub(def.Start) >= maxBookingDuration:
			vErr.add("end", "booking must be shorter than 24 hours")
		}
	}

	if _, bad := vErr.FieldErrors["recurrence.type"]; !bad {
		rule, ruleErr := buildRule(input.Recurrence, def.AnchorDate(), !startBad && !endBad)
		vErr.merge(ruleErr)
		def.Rule = rule
	}

	if vErr.HasErrors() {
		return recurrence.Definition{}, vErr
	}
	return def, nil
}

// buildRule validates the kind specific parts of a recurrence. anchorKnown is
// false when the anchor date could not be parsed, in which case the until
// date is not compared against it.
func buildRule(input RecurrenceInput, anchorDate time.Time, anchorKnown bool) (recurrence.Rule, *ValidationError) {
	vErr := &ValidationError{}

	kind, err := recurrence.ParseKind(input.Type)
	if err != nil {
		vErr.add("recurrence.type", "must be one of: none, daily, weekly, monthly")
		return recurrence.Rule{}, vErr
	}

	if kind == recurrence.KindNone {
		if input.Until != "" || input.UntilOneYear {
			vErr.add("recurrence.until", "is only allowed for recurring bookings")
		}
		return recurrence.Rule{}, vErr
	}

	rule := recurrence.Rule{Kind: kind}

	switch kind {
	case recurrence.KindWeekly:
		rule.Days = recurrence.NormalizeDays(input.Days)
		if len(rule.Days) == 0 {
			vErr.add("recurrence.days", "select at least one weekday")
		}
		for _, day := range rule.Days {
			if day < 0 || day > 6 {
				vErr.add("recurrence.days", "weekdays must be between 0 (Monday) and 6 (Sunday)")
				break
			}
		}
	case recurrence.KindMonthly:
		rule.Days = recurrence.NormalizeDays(input.Days)
		if len(rule.Days) == 0 {
			vErr.add("recurrence.days", "select at least one day of month")
		}
		for _, day := range rule.Days {
			if day < 1 || day > 31 {
				vErr.add("recurrence.days", "days of month must be between 1 and 31")
				break
			}
		}
	}

	switch {
	case input.UntilOneYear && input.Until != "":
		vErr.add("recurrence.until", "set either until or until_one_year")
	case input.UntilOneYear:
		if anchorKnown {
			rule.Until = recurrence.AddYear(anchorDate)
		}
	case input.Until == "":
		vErr.add("recurrence.until", "is required for recurring bookings")
	default:
		until, err := recurrence.ParseDate(input.Until)
		if err != nil {
			vErr.add("recurrence.until", "must use the format YYYY-MM-DD")
			break
		}
		if anchorKnown && !until.After(anchorDate) {
			vErr.add("recurrence.until", "must be after the first occurrence date")
		}
		rule.Until = until
	}

	return rule, vErr
}
