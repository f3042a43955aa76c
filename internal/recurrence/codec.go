package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// TimestampLayout is the minute precision representation used at storage and wire boundaries.
	TimestampLayout = "2006-01-02 15:04"
	// DateLayout is the date-only representation used at storage and wire boundaries.
	DateLayout = "2006-01-02"
)

// ErrUnknownKind indicates an unsupported recurrence_type value.
var ErrUnknownKind = errors.New("recurrence: unknown recurrence type")

// ErrMalformedDays indicates recurrence_days could not be parsed.
var ErrMalformedDays = errors.New("recurrence: malformed recurrence days")

// ParseTimestamp parses a "YYYY-MM-DD HH:MM" value as a naive timestamp.
func ParseTimestamp(value string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, strings.TrimSpace(value), time.UTC)
}

// FormatTimestamp renders t as "YYYY-MM-DD HH:MM".
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseDate parses a "YYYY-MM-DD" value.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// FormatDate renders the date part of t as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// String returns the storage name of the kind. KindNone maps to "".
func (k Kind) String() string {
	switch k {
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindMonthly:
		return "monthly"
	default:
		return ""
	}
}

// ParseKind maps a storage name back to a Kind. The empty string is KindNone.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return KindNone, nil
	case "daily":
		return KindDaily, nil
	case "weekly":
		return KindWeekly, nil
	case "monthly":
		return KindMonthly, nil
	default:
		return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// NormalizeDays returns a sorted copy of days without duplicates.
func NormalizeDays(days []int) []int {
	if len(days) == 0 {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

// FormatDays renders days as a comma separated ascending list.
func FormatDays(days []int) string {
	normalized := NormalizeDays(days)
	parts := make([]string, len(normalized))
	for i, day := range normalized {
		parts[i] = strconv.Itoa(day)
	}
	return strings.Join(parts, ",")
}

// ParseDays parses a comma separated list of integers.
func ParseDays(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	fields := strings.Split(value, ",")
	days := make([]int, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		day, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedDays, value)
		}
		days = append(days, day)
	}
	return NormalizeDays(days), nil
}

// Encoded is the boundary form of a Rule. Empty strings stand for NULL.
type Encoded struct {
	Type  string
	Days  string
	Until string
}

// EncodeRule converts r to its storage columns. Daily and non-recurring rules
// carry no days; non-recurring rules carry no until date.
func EncodeRule(r Rule) Encoded {
	switch r.Kind {
	case KindDaily:
		return Encoded{Type: r.Kind.String(), Until: FormatDate(r.Until)}
	case KindWeekly, KindMonthly:
		return Encoded{Type: r.Kind.String(), Days: FormatDays(r.Days), Until: FormatDate(r.Until)}
	default:
		return Encoded{}
	}
}

// DecodeRule rebuilds a Rule from its storage columns.
func DecodeRule(enc Encoded) (Rule, error) {
	kind, err := ParseKind(enc.Type)
	if err != nil {
		return Rule{}, err
	}
	if kind == KindNone {
		return Rule{}, nil
	}

	rule := Rule{Kind: kind}
	if kind != KindDaily {
		rule.Days, err = ParseDays(enc.Days)
		if err != nil {
			return Rule{}, err
		}
	}
	if strings.TrimSpace(enc.Until) != "" {
		rule.Until, err = ParseDate(enc.Until)
		if err != nil {
			return Rule{}, fmt.Errorf("recurrence: parse until: %w", err)
		}
	}
	return rule, nil
}
