package domain

import (
	"fmt"
	"time"
)

// Recurrence is the rule governing how an event's due time advances after firing.
type Recurrence string

const (
	RecurNone     Recurrence = "none"
	RecurDaily    Recurrence = "daily"
	RecurWeekly   Recurrence = "weekly"
	RecurBiweekly Recurrence = "biweekly"
	RecurMonthly  Recurrence = "monthly"
	RecurYearly   Recurrence = "yearly"
)

// Recurrences lists every rule in the order they are offered to the user.
var Recurrences = []Recurrence{
	RecurNone, RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly, RecurYearly,
}

var recurrenceLabels = map[Recurrence]string{
	RecurNone:     "No repeat",
	RecurDaily:    "Daily",
	RecurWeekly:   "Weekly",
	RecurBiweekly: "Every two weeks",
	RecurMonthly:  "Monthly",
	RecurYearly:   "Yearly",
}

// Label returns the button label for r.
func (r Recurrence) Label() string {
	if l, ok := recurrenceLabels[r]; ok {
		return l
	}
	return "Unknown"
}

// Valid reports whether r is one of the known rules.
func (r Recurrence) Valid() bool {
	_, ok := recurrenceLabels[r]
	return ok
}

// Recurring reports whether the event keeps firing after its first delivery.
func (r Recurrence) Recurring() bool { return r.Valid() && r != RecurNone }

// RecurrenceFromLabel maps an exact button label back to its rule.
func RecurrenceFromLabel(label string) (Recurrence, error) {
	for r, l := range recurrenceLabels {
		if l == label {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, label)
}

// ParseRecurrence parses a stored rule value.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
	return r, nil
}

// NextDueAt returns the due time following current under rule r.
// The second result is false for RecurNone (and unknown rules): the event is terminal.
// Monthly and yearly steps keep the day of month, clamped to the target month's last day.
func NextDueAt(current time.Time, r Recurrence) (time.Time, bool) {
	switch r {
	case RecurDaily:
		return current.AddDate(0, 0, 1), true
	case RecurWeekly:
		return current.AddDate(0, 0, 7), true
	case RecurBiweekly:
		return current.AddDate(0, 0, 14), true
	case RecurMonthly:
		return addMonthsClamped(current, 1), true
	case RecurYearly:
		return addMonthsClamped(current, 12), true
	default:
		return time.Time{}, false
	}
}

// NextDue is NextDueAt over canonical due strings.
func NextDue(due string, r Recurrence) (string, bool, error) {
	t, err := ParseDue(due, time.UTC)
	if err != nil {
		return "", false, err
	}
	next, ok := NextDueAt(t, r)
	if !ok {
		return "", false, nil
	}
	return FormatDue(next), true, nil
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	// Day 1 never overflows, so AddDate lands on the intended month.
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, months, 0)
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
