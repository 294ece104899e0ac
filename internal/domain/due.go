package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DueLayout is the canonical minute-precision due time form.
const DueLayout = "2006-01-02 15:04"

// SlotStep is the spacing of selectable time slots.
const SlotStep = 30 * time.Minute

// FormatDue renders t (truncated to the minute) in canonical form.
func FormatDue(t time.Time) string {
	return t.Truncate(time.Minute).Format(DueLayout)
}

// ParseDue parses a canonical due string as wall-clock time in loc.
func ParseDue(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DueLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDue, s)
	}
	return t, nil
}

// NowDue returns the current minute in loc as a canonical due string.
func NowDue(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return FormatDue(now)
}

// Date is a calendar day without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates y/m/d and returns the Date.
func NewDate(y, m, d int) (Date, error) {
	if m < 1 || m > 12 || d < 1 || d > DaysIn(y, time.Month(m)) {
		return Date{}, fmt.Errorf("%w: %d-%d-%d", ErrInvalidDue, y, m, d)
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At combines the date with a time of day into a canonical due string.
func (d Date) At(hour, minute int) string {
	return FormatDue(time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, time.UTC))
}

// Slots returns every selectable time of day, 00:00 through 23:30.
func Slots() []string {
	out := make([]string, 0, 48)
	for m := 0; m < 24*60; m += int(SlotStep / time.Minute) {
		out = append(out, FormatMinutes(m))
	}
	return out
}

// FormatMinutes returns HH:MM for minutes since midnight.
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ParseHHMM parses "H:MM" or "HH:MM" into hour and minute.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, errors.New("expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, errors.New("invalid hour")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, errors.New("invalid minute")
	}
	return hour, minute, nil
}
