package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CallbackKind identifies an inline button payload.
type CallbackKind int

const (
	CallbackIgnore CallbackKind = iota
	CallbackDate
	CallbackPrevMonth
	CallbackNextMonth
	CallbackTime
	CallbackPage
	CallbackCategory
)

// Callback is a parsed inline button payload.
type Callback struct {
	Kind       CallbackKind
	Year       int
	Month      int
	Day        int
	Hour       int
	Minute     int
	Page       int
	CategoryID int64
}

// Payload builders, kept next to the parser so both sides agree on the format.

func DatePayload(y, m, d int) string  { return fmt.Sprintf("date_%d_%d_%d", y, m, d) }
func PrevPayload(y, m int) string     { return fmt.Sprintf("prev_%d_%d", y, m) }
func NextPayload(y, m int) string     { return fmt.Sprintf("next_%d_%d", y, m) }
func TimePayload(h, m int) string     { return fmt.Sprintf("time_%d:%02d", h, m) }
func PagePayload(n int) string        { return fmt.Sprintf("page_%d", n) }
func CategoryPayload(id int64) string { return fmt.Sprintf("category_%d", id) }

// IgnorePayload marks decorative buttons (calendar headers, blanks).
const IgnorePayload = "ignore"

// ParseCallback parses an inline button payload.
func ParseCallback(data string) (Callback, error) {
	if data == IgnorePayload {
		return Callback{Kind: CallbackIgnore}, nil
	}
	prefix, rest, ok := strings.Cut(data, "_")
	if !ok {
		return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
	}
	switch prefix {
	case "date":
		n, err := ints(rest, 3)
		if err != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		if _, err := NewDate(n[0], n[1], n[2]); err != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		return Callback{Kind: CallbackDate, Year: n[0], Month: n[1], Day: n[2]}, nil
	case "prev", "next":
		n, err := ints(rest, 2)
		if err != nil || n[1] < 1 || n[1] > 12 {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		kind := CallbackPrevMonth
		if prefix == "next" {
			kind = CallbackNextMonth
		}
		return Callback{Kind: kind, Year: n[0], Month: n[1]}, nil
	case "time":
		h, m, err := ParseHHMM(rest)
		if err != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		return Callback{Kind: CallbackTime, Hour: h, Minute: m}, nil
	case "page":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		return Callback{Kind: CallbackPage, Page: n}, nil
	case "category":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		return Callback{Kind: CallbackCategory, CategoryID: id}, nil
	}
	return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
}

func ints(s string, n int) ([]int, error) {
	parts := strings.Split(s, "_")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d fields", n)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ShiftMonth moves (year, month) by delta months.
func ShiftMonth(year, month, delta int) (int, int) {
	m := month - 1 + delta
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	return year, m + 1
}
