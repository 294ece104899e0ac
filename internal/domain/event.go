package domain

import "time"

// Event is a scheduled reminder.
type Event struct {
	ID         int64
	OwnerID    int64
	Name       string
	DueAt      string // canonical "YYYY-MM-DD HH:MM", naive local time
	Recurrence Recurrence
	Category   *string // nil means no category
	Delivered  bool    // set once a non-recurring event has fired
}

// CategoryName returns the category or an empty string.
func (e Event) CategoryName() string {
	if e.Category == nil {
		return ""
	}
	return *e.Category
}

// Due parses DueAt in loc.
func (e Event) Due(loc *time.Location) (time.Time, error) {
	return ParseDue(e.DueAt, loc)
}
