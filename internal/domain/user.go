package domain

import "time"

// User represents a chat participant known to the bot.
type User struct {
	ID           int64 // platform user id
	Username     string
	FirstName    string
	LastName     string
	Active       bool // reminders are suppressed when false
	RegisteredAt time.Time
}

// GlobalOwnerID owns the default categories visible to every user.
const GlobalOwnerID int64 = 0

// Category is an owner-scoped label for events. Names are case-sensitive.
type Category struct {
	ID      int64
	OwnerID int64
	Name    string
}

// IsGlobal reports whether the category is shared with all users.
func (c Category) IsGlobal() bool { return c.OwnerID == GlobalOwnerID }

// Stats holds aggregate counters for the admin report.
type Stats struct {
	Users       int
	ActiveUsers int
	Events      int
	Categories  int
}
