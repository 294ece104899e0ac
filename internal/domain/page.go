package domain

// PageSize is the number of events shown per listing page.
const PageSize = 5

// Page is one slice of a user's upcoming events.
type Page struct {
	Number  int // zero-based
	Total   int // upcoming events across all pages
	Events  []Event
	HasPrev bool
	HasNext bool
}

// PageCount returns the number of pages needed for total items.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// NewPage assembles page n from its events and the overall total.
func NewPage(n, total int, events []Event) Page {
	return Page{
		Number:  n,
		Total:   total,
		Events:  events,
		HasPrev: n > 0,
		HasNext: n < PageCount(total, PageSize)-1,
	}
}

// Offset returns the row offset of page n.
func Offset(n int) int {
	if n < 0 {
		n = 0
	}
	return n * PageSize
}
