package store

import (
	"context"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

// Repo is the event store contract shared by the conversation engine,
// the scheduler and the chat handlers. Every method is atomic on its own.
// Driver failures are returned as *domain.StorageError.
type Repo interface {
	// UpsertUser registers a user or refreshes their profile, and marks them active.
	UpsertUser(ctx context.Context, u *domain.User) error
	// GetUser returns domain.ErrNotFound for unknown ids.
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SetActive(ctx context.Context, id int64, active bool) error

	// ListCategories returns the owner's categories followed by the global ones.
	ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	// CreateCategory inserts (ownerID, name) or returns the existing row.
	CreateCategory(ctx context.Context, ownerID int64, name string) (domain.Category, error)

	// CreateEvent inserts e and sets e.ID.
	CreateEvent(ctx context.Context, e *domain.Event) error
	// DeleteEvent removes an event owned by ownerID; domain.ErrNotFound otherwise.
	DeleteEvent(ctx context.Context, ownerID, id int64) error
	CountEvents(ctx context.Context, ownerID int64) (int, error)
	// CountUpcoming and ListUpcoming consider events with due_at >= from.
	CountUpcoming(ctx context.Context, ownerID int64, from string) (int, error)
	ListUpcoming(ctx context.Context, ownerID int64, from string, limit, offset int) ([]domain.Event, error)
	ListByCategory(ctx context.Context, ownerID int64, category string) ([]domain.Event, error)
	ListEvents(ctx context.Context, ownerID int64) ([]domain.Event, error)

	// ListDue returns undelivered events whose due_at equals due exactly.
	ListDue(ctx context.Context, due string) ([]domain.Event, error)
	SetDue(ctx context.Context, id int64, due string) error
	MarkDelivered(ctx context.Context, id int64) error

	Stats(ctx context.Context) (domain.Stats, error)
	Close() error
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StorageError{Op: op, Err: err}
}
