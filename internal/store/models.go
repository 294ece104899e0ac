package store

import (
	"database/sql"
	"time"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// registeredAt stores registration time as unix seconds; zero means now.
func registeredAt(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UTC().Unix()
	}
	return t.UTC().Unix()
}

type scanner interface {
	Scan(dest ...any) error
}

const eventColumns = `id, owner_id, name, due_at, recurrence, category, delivered`

func scanEvent(s scanner) (domain.Event, error) {
	var (
		e        domain.Event
		rec      string
		category sql.NullString
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Name, &e.DueAt, &rec, &category, &e.Delivered); err != nil {
		return domain.Event{}, err
	}
	r, err := domain.ParseRecurrence(rec)
	if err != nil {
		return domain.Event{}, err
	}
	e.Recurrence = r
	e.Category = fromNullString(category)
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
