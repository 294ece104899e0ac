package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

// SQLRepo implements Repo over database/sql for SQLite and PostgreSQL.
type SQLRepo struct {
	db *sql.DB
	d  Dialect
}

// Open connects to the database described by driver and dsn,
// applies engine settings, runs migrations, and returns a repository.
func Open(ctx context.Context, driver, dsn string) (*SQLRepo, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if d == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	configurePool(db, d)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if d == SQLite {
		if err := applyPragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}
	if err := RunMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLRepo{db: db, d: d}, nil
}

func configurePool(db *sql.DB, d Dialect) {
	if d == SQLite {
		// Single-writer engine.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
// Ping checks the database connection.
func (r *SQLRepo) Ping(ctx context.Context) error {
	return storageErr("ping", r.db.PingContext(ctx))
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

func (r *SQLRepo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.d.Rebind(query), args...)
}

func (r *SQLRepo) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.d.Rebind(query), args...)
}

func (r *SQLRepo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.d.Rebind(query), args...)
}

func (r *SQLRepo) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := r.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, storageErr(op, err)
	}
	return n, nil
}

// UpsertUser inserts a user or refreshes the profile of an existing one.
// Either way the user ends up active.
func (r *SQLRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	_, err := r.exec(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, registered_at, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			active     = excluded.active`,
		u.ID, u.Username, u.FirstName, u.LastName, registeredAt(u.RegisteredAt), true,
	)
	if err != nil {
		return storageErr("upsert user", err)
	}
	u.Active = true
	return nil
}

// GetUser returns a user by id.
func (r *SQLRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var (
		u   domain.User
		reg int64
	)
	err := r.queryRow(ctx, `
		SELECT user_id, username, first_name, last_name, registered_at, active
		FROM users
		WHERE user_id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &reg, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	u.RegisteredAt = time.Unix(reg, 0).UTC()
	return &u, nil
}

// SetActive toggles the active flag for a user.
func (r *SQLRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.exec(ctx, `UPDATE users SET active = ? WHERE user_id = ?`, active, id)
	if err != nil {
		return storageErr("set active", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListCategories returns owned categories first, then global ones, each by id.
func (r *SQLRepo) ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	rows, err := r.query(ctx, `
		SELECT id, owner_id, name
		FROM categories
		WHERE owner_id = ? OR owner_id = ?
		ORDER BY CASE WHEN owner_id = ? THEN 1 ELSE 0 END, id`,
		ownerID, domain.GlobalOwnerID, domain.GlobalOwnerID,
	)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer rows.Close()

	var res []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name); err != nil {
			return nil, storageErr("list categories", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list categories", err)
	}
	return res, nil
}

// GetCategory returns a category by id.
func (r *SQLRepo) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := r.queryRow(ctx, `SELECT id, owner_id, name FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.OwnerID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get category", err)
	}
	return &c, nil
}

// CreateCategory inserts a category; an existing (owner, name) pair is returned as-is.
func (r *SQLRepo) CreateCategory(ctx context.Context, ownerID int64, name string) (domain.Category, error) {
	c := domain.Category{OwnerID: ownerID, Name: name}
	// The no-op update makes RETURNING yield the existing row on conflict.
	err := r.queryRow(ctx, `
		INSERT INTO categories (owner_id, name) VALUES (?, ?)
		ON CONFLICT(owner_id, name) DO UPDATE SET name = excluded.name
		RETURNING id`,
		ownerID, name,
	).Scan(&c.ID)
	if err != nil {
		return domain.Category{}, storageErr("create category", err)
	}
	return c, nil
}

// CreateEvent inserts an event and assigns its id.
func (r *SQLRepo) CreateEvent(ctx context.Context, e *domain.Event) error {
	if e == nil {
		return errors.New("nil event")
	}
	err := r.queryRow(ctx, `
		INSERT INTO events (owner_id, name, due_at, recurrence, category, delivered)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.OwnerID, e.Name, e.DueAt, string(e.Recurrence), toNullString(e.Category), e.Delivered,
	).Scan(&e.ID)
	if err != nil {
		return storageErr("create event", err)
	}
	return nil
}

// DeleteEvent deletes an event if it belongs to ownerID.
func (r *SQLRepo) DeleteEvent(ctx context.Context, ownerID, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM events WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return storageErr("delete event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete event", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountEvents returns the number of events owned by ownerID.
func (r *SQLRepo) CountEvents(ctx context.Context, ownerID int64) (int, error) {
	return r.count(ctx, "count events", `SELECT COUNT(*) FROM events WHERE owner_id = ?`, ownerID)
}

// CountUpcoming returns the number of events due at or after from.
func (r *SQLRepo) CountUpcoming(ctx context.Context, ownerID int64, from string) (int, error) {
	return r.count(ctx, "count upcoming",
		`SELECT COUNT(*) FROM events WHERE owner_id = ? AND due_at >= ?`, ownerID, from)
}

// ListUpcoming returns one page of events due at or after from, earliest first.
func (r *SQLRepo) ListUpcoming(ctx context.Context, ownerID int64, from string, limit, offset int) ([]domain.Event, error) {
	rows, err := r.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE owner_id = ? AND due_at >= ?
		ORDER BY due_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		ownerID, from, limit, offset,
	)
	if err != nil {
		return nil, storageErr("list upcoming", err)
	}
	res, err := scanEvents(rows)
	return res, storageErr("list upcoming", err)
}

// ListByCategory returns the owner's events with exactly this category.
func (r *SQLRepo) ListByCategory(ctx context.Context, ownerID int64, category string) ([]domain.Event, error) {
	rows, err := r.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE owner_id = ? AND category = ?
		ORDER BY due_at ASC, id ASC`,
		ownerID, category,
	)
	if err != nil {
		return nil, storageErr("list by category", err)
	}
	res, err := scanEvents(rows)
	return res, storageErr("list by category", err)
}

// ListEvents returns all of the owner's events, earliest first.
func (r *SQLRepo) ListEvents(ctx context.Context, ownerID int64) ([]domain.Event, error) {
	rows, err := r.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE owner_id = ?
		ORDER BY due_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	res, err := scanEvents(rows)
	return res, storageErr("list events", err)
}

// ListDue returns undelivered events due exactly at due.
func (r *SQLRepo) ListDue(ctx context.Context, due string) ([]domain.Event, error) {
	rows, err := r.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE due_at = ? AND delivered = ?`,
		due, false,
	)
	if err != nil {
		return nil, storageErr("list due", err)
	}
	res, err := scanEvents(rows)
	return res, storageErr("list due", err)
}

// SetDue moves an event to a new due time.
func (r *SQLRepo) SetDue(ctx context.Context, id int64, due string) error {
	_, err := r.exec(ctx, `UPDATE events SET due_at = ? WHERE id = ?`, due, id)
	return storageErr("set due", err)
}

// MarkDelivered retires a fired non-recurring event.
func (r *SQLRepo) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, `UPDATE events SET delivered = ? WHERE id = ?`, true, id)
	return storageErr("mark delivered", err)
}

// Stats returns global counters.
func (r *SQLRepo) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		s   domain.Stats
		err error
	)
	if s.Users, err = r.count(ctx, "stats", `SELECT COUNT(*) FROM users`); err != nil {
		return s, err
	}
	if s.ActiveUsers, err = r.count(ctx, "stats", `SELECT COUNT(*) FROM users WHERE active = ?`, true); err != nil {
		return s, err
	}
	if s.Events, err = r.count(ctx, "stats", `SELECT COUNT(*) FROM events`); err != nil {
		return s, err
	}
	if s.Categories, err = r.count(ctx, "stats", `SELECT COUNT(*) FROM categories`); err != nil {
		return s, err
	}
	return s, nil
}
