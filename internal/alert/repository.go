package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repository persists alerts.
type Repository interface {
	// Create stores a draft for an incubation owned by userID.
	Create(ctx context.Context, incubationID, userID string, d Draft) (*Alert, error)

	// List returns the user's alerts matching f, newest first.
	List(ctx context.Context, userID string, f Filter) ([]Alert, error)

	// MarkRead flags one of the user's alerts as read and returns it.
	MarkRead(ctx context.Context, id int64, userID string) (*Alert, error)

	// MarkAllRead flags the user's unread alerts as read, optionally limited
	// to one incubation, and returns how many changed.
	MarkAllRead(ctx context.Context, userID, incubationID string) (int64, error)

	// Recent returns the user's n newest alerts.
	Recent(ctx context.Context, userID string, n int) ([]Alert, error)

	// Exists reports whether an alert of type t with the given value has
	// been stored for the incubation.
	Exists(ctx context.Context, incubationID string, t Type, value string) (bool, error)

	// HasStageAlert reports whether the stage transition alert for stage
	// has already been stored.
	HasStageAlert(ctx context.Context, incubationID string, stage int) (bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a SQLite-backed alert repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const alertColumns = `SELECT id, incubation_id, user_id, type, severity, title, message, value, read, created_at FROM alerts`

// Create stores a new unread alert.
func (r *SQLiteRepository) Create(ctx context.Context, incubationID, userID string, d Draft) (*Alert, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	a := &Alert{
		IncubationID: incubationID,
		UserID:       userID,
		Type:         d.Type,
		Severity:     d.Severity,
		Title:        d.Title,
		Message:      d.Message,
		Value:        d.Value,
		CreatedAt:    r.now().UTC().Truncate(time.Second),
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (incubation_id, user_id, type, severity, title, message, value, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		a.IncubationID, a.UserID, string(a.Type), string(a.Severity),
		a.Title, a.Message, a.Value, a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting alert: %w", err)
	}

	if a.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading alert id: %w", err)
	}
	return a, nil
}

// List returns the user's alerts matching f, newest first.
func (r *SQLiteRepository) List(ctx context.Context, userID string, f Filter) ([]Alert, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if f.Read != nil {
		where = append(where, "read = ?")
		args = append(args, boolToInt(*f.Read))
	}
	if f.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.IncubationID != "" {
		where = append(where, "incubation_id = ?")
		args = append(args, f.IncubationID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	query := alertColumns + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// MarkRead flags one alert as read.
func (r *SQLiteRepository) MarkRead(ctx context.Context, id int64, userID string) (*Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE alerts SET read = 1 WHERE id = ? AND user_id = ?
		RETURNING id, incubation_id, user_id, type, severity, title, message, value, read, created_at`,
		id, userID,
	)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("marking alert read: %w", err)
	}
	return a, nil
}

// MarkAllRead flags every unread alert of the user as read.
func (r *SQLiteRepository) MarkAllRead(ctx context.Context, userID, incubationID string) (int64, error) {
	query := "UPDATE alerts SET read = 1 WHERE user_id = ? AND read = 0"
	args := []any{userID}
	if incubationID != "" {
		query += " AND incubation_id = ?"
		args = append(args, incubationID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("marking alerts read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// Recent returns the user's n newest alerts.
func (r *SQLiteRepository) Recent(ctx context.Context, userID string, n int) ([]Alert, error) {
	return r.List(ctx, userID, Filter{Limit: n})
}

// Exists reports whether a matching alert is stored.
func (r *SQLiteRepository) Exists(ctx context.Context, incubationID string, t Type, value string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM alerts WHERE incubation_id = ? AND type = ? AND value = ?)",
		incubationID, string(t), value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking alert existence: %w", err)
	}
	return exists, nil
}

// HasStageAlert reports whether the transition into stage was announced.
// Stage alerts carry the stage number as their value.
func (r *SQLiteRepository) HasStageAlert(ctx context.Context, incubationID string, stage int) (bool, error) {
	return r.Exists(ctx, incubationID, TypeStage, strconv.Itoa(stage))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(s scanner) (*Alert, error) {
	var (
		a                 Alert
		typ, severity, ts string
		value             sql.NullString
		read              int
	)
	if err := s.Scan(&a.ID, &a.IncubationID, &a.UserID, &typ, &severity, &a.Title, &a.Message, &value, &read, &ts); err != nil {
		return nil, err
	}
	a.Type = Type(typ)
	a.Severity = Severity(severity)
	a.Read = read != 0
	if value.Valid {
		a.Value = &value.String
	}

	created, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", ts, err)
	}
	a.CreatedAt = created
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
