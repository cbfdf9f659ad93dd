package incubation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists incubations.
//
// Methods taking a userID are owner-scoped: another user's incubation is
// reported as ErrIncubationNotFound. GetByID and ListActive are unscoped and
// meant for the ingestion pipeline and the stage watcher.
type Repository interface {
	// Create stores a new batch and its actuator row in one transaction.
	Create(ctx context.Context, userID string, in NewIncubation) (*Incubation, error)

	// Get returns one of the user's incubations.
	Get(ctx context.Context, id, userID string) (*Incubation, error)

	// GetByID returns an incubation regardless of owner.
	GetByID(ctx context.Context, id string) (*Incubation, error)

	// ListByUser returns the user's incubations, newest first.
	ListByUser(ctx context.Context, userID string) ([]Incubation, error)

	// ListActive returns every incubation with status active.
	ListActive(ctx context.Context) ([]Incubation, error)

	// Update applies a merge-patch and returns the stored result.
	Update(ctx context.Context, id, userID string, p Patch) (*Incubation, error)

	// Delete removes the incubation and, by cascade, everything it owns.
	Delete(ctx context.Context, id, userID string) error

	// Stats summarises readings and alerts for one of the user's incubations.
	Stats(ctx context.Context, id, userID string) (*Stats, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const selectColumns = `
	SELECT id, user_id, name, number_of_eggs, start_date, expected_hatch_date,
		temp_min, temp_max, humidity_min, humidity_max, turn_interval_hours,
		status, hatched_eggs, notes, created_at, updated_at
	FROM incubations`

// Create stores a new incubation.
func (r *SQLiteRepository) Create(ctx context.Context, userID string, in NewIncubation) (*Incubation, error) {
	now := r.now().UTC().Truncate(time.Second)

	inc, err := in.build(now)
	if err != nil {
		return nil, err
	}
	inc.ID = uuid.NewString()
	inc.UserID = userID
	inc.CreatedAt = now
	inc.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO incubations (
			id, user_id, name, number_of_eggs, start_date, expected_hatch_date,
			temp_min, temp_max, humidity_min, humidity_max, turn_interval_hours,
			status, hatched_eggs, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.UserID, inc.Name, inc.NumberOfEggs,
		formatTime(inc.StartDate), formatTime(inc.ExpectedHatchDate),
		inc.TempMin, inc.TempMax, inc.HumidityMin, inc.HumidityMax, inc.TurnIntervalHours,
		string(inc.Status), inc.HatchedEggs, inc.Notes,
		formatTime(inc.CreatedAt), formatTime(inc.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting incubation: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO actuators (incubation_id, timestamp) VALUES (?, ?)",
		inc.ID, formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("inserting actuator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing incubation: %w", err)
	}

	inc.derive(r.now())
	return inc, nil
}

// Get returns an owner-scoped incubation.
func (r *SQLiteRepository) Get(ctx context.Context, id, userID string) (*Incubation, error) {
	return r.queryOne(ctx, r.db, selectColumns+" WHERE id = ? AND user_id = ?", id, userID)
}

// GetByID returns an incubation regardless of owner.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Incubation, error) {
	return r.queryOne(ctx, r.db, selectColumns+" WHERE id = ?", id)
}

// ListByUser returns the user's incubations, newest first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Incubation, error) {
	return r.queryMany(ctx, selectColumns+" WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
}

// ListActive returns every active incubation, oldest first.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Incubation, error) {
	return r.queryMany(ctx, selectColumns+" WHERE status = ? ORDER BY start_date", string(StatusActive))
}

// Update applies p inside a transaction so validation sees the row it writes.
func (r *SQLiteRepository) Update(ctx context.Context, id, userID string, p Patch) (*Incubation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	inc, err := r.queryOne(ctx, tx, selectColumns+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, err
	}

	if err := p.apply(inc); err != nil {
		return nil, err
	}
	inc.UpdatedAt = r.now().UTC().Truncate(time.Second)

	_, err = tx.ExecContext(ctx, `
		UPDATE incubations SET
			name = ?, status = ?, notes = ?, hatched_eggs = ?,
			temp_min = ?, temp_max = ?, humidity_min = ?, humidity_max = ?,
			turn_interval_hours = ?, updated_at = ?
		WHERE id = ?`,
		inc.Name, string(inc.Status), inc.Notes, inc.HatchedEggs,
		inc.TempMin, inc.TempMax, inc.HumidityMin, inc.HumidityMax,
		inc.TurnIntervalHours, formatTime(inc.UpdatedAt),
		inc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating incubation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing incubation update: %w", err)
	}

	inc.derive(r.now())
	return inc, nil
}

// Delete removes an owner-scoped incubation.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM incubations WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting incubation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrIncubationNotFound
	}
	return nil
}

// Stats summarises an owner-scoped incubation.
func (r *SQLiteRepository) Stats(ctx context.Context, id, userID string) (*Stats, error) {
	inc, err := r.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Incubation: inc, Last24h: []Reading{}}

	var (
		tMin, tMax, tAvg sql.NullFloat64
		hMin, hMax, hAvg sql.NullFloat64
	)
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			MIN(temperature), MAX(temperature), AVG(temperature),
			MIN(humidity), MAX(humidity), AVG(humidity)
		FROM sensor_readings WHERE incubation_id = ?`, id,
	).Scan(&stats.ReadingCount, &tMin, &tMax, &tAvg, &hMin, &hMax, &hAvg)
	if err != nil {
		return nil, fmt.Errorf("aggregating readings: %w", err)
	}
	stats.Temperature = Summary{Min: tMin.Float64, Max: tMax.Float64, Avg: tAvg.Float64}
	stats.Humidity = Summary{Min: hMin.Float64, Max: hMax.Float64, Avg: hAvg.Float64}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN read = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN severity = 'critical' THEN 1 ELSE 0 END), 0)
		FROM alerts WHERE incubation_id = ?`, id,
	).Scan(&stats.AlertCount, &stats.UnreadAlerts, &stats.CriticalAlerts)
	if err != nil {
		return nil, fmt.Errorf("aggregating alerts: %w", err)
	}

	readings := NewSQLiteReadingRepository(r.db)
	readings.now = r.now
	stats.Last24h, err = readings.History(ctx, id, 24)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) queryOne(ctx context.Context, q queryer, query string, args ...any) (*Incubation, error) {
	inc, err := scanIncubation(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIncubationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying incubation: %w", err)
	}
	inc.derive(r.now())
	return inc, nil
}

func (r *SQLiteRepository) queryMany(ctx context.Context, query string, args ...any) ([]Incubation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying incubations: %w", err)
	}
	defer rows.Close()

	now := r.now()
	incubations := []Incubation{}
	for rows.Next() {
		inc, err := scanIncubation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning incubation: %w", err)
		}
		inc.derive(now)
		incubations = append(incubations, *inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating incubations: %w", err)
	}
	return incubations, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncubation(s scanner) (*Incubation, error) {
	var (
		inc                                            Incubation
		status, startDate, hatchDate, created, updated string
	)
	err := s.Scan(
		&inc.ID, &inc.UserID, &inc.Name, &inc.NumberOfEggs, &startDate, &hatchDate,
		&inc.TempMin, &inc.TempMax, &inc.HumidityMin, &inc.HumidityMax, &inc.TurnIntervalHours,
		&status, &inc.HatchedEggs, &inc.Notes, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	inc.Status = Status(status)

	for _, f := range []struct {
		src string
		dst *time.Time
	}{
		{startDate, &inc.StartDate},
		{hatchDate, &inc.ExpectedHatchDate},
		{created, &inc.CreatedAt},
		{updated, &inc.UpdatedAt},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, err
		}
	}
	return &inc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
