package actuator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/smartegg/smartegg-core/internal/incubation"
)

// Repository persists actuator state.
type Repository interface {
	// Get returns the incubation's actuator, creating a default one if
	// none exists. Returns incubation.ErrIncubationNotFound if the
	// incubation does not exist.
	Get(ctx context.Context, incubationID string) (*Actuator, error)

	// Update applies p atomically, creating the row if needed, and returns
	// the full resulting state.
	Update(ctx context.Context, incubationID string, p Patch) (*Actuator, error)

	// TurnEggs increments the turn counter and stamps the turn time.
	// Returns ErrActuatorNotFound if the incubation has no actuator.
	TurnEggs(ctx context.Context, incubationID string) (*Actuator, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a SQLite-backed actuator repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const returningColumns = `RETURNING id, incubation_id, heater_active, humidifier_active,
	ventilation_active, manual_mode, egg_turn_count, last_egg_turn, timestamp`

// Get returns the actuator, inserting defaults on first access.
func (r *SQLiteRepository) Get(ctx context.Context, incubationID string) (*Actuator, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO actuators (incubation_id, timestamp) VALUES (?, ?) ON CONFLICT(incubation_id) DO NOTHING",
		incubationID, r.timestamp(),
	)
	if err != nil {
		return nil, mapWriteError("creating actuator", err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, incubation_id, heater_active, humidifier_active,
			ventilation_active, manual_mode, egg_turn_count, last_egg_turn, timestamp
		FROM actuators WHERE incubation_id = ?`, incubationID)
	a, err := scanActuator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActuatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying actuator: %w", err)
	}
	return a, nil
}

// Update merges p into the stored row in a single upsert. On insert, absent
// fields default to false; on conflict, absent fields keep their value.
func (r *SQLiteRepository) Update(ctx context.Context, incubationID string, p Patch) (*Actuator, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO actuators (
			incubation_id, heater_active, humidifier_active, ventilation_active, manual_mode, timestamp
		) VALUES (?1, COALESCE(?2, 0), COALESCE(?3, 0), COALESCE(?4, 0), COALESCE(?5, 0), ?6)
		ON CONFLICT(incubation_id) DO UPDATE SET
			heater_active      = COALESCE(?2, heater_active),
			humidifier_active  = COALESCE(?3, humidifier_active),
			ventilation_active = COALESCE(?4, ventilation_active),
			manual_mode        = COALESCE(?5, manual_mode),
			timestamp          = ?6
		`+returningColumns,
		incubationID, p.HeaterActive, p.HumidifierActive, p.VentilationActive, p.ManualMode, r.timestamp(),
	)

	a, err := scanActuator(row)
	if err != nil {
		return nil, mapWriteError("updating actuator", err)
	}
	return a, nil
}

// TurnEggs increments the counter in place.
func (r *SQLiteRepository) TurnEggs(ctx context.Context, incubationID string) (*Actuator, error) {
	now := r.timestamp()
	row := r.db.QueryRowContext(ctx, `
		UPDATE actuators SET
			egg_turn_count = egg_turn_count + 1,
			last_egg_turn  = ?,
			timestamp      = ?
		WHERE incubation_id = ?
		`+returningColumns,
		now, now, incubationID,
	)

	a, err := scanActuator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActuatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("turning eggs: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

// mapWriteError turns a foreign key violation into ErrIncubationNotFound.
func mapWriteError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return incubation.ErrIncubationNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActuator(s scanner) (*Actuator, error) {
	var (
		a                                Actuator
		heater, humidifier, vent, manual int
		lastTurn                         sql.NullString
		ts                               string
	)
	err := s.Scan(&a.ID, &a.IncubationID, &heater, &humidifier, &vent, &manual,
		&a.EggTurnCount, &lastTurn, &ts)
	if err != nil {
		return nil, err
	}
	a.HeaterActive = heater != 0
	a.HumidifierActive = humidifier != 0
	a.VentilationActive = vent != 0
	a.ManualMode = manual != 0

	if a.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
	}
	if lastTurn.Valid {
		t, err := time.Parse(time.RFC3339, lastTurn.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_egg_turn %q: %w", lastTurn.String, err)
		}
		a.LastEggTurn = &t
	}
	return &a, nil
}
