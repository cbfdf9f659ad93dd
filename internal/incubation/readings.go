package incubation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MaxHistoryHours bounds History queries to one week.
const MaxHistoryHours = 168

// ReadingRepository persists sensor readings.
type ReadingRepository interface {
	// Insert stores r, filling ID and Timestamp.
	Insert(ctx context.Context, r *Reading) error

	// Latest returns the most recently inserted reading.
	// Returns ErrNoReadings if there is none.
	Latest(ctx context.Context, incubationID string) (*Reading, error)

	// History returns readings from the last hours hours, oldest first.
	History(ctx context.Context, incubationID string, hours int) ([]Reading, error)
}

// SQLiteReadingRepository implements ReadingRepository using SQLite.
type SQLiteReadingRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteReadingRepository creates a SQLite-backed reading repository.
func NewSQLiteReadingRepository(db *sql.DB) *SQLiteReadingRepository {
	return &SQLiteReadingRepository{db: db, now: time.Now}
}

// Insert stores an immutable reading. A zero Timestamp is set to now and an
// empty WaterLevel defaults to Medio.
func (r *SQLiteReadingRepository) Insert(ctx context.Context, rd *Reading) error {
	if rd.Timestamp.IsZero() {
		rd.Timestamp = r.now()
	}
	rd.Timestamp = rd.Timestamp.UTC().Truncate(time.Second)
	if rd.WaterLevel == "" {
		rd.WaterLevel = WaterMedium
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (incubation_id, timestamp, temperature, humidity, gas_level, water_level)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rd.IncubationID, formatTime(rd.Timestamp), rd.Temperature, rd.Humidity, rd.GasLevel, string(rd.WaterLevel),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}

	rd.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	return nil
}

const readingColumns = `SELECT id, incubation_id, timestamp, temperature, humidity, gas_level, water_level FROM sensor_readings`

// Latest returns the highest-id reading, independent of reported timestamps.
func (r *SQLiteReadingRepository) Latest(ctx context.Context, incubationID string) (*Reading, error) {
	row := r.db.QueryRowContext(ctx, readingColumns+" WHERE incubation_id = ? ORDER BY id DESC LIMIT 1", incubationID)

	rd, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReadings
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}
	return rd, nil
}

// History returns readings newer than now minus hours, oldest first.
func (r *SQLiteReadingRepository) History(ctx context.Context, incubationID string, hours int) ([]Reading, error) {
	if hours < 1 || hours > MaxHistoryHours {
		return nil, ErrInvalidHistoryRange
	}
	since := r.now().Add(-time.Duration(hours) * time.Hour)

	rows, err := r.db.QueryContext(ctx,
		readingColumns+" WHERE incubation_id = ? AND timestamp >= ? ORDER BY timestamp, id",
		incubationID, formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("querying reading history: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

func scanReading(s scanner) (*Reading, error) {
	var (
		rd        Reading
		ts, water string
	)
	if err := s.Scan(&rd.ID, &rd.IncubationID, &ts, &rd.Temperature, &rd.Humidity, &rd.GasLevel, &water); err != nil {
		return nil, err
	}
	rd.WaterLevel = WaterLevel(water)

	var err error
	if rd.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	return &rd, nil
}
