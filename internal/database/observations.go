package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const observationColumns = `
	id, region, time, temperature, humidity, pressure, precipitation,
	wind_speed, visibility, cloud_cover, created_at`

func scanObservation(row interface{ Scan(...any) error }) (*ObservationRow, error) {
	var o ObservationRow
	err := row.Scan(
		&o.ID,
		&o.Region,
		&o.Time,
		&o.Temperature,
		&o.Humidity,
		&o.Pressure,
		&o.Precipitation,
		&o.WindSpeed,
		&o.Visibility,
		&o.CloudCover,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// LatestPrediction returns the most recent prediction for a region at or
// after the given cutoff, or nil when none exists.
func (db *DB) LatestPrediction(ctx context.Context, region string, since time.Time) (*ObservationRow, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM predictions
		WHERE region = $1 AND time >= $2
		ORDER BY time DESC
		LIMIT 1
	`

	o, err := scanObservation(db.QueryRowContext(ctx, query, region, since))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest prediction for %s: %w", region, err)
	}
	return o, nil
}

// InsertPrediction stores a prediction row, replacing any previous row for
// the same region and timestamp.
func (db *DB) InsertPrediction(ctx context.Context, o *ObservationRow) error {
	query := `
		INSERT INTO predictions (
			region, time, temperature, humidity, pressure, precipitation,
			wind_speed, visibility, cloud_cover
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (region, time) DO UPDATE
		SET temperature = EXCLUDED.temperature,
		    humidity = EXCLUDED.humidity,
		    pressure = EXCLUDED.pressure,
		    precipitation = EXCLUDED.precipitation,
		    wind_speed = EXCLUDED.wind_speed,
		    visibility = EXCLUDED.visibility,
		    cloud_cover = EXCLUDED.cloud_cover
		RETURNING id
	`

	return db.QueryRowContext(
		ctx,
		query,
		o.Region,
		o.Time,
		o.Temperature,
		o.Humidity,
		o.Pressure,
		o.Precipitation,
		o.WindSpeed,
		o.Visibility,
		o.CloudCover,
	).Scan(&o.ID)
}

// ObservationHistory returns the stored normalized observations for a
// region between since and until, oldest first.
func (db *DB) ObservationHistory(ctx context.Context, region string, since, until time.Time) ([]*ObservationRow, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM normalized_data
		WHERE region = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC
	`

	rows, err := db.QueryContext(ctx, query, region, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load observation history for %s: %w", region, err)
	}
	defer rows.Close()

	var observations []*ObservationRow
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}

	return observations, rows.Err()
}
