package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smukkama/weather-index-server/internal/alert"
)

const alertColumns = `
	id, type, region, level, index_value, status, message, data,
	created_at, updated_at, acknowledged_at, resolved_at`

func scanAlert(row interface{ Scan(...any) error }) (*alert.Alert, error) {
	var a alert.Alert
	var data []byte
	err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Region,
		&a.Level,
		&a.IndexValue,
		&a.Status,
		&a.Message,
		&data,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.AcknowledgedAt,
		&a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &a.Data); err != nil {
		return nil, fmt.Errorf("failed to decode alert data for %s: %w", a.ID, err)
	}
	return &a, nil
}

// FindActive returns the active alerts for a (type, region) pair, oldest
// first. Under the single-active invariant this holds at most one entry.
func (db *DB) FindActive(ctx context.Context, alertType, region string) ([]*alert.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE type = $1 AND region = $2 AND status = $3
		ORDER BY created_at ASC
	`

	rows, err := db.QueryContext(ctx, query, alertType, region, alert.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// Insert stores a new alert record.
func (db *DB) Insert(ctx context.Context, a *alert.Alert) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("failed to encode alert data: %w", err)
	}

	query := `
		INSERT INTO alerts (
			id, type, region, level, index_value, status, message, data,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = db.ExecContext(ctx, query,
		a.ID, a.Type, a.Region, a.Level, a.IndexValue, a.Status, a.Message,
		data, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Update rewrites the mutable fields of an existing alert.
func (db *DB) Update(ctx context.Context, a *alert.Alert) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("failed to encode alert data: %w", err)
	}

	query := `
		UPDATE alerts
		SET level = $1, index_value = $2, message = $3, data = $4, updated_at = $5
		WHERE id = $6
	`

	_, err = db.ExecContext(ctx, query,
		a.Level, a.IndexValue, a.Message, data, a.UpdatedAt, a.ID,
	)
	return err
}

// Resolve marks an alert resolved.
func (db *DB) Resolve(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE alerts
		SET status = $1, resolved_at = $2, updated_at = $2
		WHERE id = $3
	`

	_, err := db.ExecContext(ctx, query, alert.StatusResolved, at, id)
	return err
}

// Acknowledge marks an active alert acknowledged and returns the updated
// record, or nil when the alert does not exist or is not active.
func (db *DB) Acknowledge(ctx context.Context, id string, at time.Time) (*alert.Alert, error) {
	query := `
		UPDATE alerts
		SET status = $1, acknowledged_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + alertColumns + `
	`

	a, err := scanAlert(db.QueryRowContext(ctx, query, alert.StatusAcknowledged, at, id, alert.StatusActive))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns alerts of one type, optionally filtered by status, newest
// first.
func (db *DB) List(ctx context.Context, alertType, status string) ([]*alert.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE type = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`

	rows, err := db.QueryContext(ctx, query, alertType, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
