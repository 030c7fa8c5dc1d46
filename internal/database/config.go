package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/smukkama/weather-index-server/internal/index"
)

// SaveIndexConfig persists the calculator configuration as a single JSON
// document.
func (db *DB) SaveIndexConfig(ctx context.Context, cfg index.Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode index config: %w", err)
	}

	query := `
		INSERT INTO index_config (id, config)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE
		SET config = EXCLUDED.config,
		    updated_at = CURRENT_TIMESTAMP
	`

	_, err = db.ExecContext(ctx, query, doc)
	return err
}

// LoadIndexConfig returns the persisted calculator configuration, if any.
func (db *DB) LoadIndexConfig(ctx context.Context) (index.Config, bool, error) {
	var doc []byte
	err := db.QueryRowContext(ctx, `SELECT config FROM index_config WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return index.Config{}, false, nil
	}
	if err != nil {
		return index.Config{}, false, err
	}

	var cfg index.Config
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return index.Config{}, false, fmt.Errorf("failed to decode index config: %w", err)
	}
	return cfg, true, nil
}
