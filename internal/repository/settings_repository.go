package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored value, or the default when the setting is absent.
// Settings are read on every request; there is no cache to invalidate.
func (r *SettingsRepository) Get(ctx context.Context, name, fallback string) (string, error) {
	const query = `SELECT value FROM settings WHERE name = ?`
	var value string
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fallback, nil
		}
		return "", fmt.Errorf("get setting %s: %w", name, err)
	}
	return value, nil
}

func (r *SettingsRepository) Set(ctx context.Context, name, value string) error {
	const query = `
INSERT INTO settings (name, value) VALUES (?, ?)
ON DUPLICATE KEY UPDATE value = VALUES(value)`
	if _, err := r.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}

// EnsureDefault writes the value only when the setting does not exist yet,
// used by the startup bootstrap so operator overrides survive restarts.
func (r *SettingsRepository) EnsureDefault(ctx context.Context, name, value string) error {
	const query = `INSERT IGNORE INTO settings (name, value) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("ensure default setting %s: %w", name, err)
	}
	return nil
}
