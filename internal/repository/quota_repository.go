package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type QuotaRepository struct {
	db *sql.DB
}

func NewQuotaRepository(db *sql.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

func (r *QuotaRepository) DB() *sql.DB {
	return r.db
}

// Ensure creates the quota row for a user if it does not exist yet. Rows are
// created lazily on first quota access, not at registration.
func (r *QuotaRepository) Ensure(ctx context.Context, userID int64, today string) error {
	const query = `INSERT IGNORE INTO quota (user_id, used, bonus, last_reset) VALUES (?, 0, 0, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, today); err != nil {
		return fmt.Errorf("ensure quota row: %w", err)
	}
	return nil
}

// GrantBonus unconditionally increases the bonus allowance. Bonus never
// decreases and survives daily resets; idempotency is the caller's concern.
func (r *QuotaRepository) GrantBonus(ctx context.Context, userID int64, amount int, today string) error {
	if err := r.Ensure(ctx, userID, today); err != nil {
		return err
	}
	const query = `UPDATE quota SET bonus = bonus + ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, amount, userID); err != nil {
		return fmt.Errorf("grant bonus: %w", err)
	}
	return nil
}
