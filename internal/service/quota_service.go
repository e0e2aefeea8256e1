package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/velmor/dnslinkbot/internal/config"
	"github.com/velmor/dnslinkbot/internal/repository"
)

// UnlimitedRemaining is the sentinel remaining value reported for the
// operator, who is never subject to quota accounting.
const UnlimitedRemaining = 999999

// QuotaService is the quota and referral ledger. All consumption goes through
// a single row-locked transaction per user, so two concurrent attempts can
// never both slip past the limit.
type QuotaService struct {
	cfg    config.Config
	quotas *repository.QuotaRepository
}

func NewQuotaService(cfg config.Config, quotas *repository.QuotaRepository) *QuotaService {
	return &QuotaService{cfg: cfg, quotas: quotas}
}

// IsOperator reports whether the id belongs to the configured operator.
func (s *QuotaService) IsOperator(userID int64) bool {
	return s.cfg.AdminID != 0 && userID == s.cfg.AdminID
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// CheckAndConsume decides whether the user may perform one provisioning
// action and, when allowed, records the consumption. The read, lazy daily
// reset, limit comparison and increment happen under one FOR UPDATE lock so
// concurrent attempts for the same user serialize. The consumed unit is
// committed before any DNS work starts and is never refunded on later
// failure.
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID int64) (bool, int, error) {
	if s.IsOperator(userID) {
		return true, UnlimitedRemaining, nil
	}

	day := today()
	tx, err := s.quotas.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, 0, fmt.Errorf("begin quota tx: %w", err)
	}
	defer tx.Rollback()

	used, bonus, reset, err := lockQuotaRow(ctx, tx, userID, day)
	if err != nil {
		return false, 0, err
	}

	limit := s.cfg.DailyLimit + bonus
	if used >= limit {
		// The lazy reset must still land even when the action is declined.
		if reset {
			if err := tx.Commit(); err != nil {
				return false, 0, fmt.Errorf("commit quota reset: %w", err)
			}
		}
		return false, 0, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE quota SET used = used + 1 WHERE user_id = ?`, userID); err != nil {
		return false, 0, fmt.Errorf("consume quota: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit quota tx: %w", err)
	}
	return true, limit - (used + 1), nil
}

// StatsToday reports (used, bonus, limit) after applying the same lazy daily
// reset as consumption. The operator sees the unlimited sentinel.
func (s *QuotaService) StatsToday(ctx context.Context, userID int64) (int, int, int, error) {
	if s.IsOperator(userID) {
		return 0, 0, UnlimitedRemaining, nil
	}

	day := today()
	tx, err := s.quotas.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("begin quota tx: %w", err)
	}
	defer tx.Rollback()

	used, bonus, _, err := lockQuotaRow(ctx, tx, userID, day)
	if err != nil {
		return 0, 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, 0, fmt.Errorf("commit quota tx: %w", err)
	}
	return used, bonus, s.cfg.DailyLimit + bonus, nil
}

// GrantBonus permanently raises the user's daily allowance. Callers are
// responsible for granting at most once per qualifying event.
func (s *QuotaService) GrantBonus(ctx context.Context, userID int64, amount int) error {
	return s.quotas.GrantBonus(ctx, userID, amount, today())
}

// lockQuotaRow ensures the quota row exists, locks it, and applies the lazy
// daily reset. It reports the post-reset counters and whether a reset was
// written.
func lockQuotaRow(ctx context.Context, tx *sql.Tx, userID int64, day string) (used, bonus int, reset bool, err error) {
	if _, err = tx.ExecContext(ctx, `INSERT IGNORE INTO quota (user_id, used, bonus, last_reset) VALUES (?, 0, 0, ?)`, userID, day); err != nil {
		return 0, 0, false, fmt.Errorf("ensure quota row: %w", err)
	}

	var lastReset string
	row := tx.QueryRowContext(ctx, `SELECT used, bonus, last_reset FROM quota WHERE user_id = ? FOR UPDATE`, userID)
	if err = row.Scan(&used, &bonus, &lastReset); err != nil {
		return 0, 0, false, fmt.Errorf("lock quota row: %w", err)
	}

	if lastReset != day {
		if _, err = tx.ExecContext(ctx, `UPDATE quota SET used = 0, last_reset = ? WHERE user_id = ?`, day, userID); err != nil {
			return 0, 0, false, fmt.Errorf("reset quota: %w", err)
		}
		used = 0
		reset = true
	}
	return used, bonus, reset, nil
}
