package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/velmor/dnslinkbot/internal/models"
	"github.com/velmor/dnslinkbot/internal/repository"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Register creates the user on first contact or refreshes the stored profile
// on subsequent ones. The second return value reports a brand-new user.
func (s *UserService) Register(ctx context.Context, id int64, firstName, username string) (*models.User, bool, error) {
	user, created, err := s.users.Ensure(ctx, id, firstName, username)
	if err != nil {
		return nil, false, fmt.Errorf("register user: %w", err)
	}
	return user, created, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// RewardReferral grants the referrer one bonus attempt for bringing in the
// referee, at most once per referee ever. Setting referred_by and
// referral_rewarded and crediting the bonus happen in a single transaction
// with the referee row locked, so replaying the same referral argument can
// never produce a second grant.
func (s *UserService) RewardReferral(ctx context.Context, refereeID, referrerID int64) (bool, error) {
	if refereeID == referrerID {
		return false, nil
	}

	tx, err := s.users.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin referral tx: %w", err)
	}
	defer tx.Rollback()

	var referredBy sql.NullInt64
	var rewarded int
	row := tx.QueryRowContext(ctx, `SELECT referred_by, referral_rewarded FROM users WHERE id = ? FOR UPDATE`, refereeID)
	if err := row.Scan(&referredBy, &rewarded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lock referee row: %w", err)
	}
	if rewarded != 0 || referredBy.Valid {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET referred_by = ?, referral_rewarded = 1 WHERE id = ?`, referrerID, refereeID); err != nil {
		return false, fmt.Errorf("mark referral: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO quota (user_id, used, bonus, last_reset) VALUES (?, 0, 0, ?)`, referrerID, today()); err != nil {
		return false, fmt.Errorf("ensure referrer quota row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quota SET bonus = bonus + 1 WHERE user_id = ?`, referrerID); err != nil {
		return false, fmt.Errorf("grant referral bonus: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit referral tx: %w", err)
	}
	return true, nil
}

func (s *UserService) SetBanned(ctx context.Context, id int64, banned bool) error {
	return s.users.SetBanned(ctx, id, banned)
}

func (s *UserService) SetLocale(ctx context.Context, id int64, locale string) error {
	return s.users.SetLocale(ctx, id, locale)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}

func (s *UserService) CountBanned(ctx context.Context) (int, error) {
	return s.users.CountBanned(ctx)
}

func (s *UserService) ListRecent(ctx context.Context, limit int) ([]models.User, error) {
	return s.users.ListRecent(ctx, limit)
}

// ListActiveIDs returns broadcast recipients: every non-banned user.
func (s *UserService) ListActiveIDs(ctx context.Context) ([]int64, error) {
	return s.users.ListActiveIDs(ctx)
}
