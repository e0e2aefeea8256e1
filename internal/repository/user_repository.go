package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/velmor/dnslinkbot/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sql.DB {
	return r.db
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `
SELECT id, COALESCE(first_name, ''), COALESCE(username, ''), locale, joined_at, banned, referred_by, referral_rewarded
FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var u models.User
	var banned, rewarded int
	var referredBy sql.NullInt64
	if err := row.Scan(&u.ID, &u.FirstName, &u.Username, &u.Locale, &u.JoinedAt, &banned, &referredBy, &rewarded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Banned = banned != 0
	u.ReferralRewarded = rewarded != 0
	if referredBy.Valid {
		v := referredBy.Int64
		u.ReferredBy = &v
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
INSERT INTO users (id, first_name, username, locale)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), ?)`
	locale := user.Locale
	if locale == "" {
		locale = "en"
	}
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.FirstName, user.Username, locale); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, firstName, username string) error {
	const query = `UPDATE users SET first_name = NULLIF(?, ''), username = NULLIF(?, '') WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, firstName, username, id); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Ensure returns the stored user, creating the row on first contact. The
// second return value reports whether the user was newly created.
func (r *UserRepository) Ensure(ctx context.Context, id int64, firstName, username string) (*models.User, bool, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if user.FirstName != firstName || user.Username != username {
			if err := r.UpdateProfile(ctx, id, firstName, username); err != nil {
				return nil, false, err
			}
			user.FirstName = firstName
			user.Username = username
		}
		return user, false, nil
	}
	newUser := &models.User{ID: id, FirstName: firstName, Username: username, Locale: "en"}
	if err := r.Create(ctx, newUser); err != nil {
		return nil, false, err
	}
	return newUser, true, nil
}

func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	value := 0
	if banned {
		value = 1
	}
	const query = `UPDATE users SET banned = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, value, id); err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	return nil
}

func (r *UserRepository) SetLocale(ctx context.Context, id int64, locale string) error {
	const query = `UPDATE users SET locale = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, locale, id); err != nil {
		return fmt.Errorf("set locale: %w", err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *UserRepository) CountBanned(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE banned = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count banned users: %w", err)
	}
	return count, nil
}

func (r *UserRepository) ListRecent(ctx context.Context, limit int) ([]models.User, error) {
	const query = `
SELECT id, COALESCE(first_name, ''), COALESCE(username, ''), joined_at
FROM users ORDER BY joined_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.Username, &u.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan recent user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListActiveIDs returns ids of all non-banned users, used by broadcast fan-out.
func (r *UserRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE banned = 0`)
	if err != nil {
		return nil, fmt.Errorf("list active user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
