package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/velmor/dnslinkbot/internal/models"
)

type DomainRepository struct {
	db *sql.DB
}

func NewDomainRepository(db *sql.DB) *DomainRepository {
	return &DomainRepository{db: db}
}

func (r *DomainRepository) Insert(ctx context.Context, d *models.Subdomain) error {
	const query = `INSERT INTO domains (user_id, subdomain, ip) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, d.UserID, d.FQDN, d.IP)
	if err != nil {
		return fmt.Errorf("insert domain: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("domain last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// FindByOwnerAndName looks a binding up by its (owner, fqdn) pair. Ownership
// checks go through here so a user can never address another user's rows.
func (r *DomainRepository) FindByOwnerAndName(ctx context.Context, userID int64, fqdn string) (*models.Subdomain, error) {
	const query = `
SELECT id, user_id, subdomain, ip, created_at
FROM domains WHERE user_id = ? AND subdomain = ?`
	row := r.db.QueryRowContext(ctx, query, userID, fqdn)
	var d models.Subdomain
	if err := row.Scan(&d.ID, &d.UserID, &d.FQDN, &d.IP, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan domain: %w", err)
	}
	return &d, nil
}

func (r *DomainRepository) UpdateIP(ctx context.Context, userID int64, fqdn, ip string) error {
	const query = `UPDATE domains SET ip = ? WHERE user_id = ? AND subdomain = ?`
	if _, err := r.db.ExecContext(ctx, query, ip, userID, fqdn); err != nil {
		return fmt.Errorf("update domain ip: %w", err)
	}
	return nil
}

func (r *DomainRepository) Delete(ctx context.Context, userID int64, fqdn string) error {
	const query = `DELETE FROM domains WHERE user_id = ? AND subdomain = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, fqdn); err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	return nil
}

func (r *DomainRepository) ListByOwner(ctx context.Context, userID int64, limit int) ([]models.Subdomain, error) {
	const query = `
SELECT id, user_id, subdomain, ip, created_at
FROM domains WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []models.Subdomain
	for rows.Next() {
		var d models.Subdomain
		if err := rows.Scan(&d.ID, &d.UserID, &d.FQDN, &d.IP, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan domain list: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (r *DomainRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM domains`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return count, nil
}
