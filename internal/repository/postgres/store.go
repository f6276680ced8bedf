// Package postgres implements repository.Repository with sqlx over lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/lumiabot/internal/errs"
	"github.com/m3rciful/lumiabot/internal/model"
	"github.com/m3rciful/lumiabot/internal/repository"
)

var _ repository.Repository = (*Store)(nil)

// Store is the postgres backed record repository.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type deviceRow struct {
	ProductType string        `db:"product_type"`
	Emergency   sql.NullInt64 `db:"emergency_download_id"`
}

type codeRow struct {
	ProductType string        `db:"product_type"`
	ProductCode string        `db:"product_code"`
	DownloadIDs pq.Int64Array `db:"download_ids"`
}

// Catalog loads devices and their codes in catalog order.
func (s *Store) Catalog(ctx context.Context) (model.Catalog, error) {
	var devices []deviceRow
	if err := s.db.SelectContext(ctx, &devices,
		`SELECT product_type, emergency_download_id FROM devices ORDER BY position, product_type`); err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}
	var codes []codeRow
	if err := s.db.SelectContext(ctx, &codes,
		`SELECT product_type, product_code, download_ids FROM product_codes ORDER BY product_type, position, product_code`); err != nil {
		return nil, fmt.Errorf("select product codes: %w", err)
	}

	byType := make(map[string][]model.ProductCode, len(devices))
	for _, c := range codes {
		refs := make([]int, 0, len(c.DownloadIDs))
		for _, id := range c.DownloadIDs {
			refs = append(refs, int(id))
		}
		byType[c.ProductType] = append(byType[c.ProductType], model.ProductCode{
			Code:         c.ProductCode,
			DownloadRefs: refs,
		})
	}

	catalog := make(model.Catalog, 0, len(devices))
	for _, d := range devices {
		dev := model.Device{ProductType: d.ProductType, Codes: byType[d.ProductType]}
		if d.Emergency.Valid {
			ref := int(d.Emergency.Int64)
			dev.EmergencyRef = &ref
		}
		catalog = append(catalog, dev)
	}
	return catalog, nil
}

// SeedCatalog upserts the given catalog in one transaction.
func (s *Store) SeedCatalog(ctx context.Context, catalog model.Catalog) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, d := range catalog {
		var emergency sql.NullInt64
		if d.EmergencyRef != nil {
			emergency = sql.NullInt64{Int64: int64(*d.EmergencyRef), Valid: true}
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO devices (product_type, position, emergency_download_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_type)
			DO UPDATE SET position = EXCLUDED.position, emergency_download_id = EXCLUDED.emergency_download_id`,
			d.ProductType, i, emergency); err != nil {
			return fmt.Errorf("upsert device %s: %w", d.ProductType, err)
		}
		for j, c := range d.Codes {
			ids := make(pq.Int64Array, 0, len(c.DownloadRefs))
			for _, ref := range c.DownloadRefs {
				ids = append(ids, int64(ref))
			}
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO product_codes (product_type, product_code, position, download_ids)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (product_type, product_code)
				DO UPDATE SET position = EXCLUDED.position, download_ids = EXCLUDED.download_ids`,
				d.ProductType, c.Code, j, ids); err != nil {
				return fmt.Errorf("upsert product code %s/%s: %w", d.ProductType, c.Code, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// Users lists every known user.
func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, `
		SELECT user_id, full_name, username, is_bot, total_requests, last_requested
		FROM users ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

// User fetches one user record.
func (s *Store) User(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `
		SELECT user_id, full_name, username, is_bot, total_requests, last_requested
		FROM users WHERE user_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user %d: %w", id, err)
	}
	return u, nil
}

// UpsertUser inserts or replaces a user record.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (user_id, full_name, username, is_bot, total_requests, last_requested)
		VALUES (:user_id, :full_name, :username, :is_bot, :total_requests, :last_requested)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			username = EXCLUDED.username,
			is_bot = EXCLUDED.is_bot,
			total_requests = EXCLUDED.total_requests,
			last_requested = EXCLUDED.last_requested`, u)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

// Admins lists stored admins.
func (s *Store) Admins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins,
		`SELECT user_id, full_name, username FROM admins ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("select admins: %w", err)
	}
	return admins, nil
}

// AddAdmin stores a new admin.
func (s *Store) AddAdmin(ctx context.Context, a model.Admin) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, full_name, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`, a.ID, a.FullName, a.Username)
	if err != nil {
		return fmt.Errorf("insert admin %d: %w", a.ID, err)
	}
	return affected(res, errs.ErrAlreadyAdmin)
}

// RemoveAdmin deletes an admin record.
func (s *Store) RemoveAdmin(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin %d: %w", id, err)
	}
	return affected(res, errs.ErrNotAdmin)
}

// Blocked lists blocked users.
func (s *Store) Blocked(ctx context.Context) ([]model.Blocked, error) {
	var blocked []model.Blocked
	if err := s.db.SelectContext(ctx, &blocked,
		`SELECT user_id, full_name, username, reason FROM blocked_users ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("select blocked users: %w", err)
	}
	return blocked, nil
}

// AddBlocked stores a blocked user.
func (s *Store) AddBlocked(ctx context.Context, b model.Blocked) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO blocked_users (user_id, full_name, username, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING`, b.ID, b.FullName, b.Username, b.Reason)
	if err != nil {
		return fmt.Errorf("insert blocked user %d: %w", b.ID, err)
	}
	return affected(res, errs.ErrAlreadyBlocked)
}

// RemoveBlocked deletes a blocked user record.
func (s *Store) RemoveBlocked(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blocked_users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blocked user %d: %w", id, err)
	}
	return affected(res, errs.ErrNotBlocked)
}

// affected maps a zero row count to the given guard error.
func affected(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}
