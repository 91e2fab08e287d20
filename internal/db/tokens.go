package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/session"
)

// Tokens is the token store of one Telegram user.
type Tokens struct {
	db      *DB
	ownerID int64
}

var _ session.TokenStore = (*Tokens)(nil)

// Tokens returns the store for ownerID.
func (db *DB) Tokens(ownerID int64) *Tokens {
	return &Tokens{db: db, ownerID: ownerID}
}

// Load returns the stored pair. Missing rows yield empty strings.
func (t *Tokens) Load(ctx context.Context) (session.Tokens, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT name, value FROM tokens WHERE owner_id = ?`, t.ownerID)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("load tokens: %w", err)
	}
	defer rows.Close()

	var out session.Tokens
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return session.Tokens{}, err
		}
		switch name {
		case session.AccessKey:
			out.Access = value
		case session.RefreshKey:
			out.Refresh = value
		}
	}
	return out, rows.Err()
}

// Save replaces both tokens atomically. Empty values are removed.
func (t *Tokens) Save(ctx context.Context, pair session.Tokens) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for name, value := range map[string]string{session.AccessKey: pair.Access, session.RefreshKey: pair.Refresh} {
		if err := saveToken(ctx, tx, t.ownerID, name, value, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func saveToken(ctx context.Context, tx *sql.Tx, ownerID int64, name, value string, now time.Time) error {
	if value == "" {
		_, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE owner_id = ? AND name = ?`, ownerID, name)
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tokens (owner_id, name, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		ownerID, name, value, now)
	return err
}

// Clear removes both tokens.
func (t *Tokens) Clear(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM tokens WHERE owner_id = ?`, t.ownerID)
	return err
}

// Owners lists the users that have a stored refresh token.
func (db *DB) Owners(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM tokens WHERE name = ? ORDER BY owner_id`, session.RefreshKey)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
