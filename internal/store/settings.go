package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSetting returns the stored override for key.
// Returns ErrNotFound when no override exists.
func (s *Store) GetSetting(ctx context.Context, key string) (Setting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`, key)

	setting, err := scanSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Setting{}, wrapUnavailable("get setting", err)
	}
	return setting, nil
}

// AllSettings returns every stored override.
func (s *Store) AllSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, wrapUnavailable("list settings", err)
	}
	defer func() { _ = rows.Close() }()

	var settings []Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, wrapUnavailable("scan setting", err)
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable("iterate settings", err)
	}
	return settings, nil
}

// UpsertSetting writes or overwrites the override for key, stamping updated_at.
func (s *Store) UpsertSetting(ctx context.Context, key, value string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at`,
		key, value, now.Unix())
	if err != nil {
		return wrapUnavailable("upsert setting", err)
	}
	return nil
}

// DeleteSetting removes the override for key. Deleting an absent key is not
// an error; the key simply reverts to its compiled-in default.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return wrapUnavailable("delete setting", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetting(row rowScanner) (Setting, error) {
	var (
		setting   Setting
		updatedAt int64
	)
	if err := row.Scan(&setting.Key, &setting.Value, &updatedAt); err != nil {
		return Setting{}, err
	}
	setting.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return setting, nil
}
