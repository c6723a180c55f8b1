package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const providerColumns = `id, name, type, enabled, priority, description, config, created_at, updated_at`

// InsertProvider persists a new provider row.
// Returns ErrDuplicate when the id is already registered.
func (s *Store) InsertProvider(ctx context.Context, rec ProviderRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO providers (`+providerColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Type, rec.Enabled, rec.Priority,
		rec.Description, string(rec.Config), rec.CreatedAt.Unix(), rec.UpdatedAt.Unix())
	if isUniqueViolation(err) {
		return fmt.Errorf("provider %q: %w", rec.ID, ErrDuplicate)
	}
	if err != nil {
		return wrapUnavailable("insert provider", err)
	}
	return nil
}

// GetProvider returns the provider row for id, or ErrNotFound.
func (s *Store) GetProvider(ctx context.Context, id string) (ProviderRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = ?`, id)

	rec, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProviderRecord{}, fmt.Errorf("provider %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return ProviderRecord{}, wrapUnavailable("get provider", err)
	}
	return rec, nil
}

// ListProviders returns all provider rows ordered by priority descending,
// then creation time ascending, then id for a fully deterministic order.
func (s *Store) ListProviders(ctx context.Context) ([]ProviderRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+providerColumns+` FROM providers
         ORDER BY priority DESC, created_at ASC, id ASC`)
	if err != nil {
		return nil, wrapUnavailable("list providers", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ProviderRecord
	for rows.Next() {
		rec, err := scanProvider(rows)
		if err != nil {
			return nil, wrapUnavailable("scan provider", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable("iterate providers", err)
	}
	return records, nil
}

// UpdateProvider overwrites the mutable columns of an existing row.
// The id and type columns are never updated here; immutability is enforced
// by the registry before the write reaches the store.
func (s *Store) UpdateProvider(ctx context.Context, rec ProviderRecord) error {
	result, err := s.db.ExecContext(ctx, `
        UPDATE providers
        SET name = ?, enabled = ?, priority = ?, description = ?, config = ?, updated_at = ?
        WHERE id = ?`,
		rec.Name, rec.Enabled, rec.Priority, rec.Description,
		string(rec.Config), rec.UpdatedAt.Unix(), rec.ID)
	if err != nil {
		return wrapUnavailable("update provider", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return wrapUnavailable("update provider", err)
	}
	if affected == 0 {
		return fmt.Errorf("provider %q: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// DeleteProvider removes the provider row and, in the same transaction,
// clears the active_provider setting if it pointed at the deleted id.
// The system must never be left resolving a dangling active provider.
func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM providers WHERE id = ?`, id)
		if err != nil {
			return wrapUnavailable("delete provider", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return wrapUnavailable("delete provider", err)
		}
		if affected == 0 {
			return fmt.Errorf("provider %q: %w", id, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM settings WHERE key = 'active_provider' AND value IN (?, ?)`,
			jsonString(id), id); err != nil {
			return wrapUnavailable("clear active provider", err)
		}
		return nil
	})
}

// jsonString quotes a plain id the way the settings resolver JSON-encodes
// string values, so the clear matches however the setting was written.
func jsonString(v string) string {
	return `"` + v + `"`
}

func scanProvider(row rowScanner) (ProviderRecord, error) {
	var (
		rec        ProviderRecord
		config     string
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Enabled, &rec.Priority,
		&rec.Description, &config, &createdAt, &updatedAt); err != nil {
		return ProviderRecord{}, err
	}
	rec.Config = []byte(config)
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return rec, nil
}
