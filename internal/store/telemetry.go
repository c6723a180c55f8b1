package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const requestColumns = `id, request_id, provider, endpoint, method,
    request_body, response_body, status_code, duration_ms, error, created_at`

// InsertRequest appends one telemetry row. The request_id column is unique:
// a second insert with the same id fails with ErrDuplicate and leaves the
// first row untouched. Rows are never updated after this write.
func (s *Store) InsertRequest(ctx context.Context, rec RequestRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO request_logs (
            request_id, provider, endpoint, method,
            request_body, response_body, status_code, duration_ms, error, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Provider, rec.Endpoint, rec.Method,
		nullBytes(rec.Request), nullBytes(rec.Response),
		nullInt(rec.StatusCode), nullInt64(rec.DurationMS),
		nullString(rec.Error), rec.CreatedAt.Unix())
	if isUniqueViolation(err) {
		return fmt.Errorf("request %q: %w", rec.RequestID, ErrDuplicate)
	}
	if err != nil {
		return wrapUnavailable("insert request", err)
	}
	return nil
}

// RecentRequests returns up to limit rows, newest first. Ties on created_at
// (second resolution) break on the insertion surrogate key for stable paging.
func (s *Store) RecentRequests(ctx context.Context, limit int) ([]RequestRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM request_logs
         ORDER BY created_at DESC, id DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, wrapUnavailable("recent requests", err)
	}
	return collectRequests(rows)
}

// RequestsByProvider returns up to limit rows attributed to provider, newest first.
func (s *Store) RequestsByProvider(ctx context.Context, provider string, limit int) ([]RequestRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM request_logs
         WHERE provider = ?
         ORDER BY created_at DESC, id DESC LIMIT ?`, provider, normalizeLimit(limit))
	if err != nil {
		return nil, wrapUnavailable("requests by provider", err)
	}
	return collectRequests(rows)
}

// RequestStats aggregates the telemetry table: total rows, per-provider
// counts, and per-provider average duration excluding rows with no duration.
func (s *Store) RequestStats(ctx context.Context) (RequestStats, error) {
	stats := RequestStats{
		ByProvider:  []ProviderCount{},
		AvgDuration: []ProviderAvgDuration{},
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_logs`).Scan(&stats.Total); err != nil {
		return RequestStats{}, wrapUnavailable("request stats", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, COUNT(*) FROM request_logs GROUP BY provider ORDER BY provider`)
	if err != nil {
		return RequestStats{}, wrapUnavailable("request stats", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var count ProviderCount
		if err := rows.Scan(&count.Provider, &count.Count); err != nil {
			return RequestStats{}, wrapUnavailable("request stats", err)
		}
		stats.ByProvider = append(stats.ByProvider, count)
	}
	if err := rows.Err(); err != nil {
		return RequestStats{}, wrapUnavailable("request stats", err)
	}

	avgRows, err := s.db.QueryContext(ctx, `
        SELECT provider, AVG(duration_ms) FROM request_logs
        WHERE duration_ms IS NOT NULL
        GROUP BY provider ORDER BY provider`)
	if err != nil {
		return RequestStats{}, wrapUnavailable("request stats", err)
	}
	defer func() { _ = avgRows.Close() }()
	for avgRows.Next() {
		var avg ProviderAvgDuration
		if err := avgRows.Scan(&avg.Provider, &avg.AvgMS); err != nil {
			return RequestStats{}, wrapUnavailable("request stats", err)
		}
		stats.AvgDuration = append(stats.AvgDuration, avg)
	}
	if err := avgRows.Err(); err != nil {
		return RequestStats{}, wrapUnavailable("request stats", err)
	}

	return stats, nil
}

const defaultRequestLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultRequestLimit
	}
	return limit
}

func collectRequests(rows *sql.Rows) ([]RequestRecord, error) {
	defer func() { _ = rows.Close() }()

	var records []RequestRecord
	for rows.Next() {
		var (
			rec       RequestRecord
			request   sql.NullString
			response  sql.NullString
			status    sql.NullInt64
			duration  sql.NullInt64
			errText   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rec.Seq, &rec.RequestID, &rec.Provider, &rec.Endpoint,
			&rec.Method, &request, &response, &status, &duration, &errText,
			&createdAt); err != nil {
			return nil, wrapUnavailable("scan request", err)
		}
		if request.Valid {
			rec.Request = []byte(request.String)
		}
		if response.Valid {
			rec.Response = []byte(response.String)
		}
		if status.Valid {
			code := int(status.Int64)
			rec.StatusCode = &code
		}
		if duration.Valid {
			ms := duration.Int64
			rec.DurationMS = &ms
		}
		rec.Error = errText.String
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable("iterate requests", err)
	}
	return records, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
