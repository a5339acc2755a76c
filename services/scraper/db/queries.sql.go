package db

import (
	"context"
)

const getCacheEntry = `-- name: GetCacheEntry :one
SELECT identity, result_json, created_at, expires_at FROM cache
WHERE identity = ?
`

func (q *Queries) GetCacheEntry(ctx context.Context, identity string) (CacheEntry, error) {
	row := q.db.QueryRowContext(ctx, getCacheEntry, identity)
	var i CacheEntry
	err := row.Scan(
		&i.Identity,
		&i.ResultJson,
		&i.CreatedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const upsertCacheEntry = `-- name: UpsertCacheEntry :exec
INSERT INTO cache (identity, result_json, created_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (identity)
DO UPDATE SET result_json = excluded.result_json,
              created_at = excluded.created_at,
              expires_at = excluded.expires_at
`

type UpsertCacheEntryParams struct {
	Identity   string
	ResultJson string
	CreatedAt  float64
	ExpiresAt  float64
}

func (q *Queries) UpsertCacheEntry(ctx context.Context, arg UpsertCacheEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertCacheEntry,
		arg.Identity,
		arg.ResultJson,
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return err
}

const deleteCacheEntry = `-- name: DeleteCacheEntry :execrows
DELETE FROM cache WHERE identity = ?
`

func (q *Queries) DeleteCacheEntry(ctx context.Context, identity string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCacheEntry, identity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const clearCacheEntries = `-- name: ClearCacheEntries :execrows
DELETE FROM cache
`

func (q *Queries) ClearCacheEntries(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearCacheEntries)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredEntries = `-- name: DeleteExpiredEntries :execrows
DELETE FROM cache WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredEntries(ctx context.Context, expiresAt float64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredEntries, expiresAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countCacheEntries = `-- name: CountCacheEntries :one
SELECT COUNT(*) FROM cache
`

func (q *Queries) CountCacheEntries(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCacheEntries)
	var count int64
	err := row.Scan(&count)
	return count, err
}
