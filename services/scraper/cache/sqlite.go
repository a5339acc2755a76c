package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"xscrape-backend/lib/records"
	"xscrape-backend/services/scraper/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/scraper/cache")

// SqliteStore persists results in a local sqlite file. The database is
// opened lazily on first use so constructing a store never touches the
// filesystem.
type SqliteStore struct {
	path       string
	defaultTTL time.Duration

	mu  sync.Mutex
	sql *sql.DB
	qry *db.Queries

	now func() time.Time
}

func NewSqliteStore(path string, defaultTTL time.Duration) *SqliteStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &SqliteStore{
		path:       path,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *SqliteStore) queries(ctx context.Context) (*db.Queries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.qry != nil {
		return s.qry, nil
	}

	database, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := database.ExecContext(ctx, db.Schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	s.sql = database
	s.qry = db.New(database)
	return s.qry, nil
}

func (s *SqliteStore) Get(ctx context.Context, identity string) (*records.ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "SqliteStore.Get")
	defer span.End()

	qry, err := s.queries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entry, err := qry.GetCacheEntry(ctx, records.NormalizeIdentity(identity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := float64(s.now().UnixNano()) / float64(time.Second)
	if entry.ExpiresAt <= now {
		return nil, nil
	}

	var result records.ScrapeResult
	if err := json.Unmarshal([]byte(entry.ResultJson), &result); err != nil {
		err = fmt.Errorf("decode cached result: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	age := time.Duration((now - entry.CreatedAt) * float64(time.Second))
	annotateHit(&result, age)
	return &result, nil
}

func (s *SqliteStore) Set(ctx context.Context, identity string, result records.ScrapeResult, ttl ...time.Duration) error {
	ctx, span := tracer.Start(ctx, "SqliteStore.Set")
	defer span.End()

	qry, err := s.queries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		err = fmt.Errorf("encode result: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	now := float64(s.now().UnixNano()) / float64(time.Second)
	err = qry.UpsertCacheEntry(ctx, db.UpsertCacheEntryParams{
		Identity:   records.NormalizeIdentity(identity),
		ResultJson: string(encoded),
		CreatedAt:  now,
		ExpiresAt:  now + effectiveTTL(s.defaultTTL, ttl).Seconds(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *SqliteStore) Invalidate(ctx context.Context, identity string) (bool, error) {
	ctx, span := tracer.Start(ctx, "SqliteStore.Invalidate")
	defer span.End()

	qry, err := s.queries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	removed, err := qry.DeleteCacheEntry(ctx, records.NormalizeIdentity(identity))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return removed > 0, nil
}

func (s *SqliteStore) Clear(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "SqliteStore.Clear")
	defer span.End()

	qry, err := s.queries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	removed, err := qry.ClearCacheEntries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return removed, nil
}

// CleanExpired removes entries whose ttl has elapsed. Expired entries
// are already invisible to Get; this reclaims their space.
func (s *SqliteStore) CleanExpired(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "SqliteStore.CleanExpired")
	defer span.End()

	qry, err := s.queries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	now := float64(s.now().UnixNano()) / float64(time.Second)
	removed, err := qry.DeleteExpiredEntries(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return removed, nil
}

// Count reports the number of entries currently stored, expired ones
// included.
func (s *SqliteStore) Count(ctx context.Context) (int64, error) {
	qry, err := s.queries(ctx)
	if err != nil {
		return 0, err
	}
	return qry.CountCacheEntries(ctx)
}

func (s *SqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sql == nil {
		return nil
	}
	err := s.sql.Close()
	s.sql = nil
	s.qry = nil
	return err
}
