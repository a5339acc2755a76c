// Package scraper orchestrates a profile scrape end to end: cache
// lookup, page fetch through the configured fetcher and proxy pool,
// extraction, record building and the cache write-back.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"xscrape-backend/lib/extract"
	"xscrape-backend/lib/fetch"
	"xscrape-backend/lib/proxy"
	"xscrape-backend/lib/records"
	"xscrape-backend/services/scraper/cache"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/scraper")

// Service runs scrapes. Construct with NewService (explicit
// collaborators, used by tests and embedders) or FromConfig (builds
// the collaborators from configuration).
type Service struct {
	fetcher  fetch.Fetcher
	store    cache.Store
	proxies  *proxy.Selector
	cfg      Config
	notFound *expirable.LRU[string, string]

	closeOnce sync.Once
	closeErr  error

	now func() time.Time
}

func NewService(fetcher fetch.Fetcher, store cache.Store, proxies *proxy.Selector, cfg Config) *Service {
	cfg = cfg.withDefaults()
	memoTTL := time.Duration(cfg.NotFoundMemoSeconds) * time.Second
	return &Service{
		fetcher:  fetcher,
		store:    store,
		proxies:  proxies,
		cfg:      cfg,
		notFound: expirable.NewLRU[string, string](2048, nil, memoTTL),
		now:      time.Now,
	}
}

// FromConfig builds a service whose fetcher, cache store and proxy
// selector come from cfg.
func FromConfig(cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()

	fetcher, err := newFetcher(cfg.Browser)
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg.Cache)
	if err != nil {
		return nil, err
	}
	selector, err := newSelector(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	return NewService(fetcher, store, selector, cfg), nil
}

// Config returns the effective configuration the service runs with.
func (s *Service) Config() Config {
	return s.cfg
}

// Scrape produces the result for one identity. A fresh cache entry
// short-circuits the fetch unless force is set; force still writes the
// new result back. Fetch failures are reported inside the result, not
// as an error; the error return is reserved for cache I/O problems.
func (s *Service) Scrape(ctx context.Context, identity string, force bool) (records.ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	key := records.NormalizeIdentity(identity)
	span.SetAttributes(
		attribute.String("identity", key),
		attribute.Bool("force", force),
	)

	if key == "" {
		return records.FailedResult(identity, "empty identity", s.now(), 0), nil
	}

	if !force {
		if s.store != nil {
			hit, err := s.store.Get(ctx, key)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return records.ScrapeResult{}, fmt.Errorf("cache get @%s: %w", key, err)
			}
			if hit != nil {
				slog.InfoContext(ctx, "serving cached result",
					"identity", key, "age_seconds", *hit.CacheAgeSeconds)
				return *hit, nil
			}
		}
		if reason, ok := s.notFound.Get(key); ok {
			slog.InfoContext(ctx, "skipping recently missing profile", "identity", key)
			return records.FailedResult(key, reason, s.now(), 0), nil
		}
	}

	start := s.now()
	opts := s.cfg.fetchOptions()
	if endpoint, ok := s.proxies.Next(); ok {
		opts.Proxy = endpoint
		span.SetAttributes(attribute.String("proxy", endpoint))
	}

	fetched, err := s.fetcher.Fetch(ctx, key, opts)
	if err != nil || !fetched.Success {
		reason := fetched.Error
		if reason == "" && err != nil {
			reason = err.Error()
		}
		if errors.Is(err, fetch.ErrNotFound) {
			s.notFound.Add(key, reason)
		}
		slog.ErrorContext(ctx, "fetch failed",
			"identity", key, "status", fetched.StatusCode, "reason", reason)
		span.SetStatus(codes.Error, reason)
		return records.FailedResult(key, reason, s.now(), s.now().Sub(start)), nil
	}

	result := s.process(ctx, key, fetched.HTML, start)

	if s.store != nil && result.Success {
		if err := s.store.Set(ctx, key, result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, fmt.Errorf("cache set @%s: %w", key, err)
		}
	}

	slog.InfoContext(ctx, "scrape finished",
		"identity", key,
		"success", result.Success,
		"tweets", len(result.Tweets),
		"duration_ms", result.DurationMS)
	return result, nil
}

func (s *Service) process(ctx context.Context, key, html string, start time.Time) records.ScrapeResult {
	doc, err := extract.Parse(html)
	if err != nil {
		return records.FailedResult(key,
			fmt.Sprintf("parse html: %v", err), s.now(), s.now().Sub(start))
	}

	outcome := extract.Page(ctx, doc, key)
	fetchedAt := s.now()
	return records.BuildResult(outcome, records.BuildParams{
		Identity:  key,
		FetchedAt: fetchedAt,
		Duration:  fetchedAt.Sub(start),
	})
}

// ScrapeMany scrapes identities sequentially, preserving input order
// in the returned slice. Duplicate identities after the first are
// served from cache. Pacing runs between items but not after the last
// one; a negative pacing falls back to the configured rate limit.
func (s *Service) ScrapeMany(ctx context.Context, identities []string, force bool, pacing time.Duration) ([]records.ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "ScrapeMany")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(identities)))

	pause := pacing
	if pause < 0 {
		pause = time.Duration(*s.cfg.RateLimitSeconds * float64(time.Second))
	}
	results := make([]records.ScrapeResult, 0, len(identities))
	for i, identity := range identities {
		result, err := s.Scrape(ctx, identity, force)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return results, err
		}
		results = append(results, result)

		if pause > 0 && i < len(identities)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	return results, nil
}

// CachedResult returns the cached entry for an identity without
// triggering a fetch; nil when nothing fresh is stored.
func (s *Service) CachedResult(ctx context.Context, identity string) (*records.ScrapeResult, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Get(ctx, identity)
}

// InvalidateCache drops the cached result for one identity, reporting
// whether an entry existed.
func (s *Service) InvalidateCache(ctx context.Context, identity string) (bool, error) {
	s.notFound.Remove(records.NormalizeIdentity(identity))
	if s.store == nil {
		return false, nil
	}
	return s.store.Invalidate(ctx, identity)
}

// ClearCache drops every cached result.
func (s *Service) ClearCache(ctx context.Context) (int64, error) {
	s.notFound.Purge()
	if s.store == nil {
		return 0, nil
	}
	return s.store.Clear(ctx)
}

func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if s.store != nil {
			s.closeErr = s.store.Close()
		}
	})
	return s.closeErr
}
