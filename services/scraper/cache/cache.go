// Package cache provides the result cache sitting between the scraper
// orchestrator and the network. Keys are canonical identities; values
// are complete scrape results. Three backends are provided: sqlite
// (durable, the default), redis (shared between processes), and an
// in-process memory store.
package cache

import (
	"context"
	"time"

	"xscrape-backend/lib/records"
)

// DefaultTTL is used when a store is constructed without an explicit
// time-to-live.
const DefaultTTL = time.Hour

// Store is the cache contract. Get returns (nil, nil) on a miss or on
// an expired entry, never a stale result. Set accepts an optional
// per-entry ttl override; a non-positive override expires the entry
// immediately. Invalidate reports whether an entry was removed. Close
// is idempotent.
type Store interface {
	Get(ctx context.Context, identity string) (*records.ScrapeResult, error)
	Set(ctx context.Context, identity string, result records.ScrapeResult, ttl ...time.Duration) error
	Invalidate(ctx context.Context, identity string) (bool, error)
	Clear(ctx context.Context) (int64, error)
	Close() error
}

func effectiveTTL(defaultTTL time.Duration, override []time.Duration) time.Duration {
	if len(override) > 0 {
		return override[0]
	}
	return defaultTTL
}

// annotateHit marks a result as served from cache. Age is clamped at
// zero so clock skew between writer and reader cannot surface as a
// negative age.
func annotateHit(result *records.ScrapeResult, age time.Duration) {
	secs := age.Seconds()
	if secs < 0 {
		secs = 0
	}
	result.Cached = true
	result.CacheAgeSeconds = &secs
}
