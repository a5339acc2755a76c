// Package fetch turns a profile identity into the rendered HTML of its
// page. Two implementations exist: a chromedp-driven browser for
// markup that only materializes client-side, and a plain HTTP client
// for server-rendered mirrors and tests. Callers treat an unsuccessful
// Result as terminal; retry policy belongs to an outer layer.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of one page fetch.
type Result struct {
	HTML       string
	Success    bool
	Error      string
	StatusCode int
}

// Options control a single fetch.
type Options struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
	Proxy     string
}

// Fetcher is the collaborator contract the scraper core consumes.
type Fetcher interface {
	Fetch(ctx context.Context, identity string, opts Options) (Result, error)
}

// Distinguishable failure classes. Everything else is reported as a
// free-text error string on the Result.
var (
	ErrNotFound = errors.New("profile not found")
	ErrBlocked  = errors.New("blocked or rate limited")
)

// DefaultBaseURL is where profile pages live.
const DefaultBaseURL = "https://x.com"

// userAgents rotate across fetches so repeated requests look less
// uniform.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// uaRotation hands out pool entries round-robin. Fetchers are shared
// across batch goroutines, so the counter is guarded.
type uaRotation struct {
	mu    sync.Mutex
	index int
}

func (r *uaRotation) next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ua := userAgents[r.index%len(userAgents)]
	r.index++
	return ua
}

// classifyStatus maps an HTTP status to the failure taxonomy. A nil
// return means the status is not a failure this package recognizes.
func classifyStatus(identity string, status int) error {
	switch {
	case status == 404:
		return fmt.Errorf("profile @%s: %w", identity, ErrNotFound)
	case status == 403 || status == 429:
		return fmt.Errorf("profile @%s (HTTP %d): %w", identity, status, ErrBlocked)
	case status >= 400:
		return fmt.Errorf("profile @%s: HTTP %d", identity, status)
	}
	return nil
}

func failure(err error, status int) Result {
	return Result{Success: false, Error: err.Error(), StatusCode: status}
}
