package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"xscrape-backend/lib/fetch"
	"xscrape-backend/lib/testutil"
	"xscrape-backend/services/scraper/cache"

	"github.com/stretchr/testify/require"
)

const profilePage = `<html><body>
<div data-testid="UserName">
	<span>Alpha User</span>
	<span>@AlphaUser</span>
</div>
<div data-testid="UserDescription">Scraping test fixture</div>
<article data-testid="tweet">
	<a href="/AlphaUser/status/100"><time datetime="2026-01-10T08:00:00.000Z"></time></a>
	<div data-testid="tweetText">first post</div>
</article>
</body></html>`

type stubFetcher struct {
	mu      sync.Mutex
	calls   []string
	result  fetch.Result
	err     error
	byIdent map[string]fetch.Result
}

func (f *stubFetcher) Fetch(ctx context.Context, identity string, opts fetch.Options) (fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, identity)
	if f.byIdent != nil {
		if res, ok := f.byIdent[identity]; ok {
			return res, f.err
		}
	}
	return f.result, f.err
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(t *testing.T, fetcher fetch.Fetcher) *Service {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name: "services/scraper",
	})
	t.Cleanup(cleanup)

	service := NewService(fetcher, cache.NewMemoryStore(time.Hour), nil, Config{})
	t.Cleanup(func() { service.Close() })
	return service
}

func TestScrapeAndCacheHit(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{HTML: profilePage, Success: true, StatusCode: 200}}
	service := newTestService(t, fetcher)
	ctx := context.Background()

	first, err := service.Scrape(ctx, "@AlphaUser", false)
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Equal(t, "alphauser", first.Username)
	require.False(t, first.Cached)
	require.NotNil(t, first.Profile)
	require.Equal(t, "Alpha User", first.Profile.DisplayName)
	require.Len(t, first.Tweets, 1)
	require.Equal(t, "100", first.Tweets[0].ID)

	second, err := service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)
	require.True(t, second.Success)
	require.True(t, second.Cached)
	require.NotNil(t, second.CacheAgeSeconds)
	require.Equal(t, 1, fetcher.callCount())
}

func TestScrapeFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{Success: false, Error: "Network error"}}
	service := newTestService(t, fetcher)
	ctx := context.Background()

	result, err := service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Nil(t, result.Profile)
	require.Empty(t, result.Tweets)
	require.Equal(t, "Network error", result.ErrorMessage)

	// failures are not cached
	result, err = service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 2, fetcher.callCount())
}

func TestScrapeManyOrderAndDedup(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{HTML: profilePage, Success: true, StatusCode: 200}}
	service := newTestService(t, fetcher)

	results, err := service.ScrapeMany(context.Background(), []string{"alpha", "Alpha", "beta"}, false, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "alpha", results[0].Username)
	require.Equal(t, "alpha", results[1].Username)
	require.Equal(t, "beta", results[2].Username)
	require.False(t, results[0].Cached)
	require.True(t, results[1].Cached)
	require.Equal(t, 2, fetcher.callCount())
}

func TestScrapeForceRefresh(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{HTML: profilePage, Success: true, StatusCode: 200}}
	service := newTestService(t, fetcher)
	ctx := context.Background()

	_, err := service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)

	forced, err := service.Scrape(ctx, "alphauser", true)
	require.NoError(t, err)
	require.True(t, forced.Success)
	require.False(t, forced.Cached)
	require.Equal(t, 2, fetcher.callCount())

	// the forced result was written back
	cached, err := service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)
	require.True(t, cached.Cached)
	require.Equal(t, 2, fetcher.callCount())
}

func TestScrapeNotFoundMemo(t *testing.T) {
	fetcher := &stubFetcher{
		result: fetch.Result{Success: false, Error: "profile @ghost: profile not found", StatusCode: 404},
		err:    fmt.Errorf("profile @ghost: %w", fetch.ErrNotFound),
	}
	service := newTestService(t, fetcher)
	ctx := context.Background()

	first, err := service.Scrape(ctx, "ghost", false)
	require.NoError(t, err)
	require.False(t, first.Success)

	second, err := service.Scrape(ctx, "ghost", false)
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Equal(t, first.ErrorMessage, second.ErrorMessage)
	require.Equal(t, 1, fetcher.callCount())

	_, err = service.Scrape(ctx, "ghost", true)
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.callCount())
}

func TestScrapeEmptyIdentity(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{HTML: profilePage, Success: true}}
	service := newTestService(t, fetcher)

	result, err := service.Scrape(context.Background(), "@", false)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 0, fetcher.callCount())
}

func TestInvalidateAndClearCache(t *testing.T) {
	fetcher := &stubFetcher{result: fetch.Result{HTML: profilePage, Success: true, StatusCode: 200}}
	service := newTestService(t, fetcher)
	ctx := context.Background()

	_, err := service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)

	removed, err := service.InvalidateCache(ctx, "AlphaUser")
	require.NoError(t, err)
	require.True(t, removed)

	result, err := service.Scrape(ctx, "alphauser", false)
	require.NoError(t, err)
	require.False(t, result.Cached)
	require.Equal(t, 2, fetcher.callCount())

	cleared, err := service.ClearCache(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, cleared)
}
