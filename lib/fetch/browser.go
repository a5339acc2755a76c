package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	primaryColumnSelector = `[data-testid="primaryColumn"]`
	tweetSelector         = `[data-testid="tweet"]`

	// posts render after the shell; give them a shorter grace period
	tweetRenderTimeout = 5 * time.Second
)

// Browser fetches pages through a headless Chrome instance so
// client-rendered markup is present in the returned HTML.
type Browser struct {
	// BaseURL exists so tests can point the browser elsewhere.
	BaseURL string

	ua uaRotation
}

func NewBrowser() *Browser {
	return &Browser{BaseURL: DefaultBaseURL}
}

func (b *Browser) Fetch(ctx context.Context, identity string, opts Options) (Result, error) {
	url := fmt.Sprintf("%s/%s", b.BaseURL, identity)

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = b.ua.next()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelTimeout()

	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"accept-language": "en-US,en;q=0.9",
		}),
	)
	if err != nil {
		wrapped := fmt.Errorf("prepare session: %w", err)
		return failure(wrapped, 0), wrapped
	}

	resp, err := chromedp.RunResponse(browserCtx, chromedp.Navigate(url))
	if err != nil {
		wrapped := fmt.Errorf("navigate %s: %w", url, err)
		return failure(wrapped, 0), wrapped
	}
	if resp == nil {
		wrapped := fmt.Errorf("navigate %s: no response received", url)
		return failure(wrapped, 0), wrapped
	}

	status := int(resp.Status)
	if err := classifyStatus(identity, status); err != nil {
		return failure(err, status), err
	}

	// wait for the shell, then for posts; neither is fatal, partial
	// pages are still worth extracting from
	waitCtx, cancelWait := context.WithTimeout(browserCtx, opts.Timeout)
	err = chromedp.Run(waitCtx, chromedp.WaitReady(primaryColumnSelector, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		slog.DebugContext(ctx, "primary column never settled", "identity", identity, "err", err)
	}

	tweetCtx, cancelTweets := context.WithTimeout(browserCtx, tweetRenderTimeout)
	err = chromedp.Run(tweetCtx, chromedp.WaitReady(tweetSelector, chromedp.ByQuery))
	cancelTweets()
	if err != nil {
		slog.DebugContext(ctx, "no posts rendered in time", "identity", identity, "err", err)
	}

	var html string
	err = chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		wrapped := fmt.Errorf("read rendered html: %w", err)
		return failure(wrapped, status), wrapped
	}

	return Result{HTML: html, Success: true, StatusCode: status}, nil
}
