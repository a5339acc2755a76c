package fetch

import (
	"context"
	"fmt"
	"time"

	"xscrape-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// Static fetches pages with a plain HTTP client. It cannot see
// client-rendered content, so it is only useful against server-side
// rendered pages (mirrors) and in tests, where it doubles as a cheap
// stand-in for the browser.
type Static struct {
	BaseURL string

	ua uaRotation
}

func NewStatic() *Static {
	return &Static{BaseURL: DefaultBaseURL}
}

func (s *Static) Fetch(ctx context.Context, identity string, opts Options) (Result, error) {
	url := fmt.Sprintf("%s/%s", s.BaseURL, identity)

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = s.ua.next()
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", ua)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	telemetry.InstrumentResty(client, "lib/fetch/static")
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}

	res, err := client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		wrapped := fmt.Errorf("get %s: %w", url, err)
		return failure(wrapped, 0), wrapped
	}

	status := res.StatusCode()
	if err := classifyStatus(identity, status); err != nil {
		return failure(err, status), err
	}

	return Result{HTML: string(res.Body()), Success: true, StatusCode: status}, nil
}
