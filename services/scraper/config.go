package scraper

import (
	"fmt"
	"time"

	"xscrape-backend/lib/fetch"
	"xscrape-backend/lib/proxy"
	"xscrape-backend/services/scraper/cache"
)

// BrowserConfig controls how profile pages are fetched.
type BrowserConfig struct {
	// Mode is "browser" (chromedp, the default) or "static" (plain
	// HTTP, for server-rendered mirrors).
	Mode           string `json:"mode"`
	Headless       *bool  `json:"headless"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
}

// CacheConfig selects and tunes the result cache backend.
type CacheConfig struct {
	// Backend is "sqlite" (default), "redis", "memory" or "none".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	RedisURL   string `json:"redis_url"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// ProxyConfig feeds the proxy selector.
type ProxyConfig struct {
	Mode    string   `json:"mode"`
	Proxies []string `json:"proxies"`
	// File is a newline-separated proxy list, consulted when Proxies
	// is empty.
	File string `json:"file"`
}

// Config is the scraper service configuration, read from config.json5
// with optional config.local.json5 overrides.
type Config struct {
	Browser BrowserConfig `json:"browser"`
	Cache   CacheConfig   `json:"cache"`
	Proxy   ProxyConfig   `json:"proxy"`

	// RateLimitSeconds is the pause between consecutive scrapes in a
	// batch. Zero disables the pause; leaving it out keeps the
	// default.
	RateLimitSeconds *float64 `json:"rate_limit_seconds"`
	// NotFoundMemoSeconds is how long a 404'd identity is remembered
	// before it is looked up again.
	NotFoundMemoSeconds int `json:"not_found_memo_seconds"`
}

func DefaultConfig() Config {
	headless := true
	rateLimit := 2.0
	return Config{
		Browser: BrowserConfig{
			Mode:           "browser",
			Headless:       &headless,
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			Backend:    "sqlite",
			Path:       "xscrape_cache.db",
			TTLSeconds: int(cache.DefaultTTL.Seconds()),
		},
		Proxy: ProxyConfig{
			Mode: string(proxy.ModeDisabled),
		},
		RateLimitSeconds:    &rateLimit,
		NotFoundMemoSeconds: 600,
	}
}

// withDefaults fills in zero-valued knobs so a sparse config file
// behaves like DefaultConfig for everything it leaves out.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Browser.Mode == "" {
		c.Browser.Mode = def.Browser.Mode
	}
	if c.Browser.Headless == nil {
		c.Browser.Headless = def.Browser.Headless
	}
	if c.Browser.TimeoutSeconds <= 0 {
		c.Browser.TimeoutSeconds = def.Browser.TimeoutSeconds
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = def.Cache.Backend
	}
	if c.Cache.Path == "" {
		c.Cache.Path = def.Cache.Path
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = def.Cache.TTLSeconds
	}
	if c.Proxy.Mode == "" {
		c.Proxy.Mode = def.Proxy.Mode
	}
	if c.RateLimitSeconds == nil {
		c.RateLimitSeconds = def.RateLimitSeconds
	} else if *c.RateLimitSeconds < 0 {
		zero := 0.0
		c.RateLimitSeconds = &zero
	}
	if c.NotFoundMemoSeconds <= 0 {
		c.NotFoundMemoSeconds = def.NotFoundMemoSeconds
	}
	return c
}

func (c Config) fetchOptions() fetch.Options {
	headless := true
	if c.Browser.Headless != nil {
		headless = *c.Browser.Headless
	}
	return fetch.Options{
		Headless:  headless,
		Timeout:   time.Duration(c.Browser.TimeoutSeconds) * time.Second,
		UserAgent: c.Browser.UserAgent,
	}
}

func newFetcher(cfg BrowserConfig) (fetch.Fetcher, error) {
	switch cfg.Mode {
	case "", "browser":
		return fetch.NewBrowser(), nil
	case "static":
		return fetch.NewStatic(), nil
	default:
		return nil, fmt.Errorf("unknown browser mode %q", cfg.Mode)
	}
}

func newStore(cfg CacheConfig) (cache.Store, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	switch cfg.Backend {
	case "", "sqlite":
		return cache.NewSqliteStore(cfg.Path, ttl), nil
	case "redis":
		return cache.NewRedisStore(cfg.RedisURL, ttl)
	case "memory":
		return cache.NewMemoryStore(ttl), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func newSelector(cfg ProxyConfig) (*proxy.Selector, error) {
	if len(cfg.Proxies) == 0 && cfg.File != "" {
		return proxy.FromFile(cfg.File, proxy.Mode(cfg.Mode))
	}
	return proxy.NewSelector(cfg.Proxies, proxy.Mode(cfg.Mode)), nil
}
