package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	def := DefaultConfig()

	filled := Config{}.withDefaults()
	require.Equal(t, def.Browser.Mode, filled.Browser.Mode)
	require.Equal(t, *def.Browser.Headless, *filled.Browser.Headless)
	require.Equal(t, def.Cache.Backend, filled.Cache.Backend)
	require.NotNil(t, filled.RateLimitSeconds)
	require.Equal(t, *def.RateLimitSeconds, *filled.RateLimitSeconds)
	require.Equal(t, def.NotFoundMemoSeconds, filled.NotFoundMemoSeconds)
}

func TestConfigRateLimitZeroIsKept(t *testing.T) {
	zero := 0.0
	cfg := Config{RateLimitSeconds: &zero}.withDefaults()
	require.Equal(t, 0.0, *cfg.RateLimitSeconds)

	negative := -3.0
	cfg = Config{RateLimitSeconds: &negative}.withDefaults()
	require.Equal(t, 0.0, *cfg.RateLimitSeconds)
	// the caller's value is left alone
	require.Equal(t, -3.0, negative)
}
