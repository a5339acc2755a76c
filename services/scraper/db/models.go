package db

type CacheEntry struct {
	Identity   string
	ResultJson string
	CreatedAt  float64
	ExpiresAt  float64
}
