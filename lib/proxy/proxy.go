// Package proxy picks an outbound proxy endpoint for each page fetch
// from a fixed pool.
package proxy

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	random "github.com/mazen160/go-random"
)

// Mode selects the rotation strategy.
type Mode string

const (
	ModeRoundRobin Mode = "round_robin"
	ModeRandom     Mode = "random"
	ModeDisabled   Mode = "none"
)

// Selector chooses proxy endpoints. Safe for concurrent use: the
// round-robin counter is mutex-guarded so two callers never observe
// the same value.
type Selector struct {
	mu      sync.Mutex
	proxies []string
	mode    Mode
	index   uint64
}

func NewSelector(proxies []string, mode Mode) *Selector {
	return &Selector{proxies: proxies, mode: mode}
}

// FromFile loads one proxy URL per line, skipping blanks and
// #-comments.
func FromFile(path string, mode Mode) (*Selector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var proxies []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return NewSelector(proxies, mode), nil
}

// HasProxies reports whether the pool is non-empty.
func (s *Selector) HasProxies() bool {
	return s != nil && len(s.proxies) > 0
}

// Next returns the next endpoint according to the configured mode.
// Disabled mode and an empty pool both yield no endpoint.
func (s *Selector) Next() (string, bool) {
	if s == nil || len(s.proxies) == 0 || s.mode == ModeDisabled {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeRoundRobin:
		p := s.proxies[s.index%uint64(len(s.proxies))]
		s.index++
		return p, true
	default: // random, uniform with replacement
		i, err := random.IntRange(0, len(s.proxies))
		if err != nil {
			i = 0
		}
		return s.proxies[i], true
	}
}
