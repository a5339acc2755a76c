// Package normalize converts the raw strings pulled out of rendered
// profile markup into typed values. Every function here is total:
// garbage input degrades to a zero value instead of failing, so a
// half-broken page still produces a usable record.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var suffixMultipliers = map[string]int64{
	"K": 1_000,
	"M": 1_000_000,
	"B": 1_000_000_000,
}

// Count parses display counts like "1.2K", "1M", "1,234" or "500"
// into integers. Unparseable input yields 0.
func Count(raw string) int {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	for suffix, mult := range suffixMultipliers {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, suffix), 64)
		if err != nil {
			return 0
		}
		return clampCount(n * float64(mult))
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return clampCount(n)
}

// clampCount truncates toward zero and guards the conversion to int.
// ParseFloat accepts "inf", "nan" and negatives, none of which are
// valid display counts.
func clampCount(f float64) int {
	if math.IsNaN(f) || f < 0 || f >= math.MaxInt64 {
		return 0
	}
	return int(f)
}

// JoinedDate parses profile join dates like "Joined March 2009" at
// month+year granularity. The day is pinned to the 1st, UTC.
func JoinedDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Joined "))
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{"January 2006", "Jan 2006"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var relativeRe = regexp.MustCompile(`(?i)^(\d+)([smhd])$`)

// PostTimestamp parses the timestamp strings attached to posts. The
// page renders several shapes:
//
//	"2026-01-18T18:17:20.000Z"  machine-readable time attribute
//	"2h", "3d"                  relative to when the page was fetched
//	"Jan 5, 2024"               previous years
//	"Mar 15"                    current year
//
// Relative offsets are resolved against now, which callers should set
// to the fetch time so the same raw string always maps to the same
// instant for a given fetch. Second-granularity offsets collapse to now.
func PostTimestamp(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if strings.Contains(s, "T") && (strings.HasSuffix(s, "Z") || strings.Contains(s, "+")) {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			return t, true
		}
	}

	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch strings.ToLower(m[2]) {
			case "s":
				return now.Truncate(time.Second), true
			case "m":
				return now.Add(-time.Duration(n) * time.Minute), true
			case "h":
				return now.Add(-time.Duration(n) * time.Hour), true
			case "d":
				return now.AddDate(0, 0, -n), true
			}
		}
	}

	if t, err := time.Parse("Jan 2, 2006", s); err == nil {
		return t, true
	}
	if t, err := time.Parse("Jan 2", s); err == nil {
		return t.AddDate(now.Year(), 0, 0), true
	}

	return time.Time{}, false
}
