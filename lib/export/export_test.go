package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xscrape-backend/lib/records"

	"github.com/stretchr/testify/require"
)

func sampleResult() records.ScrapeResult {
	scrapedAt := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	created := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	views := 900
	return records.ScrapeResult{
		Success:  true,
		Username: "sampleuser",
		Profile: &records.Profile{
			Username:       "sampleuser",
			DisplayName:    "Sample User",
			Bio:            "testing exports",
			FollowersCount: 1200,
			ScrapedAt:      scrapedAt,
		},
		Tweets: []records.Tweet{
			{
				ID:        "100",
				Text:      "first, with \"quotes\" and, commas",
				CreatedAt: &created,
				LikeCount: 7,
				ViewCount: &views,
				MediaURLs: []string{"https://pbs.twimg.com/media/a.jpg"},
				TweetURL:  "https://x.com/sampleuser/status/100",
			},
			{
				ID:              "101",
				Text:            "a reply",
				IsReply:         true,
				ReplyToUsername: "someone",
				TweetURL:        "https://x.com/sampleuser/status/101",
			},
		},
		ScrapedAt:  scrapedAt,
		DurationMS: 1500,
	}
}

func TestDefaultFilename(t *testing.T) {
	require.Equal(t, "sampleuser_20260120_120000.json", DefaultFilename(sampleResult()))
}

func TestJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, JSON(sampleResult(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded records.ScrapeResult
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "sampleuser", decoded.Username)
	require.Len(t, decoded.Tweets, 2)
}

func TestCSVPosts(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, CSVPosts(&buf, []records.ScrapeResult{sampleResult()}))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, csvHeader, rows[0])

	first := rows[1]
	require.Equal(t, "sampleuser", first[0])
	require.Equal(t, "100", first[1])
	require.Equal(t, "first, with \"quotes\" and, commas", first[2])
	require.Equal(t, "2026-01-10T08:00:00Z", first[3])
	require.Equal(t, "900", first[14])

	second := rows[2]
	require.Equal(t, "101", second[1])
	require.Equal(t, "true", second[5])
	require.Equal(t, "someone", second[6])
	require.Equal(t, "", second[14])
}

func TestProfileTable(t *testing.T) {
	var buf strings.Builder
	ProfileTable(&buf, sampleResult())

	rendered := buf.String()
	require.Contains(t, rendered, "@sampleuser")
	require.Contains(t, rendered, "Sample User")
	require.Contains(t, rendered, "1200")
}
