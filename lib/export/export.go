// Package export renders scrape results for humans and downstream
// tools: JSON files, flattened CSV of posts, and terminal tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"xscrape-backend/lib/records"

	"github.com/jedib0t/go-pretty/v6/table"
)

// DefaultFilename names an export file after its subject and scrape
// time.
func DefaultFilename(result records.ScrapeResult) string {
	return fmt.Sprintf("%s_%s.json", result.Username, result.ScrapedAt.UTC().Format("20060102_150405"))
}

// JSON writes one result, pretty printed, to path.
func JSON(result records.ScrapeResult, path string) error {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var csvHeader = []string{
	"username", "tweet_id", "text", "created_at", "is_pinned",
	"is_reply", "reply_to_username", "is_repost", "reposted_from",
	"is_quote", "quoted_tweet_id", "reply_count", "repost_count",
	"like_count", "view_count", "media_urls", "tweet_url",
}

// CSVPosts flattens every post of every result into one CSV stream,
// one row per post.
func CSVPosts(w io.Writer, results []records.ScrapeResult) error {
	out := csv.NewWriter(w)
	if err := out.Write(csvHeader); err != nil {
		return err
	}

	for _, result := range results {
		for _, tweet := range result.Tweets {
			createdAt := ""
			if tweet.CreatedAt != nil {
				createdAt = tweet.CreatedAt.UTC().Format(time.RFC3339)
			}
			views := ""
			if tweet.ViewCount != nil {
				views = strconv.Itoa(*tweet.ViewCount)
			}
			row := []string{
				result.Username,
				tweet.ID,
				tweet.Text,
				createdAt,
				strconv.FormatBool(tweet.IsPinned),
				strconv.FormatBool(tweet.IsReply),
				tweet.ReplyToUsername,
				strconv.FormatBool(tweet.IsRepost),
				tweet.RepostedFrom,
				strconv.FormatBool(tweet.IsQuote),
				tweet.QuotedTweetID,
				strconv.Itoa(tweet.ReplyCount),
				strconv.Itoa(tweet.RepostCount),
				strconv.Itoa(tweet.LikeCount),
				views,
				strings.Join(tweet.MediaURLs, " "),
				tweet.TweetURL,
			}
			if err := out.Write(row); err != nil {
				return err
			}
		}
	}

	out.Flush()
	return out.Error()
}

// ProfileTable renders the profile summary the CLI prints.
func ProfileTable(w io.Writer, result records.ScrapeResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Username", "@" + result.Username})

	if result.Profile != nil {
		p := result.Profile
		t.AppendRow(table.Row{"Display name", p.DisplayName})
		if p.Bio != "" {
			t.AppendRow(table.Row{"Bio", p.Bio})
		}
		if p.Location != "" {
			t.AppendRow(table.Row{"Location", p.Location})
		}
		if p.WebsiteURL != "" {
			t.AppendRow(table.Row{"Website", p.WebsiteURL})
		}
		if p.JoinedDate != nil {
			t.AppendRow(table.Row{"Joined", p.JoinedDate.Format("January 2006")})
		}
		t.AppendRow(table.Row{"Followers", p.FollowersCount})
		t.AppendRow(table.Row{"Following", p.FollowingCount})
		t.AppendRow(table.Row{"Verified", p.IsVerified})
	}

	t.AppendRow(table.Row{"Posts scraped", len(result.Tweets)})
	t.AppendRow(table.Row{"Success", result.Success})
	if result.Cached && result.CacheAgeSeconds != nil {
		t.AppendRow(table.Row{"Cache age", fmt.Sprintf("%.0fs", *result.CacheAgeSeconds)})
	}
	if result.ErrorMessage != "" {
		t.AppendRow(table.Row{"Errors", result.ErrorMessage})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
