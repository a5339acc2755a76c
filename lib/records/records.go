// Package records defines the typed output of a scrape and the builder
// that turns the extractor's untyped field maps into validated records.
// This is the single boundary where strong typing is introduced.
package records

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"xscrape-backend/lib/extract"
	"xscrape-backend/lib/normalize"
)

// Profile is the validated profile metadata scraped from a page.
type Profile struct {
	Username        string     `json:"username"`
	DisplayName     string     `json:"display_name"`
	Bio             string     `json:"bio,omitempty"`
	Location        string     `json:"location,omitempty"`
	WebsiteURL      string     `json:"website_url,omitempty"`
	JoinedDate      *time.Time `json:"joined_date,omitempty"`
	FollowersCount  int        `json:"followers_count"`
	FollowingCount  int        `json:"following_count"`
	TotalPostsCount int        `json:"total_posts_count"`
	IsVerified      bool       `json:"is_verified"`
	ScrapedAt       time.Time  `json:"scraped_at"`
}

// Tweet is a single validated post. The numeric id string is the
// record's natural key.
type Tweet struct {
	ID        string     `json:"tweet_id"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	IsPinned  bool       `json:"is_pinned"`

	IsReply         bool   `json:"is_reply"`
	ReplyToUsername string `json:"reply_to_username,omitempty"`
	IsQuote         bool   `json:"is_quote"`
	QuotedTweetID   string `json:"quoted_tweet_id,omitempty"`
	IsRepost        bool   `json:"is_repost"`
	RepostedFrom    string `json:"reposted_from,omitempty"`

	ReplyCount  int      `json:"reply_count"`
	RepostCount int      `json:"repost_count"`
	LikeCount   int      `json:"like_count"`
	ViewCount   *int     `json:"view_count,omitempty"`
	MediaURLs   []string `json:"media_urls,omitempty"`
	TweetURL    string   `json:"tweet_url"`
}

// ScrapeResult is the unit returned to every caller and stored in the
// cache. It is constructed once per scrape; the only post-construction
// mutation allowed is the cache-hit annotation (Cached/CacheAgeSeconds).
type ScrapeResult struct {
	Success         bool      `json:"success"`
	Username        string    `json:"username"`
	Profile         *Profile  `json:"profile,omitempty"`
	Tweets          []Tweet   `json:"tweets"`
	Cached          bool      `json:"cached"`
	CacheAgeSeconds *float64  `json:"cache_age_seconds,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
	DurationMS      float64   `json:"duration_ms"`
}

// NormalizeIdentity folds a handle to its canonical lookup form:
// lowercase, no leading @.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(identity), "@"))
}

// BuildParams carries the scrape context the builder cannot derive
// from the extraction outcome itself.
type BuildParams struct {
	Identity  string
	FetchedAt time.Time
	Duration  time.Duration
}

// BuildResult converts an extraction outcome into the final typed
// result. Failures are isolated: a profile that fails validation is
// reported and dropped without failing the posts, and a malformed post
// is dropped without discarding its siblings. Overall success requires
// a present profile; post-level problems alone never flip it.
func BuildResult(outcome extract.Outcome, p BuildParams) ScrapeResult {
	identity := NormalizeIdentity(p.Identity)
	var errs []string

	var profile *Profile
	if len(outcome.Profile) > 0 {
		built, err := buildProfile(outcome.Profile, identity, p.FetchedAt)
		if err != nil {
			errs = append(errs, fmt.Sprintf("profile build: %v", err))
		} else {
			profile = &built
		}
	}

	tweets := []Tweet{}
	for _, raw := range outcome.Posts {
		tweet, err := buildTweet(raw, identity, p.FetchedAt)
		if err != nil {
			errs = append(errs, fmt.Sprintf("post build: %v", err))
			continue
		}
		tweets = append(tweets, tweet)
	}

	errs = append(errs, outcome.Errors...)

	return ScrapeResult{
		Success:      profile != nil,
		Username:     identity,
		Profile:      profile,
		Tweets:       tweets,
		ErrorMessage: strings.Join(errs, "; "),
		ScrapedAt:    p.FetchedAt,
		DurationMS:   float64(p.Duration) / float64(time.Millisecond),
	}
}

func buildProfile(raw map[string]string, identity string, fetchedAt time.Time) (Profile, error) {
	username := raw["username"]
	if username == "" {
		username = identity
	}
	displayName := raw["display_name"]
	if displayName == "" {
		displayName = username
	}

	website := raw["website_url"]
	if website != "" {
		u, err := url.Parse(website)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Profile{}, fmt.Errorf("invalid website url %q", website)
		}
	}

	profile := Profile{
		Username:        NormalizeIdentity(username),
		DisplayName:     displayName,
		Bio:             raw["bio"],
		Location:        raw["location"],
		WebsiteURL:      website,
		FollowersCount:  normalize.Count(raw["followers_count_raw"]),
		FollowingCount:  normalize.Count(raw["following_count_raw"]),
		TotalPostsCount: normalize.Count(raw["posts_count_raw"]),
		IsVerified:      raw["is_verified"] == "true",
		ScrapedAt:       fetchedAt.UTC(),
	}
	if joined, ok := normalize.JoinedDate(raw["joined_date_raw"]); ok {
		joined = joined.UTC()
		profile.JoinedDate = &joined
	}
	return profile, nil
}

func buildTweet(raw map[string]string, identity string, fetchedAt time.Time) (Tweet, error) {
	id := raw["tweet_id"]
	if id == "" {
		return Tweet{}, fmt.Errorf("missing post id")
	}

	tweetURL := raw["tweet_url"]
	if tweetURL == "" {
		tweetURL = fmt.Sprintf("https://x.com/%s/status/%s", identity, id)
	}

	tweet := Tweet{
		ID:          id,
		Text:        raw["text"],
		IsPinned:    raw["is_pinned"] == "true",
		ReplyCount:  normalize.Count(raw["reply_count_raw"]),
		RepostCount: normalize.Count(raw["repost_count_raw"]),
		LikeCount:   normalize.Count(raw["like_count_raw"]),
		TweetURL:    tweetURL,
	}

	if created, ok := normalize.PostTimestamp(raw["created_at_raw"], fetchedAt); ok {
		created = created.UTC()
		tweet.CreatedAt = &created
	}
	if views := normalize.Count(raw["view_count_raw"]); views > 0 {
		tweet.ViewCount = &views
	}
	if media := raw["media_urls"]; media != "" {
		for _, src := range strings.Fields(media) {
			u, err := url.Parse(src)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return Tweet{}, fmt.Errorf("post %s: invalid media url %q", id, src)
			}
			tweet.MediaURLs = append(tweet.MediaURLs, src)
		}
	}

	// a relationship flag is only honored when its reference survived
	// extraction; flag-without-reference would break the record's
	// invariant
	if raw["is_reply"] == "true" && raw["reply_to_username"] != "" {
		tweet.IsReply = true
		tweet.ReplyToUsername = raw["reply_to_username"]
	}
	if raw["is_quote"] == "true" && raw["quoted_tweet_id"] != "" {
		tweet.IsQuote = true
		tweet.QuotedTweetID = raw["quoted_tweet_id"]
	}
	if raw["is_repost"] == "true" && raw["reposted_from"] != "" {
		tweet.IsRepost = true
		tweet.RepostedFrom = raw["reposted_from"]
	}

	return tweet, nil
}

// FailedResult is the terminal result for a scrape whose fetch failed
// outright: no profile, no posts, the failure reason preserved.
func FailedResult(identity, reason string, at time.Time, duration time.Duration) ScrapeResult {
	return ScrapeResult{
		Success:      false,
		Username:     NormalizeIdentity(identity),
		Tweets:       []Tweet{},
		ErrorMessage: reason,
		ScrapedAt:    at.UTC(),
		DurationMS:   float64(duration) / float64(time.Millisecond),
	}
}
