package records

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"xscrape-backend/lib/extract"
)

var fetchedAt = time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

func TestNormalizeIdentity(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "@TestUser", expect: "testuser"},
		{in: "TestUser", expect: "testuser"},
		{in: "  @Already_lower ", expect: "already_lower"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, NormalizeIdentity(test.in))
	}
}

func TestBuildResult(t *testing.T) {
	outcome := extract.Outcome{
		Profile: map[string]string{
			"username":            "TestUser",
			"display_name":        "Test User",
			"bio":                 "hello",
			"website_url":         "https://example.com",
			"joined_date_raw":     "Joined March 2009",
			"followers_count_raw": "1.2K",
			"following_count_raw": "321",
			"is_verified":         "true",
		},
		Posts: []map[string]string{
			{
				"tweet_id":        "111",
				"tweet_url":       "https://x.com/TestUser/status/111",
				"text":            "pinned post body",
				"is_pinned":       "true",
				"reply_count_raw": "12",
				"like_count_raw":  "1.2K",
				"view_count_raw":  "4,321",
				"created_at_raw":  "2026-01-18T18:17:20.000Z",
				"media_urls":      "https://pbs.twimg.com/media/abc.jpg",
			},
			{
				"tweet_id":          "222",
				"text":              "a reply",
				"is_reply":          "true",
				"reply_to_username": "someone",
				"created_at_raw":    "2h",
			},
		},
	}

	result := BuildResult(outcome, BuildParams{
		Identity:  "@TestUser",
		FetchedAt: fetchedAt,
		Duration:  1500 * time.Millisecond,
	})

	require.True(t, result.Success)
	require.Equal(t, "testuser", result.Username)
	require.Empty(t, result.ErrorMessage)
	require.Equal(t, 1500.0, result.DurationMS)

	require.NotNil(t, result.Profile)
	require.Equal(t, "testuser", result.Profile.Username)
	require.Equal(t, "Test User", result.Profile.DisplayName)
	require.Equal(t, 1200, result.Profile.FollowersCount)
	require.Equal(t, 321, result.Profile.FollowingCount)
	require.True(t, result.Profile.IsVerified)
	require.NotNil(t, result.Profile.JoinedDate)
	require.Equal(t, time.March, result.Profile.JoinedDate.Month())

	require.Len(t, result.Tweets, 2)
	pinned := result.Tweets[0]
	require.True(t, pinned.IsPinned)
	require.Equal(t, 1200, pinned.LikeCount)
	require.NotNil(t, pinned.ViewCount)
	require.Equal(t, 4321, *pinned.ViewCount)
	require.Len(t, pinned.MediaURLs, 1)

	reply := result.Tweets[1]
	require.True(t, reply.IsReply)
	require.Equal(t, "someone", reply.ReplyToUsername)
	// relative timestamps anchor to the fetch time
	require.NotNil(t, reply.CreatedAt)
	require.Equal(t, fetchedAt.Add(-2*time.Hour), *reply.CreatedAt)
	// default tweet url is reconstructed from identity + id
	require.Equal(t, "https://x.com/testuser/status/222", reply.TweetURL)
}

func TestBuildResultProfileFailure(t *testing.T) {
	outcome := extract.Outcome{
		Profile: map[string]string{
			"username":    "broken",
			"website_url": "not a url",
		},
		Posts: []map[string]string{
			{"tweet_id": "1", "text": "still here"},
		},
	}

	result := BuildResult(outcome, BuildParams{Identity: "broken", FetchedAt: fetchedAt})

	require.False(t, result.Success)
	require.Nil(t, result.Profile)
	require.Contains(t, result.ErrorMessage, "profile build")
	// posts survive a profile failure
	require.Len(t, result.Tweets, 1)
}

func TestBuildResultPostIsolation(t *testing.T) {
	outcome := extract.Outcome{
		Profile: map[string]string{"username": "user"},
		Posts: []map[string]string{
			{"tweet_id": "1", "text": "good"},
			{"tweet_id": "2", "text": "bad media", "media_urls": "::not-a-url"},
			{"tweet_id": "3", "text": "also good"},
		},
	}

	result := BuildResult(outcome, BuildParams{Identity: "user", FetchedAt: fetchedAt})

	// the malformed post is dropped, its siblings are not
	require.Len(t, result.Tweets, 2)
	require.Equal(t, "1", result.Tweets[0].ID)
	require.Equal(t, "3", result.Tweets[1].ID)
	require.Contains(t, result.ErrorMessage, "post build")
	// post-level failures alone do not flip overall success
	require.True(t, result.Success)
}

func TestBuildResultEmptyProfile(t *testing.T) {
	result := BuildResult(extract.Outcome{}, BuildParams{Identity: "ghost", FetchedAt: fetchedAt})
	require.False(t, result.Success)
	require.Nil(t, result.Profile)
	require.Empty(t, result.Tweets)
}

func TestRelationshipInvariant(t *testing.T) {
	outcome := extract.Outcome{
		Profile: map[string]string{"username": "user"},
		Posts: []map[string]string{
			// flag without a surviving reference must not be honored
			{"tweet_id": "1", "is_reply": "true"},
			{"tweet_id": "2", "is_quote": "true", "quoted_tweet_id": "9"},
		},
	}
	result := BuildResult(outcome, BuildParams{Identity: "user", FetchedAt: fetchedAt})

	require.Len(t, result.Tweets, 2)
	require.False(t, result.Tweets[0].IsReply)
	require.True(t, result.Tweets[1].IsQuote)

	for _, tw := range result.Tweets {
		if tw.IsReply {
			require.NotEmpty(t, tw.ReplyToUsername)
		}
		if tw.IsQuote {
			require.NotEmpty(t, tw.QuotedTweetID)
		}
		if tw.IsRepost {
			require.NotEmpty(t, tw.RepostedFrom)
		}
	}
}

func TestScrapeResultRoundTrip(t *testing.T) {
	joined := time.Date(2009, 3, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 1, 18, 18, 17, 20, 0, time.UTC)
	views := 4321
	age := 12.5

	original := ScrapeResult{
		Success:  true,
		Username: "testuser",
		Profile: &Profile{
			Username:       "testuser",
			DisplayName:    "Test User",
			Bio:            "hello",
			WebsiteURL:     "https://example.com",
			JoinedDate:     &joined,
			FollowersCount: 1200,
			FollowingCount: 321,
			IsVerified:     true,
			ScrapedAt:      fetchedAt,
		},
		Tweets: []Tweet{
			{
				ID:              "111",
				Text:            "body",
				CreatedAt:       &created,
				IsPinned:        true,
				IsReply:         true,
				ReplyToUsername: "someone",
				ReplyCount:      12,
				LikeCount:       99,
				ViewCount:       &views,
				MediaURLs:       []string{"https://pbs.twimg.com/media/abc.jpg"},
				TweetURL:        "https://x.com/testuser/status/111",
			},
		},
		Cached:          true,
		CacheAgeSeconds: &age,
		ScrapedAt:       fetchedAt,
		DurationMS:      1500,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded ScrapeResult
	require.NoError(t, json.Unmarshal(data, &decoded))

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedResult(t *testing.T) {
	result := FailedResult("@SomeUser", "Network error", fetchedAt, time.Second)
	require.False(t, result.Success)
	require.Equal(t, "someuser", result.Username)
	require.Nil(t, result.Profile)
	require.Empty(t, result.Tweets)
	require.Equal(t, "Network error", result.ErrorMessage)
}
