package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const profileFixture = `<!DOCTYPE html>
<html><body>
<div data-testid="primaryColumn">
  <div data-testid="UserName">
    <span>Test User</span>
    <span>@TestUser</span>
  </div>
  <div data-testid="UserDescription">Building   things.</div>
  <span data-testid="UserLocation">Berlin</span>
  <span data-testid="UserJoinDate">Joined March 2009</span>
  <div data-testid="UserUrl"><a href="https://example.com">example.com</a></div>
  <svg data-testid="icon-verified"></svg>
  <a href="/TestUser/verified_followers"><span>1.2K</span> Followers</a>
  <a href="/TestUser/following"><span>321</span> Following</a>

  <div class="cell">
    <span>Pinned</span>
    <article data-testid="tweet">
      <a href="/TestUser/status/111?ref=home"><time datetime="2026-01-18T18:17:20.000Z">Jan 18</time></a>
      <div data-testid="tweetText">pinned post body</div>
      <button data-testid="reply" aria-label="12 Replies"></button>
      <button data-testid="retweet" aria-label="3 reposts"></button>
      <button data-testid="like" aria-label="99 Likes"></button>
      <a href="/TestUser/status/111/analytics">4,321</a>
      <img src="https://pbs.twimg.com/media/abc.jpg">
      <img src="https://pbs.twimg.com/media/def.jpg">
    </article>
  </div>

  <article data-testid="tweet">
    <div><span>Replying to </span><a href="/someone">@someone</a></div>
    <a href="/TestUser/status/222">link</a>
    <div data-testid="tweetText">a reply</div>
    <button data-testid="reply"><span>1</span></button>
  </article>

  <article data-testid="tweet">
    <div data-testid="socialContext">Test User reposted</div>
    <a href="/original_author">Original Author</a>
    <a href="/original_author/status/333">link</a>
    <div data-testid="tweetText">reposted body</div>
  </article>

  <article data-testid="tweet">
    <a href="/TestUser/status/444">link</a>
    <div data-testid="tweetText">check this out</div>
    <div data-testid="quoteTweet">
      <a href="/other/status/555">quoted</a>
    </div>
  </article>

  <article data-testid="tweet">
    <div data-testid="tweetText">promo placeholder without a status link</div>
  </article>
</div>
</body></html>`

func parseFixture(t *testing.T, src string) Outcome {
	doc, err := Parse(src)
	require.NoError(t, err)
	return Page(context.Background(), doc, "testuser")
}

func TestExtractProfile(t *testing.T) {
	out := parseFixture(t, profileFixture)
	require.Empty(t, out.Errors)

	require.Equal(t, "TestUser", out.Profile["username"])
	require.Equal(t, "Test User", out.Profile["display_name"])
	require.Equal(t, "Building things.", out.Profile["bio"])
	require.Equal(t, "Berlin", out.Profile["location"])
	require.Equal(t, "Joined March 2009", out.Profile["joined_date_raw"])
	require.Equal(t, "https://example.com", out.Profile["website_url"])
	require.Equal(t, "1.2K", out.Profile["followers_count_raw"])
	require.Equal(t, "321", out.Profile["following_count_raw"])
	require.Equal(t, "true", out.Profile["is_verified"])
}

func TestExtractProfileFallbacks(t *testing.T) {
	// page with no identity block at all: requested identity wins
	out := parseFixture(t, `<html><body><div></div></body></html>`)
	require.Equal(t, "testuser", out.Profile["username"])
	_, hasName := out.Profile["display_name"]
	require.False(t, hasName)

	// handle present but no display name: display name defaults to handle
	out = parseFixture(t, `<html><body>
		<div data-testid="UserName"><span>@OnlyHandle</span></div>
	</body></html>`)
	require.Equal(t, "OnlyHandle", out.Profile["username"])
	require.Equal(t, "OnlyHandle", out.Profile["display_name"])
}

func TestExtractPosts(t *testing.T) {
	out := parseFixture(t, profileFixture)

	// the idless promo container is dropped silently
	require.Len(t, out.Posts, 4)

	pinned := out.Posts[0]
	require.Equal(t, "111", pinned["tweet_id"])
	require.Equal(t, "https://x.com/TestUser/status/111", pinned["tweet_url"])
	require.Equal(t, "true", pinned["is_pinned"])
	require.Equal(t, "pinned post body", pinned["text"])
	require.Equal(t, "12", pinned["reply_count_raw"])
	require.Equal(t, "3", pinned["repost_count_raw"])
	require.Equal(t, "99", pinned["like_count_raw"])
	require.Equal(t, "4,321", pinned["view_count_raw"])
	require.Equal(t, "2026-01-18T18:17:20.000Z", pinned["created_at_raw"])
	require.Equal(t,
		"https://pbs.twimg.com/media/abc.jpg https://pbs.twimg.com/media/def.jpg",
		pinned["media_urls"])

	reply := out.Posts[1]
	require.Equal(t, "222", reply["tweet_id"])
	require.Equal(t, "true", reply["is_reply"])
	require.Equal(t, "someone", reply["reply_to_username"])
	require.Equal(t, "1", reply["reply_count_raw"])
	_, ok := reply["is_pinned"]
	require.False(t, ok)

	repost := out.Posts[2]
	require.Equal(t, "333", repost["tweet_id"])
	require.Equal(t, "true", repost["is_repost"])
	require.Equal(t, "original_author", repost["reposted_from"])
	// missing action controls degrade to the literal zero
	require.Equal(t, "0", repost["like_count_raw"])

	quote := out.Posts[3]
	require.Equal(t, "444", quote["tweet_id"])
	require.Equal(t, "true", quote["is_quote"])
	require.Equal(t, "555", quote["quoted_tweet_id"])
}

func TestAtMostOnePinned(t *testing.T) {
	out := parseFixture(t, profileFixture)
	pinnedCount := 0
	for _, post := range out.Posts {
		if post["is_pinned"] == "true" {
			pinnedCount++
		}
	}
	require.Equal(t, 1, pinnedCount)
}

func TestStatusIDFromHref(t *testing.T) {
	testCases := []struct {
		href   string
		expect string
		ok     bool
	}{
		{href: "/user/status/123", expect: "123", ok: true},
		{href: "/user/status/123?s=20", expect: "123", ok: true},
		{href: "/user/status/123/photo/1", expect: "123", ok: true},
		{href: "https://x.com/user/status/987", expect: "987", ok: true},
		{href: "/user/status/abc", ok: false},
		{href: "/user/with_replies", ok: false},
		{href: "/user/status/", ok: false},
	}
	for _, test := range testCases {
		id, ok := statusIDFromHref(test.href)
		require.Equal(t, test.ok, ok, "href=%q", test.href)
		if test.ok {
			require.Equal(t, test.expect, id, "href=%q", test.href)
		}
	}
}
