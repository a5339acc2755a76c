// Package extract walks the rendered DOM of a profile page and pulls
// out untyped field maps for the profile and its posts. It is heuristic
// by nature: the markup shifts constantly, so every stage degrades to
// empty output plus a diagnostic instead of failing the page.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"xscrape-backend/lib/htmlutil"
)

var tracer = otel.Tracer("xscrape/lib/extract")

// Outcome is the untyped result of scanning one page. Field values are
// raw strings exactly as they appear in the markup; typing happens in
// lib/records.
type Outcome struct {
	Profile map[string]string
	Posts   []map[string]string
	Errors  []string
}

// selectors are centralized so they can be updated in one place when
// the upstream DOM changes.
var selectors = map[string]string{
	"userName":        `[data-testid="UserName"]`,
	"userDescription": `[data-testid="UserDescription"]`,
	"userJoinDate":    `[data-testid="UserJoinDate"]`,
	"userUrl":         `[data-testid="UserUrl"]`,
	"userLocation":    `[data-testid="UserLocation"]`,
	"verifiedIcon":    `[data-testid="icon-verified"]`,
	"followersLink":   `a[href$="/verified_followers"]`,
	"followingLink":   `a[href$="/following"]`,
	"tweet":           `[data-testid="tweet"]`,
	"tweetText":       `[data-testid="tweetText"]`,
	"replyButton":     `[data-testid="reply"]`,
	"retweetButton":   `[data-testid="retweet"]`,
	"likeButton":      `[data-testid="like"]`,
	"viewsLink":       `a[href*="/analytics"]`,
	"socialContext":   `[data-testid="socialContext"]`,
	"quoteContainer":  `[data-testid="quoteTweet"]`,
	"cardWrapper":     `[data-testid="card.wrapper"]`,
	"statusLink":      `a[href*="/status/"]`,
	"mediaImage":      `img[src*="pbs.twimg.com/media"]`,
}

const (
	pinnedMarker     = "Pinned"
	pinnedWalkDepth  = 20
	replyingToPhrase = "Replying to"
)

// Page extracts the profile and post field maps from a parsed document.
// The profile and post stages are recovered independently: a failure in
// one appends a diagnostic and leaves the other stage's output intact.
func Page(ctx context.Context, doc *goquery.Document, identity string) Outcome {
	_, span := tracer.Start(ctx, "Page")
	defer span.End()
	span.SetAttributes(attribute.String("identity", identity))

	out := Outcome{}

	profile, err := profileStage(doc, identity)
	if err != nil {
		out.Profile = map[string]string{}
		out.Errors = append(out.Errors, fmt.Sprintf("profile extraction: %v", err))
	} else {
		out.Profile = profile
	}

	posts, err := postStage(doc)
	if err != nil {
		out.Posts = nil
		out.Errors = append(out.Errors, fmt.Sprintf("post extraction: %v", err))
	} else {
		out.Posts = posts
	}

	span.SetAttributes(
		attribute.Int("posts", len(out.Posts)),
		attribute.Int("errors", len(out.Errors)),
	)
	return out
}

func profileStage(doc *goquery.Document, identity string) (profile map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return extractProfile(doc, identity), nil
}

func postStage(doc *goquery.Document) (posts []map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return extractPosts(doc), nil
}

func extractProfile(doc *goquery.Document, identity string) map[string]string {
	profile := map[string]string{}

	nameBlock := doc.Find(selectors["userName"]).First()
	if nameBlock.Length() > 0 {
		spans := nameBlock.Find("span")
		spans.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := htmlutil.Clean(s.Text())
			if text != "" && !strings.HasPrefix(text, "@") {
				profile["display_name"] = text
				return false
			}
			return true
		})
		spans.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := htmlutil.Clean(s.Text())
			if strings.HasPrefix(text, "@") {
				profile["username"] = strings.TrimPrefix(text, "@")
				return false
			}
			return true
		})
		if _, ok := profile["username"]; ok {
			if _, ok := profile["display_name"]; !ok {
				profile["display_name"] = profile["username"]
			}
		}
	}
	if _, ok := profile["username"]; !ok {
		profile["username"] = identity
	}

	if bio := doc.Find(selectors["userDescription"]).First(); bio.Length() > 0 {
		profile["bio"] = htmlutil.Clean(bio.Text())
	}
	if joined := doc.Find(selectors["userJoinDate"]).First(); joined.Length() > 0 {
		profile["joined_date_raw"] = htmlutil.Clean(joined.Text())
	}
	if loc := doc.Find(selectors["userLocation"]).First(); loc.Length() > 0 {
		profile["location"] = htmlutil.Clean(loc.Text())
	}
	if urlBlock := doc.Find(selectors["userUrl"]).First(); urlBlock.Length() > 0 {
		link := urlBlock.Find("a").First()
		if href, ok := link.Attr("href"); ok && href != "" {
			profile["website_url"] = href
		}
	}

	if followers := doc.Find(selectors["followersLink"]).First(); followers.Length() > 0 {
		if span := followers.Find("span").First(); span.Length() > 0 {
			profile["followers_count_raw"] = htmlutil.Clean(span.Text())
		}
	}
	if following := doc.Find(selectors["followingLink"]).First(); following.Length() > 0 {
		if span := following.Find("span").First(); span.Length() > 0 {
			profile["following_count_raw"] = htmlutil.Clean(span.Text())
		}
	}

	if doc.Find(selectors["verifiedIcon"]).Length() > 0 {
		profile["is_verified"] = "true"
	}

	return profile
}

// findPinnedID locates the post marked as pinned. Markers are leaf
// nodes whose text is exactly "Pinned"; from each marker we walk up a
// bounded number of ancestors until a post container turns up and take
// the first status id inside it. Overlapping markers resolve
// independently; the last one scanned wins.
func findPinnedID(doc *goquery.Document) string {
	pinned := ""
	leafNodes(doc, pinnedMarker, true).Each(func(_ int, marker *goquery.Selection) {
		parent := marker.Parent()
		for depth := 0; depth < pinnedWalkDepth && parent.Length() > 0; depth++ {
			container := parent.Find(selectors["tweet"]).First()
			if container.Length() == 0 {
				parent = parent.Parent()
				continue
			}
			if id, _, ok := firstStatusID(container); ok {
				pinned = id
			}
			return
		}
	})
	return pinned
}

// leafNodes returns element nodes with no element children whose text
// matches the phrase, either exactly or by substring.
func leafNodes(doc *goquery.Document, phrase string, exact bool) *goquery.Selection {
	return doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return false
		}
		text := htmlutil.Clean(htmlutil.Text(s.Nodes[0]))
		if exact {
			return text == phrase
		}
		return strings.Contains(text, phrase)
	})
}

func extractPosts(doc *goquery.Document) []map[string]string {
	pinnedID := findPinnedID(doc)

	var posts []map[string]string
	doc.Find(selectors["tweet"]).Each(func(_ int, sel *goquery.Selection) {
		post := map[string]string{}

		if text := sel.Find(selectors["tweetText"]).First(); text.Length() > 0 {
			post["text"] = htmlutil.Clean(text.Text())
		} else {
			post["text"] = ""
		}

		id, canonical, ok := firstStatusID(sel)
		if !ok {
			// a container without a status id is not a post; skip
			// silently rather than report
			return
		}
		post["tweet_id"] = id
		post["tweet_url"] = canonical
		if id == pinnedID {
			post["is_pinned"] = "true"
		}

		post["reply_count_raw"] = extractMetric(sel.Find(selectors["replyButton"]).First())
		post["repost_count_raw"] = extractMetric(sel.Find(selectors["retweetButton"]).First())
		post["like_count_raw"] = extractMetric(sel.Find(selectors["likeButton"]).First())

		if views := sel.Find(selectors["viewsLink"]).First(); views.Length() > 0 {
			post["view_count_raw"] = htmlutil.Clean(views.Text())
		}

		if stamp := sel.Find("time[datetime]").First(); stamp.Length() > 0 {
			post["created_at_raw"] = htmlutil.Attr(stamp.Nodes[0], "datetime")
		}

		var media []string
		sel.Find(selectors["mediaImage"]).Each(func(_ int, img *goquery.Selection) {
			if src := htmlutil.Attr(img.Nodes[0], "src"); src != "" {
				media = append(media, src)
			}
		})
		if len(media) > 0 {
			post["media_urls"] = strings.Join(media, " ")
		}

		if username, ok := detectReply(sel); ok {
			post["is_reply"] = "true"
			post["reply_to_username"] = username
		}
		if username, ok := detectRepost(sel); ok {
			post["is_repost"] = "true"
			post["reposted_from"] = username
		}
		if quotedID, ok := detectQuote(sel); ok {
			post["is_quote"] = "true"
			post["quoted_tweet_id"] = quotedID
		}

		posts = append(posts, post)
	})

	return posts
}

var statusPathRe = regexp.MustCompile(`/status/(\d+)`)

// firstStatusID finds the first link under sel matching the status URL
// pattern with an all-digit identifier. It returns the id and the
// canonical post URL derived from the link.
func firstStatusID(sel *goquery.Selection) (id, canonical string, ok bool) {
	sel.Find(selectors["statusLink"]).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, has := link.Attr("href")
		if !has {
			return true
		}
		candidate, valid := statusIDFromHref(href)
		if !valid {
			return true
		}
		id = candidate
		canonical = canonicalURL(href)
		ok = true
		return false
	})
	return id, canonical, ok
}

func statusIDFromHref(href string) (string, bool) {
	_, after, found := strings.Cut(href, "/status/")
	if !found {
		return "", false
	}
	id, _, _ := strings.Cut(after, "/")
	id, _, _ = strings.Cut(id, "?")
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}

func canonicalURL(href string) string {
	path, _, _ := strings.Cut(href, "?")
	if strings.HasPrefix(path, "http") {
		return path
	}
	return "https://x.com" + path
}

// extractMetric reads an engagement count off an action control,
// preferring the accessibility label ("123 Replies"), then the visible
// text of a nested span, then "0".
func extractMetric(control *goquery.Selection) string {
	if control.Length() == 0 {
		return "0"
	}
	if label, ok := control.Attr("aria-label"); ok {
		fields := strings.Fields(label)
		if len(fields) > 0 {
			return fields[0]
		}
	}
	if span := control.Find("span").First(); span.Length() > 0 {
		if text := htmlutil.Clean(span.Text()); text != "" {
			return text
		}
	}
	return "0"
}

var handleRe = regexp.MustCompile(`@(\w+)`)

// detectReply looks for the "Replying to @user" line. The primary
// heuristic scans leaf text nodes for the phrase and picks the first
// @-prefixed link next to them; the fallback reads the social context
// block.
func detectReply(sel *goquery.Selection) (string, bool) {
	found := ""
	sel.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if !strings.Contains(s.Text(), replyingToPhrase) {
			return true
		}
		s.Parent().Find(`a[href^="/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			text := htmlutil.Clean(a.Text())
			if strings.HasPrefix(text, "@") {
				found = strings.TrimPrefix(text, "@")
				return false
			}
			return true
		})
		return found == ""
	})
	if found != "" {
		return found, true
	}

	context := sel.Find(selectors["socialContext"]).First()
	if context.Length() > 0 {
		text := htmlutil.Clean(context.Text())
		if strings.Contains(text, replyingToPhrase) {
			if m := handleRe.FindStringSubmatch(text); m != nil {
				return m[1], true
			}
		}
	}

	return "", false
}

// detectRepost reads the social context line ("X reposted"). The
// original author is the first profile link that is neither a status
// link nor a multi-segment path.
func detectRepost(sel *goquery.Selection) (string, bool) {
	context := sel.Find(selectors["socialContext"]).First()
	if context.Length() == 0 {
		return "", false
	}
	text := strings.ToLower(htmlutil.Clean(context.Text()))
	if !strings.Contains(text, "reposted") && !strings.Contains(text, "retweeted") {
		return "", false
	}

	found := ""
	sel.Find(`a[href^="/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "/status/") || strings.Count(href, "/") > 1 {
			return true
		}
		found = strings.TrimPrefix(href, "/")
		return found == ""
	})
	if found == "" {
		return "", false
	}
	return found, true
}

// detectQuote finds an embedded quoted post: a dedicated quote
// container first, then a generic embedded card.
func detectQuote(sel *goquery.Selection) (string, bool) {
	for _, key := range []string{"quoteContainer", "cardWrapper"} {
		container := sel.Find(selectors[key]).First()
		if container.Length() == 0 {
			continue
		}
		if id, _, ok := firstStatusID(container); ok {
			return id, true
		}
	}
	return "", false
}

// Parse wraps goquery document construction so callers outside this
// package do not need to depend on the parser directly.
func Parse(htmlSrc string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
}
