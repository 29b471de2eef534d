package collect

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SocialPulse/internal/model"
)

const maxPerFeed = 50

// FeedConfig is one platform feed and the profile it belongs to.
type FeedConfig struct {
	URL       string
	Name      string
	Platform  string
	ProfileID string
	TalentID  string
}

// FeedParser parses RSS/Atom feeds into posts.
type FeedParser struct {
	feeds []FeedConfig
	log   logrus.FieldLogger
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, log logrus.FieldLogger) *FeedParser {
	return &FeedParser{feeds: feeds, log: log}
}

// ParseAll fetches every configured feed and returns the posts published at
// or after since. A failing feed is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, since time.Time) []model.Post {
	var all []model.Post

	parser := gofeed.NewParser()
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}
		log := fp.log.WithFields(logrus.Fields{"feed": name, "platform": fc.Platform})

		feed, err := parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.WithError(err).Warn("failed to parse feed")
			continue
		}
		posts := FeedPosts(feed, fc, since)
		all = append(all, posts...)
		log.WithField("posts", len(posts)).Info("parsed feed")
	}

	return all
}

// FeedPosts maps feed items to posts, keeping at most maxPerFeed items
// published at or after since.
func FeedPosts(feed *gofeed.Feed, fc FeedConfig, since time.Time) []model.Post {
	var posts []model.Post
	for _, item := range feed.Items {
		if len(posts) >= maxPerFeed {
			break
		}
		p, ok := itemPost(item, fc)
		if !ok {
			continue
		}
		if !since.IsZero() && p.CreatedAt.Before(since) {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// PostID derives a stable post id from the platform and item link.
func PostID(platform, link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(platform+"|"+link)).String()
}

func itemPost(item *gofeed.Item, fc FeedConfig) (model.Post, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if link == "" {
		return model.Post{}, false
	}

	var created time.Time
	switch {
	case item.PublishedParsed != nil:
		created = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		created = *item.UpdatedParsed
	default:
		return model.Post{}, false
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	stats := mediaStats(item.Extensions)
	if body == "" {
		body = stats.description
	}
	content := strings.TrimSpace(strings.TrimSpace(item.Title) + " " + stripHTML(body))

	return model.Post{
		ID:          PostID(fc.Platform, link),
		Platform:    fc.Platform,
		ProfileID:   fc.ProfileID,
		TalentID:    fc.TalentID,
		CreatedAt:   created,
		Content:     content,
		Permalink:   link,
		VideoViews:  stats.views,
		Reactions:   stats.likes,
		Engagements: stats.likes,
	}, true
}

type media struct {
	views       int64
	likes       int64
	description string
}

// mediaStats reads media:group statistics as published by YouTube channel
// feeds: media:community/media:statistics@views for views and
// media:community/media:starRating@count for likes.
func mediaStats(extensions ext.Extensions) media {
	var m media
	groups := extensions["media"]["group"]
	if len(groups) == 0 {
		return m
	}
	group := groups[0]
	if d := group.Children["description"]; len(d) > 0 {
		m.description = d[0].Value
	}
	community := group.Children["community"]
	if len(community) == 0 {
		return m
	}
	if s := community[0].Children["statistics"]; len(s) > 0 {
		m.views = parseCount(s[0].Attrs["views"])
	}
	if r := community[0].Children["starRating"]; len(r) > 0 {
		m.likes = parseCount(r[0].Attrs["count"])
	}
	return m
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(result.String())
	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		host = parts[len(parts)-2]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
