// Package fetch fills in missing post text from the post's permalink.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SocialPulse/internal/database"
)

const minContentLength = 40

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// ContentFetcher fetches post pages and extracts their readable text.
type ContentFetcher struct {
	db     *database.DB
	client *http.Client
	log    logrus.FieldLogger
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(db *database.DB, timeout time.Duration, log logrus.FieldLogger) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		db:  db,
		log: log,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingContent fetches text for up to limit posts that have a
// permalink but no content. After an HTTP error status the rest of that
// domain's posts are skipped for this run.
func (f *ContentFetcher) FetchMissingContent(ctx context.Context, limit int) *Result {
	posts, err := f.db.GetPostsNeedingFetch(limit)
	if err != nil {
		f.log.WithError(err).Error("listing posts needing fetch")
		return &Result{}
	}

	if len(posts) == 0 {
		f.log.Info("no posts need content fetching")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, post := range posts {
		if ctx.Err() != nil {
			break
		}
		domain := ""
		if u, err := url.Parse(post.Permalink); err == nil {
			domain = strings.ToLower(u.Host)
		}
		log := f.log.WithFields(logrus.Fields{"post": post.ID, "domain": domain})

		if _, failed := failedDomains[domain]; failed {
			f.db.MarkPostFetchAttempted(post.ID)
			result.Skipped++
			continue
		}

		content, err := f.fetchPostContent(ctx, post.Permalink)
		var statusErr *httpError
		if errors.As(err, &statusErr) {
			f.db.MarkPostFetchAttempted(post.ID)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.WithField("status", statusErr.code).Warn("http error, skipping remaining posts from domain")
			continue
		}

		if content != "" {
			if err := f.db.UpdatePostContent(post.ID, content); err != nil {
				log.WithError(err).Warn("storing fetched content")
				result.Failed++
				continue
			}
			result.Fetched++
			log.Debug("fetched content")
		} else {
			f.db.MarkPostFetchAttempted(post.ID)
			result.Failed++
			log.Debug("no extractable content")
		}
	}

	f.log.WithFields(logrus.Fields{"fetched": result.Fetched, "failed": result.Failed, "skipped": result.Skipped}).Info("content fetch complete")
	return result
}

// fetchPostContent returns the page's readable text. Only HTTP error
// statuses are reported as errors; network and parse failures yield "".
func (f *ContentFetcher) fetchPostContent(ctx context.Context, permalink string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, permalink, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", "SocialPulse/1.0 (analytics)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	parsedURL, _ := url.Parse(permalink)
	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) >= minContentLength {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
