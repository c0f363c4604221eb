package trends

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// TrendsRSS reads the Google Trends RSS feed, whose item titles are the trending queries.
type TrendsRSS struct {
	parser   *gofeed.Parser
	feedURL  string
	language string
	timeout  time.Duration
}

var _ ports.KeywordCollector = (*TrendsRSS)(nil)

// NewTrendsRSS targets feedURL.
func NewTrendsRSS(feedURL, language string, timeout time.Duration) *TrendsRSS {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	fp := gofeed.NewParser()
	fp.UserAgent = "ContentPipeline/1.0"
	return &TrendsRSS{parser: fp, feedURL: feedURL, language: language, timeout: timeout}
}

func (r *TrendsRSS) Name() string     { return "google-trends-rss" }
func (r *TrendsRSS) Language() string { return r.language }

// Collect returns the item titles of the feed.
func (r *TrendsRSS) Collect(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(r.feedURL, ctx)
	if err != nil {
		return nil, domain.TransientError("trends rss", err)
	}

	terms := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if title := strings.TrimSpace(item.Title); title != "" {
			terms = append(terms, title)
		}
	}
	return terms, nil
}
