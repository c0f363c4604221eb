package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"
	"github.com/go-shiori/go-readability"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/scanner"
)

const maxContentRunes = 6000

// DefaultContentSelectors are tried in order on a post page before falling
// back to readability and then to the whole body text.
var DefaultContentSelectors = []string{"div.article", "div.post-content", "div.content", "article"}

var whitespace = regexp.MustCompile(`\s+`)

// CommunityScanner crawls listing pages with CSS selectors and pulls each post body.
type CommunityScanner struct {
	client   *resty.Client
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

var _ scanner.Scanner = (*CommunityScanner)(nil)

// NewCommunityScanner wires an HTTP client. Headers set on client (User-Agent,
// Accept-Language) are sent with every request.
func NewCommunityScanner(client *resty.Client, logger *slog.Logger) *CommunityScanner {
	if client == nil {
		client = resty.New().SetTimeout(20 * time.Second)
	}
	return &CommunityScanner{client: client, logger: logger, location: time.UTC, now: time.Now}
}

// WithLocation sets the zone listing dates without an offset are read in.
func (s *CommunityScanner) WithLocation(loc *time.Location) *CommunityScanner {
	if loc != nil {
		s.location = loc
	}
	return s
}

// Scan fetches the listing of cfg and returns up to cfg.MaxPosts posts. A post
// whose page cannot be fetched is logged and skipped.
func (s *CommunityScanner) Scan(ctx context.Context, cfg scanner.Config) ([]domain.CrawledPost, error) {
	doc, _, err := s.fetchDocument(ctx, cfg.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
	}

	base := cfg.BaseURL
	if base == "" {
		base = cfg.ListingURL
	}

	limit := cfg.MaxPosts
	if limit <= 0 {
		limit = domain.DefaultMaxPostsPerCrawl
	}

	var (
		posts []domain.CrawledPost
		seen  = map[string]struct{}{}
	)
	items := doc.Find(cfg.ItemSelector)
	s.debug("listing parsed", "source", cfg.Name, "items", items.Length())

	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if ctx.Err() != nil || len(posts) >= limit {
			return false
		}

		post, ok := parseItem(item, cfg, base)
		if !ok {
			return true
		}
		if _, dup := seen[post.URL]; dup {
			return true
		}
		seen[post.URL] = struct{}{}

		body, err := s.fetchContent(ctx, post.URL, cfg.ContentSelectors)
		if err != nil {
			s.warn("skip post", "source", cfg.Name, "url", post.URL, "error", err)
			return true
		}
		post.Body = body
		post.PublishedAt = s.postedAt(item, cfg)
		posts = append(posts, post)
		return true
	})

	if err := ctx.Err(); err != nil && len(posts) == 0 {
		return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
	}
	return posts, nil
}

func parseItem(item *goquery.Selection, cfg scanner.Config, base string) (domain.CrawledPost, bool) {
	link := item.Find(cfg.TitleSelector).First()
	title := clean(link.Text())
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return domain.CrawledPost{}, false
	}

	resolved, err := resolveURL(base, href)
	if err != nil {
		return domain.CrawledPost{}, false
	}

	post := domain.CrawledPost{
		Title:      title,
		URL:        resolved,
		SourceName: cfg.Name,
		Language:   cfg.Language,
	}
	if cfg.CategorySelector != "" {
		post.Category = clean(item.Find(cfg.CategorySelector).First().Text())
	}
	if cfg.AuthorSelector != "" {
		post.Author = clean(item.Find(cfg.AuthorSelector).First().Text())
	}
	return post, true
}

// postedAt reads the listing date of item. A missing, unparseable or future
// date falls back to the crawl time.
func (s *CommunityScanner) postedAt(item *goquery.Selection, cfg scanner.Config) time.Time {
	now := s.now().UTC()
	if cfg.DateSelector == "" {
		return now
	}
	node := item.Find(cfg.DateSelector).First()
	text, _ := node.Attr("datetime")
	if text = strings.TrimSpace(text); text == "" {
		text = clean(node.Text())
	}
	if text == "" {
		return now
	}
	at, err := dateparse.ParseIn(text, s.location)
	if err != nil || at.After(now) {
		s.debug("post date ignored", "source", cfg.Name, "value", text, "error", err)
		return now
	}
	return at.UTC()
}

func (s *CommunityScanner) fetchContent(ctx context.Context, pageURL string, selectors []string) (string, error) {
	doc, raw, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if len(selectors) == 0 {
		selectors = DefaultContentSelectors
	}
	return extractContent(doc, raw, pageURL, selectors), nil
}

func extractContent(doc *goquery.Document, raw []byte, pageURL string, selectors []string) string {
	for _, sel := range selectors {
		if text := clean(doc.Find(sel).First().Text()); text != "" {
			return truncate(text)
		}
	}

	if parsed, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(raw), parsed); err == nil {
			if text := clean(article.TextContent); text != "" {
				return truncate(text)
			}
		}
	}

	return truncate(clean(doc.Find("body").Text()))
}

func (s *CommunityScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, []byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, nil, domain.TransientError("request "+pageURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, nil, domain.TransientError(fmt.Sprintf("%s returned %s", pageURL, resp.Status()), nil)
	}

	raw := resp.Body()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, domain.ParseError("parse %s: %v", pageURL, err)
	}
	return doc, raw, nil
}

func resolveURL(base, href string) (string, error) {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %s: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

func clean(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxContentRunes {
		return text
	}
	return string(runes[:maxContentRunes])
}

func (s *CommunityScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *CommunityScanner) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
