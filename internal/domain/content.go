package domain

import (
	"regexp"
	"strings"
	"time"
)

// ContentType classifies how an article was produced.
type ContentType string

const (
	ContentFun     ContentType = "FUN"
	ContentInfo    ContentType = "INFO"
	ContentKeyword ContentType = "KEYWORD"
)

// ContentStatus is the editorial state of an article.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "DRAFT"
	StatusPublished ContentStatus = "PUBLISHED"
	StatusArchived  ContentStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Content is a generated article.
type Content struct {
	ID             int64
	Title          string
	Slug           string
	Body           string
	Excerpt        string
	Type           ContentType
	Status         ContentStatus
	Language       string
	Source         string
	OriginalSource string
	Category       string
	Keyword        string
	Author         string
	Thumbnail      string
	ViewCount      int64
	LikeCount      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PublishedAt    *time.Time
}

// ContentSource links an article to one of the inputs it was derived from.
type ContentSource struct {
	ID          int64
	ContentID   int64
	SourceName  string
	SourceURL   string
	Description string
}

// SetStatus moves the article to status. PublishedAt is stamped the first time
// the article becomes PUBLISHED and is never cleared afterwards.
func (c *Content) SetStatus(status ContentStatus, now time.Time) {
	c.Status = status
	if status == StatusPublished && c.PublishedAt == nil {
		at := now
		c.PublishedAt = &at
	}
	c.UpdatedAt = now
}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe identifier from a title. The output matches
// ^[a-z0-9]+(-[a-z0-9]+)*$ or is empty, and Slugify(Slugify(x)) == Slugify(x).
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Excerpt returns the first limit runes of body with surrounding whitespace trimmed.
func Excerpt(body string, limit int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return strings.TrimSpace(string(runes[:limit]))
}
