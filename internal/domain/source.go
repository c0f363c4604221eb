package domain

import "time"

const (
	DefaultMaxPostsPerCrawl     = 10
	DefaultCrawlIntervalMinutes = 180
	DefaultSourcePriority       = 1
)

// CommunitySource is a crawlable community site tracked in storage.
type CommunitySource struct {
	ID                   int64
	Name                 string
	URL                  string
	Language             string
	SelectorConfig       string
	Active               bool
	MaxPostsPerCrawl     int
	CrawlIntervalMinutes int
	LastCrawledAt        *time.Time
	Priority             int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Due reports whether the source should be crawled at now.
func (s CommunitySource) Due(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.LastCrawledAt == nil {
		return true
	}
	interval := time.Duration(s.CrawlIntervalMinutes) * time.Minute
	return s.LastCrawledAt.Before(now.Add(-interval))
}

// CrawledPost is one item extracted from a community listing. It only lives
// between a crawl pass and the generation pass that consumes it.
type CrawledPost struct {
	Title       string
	Body        string
	URL         string
	SourceName  string
	Category    string
	Author      string
	Language    string
	Likes       int
	Comments    int
	PublishedAt time.Time
}
