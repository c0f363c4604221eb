package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ContentPipeline/internal/domain"
)

// KeywordRepository persists keywords and their provenance.
type KeywordRepository interface {
	// InsertIfAbsent atomically stores kw with its provenance record unless
	// (term, language) already exists. created is false for an existing row.
	InsertIfAbsent(ctx context.Context, kw domain.Keyword, src domain.KeywordSource) (id int64, created bool, err error)
	Reactivate(ctx context.Context, term, language string, at time.Time) error
	FindByTerm(ctx context.Context, term, language string) (domain.Keyword, error)
	FindForGeneration(ctx context.Context, language string, staleBefore time.Time, limit int) ([]domain.Keyword, error)
	MarkGenerated(ctx context.Context, id int64, at time.Time) error
}

// ContentRepository persists generated articles.
type ContentRepository interface {
	Save(ctx context.Context, content domain.Content, sources []domain.ContentSource) (int64, error)
	FindByID(ctx context.Context, id int64) (domain.Content, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ContentStatus, at time.Time) error
	FindUnposted(ctx context.Context, platform domain.Platform, limit int) ([]domain.Content, error)
	SourceURLsExist(ctx context.Context, urls []string) (map[string]bool, error)
}

// SourceRepository persists crawlable community sources.
type SourceRepository interface {
	Upsert(ctx context.Context, src domain.CommunitySource) (int64, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]domain.CommunitySource, error)
	MarkCrawled(ctx context.Context, id int64, at time.Time) error
}

// PostingRepository persists the publish idempotency ledger.
type PostingRepository interface {
	Exists(ctx context.Context, contentID int64, platform domain.Platform) (bool, error)
	// Record stores h; inserted is false when the pair was already recorded.
	Record(ctx context.Context, h domain.SocialPostingHistory) (inserted bool, err error)
}

// RevenueRepository persists daily revenue figures.
type RevenueRepository interface {
	Upsert(ctx context.Context, rev domain.DailyRevenue) (domain.DailyRevenue, error)
	Totals(ctx context.Context, from, to time.Time) (map[domain.RevenuePlatform]decimal.Decimal, error)
}

// TextProvider completes a prompt with a generative text model.
type TextProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Crawler extracts popular posts from a registered community source.
type Crawler interface {
	CrawlPopular(ctx context.Context, sourceName string) ([]domain.CrawledPost, error)
}

// KeywordCollector pulls trending terms from one upstream.
type KeywordCollector interface {
	Name() string
	Language() string
	Collect(ctx context.Context) ([]string, error)
}

// Publisher adapts one social platform.
type Publisher interface {
	Platform() domain.Platform
	ValidateToken(ctx context.Context, token domain.Token) error
	RefreshToken(ctx context.Context, token domain.Token) (domain.Token, error)
	Publish(ctx context.Context, token domain.Token, content domain.Content) (domain.PostResult, error)
}

// RevenueReporter pulls daily figures from an ad or affiliate network.
type RevenueReporter interface {
	Platform() domain.RevenuePlatform
	Daily(ctx context.Context, from, to time.Time) ([]domain.RevenueRow, error)
}

// LanguageReporter is implemented by reporters that can break revenue down by language.
type LanguageReporter interface {
	ByLanguage(ctx context.Context, from, to time.Time) ([]domain.LanguageRevenue, error)
}

// TokenStore keeps the current credential per platform.
type TokenStore interface {
	Get(ctx context.Context, platform domain.Platform) (domain.Token, error)
	Put(ctx context.Context, token domain.Token) error
}

// Scheduler controls when cadences execute.
type Scheduler interface {
	Schedule(name, spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
