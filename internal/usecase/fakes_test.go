package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/infrastructure/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "pipeline.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeProvider) Name() string { return "fake-llm" }

func (f *fakeProvider) Complete(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakePublisher accepts only the access token named valid.
type fakePublisher struct {
	platform   domain.Platform
	valid      string
	refreshErr error
	publishErr error

	mu        sync.Mutex
	publishes int
	refreshes int
}

func (f *fakePublisher) Platform() domain.Platform { return f.platform }

func (f *fakePublisher) ValidateToken(_ context.Context, token domain.Token) error {
	if token.AccessToken != f.valid {
		return fmt.Errorf("probe: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (f *fakePublisher) RefreshToken(_ context.Context, _ domain.Token) (domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return domain.Token{}, f.refreshErr
	}
	return domain.Token{AccessToken: f.valid}, nil
}

func (f *fakePublisher) Publish(_ context.Context, _ domain.Token, content domain.Content) (domain.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	if f.publishErr != nil {
		return domain.PostResult{}, f.publishErr
	}
	id := fmt.Sprintf("post-%d", content.ID)
	return domain.PostResult{PostID: id, URL: "https://social.example/" + id}, nil
}

func (f *fakePublisher) counts() (publishes, refreshes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishes, f.refreshes
}

type fakeAuthPublisher struct {
	fakePublisher
}

func (f *fakeAuthPublisher) AuthorizationURL(state string) string {
	return "https://auth.example/authorize?state=" + state
}

func (f *fakeAuthPublisher) ExchangeCode(_ context.Context, code string) (domain.Token, error) {
	return domain.Token{AccessToken: "granted-" + code, RefreshToken: "r"}, nil
}

type fakeCrawler struct {
	mu    sync.Mutex
	posts map[string][]domain.CrawledPost
	errs  map[string]error
	calls []string
}

func (f *fakeCrawler) CrawlPopular(_ context.Context, name string) ([]domain.CrawledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.posts[name], nil
}

type fakeCollector struct {
	name, language string
	terms          []string
	err            error
}

func (f fakeCollector) Name() string     { return f.name }
func (f fakeCollector) Language() string { return f.language }
func (f fakeCollector) Collect(context.Context) ([]string, error) {
	return f.terms, f.err
}

type fakeReporter struct {
	platform domain.RevenuePlatform
	rows     []domain.RevenueRow
	err      error

	mu       sync.Mutex
	from, to time.Time
}

func (f *fakeReporter) Platform() domain.RevenuePlatform { return f.platform }

func (f *fakeReporter) Daily(_ context.Context, from, to time.Time) ([]domain.RevenueRow, error) {
	f.mu.Lock()
	f.from, f.to = from, to
	f.mu.Unlock()
	return f.rows, f.err
}

type fakeLanguageReporter struct {
	fakeReporter
	langs   []domain.LanguageRevenue
	langErr error
}

func (f *fakeLanguageReporter) ByLanguage(context.Context, time.Time, time.Time) ([]domain.LanguageRevenue, error) {
	return f.langs, f.langErr
}

func post(source, url, title string) domain.CrawledPost {
	return domain.CrawledPost{Title: title, Body: title + " body", URL: url, SourceName: source, Language: "ko"}
}
