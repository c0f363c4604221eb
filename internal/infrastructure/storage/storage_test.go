package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "pipeline.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrations are idempotent")
	return db
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "oracle")
	require.Error(t, err)
}

func TestKeywordInsertIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewKeywordRepository(openTestDB(t))
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	kw := domain.NewKeyword("신규 게임", "ko", "google-trends", now)
	src := domain.KeywordSource{SourceName: "google-trends", CollectedAt: now}

	id, created, err := repo.InsertIfAbsent(ctx, kw, src)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	again, created, err := repo.InsertIfAbsent(ctx, kw, domain.KeywordSource{SourceName: "naver-datalab", CollectedAt: now})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	sources, err := repo.Sources(ctx, id)
	require.NoError(t, err)
	require.Len(t, sources, 1, "duplicates add no provenance")
	assert.Equal(t, "google-trends", sources[0].SourceName)

	stored, err := repo.FindByTerm(ctx, "신규 게임", "ko")
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Priority)
	assert.Equal(t, "game", stored.Category)
	assert.True(t, stored.Active)
	assert.Nil(t, stored.LastGeneratedAt)

	_, err = repo.FindByTerm(ctx, "신규 게임", "en")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKeywordInsertIfAbsentConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewKeywordRepository(openTestDB(t))
	now := time.Now().UTC()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.InsertIfAbsent(ctx, domain.NewKeyword("race", "en", "test", now), domain.KeywordSource{SourceName: "test", CollectedAt: now})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestKeywordSelectionAndMarkGenerated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	repo := NewKeywordRepository(db)
	now := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

	insert := func(term string, priority int, active bool, last *time.Time) int64 {
		kw := domain.NewKeyword(term, "ko", "test", now)
		kw.Priority = priority
		kw.Active = active
		kw.LastGeneratedAt = last
		id, _, err := repo.InsertIfAbsent(ctx, kw, domain.KeywordSource{SourceName: "test", CollectedAt: now})
		require.NoError(t, err)
		return id
	}

	recent := now.Add(-2 * 24 * time.Hour)
	stale := now.Add(-10 * 24 * time.Hour)
	insert("low", 2, true, nil)
	insert("high", 9, true, &stale)
	insert("fresh", 10, true, &recent)
	insert("inactive", 10, false, nil)
	insert("mid", 5, true, nil)

	got, err := repo.FindForGeneration(ctx, "ko", now.Add(-domain.KeywordCooldown), 10)
	require.NoError(t, err)
	terms := make([]string, 0, len(got))
	for _, kw := range got {
		terms = append(terms, kw.Term)
	}
	assert.Equal(t, []string{"high", "mid", "low"}, terms)

	limited, err := repo.FindForGeneration(ctx, "ko", now.Add(-domain.KeywordCooldown), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.NoError(t, repo.MarkGenerated(ctx, limited[0].ID, now))
	got, err = repo.FindForGeneration(ctx, "ko", now.Add(-domain.KeywordCooldown), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.ErrorIs(t, repo.MarkGenerated(ctx, 9999, now), domain.ErrNotFound)

	require.NoError(t, repo.Reactivate(ctx, "inactive", "ko", now))
	reactivated, err := repo.FindByTerm(ctx, "inactive", "ko")
	require.NoError(t, err)
	assert.True(t, reactivated.Active)
}

func TestContentSaveAndStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	contents := NewContentRepository(db)
	postings := NewPostingRepository(db)
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	draft := domain.Content{
		Title: "Draft", Slug: "draft", Body: "body", Type: domain.ContentFun,
		Status: domain.StatusDraft, Language: "en", CreatedAt: now, UpdatedAt: now,
	}
	id, err := contents.Save(ctx, draft, []domain.ContentSource{
		{SourceName: "ruliweb", SourceURL: "https://bbs.ruliweb.com/best/1"},
	})
	require.NoError(t, err)

	stored, err := contents.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, stored.Status)
	assert.Nil(t, stored.PublishedAt)

	require.NoError(t, contents.UpdateStatus(ctx, id, domain.StatusPublished, now))
	stored, err = contents.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, now.Equal(*stored.PublishedAt))

	later := now.Add(24 * time.Hour)
	require.NoError(t, contents.UpdateStatus(ctx, id, domain.StatusArchived, later))
	require.NoError(t, contents.UpdateStatus(ctx, id, domain.StatusPublished, later))
	stored, err = contents.FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, now.Equal(*stored.PublishedAt), "published_at is set once")

	assert.ErrorIs(t, contents.UpdateStatus(ctx, 4242, domain.StatusDraft, now), domain.ErrNotFound)

	exists, err := contents.SourceURLsExist(ctx, []string{"https://bbs.ruliweb.com/best/1", "https://other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"https://bbs.ruliweb.com/best/1": true}, exists)

	unposted, err := contents.FindUnposted(ctx, domain.PlatformFacebook, 10)
	require.NoError(t, err)
	require.Len(t, unposted, 1)

	inserted, err := postings.Record(ctx, domain.SocialPostingHistory{
		ContentID: id, Platform: domain.PlatformFacebook, PostID: "p1", PostURL: "https://facebook.com/p1", PostedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = postings.Record(ctx, domain.SocialPostingHistory{
		ContentID: id, Platform: domain.PlatformFacebook, PostID: "p2", PostedAt: later,
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	history, err := postings.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "p1", history[0].PostID)

	posted, err := postings.Exists(ctx, id, domain.PlatformFacebook)
	require.NoError(t, err)
	assert.True(t, posted)

	unposted, err = contents.FindUnposted(ctx, domain.PlatformFacebook, 10)
	require.NoError(t, err)
	assert.Empty(t, unposted)

	unposted, err = contents.FindUnposted(ctx, domain.PlatformNaverBlog, 10)
	require.NoError(t, err)
	assert.Len(t, unposted, 1)
}

func TestSourceDueAndMarkCrawled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewSourceRepository(openTestDB(t))
	now := time.Now().UTC()

	lowID, err := repo.Upsert(ctx, domain.CommunitySource{Name: "low", URL: "https://low", Language: "ko", Active: true, Priority: 1})
	require.NoError(t, err)
	highID, err := repo.Upsert(ctx, domain.CommunitySource{Name: "high", URL: "https://high", Language: "ko", Active: true, Priority: 5})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.CommunitySource{Name: "off", URL: "https://off", Language: "ko", Active: false, Priority: 9})
	require.NoError(t, err)

	again, err := repo.Upsert(ctx, domain.CommunitySource{Name: "low", URL: "https://low/v2", Language: "ko", Active: true, Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, lowID, again)

	due, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "high", due[0].Name)
	assert.Equal(t, "https://low/v2", due[1].URL)
	assert.Equal(t, domain.DefaultCrawlIntervalMinutes, due[1].CrawlIntervalMinutes)

	require.NoError(t, repo.MarkCrawled(ctx, highID, now))
	due, err = repo.FindDue(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "low", due[0].Name)

	due, err = repo.FindDue(ctx, now.Add(4*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "high", due[0].Name)
}

func TestRevenueUpsertAndTotals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewRevenueRepository(openTestDB(t))
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first, err := repo.Upsert(ctx, domain.DailyRevenue{
		Date: day, Platform: domain.RevenueAdSense, Amount: decimal.RequireFromString("1200.50"),
		Impressions: 1000, Clicks: 10, Currency: "KRW", ExtraData: map[string]float64{"ctr": 0.01},
	})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, domain.DailyRevenue{
		Date: day, Platform: domain.RevenueAdSense, Amount: decimal.RequireFromString("1300.25"),
		Impressions: 1100, Clicks: 11, Currency: "KRW",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same (date, platform) is rewritten in place")

	_, err = repo.Upsert(ctx, domain.DailyRevenue{
		Date: day.AddDate(0, 0, 1), Platform: domain.RevenueAdSense, Amount: decimal.NewFromInt(100), Currency: "KRW",
	})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, domain.DailyRevenue{
		Date: day, Platform: domain.RevenueCoupang, Amount: decimal.NewFromInt(50), Currency: "KRW",
		ExtraData: map[string]float64{"orders": 2, "conversionRate": 0.1},
	})
	require.NoError(t, err)

	rows, err := repo.Find(ctx, day, day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.RevenueAdSense, rows[0].Platform)
	assert.True(t, decimal.RequireFromString("1300.25").Equal(rows[0].Amount))
	assert.Equal(t, int64(1100), rows[0].Impressions)
	assert.Empty(t, rows[0].ExtraData)
	assert.InDelta(t, 0.1, rows[1].ExtraData["conversionRate"], 1e-9)

	totals, err := repo.Totals(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1400.25").Equal(totals[domain.RevenueAdSense]))
	assert.True(t, decimal.NewFromInt(50).Equal(totals[domain.RevenueCoupang]))
}
