package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordPriority(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"ab":                        3,
		"날씨":                        3,
		"오늘의 날씨":                    5,
		"신규 게임":                     6,
		"아주 긴 키워드 문장 예시입니다":         6,
		"이번 주 출시 예정인 인기 신작 게임 정리": 7,
		"breaking news today":       7,
		"x":                         3,
	}
	for term, want := range cases {
		assert.Equal(t, want, KeywordPriority(term), term)
	}
}

func TestKeywordPriorityStaysInRange(t *testing.T) {
	t.Parallel()

	for _, term := range []string{"", "a", "인기", "신규 출시 화제 인기 논란 이슈 총정리 모음집"} {
		p := KeywordPriority(term)
		assert.GreaterOrEqual(t, p, MinKeywordPriority)
		assert.LessOrEqual(t, p, MaxKeywordPriority)
	}
	assert.Equal(t, 1, ClampPriority(-4))
	assert.Equal(t, 10, ClampPriority(42))
}

func TestKeywordCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "health", KeywordCategory("코로나 백신 접종"))
	assert.Equal(t, "finance", KeywordCategory("비트코인 시세"))
	assert.Equal(t, "entertainment", KeywordCategory("주말 드라마"))
	assert.Equal(t, "game", KeywordCategory("신작 게임"))
	assert.Equal(t, "game", KeywordCategory("아이폰 출시"))
	assert.Equal(t, "general", KeywordCategory("날씨"))
	assert.Equal(t, "finance", KeywordCategory("Stock market"))
}

func TestKeywordDueForGeneration(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	kw := NewKeyword("  날씨  ", LanguageKorean, "google-trends", now)
	assert.Equal(t, "날씨", kw.Term)
	assert.True(t, kw.DueForGeneration(now))

	recent := now.Add(-6 * 24 * time.Hour)
	kw.LastGeneratedAt = &recent
	assert.False(t, kw.DueForGeneration(now))

	old := now.Add(-8 * 24 * time.Hour)
	kw.LastGeneratedAt = &old
	assert.True(t, kw.DueForGeneration(now))

	kw.Active = false
	assert.False(t, kw.DueForGeneration(now))
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	cases := map[string]string{
		"Hello, World!":           "hello-world",
		"  Go   1.25 -- released ": "go-125-released",
		"---":                     "",
		"한국어 제목":                  "",
		"iPhone 17 출시 소식":          "iphone-17",
		"Already-a-slug":          "already-a-slug",
	}
	for in, want := range cases {
		got := Slugify(in)
		assert.Equal(t, want, got, in)
		if got != "" {
			assert.Regexp(t, pattern, got)
		}
		assert.Equal(t, got, Slugify(got), "idempotent for %q", in)
	}
}

func TestContentSetStatusStampsPublishedAtOnce(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := Content{Status: StatusDraft}

	c.SetStatus(StatusDraft, first)
	assert.Nil(t, c.PublishedAt)

	c.SetStatus(StatusPublished, first)
	require.NotNil(t, c.PublishedAt)
	assert.Equal(t, first, *c.PublishedAt)

	later := first.Add(48 * time.Hour)
	c.SetStatus(StatusArchived, later)
	c.SetStatus(StatusPublished, later)
	assert.Equal(t, first, *c.PublishedAt)
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "짧은 본문", Excerpt("  짧은 본문 ", 100))
	assert.Equal(t, "가나다", Excerpt("가나다라마", 3))
}

func TestNormalizeLanguage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"ko":    LanguageKorean,
		"ko-KR": LanguageKorean,
		"kr":    LanguageKorean,
		"en_US": LanguageEnglish,
		"EN":    LanguageEnglish,
		"ja":    LanguageJapanese,
		"jp":    LanguageJapanese,
		"krc":   LanguageOther,
		"kri":   LanguageOther,
		"jpx":   LanguageOther,
		"fr":    LanguageOther,
		"":      LanguageOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLanguage(in), in)
	}
}

func TestSafeRatioAndCalendarDay(t *testing.T) {
	t.Parallel()

	assert.Zero(t, SafeRatio(5, 0))
	assert.InDelta(t, 0.25, SafeRatio(1, 4), 1e-9)

	kst := time.FixedZone("KST", 9*3600)
	local := time.Date(2026, 5, 2, 0, 30, 0, 0, kst)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), CalendarDay(local))
}

func TestCommunitySourceDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	src := CommunitySource{Active: true, CrawlIntervalMinutes: 180}
	assert.True(t, src.Due(now))

	recent := now.Add(-time.Hour)
	src.LastCrawledAt = &recent
	assert.False(t, src.Due(now))

	old := now.Add(-4 * time.Hour)
	src.LastCrawledAt = &old
	assert.True(t, src.Due(now))

	src.Active = false
	assert.False(t, src.Due(now))
}
