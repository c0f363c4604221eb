package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/infrastructure/storage"
	"ContentPipeline/internal/logging"
)

var revenueDay = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

func TestIngestStoresDerivedMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := storage.NewRevenueRepository(openDB(t))
	coupang := &fakeReporter{platform: domain.RevenueCoupang, rows: []domain.RevenueRow{
		{Date: revenueDay, Amount: decimal.RequireFromString("1250.50"), Impressions: 0, Clicks: 40, Orders: 2, Currency: "KRW"},
	}}
	agg := NewRevenueAggregator(repo, logging.Discard(), coupang)

	saved, err := agg.Ingest(ctx, domain.RevenueCoupang, revenueDay, revenueDay)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 0.05, saved[0].ExtraData["conversionRate"])
	assert.Equal(t, 0.0, saved[0].ExtraData["ctr"], "zero impressions give a zero ratio")

	// a second report for the same day replaces the figure
	coupang.rows[0].Amount = decimal.RequireFromString("1300")
	_, err = agg.Ingest(ctx, domain.RevenueCoupang, revenueDay, revenueDay)
	require.NoError(t, err)

	rows, err := repo.Find(ctx, revenueDay, revenueDay)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, decimal.RequireFromString("1300").Equal(rows[0].Amount))

	totals, err := agg.Totals(ctx, revenueDay.Add(-24*time.Hour), revenueDay)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1300").Equal(totals[domain.RevenueCoupang]))
}

func TestIngestErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := storage.NewRevenueRepository(openDB(t))
	failing := &fakeReporter{platform: domain.RevenueAdSense, err: domain.TransientError("adsense", errors.New("timeout"))}
	agg := NewRevenueAggregator(repo, nil, failing)

	_, err := agg.Ingest(ctx, domain.RevenueAdSense, revenueDay, revenueDay)
	assert.ErrorIs(t, err, domain.ErrTransientExternal)

	_, err = agg.Ingest(ctx, domain.RevenueCoupang, revenueDay, revenueDay)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestByLanguageBuckets(t *testing.T) {
	t.Parallel()

	adsense := &fakeLanguageReporter{
		fakeReporter: fakeReporter{platform: domain.RevenueAdSense},
		langs: []domain.LanguageRevenue{
			{Language: "ko", Amount: decimal.NewFromInt(100)},
			{Language: "KR", Amount: decimal.NewFromInt(5)},
			{Language: "en-US", Amount: decimal.NewFromInt(20)},
			{Language: "jp", Amount: decimal.NewFromInt(7)},
			{Language: "de", Amount: decimal.NewFromInt(1)},
		},
	}
	coupang := &fakeReporter{platform: domain.RevenueCoupang}
	agg := NewRevenueAggregator(nil, nil, adsense, coupang)

	totals, err := agg.ByLanguage(context.Background(), revenueDay, revenueDay)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(105).Equal(totals["ko"]))
	assert.True(t, decimal.NewFromInt(20).Equal(totals["en"]))
	assert.True(t, decimal.NewFromInt(7).Equal(totals["ja"]))
	assert.True(t, decimal.NewFromInt(1).Equal(totals["other"]))

	adsense.langErr = errors.New("quota")
	totals, err = agg.ByLanguage(context.Background(), revenueDay, revenueDay)
	require.Error(t, err)
	assert.True(t, totals["ko"].IsZero())
}
