package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// RevenueAggregator stores daily revenue reports and attributes them to languages.
type RevenueAggregator struct {
	repo      ports.RevenueRepository
	reporters map[domain.RevenuePlatform]ports.RevenueReporter
	order     []domain.RevenuePlatform
	logger    *slog.Logger
}

func NewRevenueAggregator(repo ports.RevenueRepository, logger *slog.Logger, reporters ...ports.RevenueReporter) *RevenueAggregator {
	a := &RevenueAggregator{
		repo:      repo,
		reporters: map[domain.RevenuePlatform]ports.RevenueReporter{},
		logger:    logger,
	}
	for _, r := range reporters {
		if r == nil {
			continue
		}
		if _, exists := a.reporters[r.Platform()]; !exists {
			a.order = append(a.order, r.Platform())
		}
		a.reporters[r.Platform()] = r
	}
	return a
}

// Platforms lists registered reporters in registration order.
func (a *RevenueAggregator) Platforms() []domain.RevenuePlatform {
	return append([]domain.RevenuePlatform(nil), a.order...)
}

// Ingest pulls [from, to] from the platform reporter and upserts one row per
// day with click-through and conversion ratios in ExtraData.
func (a *RevenueAggregator) Ingest(ctx context.Context, platform domain.RevenuePlatform, from, to time.Time) ([]domain.DailyRevenue, error) {
	reporter, ok := a.reporters[platform]
	if !ok {
		return nil, domain.ConfigurationError("revenue platform %s is not registered", platform)
	}

	rows, err := reporter.Daily(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s revenue: %w", platform, err)
	}

	saved := make([]domain.DailyRevenue, 0, len(rows))
	for _, row := range rows {
		rev, err := a.repo.Upsert(ctx, domain.DailyRevenue{
			Date:        domain.CalendarDay(row.Date),
			Platform:    platform,
			Amount:      row.Amount,
			Impressions: row.Impressions,
			Clicks:      row.Clicks,
			Currency:    row.Currency,
			ExtraData: map[string]float64{
				"ctr":            domain.SafeRatio(row.Clicks, row.Impressions),
				"conversionRate": domain.SafeRatio(row.Orders, row.Clicks),
				"orders":         float64(row.Orders),
			},
		})
		if err != nil {
			return saved, fmt.Errorf("store %s revenue for %s: %w", platform, row.Date.Format(time.DateOnly), err)
		}
		saved = append(saved, rev)
	}

	if a.logger != nil {
		a.logger.Info("revenue ingested", "platform", platform, "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly), "rows", len(saved))
	}
	return saved, nil
}

// ByLanguage sums language-dimensioned reports into the ko, en, ja and other
// buckets. A reporter failure is returned alongside the partial sums.
func (a *RevenueAggregator) ByLanguage(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error) {
	totals := map[string]decimal.Decimal{
		domain.LanguageKorean:   decimal.Zero,
		domain.LanguageEnglish:  decimal.Zero,
		domain.LanguageJapanese: decimal.Zero,
		domain.LanguageOther:    decimal.Zero,
	}

	var errs []error
	for _, platform := range a.order {
		reporter, ok := a.reporters[platform].(ports.LanguageReporter)
		if !ok {
			continue
		}
		rows, err := reporter.ByLanguage(ctx, from, to)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s language report: %w", platform, err))
			continue
		}
		for _, row := range rows {
			bucket := domain.NormalizeLanguage(row.Language)
			totals[bucket] = totals[bucket].Add(row.Amount)
		}
	}
	return totals, errors.Join(errs...)
}

// Totals sums stored revenue per platform.
func (a *RevenueAggregator) Totals(ctx context.Context, from, to time.Time) (map[domain.RevenuePlatform]decimal.Decimal, error) {
	totals, err := a.repo.Totals(ctx, domain.CalendarDay(from), domain.CalendarDay(to))
	if err != nil {
		return nil, fmt.Errorf("revenue totals: %w", err)
	}
	return totals, nil
}
