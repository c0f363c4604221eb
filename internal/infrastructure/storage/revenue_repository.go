package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// RevenueRepository persists daily revenue, one row per (date, platform).
type RevenueRepository struct {
	db *DB
}

var _ ports.RevenueRepository = (*RevenueRepository)(nil)

// NewRevenueRepository wires a DB implementation.
func NewRevenueRepository(db *DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// Upsert writes rev, replacing the figures of an existing (date, platform) row.
func (r *RevenueRepository) Upsert(ctx context.Context, rev domain.DailyRevenue) (domain.DailyRevenue, error) {
	extra := rev.ExtraData
	if extra == nil {
		extra = map[string]float64{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return domain.DailyRevenue{}, fmt.Errorf("encode extra data: %w", err)
	}

	now := time.Now().UTC()
	rev.Date = domain.CalendarDay(rev.Date)

	query, args, err := r.db.builder.Insert("daily_revenue").
		Columns("date", "platform", "amount", "impressions", "clicks", "currency", "extra_data", "created_at", "updated_at").
		Values(rev.Date, string(rev.Platform), rev.Amount.String(), rev.Impressions, rev.Clicks, rev.Currency, string(extraJSON), now, now).
		Suffix(`ON CONFLICT (date, platform) DO UPDATE
              SET amount = EXCLUDED.amount,
                  impressions = EXCLUDED.impressions,
                  clicks = EXCLUDED.clicks,
                  currency = EXCLUDED.currency,
                  extra_data = EXCLUDED.extra_data,
                  updated_at = EXCLUDED.updated_at
              RETURNING id, created_at`).
		ToSql()
	if err != nil {
		return domain.DailyRevenue{}, fmt.Errorf("build revenue upsert: %w", err)
	}

	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&rev.ID, &rev.CreatedAt); err != nil {
		return domain.DailyRevenue{}, fmt.Errorf("upsert revenue: %w", err)
	}
	rev.CreatedAt = rev.CreatedAt.UTC()
	rev.UpdatedAt = now
	rev.ExtraData = extra
	return rev, nil
}

// Find returns the rows between from and to inclusive, ordered by date then platform.
func (r *RevenueRepository) Find(ctx context.Context, from, to time.Time) ([]domain.DailyRevenue, error) {
	query, args, err := r.db.builder.Select(
		"id", "date", "platform", "amount", "impressions", "clicks", "currency", "extra_data", "created_at", "updated_at",
	).
		From("daily_revenue").
		Where(sq.GtOrEq{"date": domain.CalendarDay(from)}).
		Where(sq.LtOrEq{"date": domain.CalendarDay(to)}).
		OrderBy("date ASC", "platform ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build revenue query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query revenue: %w", err)
	}
	defer rows.Close()

	var result []domain.DailyRevenue
	for rows.Next() {
		var (
			rev      domain.DailyRevenue
			platform string
			amount   decimal.Decimal
			extra    string
		)
		if err := rows.Scan(
			&rev.ID, &rev.Date, &platform, &amount, &rev.Impressions, &rev.Clicks,
			&rev.Currency, &extra, &rev.CreatedAt, &rev.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan revenue: %w", err)
		}
		rev.Platform = domain.RevenuePlatform(platform)
		rev.Amount = amount
		rev.Date = rev.Date.UTC()
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &rev.ExtraData); err != nil {
				return nil, fmt.Errorf("decode extra data: %w", err)
			}
		}
		result = append(result, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// Totals sums amounts per platform between from and to inclusive.
func (r *RevenueRepository) Totals(ctx context.Context, from, to time.Time) (map[domain.RevenuePlatform]decimal.Decimal, error) {
	rows, err := r.Find(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totals := make(map[domain.RevenuePlatform]decimal.Decimal)
	for _, rev := range rows {
		totals[rev.Platform] = totals[rev.Platform].Add(rev.Amount)
	}
	return totals, nil
}
