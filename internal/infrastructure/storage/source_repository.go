package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// SourceRepository persists community sources and their crawl bookkeeping.
type SourceRepository struct {
	db *DB
}

var _ ports.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository wires a DB implementation.
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Upsert inserts src or refreshes its settings by name. last_crawled_at is left untouched.
func (r *SourceRepository) Upsert(ctx context.Context, src domain.CommunitySource) (int64, error) {
	now := time.Now().UTC()
	if src.MaxPostsPerCrawl <= 0 {
		src.MaxPostsPerCrawl = domain.DefaultMaxPostsPerCrawl
	}
	if src.CrawlIntervalMinutes <= 0 {
		src.CrawlIntervalMinutes = domain.DefaultCrawlIntervalMinutes
	}
	if src.SelectorConfig == "" {
		src.SelectorConfig = "{}"
	}

	query, args, err := r.db.builder.Insert("community_sources").
		Columns(
			"name", "url", "language", "selector_config", "active",
			"max_posts_per_crawl", "crawl_interval_minutes", "priority", "created_at", "updated_at",
		).
		Values(
			src.Name, src.URL, src.Language, src.SelectorConfig, src.Active,
			src.MaxPostsPerCrawl, src.CrawlIntervalMinutes, src.Priority, now, now,
		).
		Suffix(`ON CONFLICT (name) DO UPDATE
              SET url = EXCLUDED.url,
                  language = EXCLUDED.language,
                  selector_config = EXCLUDED.selector_config,
                  active = EXCLUDED.active,
                  max_posts_per_crawl = EXCLUDED.max_posts_per_crawl,
                  crawl_interval_minutes = EXCLUDED.crawl_interval_minutes,
                  priority = EXCLUDED.priority,
                  updated_at = EXCLUDED.updated_at
              RETURNING id`).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build source upsert: %w", err)
	}

	var id int64
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert source: %w", err)
	}
	return id, nil
}

// FindDue returns active sources whose crawl interval has elapsed at now,
// highest priority first, capped at limit.
func (r *SourceRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.CommunitySource, error) {
	if limit <= 0 {
		return nil, nil
	}

	// The interval is per row, so the elapsed check runs in Go to stay dialect neutral.
	query, args, err := r.db.builder.Select(
		"id", "name", "url", "language", "selector_config", "active",
		"max_posts_per_crawl", "crawl_interval_minutes", "last_crawled_at", "priority", "created_at", "updated_at",
	).
		From("community_sources").
		Where(sq.Eq{"active": true}).
		OrderBy("priority DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due sources query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var result []domain.CommunitySource
	for rows.Next() {
		var (
			src         domain.CommunitySource
			lastCrawled sql.NullTime
		)
		if err := rows.Scan(
			&src.ID, &src.Name, &src.URL, &src.Language, &src.SelectorConfig, &src.Active,
			&src.MaxPostsPerCrawl, &src.CrawlIntervalMinutes, &lastCrawled, &src.Priority,
			&src.CreatedAt, &src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.LastCrawledAt = timePtr(lastCrawled)
		if !src.Due(now) {
			continue
		}
		result = append(result, src)
		if len(result) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// MarkCrawled stamps last_crawled_at.
func (r *SourceRepository) MarkCrawled(ctx context.Context, id int64, at time.Time) error {
	query, args, err := r.db.builder.Update("community_sources").
		Set("last_crawled_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark crawled: %w", err)
	}
	if _, err := r.db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark crawled: %w", err)
	}
	return nil
}
