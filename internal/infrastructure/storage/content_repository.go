package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

var contentColumns = []string{
	"c.id", "c.title", "c.slug", "c.body", "c.excerpt", "c.type", "c.status", "c.language",
	"c.source", "c.original_source", "c.category", "c.keyword", "c.author", "c.thumbnail",
	"c.view_count", "c.like_count", "c.created_at", "c.updated_at", "c.published_at",
}

// ContentRepository persists generated articles and their source links.
type ContentRepository struct {
	db *DB
}

var _ ports.ContentRepository = (*ContentRepository)(nil)

// NewContentRepository wires a DB implementation.
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Save inserts content together with its source links and returns the new id.
func (r *ContentRepository) Save(ctx context.Context, c domain.Content, sources []domain.ContentSource) (int64, error) {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin content tx: %w", err)
	}
	defer rollback(tx)

	query, args, err := r.db.builder.Insert("contents").
		Columns(
			"title", "slug", "body", "excerpt", "type", "status", "language",
			"source", "original_source", "category", "keyword", "author", "thumbnail",
			"view_count", "like_count", "created_at", "updated_at", "published_at",
		).
		Values(
			c.Title, c.Slug, c.Body, c.Excerpt, string(c.Type), string(c.Status), c.Language,
			c.Source, c.OriginalSource, c.Category, c.Keyword, c.Author, c.Thumbnail,
			c.ViewCount, c.LikeCount, c.CreatedAt.UTC(), c.UpdatedAt.UTC(), nullTime(c.PublishedAt),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build content insert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}

	for _, src := range sources {
		query, args, err := r.db.builder.Insert("content_sources").
			Columns("content_id", "source_name", "source_url", "description").
			Values(id, src.SourceName, src.SourceURL, src.Description).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build content source insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert content source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit content: %w", err)
	}
	return id, nil
}

// FindByID loads one article or returns domain.ErrNotFound.
func (r *ContentRepository) FindByID(ctx context.Context, id int64) (domain.Content, error) {
	query, args, err := r.db.builder.Select(contentColumns...).
		From("contents c").
		Where(sq.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return domain.Content{}, fmt.Errorf("build content lookup: %w", err)
	}

	c, err := scanContent(r.db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Content{}, fmt.Errorf("content %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Content{}, fmt.Errorf("lookup content: %w", err)
	}
	return c, nil
}

// UpdateStatus changes the status in one statement. published_at is only
// filled when it is still empty and the new status is PUBLISHED.
func (r *ContentRepository) UpdateStatus(ctx context.Context, id int64, status domain.ContentStatus, at time.Time) error {
	query, args, err := r.db.builder.Update("contents").
		Set("status", string(status)).
		Set("updated_at", at.UTC()).
		Set("published_at", sq.Expr(
			"CASE WHEN ? THEN COALESCE(published_at, ?) ELSE published_at END",
			status == domain.StatusPublished, at.UTC(),
		)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	res, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("content %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// FindUnposted returns published articles with no posting record for platform, oldest first.
func (r *ContentRepository) FindUnposted(ctx context.Context, platform domain.Platform, limit int) ([]domain.Content, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := r.db.builder.Select(contentColumns...).
		From("contents c").
		Where(sq.Eq{"c.status": string(domain.StatusPublished)}).
		Where("NOT EXISTS (SELECT 1 FROM social_posting_history h WHERE h.content_id = c.id AND h.platform = ?)", string(platform)).
		OrderBy("c.published_at ASC", "c.id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unposted query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unposted: %w", err)
	}
	defer rows.Close()

	var result []domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SourceURLsExist reports which of urls are already linked to an article.
func (r *ContentRepository) SourceURLsExist(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(urls) == 0 {
		return result, nil
	}

	query, args, err := r.db.builder.Select("DISTINCT source_url").
		From("content_sources").
		Where(sq.Eq{"source_url": urls}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build source url query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query source urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan source url: %w", err)
		}
		result[u] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// Sources lists the source links of an article.
func (r *ContentRepository) Sources(ctx context.Context, contentID int64) ([]domain.ContentSource, error) {
	query, args, err := r.db.builder.Select("id", "content_id", "source_name", "source_url", "description").
		From("content_sources").
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build content sources query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content sources: %w", err)
	}
	defer rows.Close()

	var result []domain.ContentSource
	for rows.Next() {
		var src domain.ContentSource
		if err := rows.Scan(&src.ID, &src.ContentID, &src.SourceName, &src.SourceURL, &src.Description); err != nil {
			return nil, fmt.Errorf("scan content source: %w", err)
		}
		result = append(result, src)
	}
	return result, rows.Err()
}

func scanContent(row rowScanner) (domain.Content, error) {
	var (
		c           domain.Content
		contentType string
		status      string
		publishedAt sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Body, &c.Excerpt, &contentType, &status, &c.Language,
		&c.Source, &c.OriginalSource, &c.Category, &c.Keyword, &c.Author, &c.Thumbnail,
		&c.ViewCount, &c.LikeCount, &c.CreatedAt, &c.UpdatedAt, &publishedAt,
	)
	if err != nil {
		return domain.Content{}, err
	}
	c.Type = domain.ContentType(contentType)
	c.Status = domain.ContentStatus(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.PublishedAt = timePtr(publishedAt)
	return c, nil
}
