package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// PostingRepository persists successful publishes, one row per (content, platform).
type PostingRepository struct {
	db *DB
}

var _ ports.PostingRepository = (*PostingRepository)(nil)

// NewPostingRepository wires a DB implementation.
func NewPostingRepository(db *DB) *PostingRepository {
	return &PostingRepository{db: db}
}

// Exists reports whether content was already posted to platform.
func (r *PostingRepository) Exists(ctx context.Context, contentID int64, platform domain.Platform) (bool, error) {
	query, args, err := r.db.builder.Select("COUNT(1)").
		From("social_posting_history").
		Where(sq.Eq{"content_id": contentID, "platform": string(platform)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build posting lookup: %w", err)
	}

	var n int
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup posting: %w", err)
	}
	return n > 0, nil
}

// Record inserts h unless the pair is already present.
func (r *PostingRepository) Record(ctx context.Context, h domain.SocialPostingHistory) (bool, error) {
	query, args, err := r.db.builder.Insert("social_posting_history").
		Columns("content_id", "platform", "post_id", "post_url", "posted_at").
		Values(h.ContentID, string(h.Platform), h.PostID, h.PostURL, h.PostedAt.UTC()).
		Suffix("ON CONFLICT (content_id, platform) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build posting insert: %w", err)
	}

	res, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("posting rows affected: %w", err)
	}
	return n > 0, nil
}

// History lists the posting rows of one article.
func (r *PostingRepository) History(ctx context.Context, contentID int64) ([]domain.SocialPostingHistory, error) {
	query, args, err := r.db.builder.Select("id", "content_id", "platform", "post_id", "post_url", "posted_at").
		From("social_posting_history").
		Where(sq.Eq{"content_id": contentID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var result []domain.SocialPostingHistory
	for rows.Next() {
		var (
			h        domain.SocialPostingHistory
			platform string
		)
		if err := rows.Scan(&h.ID, &h.ContentID, &platform, &h.PostID, &h.PostURL, &h.PostedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Platform = domain.Platform(platform)
		h.PostedAt = h.PostedAt.UTC()
		result = append(result, h)
	}
	return result, rows.Err()
}
