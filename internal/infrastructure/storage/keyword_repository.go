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

var keywordColumns = []string{
	"id", "term", "language", "category", "source", "priority",
	"active", "last_generated_at", "created_at", "updated_at",
}

// KeywordRepository persists keywords and their provenance rows.
type KeywordRepository struct {
	db *DB
}

var _ ports.KeywordRepository = (*KeywordRepository)(nil)

// NewKeywordRepository wires a DB implementation.
func NewKeywordRepository(db *DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// InsertIfAbsent stores kw and src in one transaction. When (term, language)
// already exists nothing is written and the existing id is returned.
func (r *KeywordRepository) InsertIfAbsent(ctx context.Context, kw domain.Keyword, src domain.KeywordSource) (int64, bool, error) {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin keyword tx: %w", err)
	}
	defer rollback(tx)

	query, args, err := r.db.builder.Insert("keywords").
		Columns("term", "language", "category", "source", "priority", "active", "last_generated_at", "created_at", "updated_at").
		Values(kw.Term, kw.Language, kw.Category, kw.Source, kw.Priority, kw.Active, nullTime(kw.LastGeneratedAt), kw.CreatedAt.UTC(), kw.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (term, language) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build keyword insert: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		existing, findErr := r.FindByTerm(ctx, kw.Term, kw.Language)
		if findErr != nil {
			return 0, false, findErr
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert keyword: %w", err)
	}

	query, args, err = r.db.builder.Insert("keyword_sources").
		Columns("keyword_id", "source_name", "collected_at", "details").
		Values(id, src.SourceName, src.CollectedAt.UTC(), src.Details).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build provenance insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, false, fmt.Errorf("insert provenance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit keyword: %w", err)
	}
	return id, true, nil
}

// Reactivate flips an existing keyword back to active in a single statement.
func (r *KeywordRepository) Reactivate(ctx context.Context, term, language string, at time.Time) error {
	query, args, err := r.db.builder.Update("keywords").
		Set("active", true).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"term": term, "language": language}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reactivate: %w", err)
	}
	if _, err := r.db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("reactivate keyword: %w", err)
	}
	return nil
}

// FindByTerm loads one keyword or returns domain.ErrNotFound.
func (r *KeywordRepository) FindByTerm(ctx context.Context, term, language string) (domain.Keyword, error) {
	query, args, err := r.db.builder.Select(keywordColumns...).
		From("keywords").
		Where(sq.Eq{"term": term, "language": language}).
		ToSql()
	if err != nil {
		return domain.Keyword{}, fmt.Errorf("build keyword lookup: %w", err)
	}

	kw, err := scanKeyword(r.db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Keyword{}, fmt.Errorf("keyword %q/%s: %w", term, language, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Keyword{}, fmt.Errorf("lookup keyword: %w", err)
	}
	return kw, nil
}

// FindForGeneration returns active keywords never generated or generated
// before staleBefore, highest priority first.
func (r *KeywordRepository) FindForGeneration(ctx context.Context, language string, staleBefore time.Time, limit int) ([]domain.Keyword, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := r.db.builder.Select(keywordColumns...).
		From("keywords").
		Where(sq.Eq{"active": true, "language": language}).
		Where(sq.Or{
			sq.Eq{"last_generated_at": nil},
			sq.Lt{"last_generated_at": staleBefore.UTC()},
		}).
		OrderBy("priority DESC", "created_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keyword selection: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var result []domain.Keyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		result = append(result, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// MarkGenerated stamps last_generated_at.
func (r *KeywordRepository) MarkGenerated(ctx context.Context, id int64, at time.Time) error {
	query, args, err := r.db.builder.Update("keywords").
		Set("last_generated_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark generated: %w", err)
	}

	res, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark generated: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("keyword %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Sources lists provenance rows of a keyword, oldest first.
func (r *KeywordRepository) Sources(ctx context.Context, keywordID int64) ([]domain.KeywordSource, error) {
	query, args, err := r.db.builder.Select("id", "keyword_id", "source_name", "collected_at", "details").
		From("keyword_sources").
		Where(sq.Eq{"keyword_id": keywordID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build provenance query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var result []domain.KeywordSource
	for rows.Next() {
		var src domain.KeywordSource
		if err := rows.Scan(&src.ID, &src.KeywordID, &src.SourceName, &src.CollectedAt, &src.Details); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		src.CollectedAt = src.CollectedAt.UTC()
		result = append(result, src)
	}
	return result, rows.Err()
}

func scanKeyword(row rowScanner) (domain.Keyword, error) {
	var (
		kw            domain.Keyword
		lastGenerated sql.NullTime
	)
	err := row.Scan(
		&kw.ID, &kw.Term, &kw.Language, &kw.Category, &kw.Source, &kw.Priority,
		&kw.Active, &lastGenerated, &kw.CreatedAt, &kw.UpdatedAt,
	)
	if err != nil {
		return domain.Keyword{}, err
	}
	kw.LastGeneratedAt = timePtr(lastGenerated)
	kw.CreatedAt = kw.CreatedAt.UTC()
	kw.UpdatedAt = kw.UpdatedAt.UTC()
	return kw, nil
}
