package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

// KeywordStore merges collected terms into storage and picks keywords for generation.
type KeywordStore struct {
	repo   ports.KeywordRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewKeywordStore wraps repo.
func NewKeywordStore(repo ports.KeywordRepository, logger *slog.Logger) *KeywordStore {
	return &KeywordStore{repo: repo, logger: logger, now: time.Now}
}

// Merge stores every new term of candidates with a provenance row tagged
// origin and reactivates terms that already exist. It returns the number of
// keywords created. A candidate that fails is logged and skipped.
func (s *KeywordStore) Merge(ctx context.Context, candidates []string, language, origin string) (int, error) {
	if strings.TrimSpace(language) == "" {
		return 0, domain.ConfigurationError("keyword merge without language")
	}

	saved := 0
	for _, term := range uniqueTerms(candidates) {
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		now := s.now().UTC()
		kw := domain.NewKeyword(term, language, origin, now)
		_, created, err := s.repo.InsertIfAbsent(ctx, kw, domain.KeywordSource{
			SourceName:  origin,
			CollectedAt: now,
			Details:     fmt.Sprintf("collected by %s", origin),
		})
		if err != nil {
			s.warn("keyword merge failed", "term", term, "language", language, "origin", origin, "error", err)
			continue
		}
		if created {
			saved++
			continue
		}
		if err := s.repo.Reactivate(ctx, term, language, now); err != nil {
			s.warn("keyword reactivation failed", "term", term, "language", language, "error", err)
		}
	}

	s.debug("keywords merged", "origin", origin, "language", language, "candidates", len(candidates), "created", saved)
	return saved, nil
}

// SelectForGeneration returns up to limit active keywords of language that
// were never generated or not within the cooldown, best priority first.
func (s *KeywordStore) SelectForGeneration(ctx context.Context, language string, limit int) ([]domain.Keyword, error) {
	if limit <= 0 {
		return nil, nil
	}
	staleBefore := s.now().UTC().Add(-domain.KeywordCooldown)
	keywords, err := s.repo.FindForGeneration(ctx, language, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("select keywords for %s: %w", language, err)
	}
	return keywords, nil
}

// MarkGenerated starts the cooldown of keyword id.
func (s *KeywordStore) MarkGenerated(ctx context.Context, id int64) error {
	if err := s.repo.MarkGenerated(ctx, id, s.now().UTC()); err != nil {
		return fmt.Errorf("mark keyword %d generated: %w", id, err)
	}
	return nil
}

// AddManual stores an operator-supplied keyword. An existing keyword is
// reactivated and returned unchanged.
func (s *KeywordStore) AddManual(ctx context.Context, term, language string, priority *int) (domain.Keyword, error) {
	term = strings.TrimSpace(term)
	if term == "" || strings.TrimSpace(language) == "" {
		return domain.Keyword{}, domain.ConfigurationError("manual keyword needs a term and a language")
	}

	now := s.now().UTC()
	kw := domain.NewKeyword(term, language, domain.OriginManual, now)
	if priority != nil {
		kw.Priority = domain.ClampPriority(*priority)
	}

	id, created, err := s.repo.InsertIfAbsent(ctx, kw, domain.KeywordSource{
		SourceName:  domain.OriginManual,
		CollectedAt: now,
		Details:     "added manually",
	})
	if err != nil {
		return domain.Keyword{}, fmt.Errorf("add keyword %q: %w", term, err)
	}
	if created {
		kw.ID = id
		return kw, nil
	}

	if err := s.repo.Reactivate(ctx, term, language, now); err != nil {
		return domain.Keyword{}, fmt.Errorf("reactivate keyword %q: %w", term, err)
	}
	return s.repo.FindByTerm(ctx, term, language)
}

func uniqueTerms(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, raw := range candidates {
		term := strings.TrimSpace(raw)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

func (s *KeywordStore) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *KeywordStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
