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

const excerptRunes = 100

// SynthesizerOptions carry the generation policy.
type SynthesizerOptions struct {
	Author           string
	SourceMaxTokens  int
	KeywordMaxTokens int
	// AutoPublish marks generated articles PUBLISHED instead of DRAFT.
	AutoPublish bool
}

// Synthesizer turns crawled text or a keyword into an article through a text provider.
type Synthesizer struct {
	provider ports.TextProvider
	opts     SynthesizerOptions
	logger   *slog.Logger
	now      func() time.Time
}

func NewSynthesizer(provider ports.TextProvider, opts SynthesizerOptions, logger *slog.Logger) *Synthesizer {
	if opts.SourceMaxTokens <= 0 {
		opts.SourceMaxTokens = 3000
	}
	if opts.KeywordMaxTokens <= 0 {
		opts.KeywordMaxTokens = 3000
	}
	return &Synthesizer{provider: provider, opts: opts, logger: logger, now: time.Now}
}

// FromSource rewrites rawText taken from sourceName into a FUN article.
func (s *Synthesizer) FromSource(ctx context.Context, rawText, sourceName, language string) (domain.Content, error) {
	if strings.TrimSpace(rawText) == "" {
		return domain.Content{}, domain.ParseError("source %s: nothing to rewrite", sourceName)
	}

	g, err := s.generate(ctx, sourcePrompt(language, rawText), s.opts.SourceMaxTokens)
	if err != nil {
		s.warn("generation from source failed", "source", sourceName, "language", language, "error", err)
		return domain.Content{}, fmt.Errorf("generate from %s: %w", sourceName, err)
	}

	content := s.build(g, domain.ContentFun, language, sourceName)
	content.OriginalSource = sourceName
	s.info("content generated", "source", sourceName, "language", language, "title", content.Title)
	return content, nil
}

// FromKeyword writes an informational KEYWORD article about keyword.
func (s *Synthesizer) FromKeyword(ctx context.Context, keyword, category, language string) (domain.Content, error) {
	if strings.TrimSpace(keyword) == "" {
		return domain.Content{}, domain.ConfigurationError("keyword generation without keyword")
	}
	if category == "" {
		category = domain.CategoryGeneral
	}

	g, err := s.generate(ctx, keywordPrompt(language, keyword, category), s.opts.KeywordMaxTokens)
	if err != nil {
		s.warn("generation from keyword failed", "keyword", keyword, "language", language, "error", err)
		return domain.Content{}, fmt.Errorf("generate for keyword %q: %w", keyword, err)
	}

	content := s.build(g, domain.ContentKeyword, language, keyword)
	content.Category = category
	content.Keyword = keyword
	s.info("content generated", "keyword", keyword, "language", language, "title", content.Title)
	return content, nil
}

func (s *Synthesizer) generate(ctx context.Context, prompt string, maxTokens int) (generated, error) {
	if s.provider == nil {
		return generated{}, domain.ConfigurationError("text provider is not configured")
	}
	raw, err := s.provider.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return generated{}, err
	}
	return parseGenerated(raw)
}

// build fills the article fields. slugHint names the article when the title
// has no ASCII to slug from.
func (s *Synthesizer) build(g generated, kind domain.ContentType, language, slugHint string) domain.Content {
	now := s.now().UTC()

	excerpt := g.Excerpt
	if excerpt == "" {
		excerpt = domain.Excerpt(g.Body, excerptRunes)
	}

	content := domain.Content{
		Title:     g.Title,
		Slug:      slugFor(g.Title, slugHint, now),
		Body:      g.Body,
		Excerpt:   excerpt,
		Type:      kind,
		Status:    domain.StatusDraft,
		Language:  language,
		Source:    s.provider.Name(),
		Author:    s.opts.Author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.opts.AutoPublish {
		content.SetStatus(domain.StatusPublished, now)
	}
	return content
}

func slugFor(title, hint string, now time.Time) string {
	if slug := domain.Slugify(title); slug != "" {
		return slug
	}
	if slug := domain.Slugify(hint); slug != "" {
		return fmt.Sprintf("%s-%d", slug, now.Unix())
	}
	return fmt.Sprintf("post-%d", now.Unix())
}

func (s *Synthesizer) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Synthesizer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
