package parser

import (
	"context"
	"fmt"
	"log/slog"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
	"ContentPipeline/internal/scanner"
)

// Engine implements ports.Crawler on top of the source registry and a scanner strategy.
type Engine struct {
	registry *scanner.Registry
	scanner  scanner.Scanner
	logger   *slog.Logger
}

var _ ports.Crawler = (*Engine)(nil)

// NewEngine wires the registry with the scanner used for every source.
func NewEngine(reg *scanner.Registry, sc scanner.Scanner, log *slog.Logger) *Engine {
	return &Engine{
		registry: reg,
		scanner:  sc,
		logger:   log,
	}
}

// CrawlPopular resolves sourceName and returns its popular posts. An unknown
// source fails with a configuration error before any network call.
func (e *Engine) CrawlPopular(ctx context.Context, sourceName string) ([]domain.CrawledPost, error) {
	if e.registry == nil || e.scanner == nil {
		return nil, domain.ConfigurationError("crawl engine is not configured")
	}

	cfg, err := e.registry.Resolve(sourceName)
	if err != nil {
		return nil, err
	}

	e.debug("crawl source", "source", cfg.Name, "url", cfg.ListingURL, "max_posts", cfg.MaxPosts)
	posts, err := e.scanner.Scan(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", sourceName, err)
	}

	for i := range posts {
		if posts[i].SourceName == "" {
			posts[i].SourceName = cfg.Name
		}
		if posts[i].Language == "" {
			posts[i].Language = cfg.Language
		}
	}
	e.debug("source produced posts", "source", cfg.Name, "count", len(posts))
	return posts, nil
}

// EnsureRegistered registers a stored source that the registry does not know yet.
func (e *Engine) EnsureRegistered(src domain.CommunitySource) error {
	if e.registry.Has(src.Name) {
		return nil
	}
	cfg, err := scanner.FromSource(src)
	if err != nil {
		return err
	}
	return e.registry.Register(cfg)
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
