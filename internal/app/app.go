package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/infrastructure/llm"
	"ContentPipeline/internal/infrastructure/parser"
	"ContentPipeline/internal/infrastructure/publisher"
	"ContentPipeline/internal/infrastructure/revenue"
	"ContentPipeline/internal/infrastructure/scheduler"
	"ContentPipeline/internal/infrastructure/storage"
	"ContentPipeline/internal/infrastructure/trends"
	"ContentPipeline/internal/logging"
	"ContentPipeline/internal/ports"
	"ContentPipeline/internal/quota"
	"ContentPipeline/internal/scanner"
	"ContentPipeline/internal/tokens"
	"ContentPipeline/internal/usecase"
	"ContentPipeline/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *storage.DB
	redis      *redis.Client
	pipeline   *usecase.Pipeline
	dispatcher *usecase.Dispatcher
	scheduler  *usecase.Scheduler
}

// New opens storage, seeds tokens and sources, and registers every cadence.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := db.Migrate(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	tokenStore, err := a.tokenStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	manager := tokens.NewManager(tokenStore, baseLogger.With("component", "tokens"))
	if err := seedTokens(ctx, manager, cfg.Publishing); err != nil {
		_ = a.Close()
		return nil, err
	}

	sources := storage.NewSourceRepository(db)
	registry := scanner.NewRegistry()
	if err := registerSources(ctx, registry, sources, cfg.Sources); err != nil {
		_ = a.Close()
		return nil, err
	}
	crawlClient := newHTTPClient(cfg.Crawl, cfg.Crawl.Timeout, baseLogger, "http.crawl")
	crawler := parser.NewEngine(
		registry,
		parser.NewCommunityScanner(crawlClient, baseLogger.With("component", "scanner.community")).
			WithLocation(cfg.Scheduler.Location()),
		baseLogger.With("component", "crawler"),
	)

	apiClient := newHTTPClient(cfg.Crawl, cfg.Crawl.Timeout, baseLogger, "http.api")
	provider := llm.NewOpenAIClient(cfg.OpenAI, cfg.Generation.MaxConcurrent,
		newHTTPClient(cfg.Crawl, cfg.OpenAI.Timeout, baseLogger, "http.openai"))

	synthesizer := usecase.NewSynthesizer(provider, usecase.SynthesizerOptions{
		Author:           cfg.Generation.Author,
		SourceMaxTokens:  cfg.Generation.SourceMaxTokens,
		KeywordMaxTokens: cfg.Generation.KeywordMaxTokens,
		AutoPublish:      cfg.Generation.AutoPublish,
	}, baseLogger.With("component", "synthesizer"))

	a.dispatcher = usecase.NewDispatcher(
		storage.NewPostingRepository(db),
		manager,
		baseLogger.With("component", "dispatcher"),
		publishers(apiClient, cfg.Publishing)...,
	)

	aggregator := usecase.NewRevenueAggregator(
		storage.NewRevenueRepository(db),
		baseLogger.With("component", "revenue"),
		reporters(apiClient, cfg.Revenue, manager)...,
	)

	quotas := quota.NewManager(map[string]int{
		quota.Crawl:      cfg.Quota.CrawlDaily,
		quota.Generation: cfg.Quota.GenerationDaily,
	}, baseLogger.With("component", "quota"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Quota:       quotas,
		Keywords:    usecase.NewKeywordStore(storage.NewKeywordRepository(db), baseLogger.With("component", "keywords")),
		Collectors:  collectors(apiClient, cfg.Keywords, cfg.Crawl.Timeout),
		Sources:     sources,
		Crawler:     crawler,
		Queue:       usecase.NewPostQueue(cfg.Crawl.QueueCapacity),
		Contents:    storage.NewContentRepository(db),
		Synthesizer: synthesizer,
		Dispatcher:  a.dispatcher,
		Revenue:     aggregator,
		Options: usecase.PipelineOptions{
			Languages:          cfg.Keywords.Languages,
			KeywordLimit:       cfg.Keywords.GenerationLimit,
			MaxSourcesPerCrawl: cfg.Crawl.MaxSourcesPerCrawl,
			ForbiddenKeywords:  cfg.Crawl.ForbiddenKeywords,
			GenerationInterval: cfg.Generation.Interval,
			PublishBatch:       cfg.Publishing.BatchSize,
			ItemTimeout:        cfg.Scheduler.ItemTimeout,
			Location:           cfg.Scheduler.Location(),
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger),
		baseLogger.With("component", "scheduler"),
	)
	if err := a.scheduler.Register(a.pipeline.Cadences(cadenceSpecs(cfg.Scheduler))...); err != nil {
		_ = a.Close()
		return nil, err
	}

	baseLogger.Info("application ready",
		"sources", len(registry.Names()),
		"platforms", a.dispatcher.Platforms(),
		"timezone", cfg.Scheduler.Location().String())
	return a, nil
}

// Dispatcher exposes publishing, including the authorization-code flow.
func (a *Application) Dispatcher() *usecase.Dispatcher {
	return a.dispatcher
}

// Run starts the cadences and blocks until ctx is done, then waits for
// in-flight runs up to the shutdown timeout.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started")

	<-ctx.Done()
	a.logger.Info("shutting down, waiting for running cadences")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// Close releases storage and cache connections.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func (a *Application) tokenStore(ctx context.Context) (ports.TokenStore, error) {
	if a.cfg.Redis.Addr == "" {
		a.logger.Warn("redis not configured, tokens are kept in memory")
		return tokens.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.redis = client
	return tokens.NewRedisStore(client, a.cfg.Redis.KeyPrefix), nil
}

func newHTTPClient(crawl config.CrawlConfig, timeout time.Duration, base *slog.Logger, component string) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetLogger(logger.New(base, component))
	if crawl.UserAgent != "" {
		client.SetHeader("User-Agent", crawl.UserAgent)
	}
	if crawl.AcceptLanguage != "" {
		client.SetHeader("Accept-Language", crawl.AcceptLanguage)
	}
	return client
}

func seedTokens(ctx context.Context, manager *tokens.Manager, cfg config.PublishingConfig) error {
	seeds := []domain.Token{}
	if cfg.NaverBlog.Enabled {
		seeds = append(seeds, domain.Token{
			Platform:     domain.PlatformNaverBlog,
			AccessToken:  cfg.NaverBlog.AccessToken,
			RefreshToken: cfg.NaverBlog.RefreshToken,
		})
	}
	if cfg.Facebook.Enabled {
		seeds = append(seeds, domain.Token{Platform: domain.PlatformFacebook, AccessToken: cfg.Facebook.AccessToken})
	}
	if cfg.Telegram.Enabled {
		seeds = append(seeds, domain.Token{Platform: domain.PlatformTelegram, AccessToken: cfg.Telegram.BotToken})
	}
	for _, token := range seeds {
		if err := manager.Seed(ctx, token); err != nil {
			return err
		}
	}
	return nil
}

// registerSources loads configured sources into the registry and keeps the
// stored rows in step with the configuration.
func registerSources(ctx context.Context, registry *scanner.Registry, repo *storage.SourceRepository, sources []config.SourceConfig) error {
	for _, src := range sources {
		cfg := scanner.Config{
			Name:             src.Name,
			DisplayName:      src.DisplayName,
			ListingURL:       src.URL,
			Language:         src.Language,
			ItemSelector:     src.ItemSelector,
			TitleSelector:    src.TitleSelector,
			CategorySelector: src.CategorySelector,
			AuthorSelector:   src.AuthorSelector,
			DateSelector:     src.DateSelector,
			ContentSelectors: src.ContentSelectors,
			BaseURL:          src.BaseURL,
			MaxPosts:         src.MaxPosts,
		}
		if err := registry.Register(cfg); err != nil {
			return err
		}
		if _, err := repo.Upsert(ctx, domain.CommunitySource{
			Name:                 src.Name,
			URL:                  src.URL,
			Language:             src.Language,
			SelectorConfig:       cfg.SelectorJSON(),
			Active:               !src.Disabled,
			MaxPostsPerCrawl:     src.MaxPosts,
			CrawlIntervalMinutes: src.IntervalMinutes,
			Priority:             src.Priority,
		}); err != nil {
			return fmt.Errorf("store source %s: %w", src.Name, err)
		}
	}
	return nil
}

func collectors(client *resty.Client, cfg config.KeywordConfig, timeout time.Duration) []ports.KeywordCollector {
	var out []ports.KeywordCollector
	if cfg.GoogleTrends.Enabled {
		out = append(out, trends.NewGoogleTrends(client, cfg.GoogleTrends.URL, cfg.GoogleTrends.Geo, cfg.GoogleTrends.Language))
	}
	if cfg.GoogleTrends.RSSEnabled {
		out = append(out, trends.NewTrendsRSS(cfg.GoogleTrends.RSSURL, cfg.GoogleTrends.Language, timeout))
	}
	if cfg.NaverDataLab.Enabled {
		out = append(out, trends.NewNaverDataLab(client, cfg.NaverDataLab))
	}
	return out
}

func publishers(client *resty.Client, cfg config.PublishingConfig) []ports.Publisher {
	var out []ports.Publisher
	if cfg.NaverBlog.Enabled {
		out = append(out, publisher.NewNaverBlog(client, cfg.NaverBlog, cfg.SiteURL))
	}
	if cfg.Facebook.Enabled {
		out = append(out, publisher.NewFacebook(client, cfg.Facebook, cfg.SiteURL))
	}
	if cfg.Telegram.Enabled {
		out = append(out, publisher.NewTelegram(client, cfg.Telegram, cfg.SiteURL))
	}
	return out
}

func reporters(client *resty.Client, cfg config.RevenueConfig, manager *tokens.Manager) []ports.RevenueReporter {
	var out []ports.RevenueReporter
	if cfg.AdSense.Enabled {
		out = append(out, revenue.NewAdSense(client, cfg.AdSense, manager))
	}
	if cfg.Coupang.Enabled {
		out = append(out, revenue.NewCoupang(client, cfg.Coupang))
	}
	return out
}

func cadenceSpecs(cfg config.SchedulerConfig) map[string]string {
	return map[string]string{
		usecase.CadenceQuotaReset:        cfg.QuotaReset,
		usecase.CadenceKeywordCollection: cfg.KeywordCollection,
		usecase.CadenceCrawl:             cfg.Crawl,
		usecase.CadencePostGeneration:    cfg.PostGeneration,
		usecase.CadenceKeywordGeneration: cfg.KeywordGeneration,
		usecase.CadencePublish:           cfg.Publish,
		usecase.CadenceRevenue:           cfg.Revenue,
	}
}
