package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/logging"
	"ContentPipeline/internal/ports"
	"ContentPipeline/internal/quota"
)

// Cadence names.
const (
	CadenceQuotaReset        = "quota-reset"
	CadenceKeywordCollection = "keyword-collection"
	CadenceCrawl             = "crawl"
	CadencePostGeneration    = "post-generation"
	CadenceKeywordGeneration = "keyword-generation"
	CadencePublish           = "publish"
	CadenceRevenue           = "revenue"
)

var errQuotaExhausted = fmt.Errorf("pass stopped: %w", domain.ErrQuotaExceeded)

// PipelineOptions tune the cadences.
type PipelineOptions struct {
	Languages          []string
	KeywordLimit       int
	MaxSourcesPerCrawl int
	ForbiddenKeywords  []string
	// GenerationInterval is the pause between two provider calls of one pass.
	GenerationInterval time.Duration
	PublishBatch       int
	// ItemTimeout bounds each item; items ignore shutdown cancellation once started.
	ItemTimeout time.Duration
	Location    *time.Location
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Quota       *quota.Manager
	Keywords    *KeywordStore
	Collectors  []ports.KeywordCollector
	Sources     ports.SourceRepository
	Crawler     ports.Crawler
	Queue       *PostQueue
	Contents    ports.ContentRepository
	Synthesizer *Synthesizer
	Dispatcher  *Dispatcher
	Revenue     *RevenueAggregator
	Options     PipelineOptions
	Logger      *slog.Logger
}

// Pipeline implements one method per cadence.
type Pipeline struct {
	quota       *quota.Manager
	keywords    *KeywordStore
	collectors  []ports.KeywordCollector
	sources     ports.SourceRepository
	crawler     ports.Crawler
	queue       *PostQueue
	contents    ports.ContentRepository
	synthesizer *Synthesizer
	dispatcher  *Dispatcher
	revenue     *RevenueAggregator
	opts        PipelineOptions
	logger      *slog.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// sourceRegistrar is implemented by crawlers that must learn sources found in storage.
type sourceRegistrar interface {
	EnsureRegistered(src domain.CommunitySource) error
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	opts := deps.Options
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 2 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PublishBatch <= 0 {
		opts.PublishBatch = 20
	}
	if len(opts.Languages) == 0 {
		opts.Languages = domain.SupportedLanguages
	}
	queue := deps.Queue
	if queue == nil {
		queue = NewPostQueue(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		quota:       deps.Quota,
		keywords:    deps.Keywords,
		collectors:  deps.Collectors,
		sources:     deps.Sources,
		crawler:     deps.Crawler,
		queue:       queue,
		contents:    deps.Contents,
		synthesizer: deps.Synthesizer,
		dispatcher:  deps.Dispatcher,
		revenue:     deps.Revenue,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Cadences pairs every pipeline pass with its cron spec. Passes whose spec is
// empty are left out.
func (p *Pipeline) Cadences(specs map[string]string) []Cadence {
	all := []Cadence{
		{Name: CadenceQuotaReset, Run: p.ResetQuotas},
		{Name: CadenceKeywordCollection, Run: p.CollectKeywords},
		{Name: CadenceCrawl, Run: p.Crawl},
		{Name: CadencePostGeneration, Run: p.GeneratePosts},
		{Name: CadenceKeywordGeneration, Run: p.GenerateKeywordContent},
		{Name: CadencePublish, Run: p.Publish},
		{Name: CadenceRevenue, Run: p.CollectRevenue},
	}
	out := make([]Cadence, 0, len(all))
	for _, c := range all {
		if spec := specs[c.Name]; spec != "" {
			c.Spec = spec
			out = append(out, c)
		}
	}
	return out
}

// ResetQuotas zeroes the daily counters.
func (p *Pipeline) ResetQuotas(ctx context.Context) error {
	if p.quota == nil {
		return nil
	}
	p.quota.ResetAll()
	runLogger(ctx, p.logger).Info("quotas reset")
	return nil
}

// CollectKeywords asks every collector for trending terms and merges them.
func (p *Pipeline) CollectKeywords(ctx context.Context) error {
	log := runLogger(ctx, p.logger)
	total := 0
	for _, collector := range p.collectors {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := p.item(ctx, func(ctx context.Context) error {
			terms, err := collector.Collect(ctx)
			if err != nil {
				return err
			}
			saved, err := p.keywords.Merge(ctx, terms, collector.Language(), collector.Name())
			total += saved
			log.Info("keywords collected", "collector", collector.Name(), "terms", len(terms), "new", saved)
			return err
		})
		if err != nil {
			log.Warn("keyword collector failed", "collector", collector.Name(), "error", err)
		}
	}
	log.Info("keyword collection finished", "new", total)
	return nil
}

// Crawl visits due sources and queues unseen posts for generation.
func (p *Pipeline) Crawl(ctx context.Context) error {
	log := runLogger(ctx, p.logger)
	due, err := p.sources.FindDue(ctx, p.now().UTC(), p.opts.MaxSourcesPerCrawl)
	if err != nil {
		return fmt.Errorf("load due sources: %w", err)
	}

	queued := 0
	for _, src := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := p.item(ctx, func(ctx context.Context) error {
			n, err := p.crawlSource(ctx, src)
			queued += n
			return err
		})
		if errors.Is(err, domain.ErrQuotaExceeded) {
			log.Info("crawl quota exhausted", "source", src.Name, "queued", queued)
			break
		}
		if err != nil {
			log.Warn("crawl failed", "source", src.Name, "error", err)
		}
	}
	log.Info("crawl finished", "sources", len(due), "queued", queued, "pending", p.queue.Len())
	return nil
}

func (p *Pipeline) crawlSource(ctx context.Context, src domain.CommunitySource) (int, error) {
	log := runLogger(ctx, p.logger).With("source", src.Name)
	if reg, ok := p.crawler.(sourceRegistrar); ok {
		if err := reg.EnsureRegistered(src); err != nil {
			return 0, err
		}
	}

	posts, err := p.crawler.CrawlPopular(ctx, src.Name)
	if err != nil {
		return 0, err
	}
	if err := p.sources.MarkCrawled(ctx, src.ID, p.now().UTC()); err != nil {
		log.Warn("mark crawled failed", "error", err)
	}

	posts = FilterForbidden(posts, p.opts.ForbiddenKeywords, log)
	if len(posts) == 0 {
		return 0, nil
	}

	urls := make([]string, 0, len(posts))
	for _, post := range posts {
		urls = append(urls, post.URL)
	}
	known, err := p.contents.SourceURLsExist(ctx, urls)
	if err != nil {
		return 0, fmt.Errorf("check known urls: %w", err)
	}

	queued := 0
	for _, post := range posts {
		if known[post.URL] || p.queue.Contains(post.URL) {
			continue
		}
		if !p.quota.TryConsume(quota.Crawl) {
			return queued, errQuotaExhausted
		}
		if !p.queue.Offer(post) {
			p.quota.Release(quota.Crawl)
			if p.queue.Full() {
				log.Warn("post queue full", "capacity", p.queue.Cap())
				break
			}
			continue
		}
		queued++
	}
	log.Debug("source crawled", "posts", len(posts), "queued", queued)
	return queued, nil
}

// GeneratePosts drains the queue into FUN articles while generation quota lasts.
func (p *Pipeline) GeneratePosts(ctx context.Context) error {
	log := runLogger(ctx, p.logger)
	generated := 0
	for p.queue.Len() > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !p.quota.TryConsume(quota.Generation) {
			log.Info("generation quota exhausted", "pending", p.queue.Len())
			break
		}
		post, ok := p.queue.Pop()
		if !ok {
			break
		}

		err := p.item(ctx, func(ctx context.Context) error {
			content, err := p.synthesizer.FromSource(ctx, postText(post), post.SourceName, post.Language)
			if err != nil {
				return err
			}
			if content.Category == "" {
				content.Category = post.Category
			}
			id, err := p.contents.Save(ctx, content, []domain.ContentSource{{
				SourceName:  post.SourceName,
				SourceURL:   post.URL,
				Description: post.Title,
			}})
			if err != nil {
				return fmt.Errorf("save content: %w", err)
			}
			generated++
			log.Info("post generated", "content_id", id, "source", post.SourceName, "url", post.URL)
			return nil
		})
		if err != nil {
			log.Warn("post generation failed", "source", post.SourceName, "url", post.URL, "error", err)
		}

		if p.queue.Len() > 0 {
			if err := p.sleep(ctx, p.opts.GenerationInterval); err != nil {
				return err
			}
		}
	}
	log.Info("post generation finished", "generated", generated, "pending", p.queue.Len())
	return nil
}

// GenerateKeywordContent writes KEYWORD articles for selected keywords of every language.
func (p *Pipeline) GenerateKeywordContent(ctx context.Context) error {
	log := runLogger(ctx, p.logger)
	generated := 0
	for _, language := range p.opts.Languages {
		keywords, err := p.keywords.SelectForGeneration(ctx, language, p.opts.KeywordLimit)
		if err != nil {
			log.Warn("keyword selection failed", "language", language, "error", err)
			continue
		}

		for i, kw := range keywords {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !p.quota.TryConsume(quota.Generation) {
				log.Info("generation quota exhausted", "language", language, "generated", generated)
				return nil
			}

			err := p.item(ctx, func(ctx context.Context) error {
				content, err := p.synthesizer.FromKeyword(ctx, kw.Term, kw.Category, language)
				if err != nil {
					return err
				}
				id, err := p.contents.Save(ctx, content, []domain.ContentSource{{
					SourceName:  kw.Source,
					Description: "keyword: " + kw.Term,
				}})
				if err != nil {
					return fmt.Errorf("save content: %w", err)
				}
				generated++
				if err := p.keywords.MarkGenerated(ctx, kw.ID); err != nil {
					// the article is stored; without the stamp the keyword is picked again next run
					log.Error("keyword cooldown not stamped", "content_id", id, "keyword_id", kw.ID,
						"keyword", kw.Term, "language", language, "error", err)
					return nil
				}
				log.Info("keyword content generated", "content_id", id, "keyword", kw.Term, "language", language)
				return nil
			})
			if err != nil {
				log.Warn("keyword generation failed", "keyword", kw.Term, "language", language, "error", err)
			}

			if i < len(keywords)-1 {
				if err := p.sleep(ctx, p.opts.GenerationInterval); err != nil {
					return err
				}
			}
		}
	}
	log.Info("keyword generation finished", "generated", generated)
	return nil
}

// Publish sends published articles that a platform has not seen yet.
func (p *Pipeline) Publish(ctx context.Context) error {
	if p.dispatcher == nil {
		return nil
	}
	log := runLogger(ctx, p.logger)
	for _, platform := range p.dispatcher.Platforms() {
		contents, err := p.contents.FindUnposted(ctx, platform, p.opts.PublishBatch)
		if err != nil {
			log.Warn("load unposted content failed", "platform", platform, "error", err)
			continue
		}

		counts := map[domain.PublishOutcome]int{}
		for _, content := range contents {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			outcome := domain.OutcomeFailed
			err := p.item(ctx, func(ctx context.Context) error {
				var err error
				outcome, err = p.dispatcher.Publish(ctx, platform, content)
				return err
			})
			counts[outcome]++
			if err != nil {
				log.Warn("publish failed", "platform", platform, "content_id", content.ID, "error", err)
			}
		}
		log.Info("platform publish finished", "platform", platform,
			"posted", counts[domain.OutcomePosted],
			"already_posted", counts[domain.OutcomeAlreadyPosted],
			"failed", counts[domain.OutcomeFailed])
	}
	return nil
}

// CollectRevenue ingests yesterday, in the configured zone, for every reporter.
func (p *Pipeline) CollectRevenue(ctx context.Context) error {
	if p.revenue == nil {
		return nil
	}
	log := runLogger(ctx, p.logger)
	day := domain.CalendarDay(p.now().In(p.opts.Location).AddDate(0, 0, -1))
	for _, platform := range p.revenue.Platforms() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := p.item(ctx, func(ctx context.Context) error {
			_, err := p.revenue.Ingest(ctx, platform, day, day)
			return err
		})
		if err != nil {
			log.Warn("revenue collection failed", "platform", platform, "date", day.Format(time.DateOnly), "error", err)
		}
	}
	return nil
}

// item runs fn under the per-item timeout on a context that survives
// cancellation of ctx, so a started item finishes instead of tearing mid-write.
func (p *Pipeline) item(ctx context.Context, fn func(ctx context.Context) error) error {
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.ItemTimeout)
	defer cancel()
	return fn(itemCtx)
}

func postText(post domain.CrawledPost) string {
	if post.Title == "" {
		return post.Body
	}
	return post.Title + "\n\n" + post.Body
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
