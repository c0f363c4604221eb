package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
	"ContentPipeline/pkg/logger"
)

// CronScheduler runs named jobs on six-field cron expressions in one time zone.
type CronScheduler struct {
	cron     *cron.Cron
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a stopped scheduler. A panicking job is recovered and logged.
func NewCronScheduler(location *time.Location, log *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	adapter := logger.New(log, "cron")
	return &CronScheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter)),
		),
		location: location,
		logger:   log,
		entries:  map[string]cron.EntryID{},
	}
}

// Schedule registers job under name. Names are unique and the spec must parse.
func (c *CronScheduler) Schedule(name, spec string, job func(time.Time)) error {
	if job == nil {
		return domain.ConfigurationError("cadence %s has no job", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.entries[name]; dup {
		return domain.ConfigurationError("cadence %s is already scheduled", name)
	}

	id, err := c.cron.AddFunc(spec, func() {
		job(time.Now().In(c.location))
	})
	if err != nil {
		return domain.ConfigurationError("cadence %s: invalid spec %q: %v", name, spec, err)
	}
	c.entries[name] = id
	c.logger.Debug("cadence scheduled", "cadence", name, "spec", spec)
	return nil
}

// Next reports the next activation of name, or the zero time when it is unknown or not running.
func (c *CronScheduler) Next(name string) time.Time {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return c.cron.Entry(id).Next
}

// Start begins dispatching in the background. It is a no-op when already running.
func (c *CronScheduler) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	c.cron.Start()
	c.running = true
	return nil
}

// Stop prevents new activations and waits for running jobs or ctx, whichever comes first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
