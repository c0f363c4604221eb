package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/logging"
	"ContentPipeline/internal/ports"
)

// Cadence is a named recurring pass.
type Cadence struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type cadenceState struct {
	Cadence
	running atomic.Bool
}

// Scheduler wires the cron driver with the pipeline passes. Each cadence is
// single-flight: a trigger that arrives while the previous run is still
// going is skipped. Different cadences run concurrently.
type Scheduler struct {
	driver ports.Scheduler
	logger *slog.Logger

	mu       sync.Mutex
	cadences map[string]*cadenceState
	runCtx   context.Context
	stopping bool
	wg       sync.WaitGroup
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, logger: logger, cadences: map[string]*cadenceState{}}
}

// Register adds cadences and schedules them with the driver.
func (s *Scheduler) Register(cadences ...Cadence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cadences {
		if c.Name == "" || c.Run == nil {
			return domain.ConfigurationError("cadence %q is incomplete", c.Name)
		}
		if _, dup := s.cadences[c.Name]; dup {
			return domain.ConfigurationError("cadence %s registered twice", c.Name)
		}
		state := &cadenceState{Cadence: c}
		if s.driver != nil && c.Spec != "" {
			name := c.Name
			if err := s.driver.Schedule(name, c.Spec, func(at time.Time) { s.Trigger(name, at) }); err != nil {
				return err
			}
		}
		s.cadences[c.Name] = state
	}
	return nil
}

// Start records ctx as the run context of every future trigger and starts the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()
	if s.driver == nil {
		return nil
	}
	return s.driver.Start(ctx)
}

// Trigger runs the named cadence synchronously unless it is already running,
// Stop was called or the run context is done. It reports whether it ran.
func (s *Scheduler) Trigger(name string, at time.Time) bool {
	s.mu.Lock()
	state, ok := s.cadences[name]
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if !ok || s.stopping || ctx.Err() != nil {
		s.mu.Unlock()
		if !ok {
			s.logger.Warn("unknown cadence triggered", "cadence", name)
		}
		return false
	}
	// Add happens under mu so it never races the Wait in Stop.
	s.wg.Add(1)
	s.mu.Unlock()

	if !state.running.CompareAndSwap(false, true) {
		s.wg.Done()
		s.logger.Info("cadence still running, trigger skipped", "cadence", name, "at", at)
		return false
	}
	defer func() {
		state.running.Store(false)
		s.wg.Done()
	}()

	runID := uuid.NewString()
	log := s.logger.With("cadence", name, "run_id", runID)
	started := time.Now()
	log.Info("cadence started", "at", at)

	err := s.safeRun(withRunLogger(ctx, log), state.Run)
	if err != nil {
		log.Warn("cadence finished with error", "duration", time.Since(started), "error", err)
		return true
	}
	log.Info("cadence finished", "duration", time.Since(started))
	return true
}

// Running reports whether the named cadence is executing.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	state, ok := s.cadences[name]
	s.mu.Unlock()
	return ok && state.running.Load()
}

// Stop halts the driver and waits for in-flight runs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	if s.driver != nil {
		if err := s.driver.Stop(ctx); err != nil {
			return err
		}
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) safeRun(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cadence panic: %v", r)
		}
	}()
	return run(ctx)
}

type runLoggerKey struct{}

func withRunLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, runLoggerKey{}, log)
}

// runLogger returns the logger of the current cadence run, or fallback.
func runLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(runLoggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return fallback
}
