// Package scheduler launches surge workflow runs periodically and on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"arogya-swarm/backend/internal/repository"
	"arogya-swarm/backend/internal/state"
	"arogya-swarm/backend/internal/workflow"
	"arogya-swarm/backend/pkg/models"
)

// Runner executes one workflow run. *workflow.Graph satisfies it.
type Runner interface {
	Run(ctx context.Context, initial *state.State) (*workflow.RunResult, error)
}

// SignalSource supplies the external signals for scheduled runs.
type SignalSource interface {
	Signals(ctx context.Context) (models.ExternalSignals, error)
}

// Publisher observes completed runs.
type Publisher interface {
	PublishRun(ctx context.Context, res *workflow.RunResult)
}

// Logger is the logging surface used by the scheduler.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Scheduler. Store, Publisher and Source are optional.
type Options struct {
	Interval    time.Duration
	RetryDelay  time.Duration
	RunTimeout  time.Duration
	HistorySize int
	Store       repository.RecommendationStore
	Publisher   Publisher
	Source      SignalSource
	Logger      Logger
}

// ErrNoSource is returned by Start when no SignalSource is configured.
var ErrNoSource = errors.New("scheduler has no signal source")

// Scheduler runs the workflow and keeps a short history of results.
type Scheduler struct {
	runner Runner
	opts   Options

	mu      sync.RWMutex
	history []*workflow.RunResult
}

// New creates a Scheduler. Zero durations fall back to 5m interval,
// 1m retry delay and 2m run timeout.
func New(runner Runner, opts Options) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler requires a runner")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Minute
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 20
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Scheduler{runner: runner, opts: opts}, nil
}

// Start runs the workflow immediately and then every Interval until ctx is
// canceled. A failed run is retried after RetryDelay. Cancellation never
// interrupts a run already in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.opts.Source == nil {
		return ErrNoSource
	}
	s.opts.Logger.Info("Scheduler started", "interval", s.opts.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.opts.Logger.Info("Scheduler stopped")
			return nil
		case <-timer.C:
		}

		wait := s.opts.Interval
		if err := s.tick(ctx); err != nil {
			s.opts.Logger.Error("Scheduled run failed", "error", err, "retry_in", s.opts.RetryDelay)
			wait = s.opts.RetryDelay
		}
		timer.Reset(wait)
	}
}

func (s *Scheduler) tick(ctx context.Context) error {
	signals, err := s.opts.Source.Signals(ctx)
	if err != nil {
		return fmt.Errorf("failed to read signals: %w", err)
	}
	_, err = s.Trigger(ctx, signals)
	return err
}

// Trigger executes one run to completion, persists its recommendations,
// publishes it and records it in the history. The run is detached from
// ctx cancellation and bounded by RunTimeout.
func (s *Scheduler) Trigger(ctx context.Context, signals models.ExternalSignals) (*workflow.RunResult, error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
	defer cancel()

	res, err := s.runner.Run(runCtx, state.New(signals))
	if err != nil {
		return nil, err
	}

	if s.opts.Store != nil && len(res.State.ActionResults) > 0 {
		if _, err := s.opts.Store.SaveResults(runCtx, res.RunID, res.State.ActionResults); err != nil {
			s.opts.Logger.Warn("Failed to persist recommendations", "run_id", res.RunID, "error", err)
		}
	}
	if s.opts.Publisher != nil {
		s.opts.Publisher.PublishRun(runCtx, res)
	}
	s.record(res)

	s.opts.Logger.Info("Workflow run completed",
		"run_id", res.RunID,
		"path", res.Path,
		"degraded", len(res.Degraded),
		"recommendations", len(res.State.Recommendations))
	return res, nil
}

func (s *Scheduler) record(res *workflow.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, res)
	if over := len(s.history) - s.opts.HistorySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// Latest returns the most recent run, or nil if none completed yet.
func (s *Scheduler) Latest() *workflow.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// Recent returns up to n runs, newest first.
func (s *Scheduler) Recent(n int) []*workflow.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]*workflow.RunResult, 0, n)
	for i := len(s.history) - 1; i >= len(s.history)-n; i-- {
		out = append(out, s.history[i])
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
