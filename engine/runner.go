package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Cycler is what the Runner drives; *Engine implements it.
type Cycler interface {
	Cycle(ctx context.Context) (Result, error)
}

// RunnerOptions controls when cycles run.
type RunnerOptions struct {
	// Interval between scheduled cycles.
	Interval time.Duration
	// Align schedules cycles on wall-clock multiples of Interval (00:00,
	// 00:15, ... for 15m) instead of Interval after start.
	Align bool
	// Offset delays aligned cycles past the boundary so the provider has
	// closed the candle.
	Offset time.Duration
	// RunOnStart queues a cycle as soon as Run starts.
	RunOnStart bool
}

// Status is the outcome of the most recent cycle.
type Status struct {
	At     time.Time
	Result Result
	Err    error
	Cycles int
}

// Runner executes cycles one at a time, on a schedule or on demand.
// Triggers that arrive while a cycle runs collapse into one follow-up.
type Runner struct {
	cycler  Cycler
	opts    RunnerOptions
	log     *slog.Logger
	trigger chan struct{}
	now     func() time.Time

	mu   sync.Mutex
	last Status
}

func NewRunner(c Cycler, opts RunnerOptions, logger *slog.Logger) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cycler:  c,
		opts:    opts,
		log:     logger.With(slog.String("component", "runner")),
		trigger: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Trigger queues a cycle. It reports false when one is already queued.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Last returns the status of the most recent cycle.
func (r *Runner) Last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Next returns the delay from now until the next scheduled cycle.
func (r *Runner) Next(now time.Time) time.Duration {
	if !r.opts.Align {
		return r.opts.Interval
	}
	next := now.Truncate(r.opts.Interval).Add(r.opts.Offset)
	for !next.After(now) {
		next = next.Add(r.opts.Interval)
	}
	return next.Sub(now)
}

// Run blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.RunOnStart {
		r.Trigger()
	}

	timer := time.NewTimer(r.Next(r.now()))
	defer timer.Stop()

	r.log.Info("runner started",
		slog.Duration("interval", r.opts.Interval),
		slog.Bool("align", r.opts.Align))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("runner stopped")
			return nil
		case <-timer.C:
			r.runOnce(ctx)
			timer.Reset(r.Next(r.now()))
		case <-r.trigger:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	res, err := r.cycler.Cycle(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		r.log.Debug("cycle skipped, another is running")
		return
	}

	r.mu.Lock()
	r.last = Status{At: r.now(), Result: res, Err: err, Cycles: r.last.Cycles + 1}
	r.mu.Unlock()
}
