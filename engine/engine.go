// Package engine runs the evaluation cycle: fetch candles, compute
// indicators, close the open position if an exit fires, otherwise open a
// new one when an entry qualifies. A cycle never does both.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/signalbot/feed"
	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/logging"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/notify"
	"github.com/rustyeddy/signalbot/pkg/id"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store"
	"github.com/rustyeddy/signalbot/strategies"
)

// ErrCycleInProgress is returned by Cycle while another cycle runs, in this
// process or, with a Locker, in another one.
var ErrCycleInProgress = errors.New("cycle already in progress")

// Scorer supplies the confidence score for the latest candles.
type Scorer interface {
	Score(ctx context.Context, candles []market.Candle) (float64, error)
}

// TradeRecorder mirrors closed trades outside the store, e.g. a CSV file.
type TradeRecorder interface {
	RecordTrade(t journal.TradeRecord) error
}

type Outcome string

const (
	// Skipped: no usable data this cycle. Nothing was written.
	Skipped Outcome = "skipped"
	// Hold: evaluated, nothing to do.
	Hold Outcome = "hold"
	// Suppressed: the entry candidate repeats the last emitted signal.
	Suppressed Outcome = "suppressed"
	Entry      Outcome = "entry"
	Exit       Outcome = "exit"
	Failed     Outcome = "failed"
)

// Result describes one cycle. Cause is set for Skipped and Hold outcomes
// that have a reason worth logging.
type Result struct {
	CycleID   string               `json:"cycle_id"`
	Outcome   Outcome              `json:"outcome"`
	Candle    time.Time            `json:"candle"`
	Signal    *signals.Signal      `json:"signal,omitempty"`
	Position  *position.Position   `json:"position,omitempty"`
	Trade     *journal.TradeRecord `json:"trade,omitempty"`
	Delivered bool                 `json:"delivered"`
	Cause     error                `json:"-"`
}

type Config struct {
	Symbol       string
	Timeframe    string
	Params       indicators.Params
	FetchTimeout time.Duration
	LockTTL      time.Duration
}

// Deps are the collaborators of an Engine. Ledger, Scorer, Locker, Recorder,
// Notifier and Metrics are optional.
type Deps struct {
	Feed      feed.Feed
	Generator *strategies.Generator
	Tracker   *position.Tracker
	Cache     signals.Cache
	Ledger    journal.Ledger
	Notifier  notify.Notifier
	Scorer    Scorer
	Locker    store.Locker
	Recorder  TradeRecorder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Engine struct {
	running sync.Mutex

	cfg  Config
	deps Deps
	log  *slog.Logger
	now  func() time.Time
	// step is the candle interval; zero disables gap checks.
	step time.Duration
}

func New(cfg Config, d Deps) (*Engine, error) {
	if d.Feed == nil || d.Generator == nil || d.Tracker == nil || d.Cache == nil {
		return nil, fmt.Errorf("engine: feed, generator, tracker and cache are required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	step, _ := market.ParseTimeframe(cfg.Timeframe)
	return &Engine{
		cfg:  cfg,
		deps: d,
		log:  logger.With(slog.String("component", "engine"), slog.String("symbol", cfg.Symbol)),
		now:  time.Now,
		step: step,
	}, nil
}

// Cycle runs one evaluation. Recoverable conditions (no data, fetch
// failure, scorer failure) come back as a Skipped result with a nil error.
// A non-nil error means the cycle failed and should be retried whole.
func (e *Engine) Cycle(ctx context.Context) (Result, error) {
	if !e.running.TryLock() {
		return Result{}, ErrCycleInProgress
	}
	defer e.running.Unlock()

	start := e.now()
	cycleID := id.At(start)
	ctx = logging.WithCycleID(ctx, cycleID)

	if e.deps.Locker != nil {
		unlock, err := e.deps.Locker.Acquire(ctx, e.cfg.Symbol, e.cfg.LockTTL)
		if errors.Is(err, store.ErrLockHeld) {
			return Result{CycleID: cycleID}, fmt.Errorf("%w: %v", ErrCycleInProgress, err)
		}
		if err != nil {
			return Result{CycleID: cycleID, Outcome: Failed}, fmt.Errorf("acquire cycle lock: %w", err)
		}
		defer unlock()
	}

	res, err := e.cycle(ctx)
	res.CycleID = cycleID
	if err != nil {
		res.Outcome = Failed
	}
	elapsed := e.now().Sub(start)
	e.deps.Metrics.ObserveCycle(string(res.Outcome), elapsed)

	attrs := []any{
		slog.String("outcome", string(res.Outcome)),
		slog.Duration("elapsed", elapsed),
	}
	if !res.Candle.IsZero() {
		attrs = append(attrs, slog.Time("candle", res.Candle))
	}
	switch {
	case err != nil:
		e.log.ErrorContext(ctx, "cycle failed", append(attrs, slog.String("error", err.Error()))...)
	case res.Cause != nil:
		e.log.InfoContext(ctx, "cycle done", append(attrs, slog.String("cause", res.Cause.Error()))...)
	default:
		e.log.InfoContext(ctx, "cycle done", attrs...)
	}
	return res, err
}

func (e *Engine) cycle(ctx context.Context) (Result, error) {
	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	candles, err := e.deps.Feed.Candles(fctx)
	cancel()
	if err != nil {
		if !errors.Is(err, feed.ErrDataFetch) {
			err = &feed.FetchError{Source: e.deps.Feed.Name(), Err: err}
		}
		e.log.WarnContext(ctx, "fetch failed, skipping cycle", slog.String("error", err.Error()))
		return Result{Outcome: Skipped, Cause: err}, nil
	}

	if err := market.ValidateSeries(candles); err != nil {
		return Result{}, fmt.Errorf("feed %s returned a bad series: %w", e.deps.Feed.Name(), err)
	}
	if gaps := market.FindGaps(candles, e.step); len(gaps) > 0 {
		s := market.SummarizeGaps(candles, gaps)
		if s.SuspiciousGaps > 0 {
			e.log.WarnContext(ctx, "candle series has gaps",
				slog.Int("gaps", s.GapCount),
				slog.Int("missing", s.Missing),
				slog.Int("longest", s.LongestGap))
		}
	}

	frame, err := indicators.Compute(candles, e.cfg.Params)
	if errors.Is(err, indicators.ErrInsufficientData) {
		return Result{Outcome: Skipped, Cause: err}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("compute indicators: %w", err)
	}
	latest := candles[len(candles)-1].Time
	e.deps.Metrics.SetLastCandle(latest)

	pos, err := e.deps.Tracker.Current(ctx)
	if err != nil {
		return Result{Candle: latest}, fmt.Errorf("load position: %w", err)
	}
	e.deps.Metrics.SetPositionOpen(pos != nil)

	if pos != nil {
		res, err := e.exit(ctx, frame, *pos)
		res.Candle = latest
		return res, err
	}
	res, err := e.entry(ctx, frame, candles)
	res.Candle = latest
	return res, err
}

// exit closes pos when an exit rule fires. Returning without opening a new
// position keeps a close and an open out of the same cycle.
func (e *Engine) exit(ctx context.Context, frame indicators.Frame, pos position.Position) (Result, error) {
	ex, ok := e.deps.Generator.EvaluateExit(frame, pos)
	if !ok {
		return Result{Outcome: Hold, Position: &pos}, nil
	}

	var (
		rec journal.TradeRecord
		err error
	)
	if ex.Realized {
		rec, err = e.deps.Tracker.CloseRealized(ctx, ex.Price, ex.Time)
	} else {
		rec, err = e.deps.Tracker.Close(ctx, ex.Price, ex.Time, ex.Result)
	}
	duplicate := errors.Is(err, journal.ErrDuplicateTradeID)
	switch {
	case errors.Is(err, position.ErrNoMove):
		return Result{Outcome: Hold, Position: &pos, Cause: err}, nil
	case duplicate:
		e.log.WarnContext(ctx, "trade already recorded, position cleared",
			slog.String("trade_id", rec.TradeID))
	case err != nil:
		return Result{Position: &pos}, fmt.Errorf("close position %s: %w", pos.ID, err)
	}

	e.deps.Metrics.SetPositionOpen(false)
	if !duplicate {
		e.deps.Metrics.TradeClosed(string(rec.Result), rec.PnL)
		e.mirror(ctx, rec)
	}
	e.log.InfoContext(ctx, "position closed",
		slog.String("trade_id", rec.TradeID),
		slog.String("direction", string(rec.Direction)),
		slog.String("result", string(rec.Result)),
		slog.Float64("exit", rec.ExitPrice),
		slog.Float64("pnl", rec.PnL),
	)

	ex.Result = rec.Result
	sig := strategies.ExitSignal(pos, *ex, rec.PnL)
	e.deps.Metrics.SignalEmitted(string(sig.Kind))
	delivered := e.deliver(ctx, sig)

	res := Result{Outcome: Exit, Signal: &sig, Position: &pos, Trade: &rec, Delivered: delivered}
	if err := e.deps.Cache.SaveLastSignal(ctx, sig); err != nil {
		return res, fmt.Errorf("save last signal: %w", err)
	}
	return res, nil
}

func (e *Engine) entry(ctx context.Context, frame indicators.Frame, candles []market.Candle) (Result, error) {
	var score *float64
	if e.deps.Scorer != nil {
		s, err := e.deps.Scorer.Score(ctx, candles)
		if err != nil {
			e.log.WarnContext(ctx, "scorer failed, skipping cycle", slog.String("error", err.Error()))
			return Result{Outcome: Skipped, Cause: fmt.Errorf("score: %w", err)}, nil
		}
		score = &s
	}

	sig, err := e.deps.Generator.EvaluateEntry(frame, score)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate entry: %w", err)
	}
	if sig == nil {
		return Result{Outcome: Hold}, nil
	}

	last, err := e.deps.Cache.LastSignal(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load last signal: %w", err)
	}
	if !signals.ShouldEmit(sig, last) {
		e.deps.Metrics.SignalSuppressed()
		e.log.DebugContext(ctx, "entry repeats last signal", slog.String("signal", sig.String()))
		return Result{Outcome: Suppressed, Signal: sig}, nil
	}
	if last != nil && !sig.Time.After(last.Time) {
		return Result{Outcome: Hold, Cause: fmt.Errorf("candle %s already acted on", sig.Time.Format(time.RFC3339))}, nil
	}
	closed, err := e.closedSince(ctx, sig.Time)
	if err != nil {
		return Result{}, fmt.Errorf("load closed trades: %w", err)
	}
	if closed != nil {
		e.log.WarnContext(ctx, "entry on a candle a trade closed on",
			slog.String("trade_id", closed.TradeID),
			slog.Time("exit_time", closed.ExitTime))
		return Result{Outcome: Hold, Cause: fmt.Errorf("candle %s already closed trade %s", sig.Time.Format(time.RFC3339), closed.TradeID)}, nil
	}

	pos, err := e.deps.Tracker.Open(ctx, strategies.PositionFor(*sig))
	if err != nil {
		return Result{Signal: sig}, fmt.Errorf("open position: %w", err)
	}
	e.deps.Metrics.SetPositionOpen(true)
	e.deps.Metrics.SignalEmitted(string(sig.Kind))
	e.log.InfoContext(ctx, "position opened",
		slog.String("position_id", pos.ID),
		slog.String("direction", string(pos.Direction)),
		slog.Float64("entry", pos.EntryPrice),
		slog.Float64("sl", pos.StopLoss),
		slog.Float64("tp", pos.TakeProfit),
	)

	delivered := e.deliver(ctx, *sig)

	res := Result{Outcome: Entry, Signal: sig, Position: &pos, Delivered: delivered}
	if err := e.deps.Cache.SaveLastSignal(ctx, *sig); err != nil {
		return res, fmt.Errorf("save last signal: %w", err)
	}
	return res, nil
}

// closedSince returns the latest trade whose exit is at or after t, so an
// entry never lands on a candle a recorded trade closed on even when the
// exit signal was never cached. A nil Ledger disables the check.
func (e *Engine) closedSince(ctx context.Context, t time.Time) (*journal.TradeRecord, error) {
	if e.deps.Ledger == nil {
		return nil, nil
	}
	recs, err := e.deps.Ledger.ListClosedBetween(ctx, t, t.AddDate(1, 0, 0))
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[len(recs)-1], nil
}

// deliver never fails the cycle; state is already committed.
func (e *Engine) deliver(ctx context.Context, sig signals.Signal) bool {
	if e.deps.Notifier == nil {
		return false
	}
	if err := e.deps.Notifier.Notify(ctx, sig); err != nil {
		e.deps.Metrics.NotifyFailed()
		e.log.WarnContext(ctx, "signal delivery failed",
			slog.String("signal", sig.String()),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (e *Engine) mirror(ctx context.Context, rec journal.TradeRecord) {
	if e.deps.Recorder == nil {
		return
	}
	if err := e.deps.Recorder.RecordTrade(rec); err != nil {
		e.log.WarnContext(ctx, "trade mirror failed",
			slog.String("trade_id", rec.TradeID),
			slog.String("error", err.Error()))
	}
}
