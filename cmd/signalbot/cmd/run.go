package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/signalbot/engine"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot until interrupted",
	Long: `Run cycles on the configured schedule until SIGINT or SIGTERM.

With metrics.addr set, an HTTP server exposes:
  GET  /metrics  Prometheus metrics
  GET  /healthz  status of the last cycle
  POST /cycle    queue a cycle now

Example:
  signalbot run -c signalbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := buildBot(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("close", slog.String("error", err.Error()))
		}
	}()

	runner := engine.NewRunner(b.engine, engine.RunnerOptions{
		Interval:   cfg.Schedule.Interval.Duration,
		Align:      cfg.Schedule.Align,
		Offset:     cfg.Schedule.Offset.Duration,
		RunOnStart: cfg.Schedule.RunOnStart,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(ctx)
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           newMux(b, runner),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

type health struct {
	Status    string     `json:"status"`
	Symbol    string     `json:"symbol"`
	Cycles    int        `json:"cycles"`
	LastCycle *time.Time `json:"last_cycle,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	Candle    *time.Time `json:"candle,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// statusSource is satisfied by *engine.Runner.
type statusSource interface {
	Last() engine.Status
	Trigger() bool
}

func newMux(b *bot, runner statusSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", b.metrics.Handler())
	mux.HandleFunc("GET /healthz", healthHandler(b.cfg.Symbol, runner))
	mux.HandleFunc("POST /cycle", func(w http.ResponseWriter, r *http.Request) {
		if runner.Trigger() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(http.StatusConflict)
	})
	return mux
}

// healthHandler always answers 200 while the process runs; a failed last
// cycle is reported as "degraded" in the body.
func healthHandler(symbol string, runner statusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := runner.Last()
		h := health{Status: "ok", Symbol: symbol, Cycles: st.Cycles}
		if !st.At.IsZero() {
			at := st.At.UTC()
			h.LastCycle = &at
			h.Outcome = string(st.Result.Outcome)
		}
		if !st.Result.Candle.IsZero() {
			c := st.Result.Candle.UTC()
			h.Candle = &c
		}
		if st.Err != nil {
			h.Status = "degraded"
			h.Error = st.Err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h)
	}
}
