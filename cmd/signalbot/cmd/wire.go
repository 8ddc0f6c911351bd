package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/signalbot/config"
	"github.com/rustyeddy/signalbot/engine"
	"github.com/rustyeddy/signalbot/feed"
	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/notify"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/store"
	"github.com/rustyeddy/signalbot/store/memory"
	"github.com/rustyeddy/signalbot/store/postgres"
	redisstore "github.com/rustyeddy/signalbot/store/redis"
	"github.com/rustyeddy/signalbot/store/sqlite"
	"github.com/rustyeddy/signalbot/strategies"
)

// backend is an opened store plus whatever else must be closed with it.
type backend struct {
	store.Backend
	locker  store.Locker
	closers []func() error
}

func (b *backend) Close() error {
	var errs []error
	if b.Backend != nil {
		errs = append(errs, b.Backend.Close())
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openStore connects the configured backend. With store.lock set it also
// returns a Redis lock, sharing the client when the backend is Redis.
func openStore(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}
	sc := cfg.Store

	switch sc.Backend {
	case "memory":
		b.Backend = memory.New()

	case "sqlite":
		st, err := sqlite.New(sc.Path, cfg.Symbol)
		if err != nil {
			return nil, err
		}
		b.Backend = st

	case "redis":
		rdb, err := redisstore.Dial(ctx, sc.Redis)
		if err != nil {
			return nil, err
		}
		b.Backend = redisstore.NewWithClient(rdb, sc.Redis.Prefix, cfg.Symbol)
		b.closers = append(b.closers, rdb.Close)
		if sc.Lock {
			b.locker = redisstore.NewLockManager(rdb, sc.Redis.Prefix)
		}

	case "postgres":
		pool, err := postgres.Connect(ctx, sc.Postgres)
		if err != nil {
			return nil, err
		}
		if sc.Migrate {
			if err := postgres.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		b.Backend = postgres.NewWithPool(pool, cfg.Symbol)
		b.closers = append(b.closers, func() error { pool.Close(); return nil })

	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}

	if sc.Lock && b.locker == nil {
		rdb, err := redisstore.Dial(ctx, sc.Redis)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("lock: %w", err)
		}
		b.closers = append(b.closers, rdb.Close)
		b.locker = redisstore.NewLockManager(rdb, sc.Redis.Prefix)
	}
	return b, nil
}

func buildFeed(cfg *config.Config) (feed.Feed, error) {
	switch cfg.Feed.Provider {
	case "csv":
		return &feed.CSVFile{Path: cfg.Feed.CSVPath, Limit: cfg.Feed.OutputSize}, nil
	case "twelvedata":
		return feed.NewTwelveData(feed.TwelveDataConfig{
			BaseURL:    cfg.Feed.BaseURL,
			APIKey:     cfg.Feed.APIKey,
			Symbol:     cfg.Symbol,
			Interval:   cfg.Timeframe,
			OutputSize: cfg.Feed.OutputSize,
			Timeout:    cfg.Feed.Timeout.Duration,
		})
	}
	return nil, fmt.Errorf("unknown feed provider %q", cfg.Feed.Provider)
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) *notify.Dispatcher {
	n := cfg.Notify
	var senders []notify.Sender
	if n.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(n.DiscordWebhookURL))
	}
	if n.TelegramToken != "" {
		senders = append(senders, notify.NewTelegramSender(n.TelegramToken, n.TelegramChatID))
	}
	if n.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(n.WebhookURL))
	}
	if n.Log {
		senders = append(senders, notify.NewLogSender(logger))
	}
	return notify.NewDispatcher(senders, n.Kinds, logger)
}

// bot is everything a cycle needs, built from one Config.
type bot struct {
	cfg      *config.Config
	log      *slog.Logger
	backend  *backend
	engine   *engine.Engine
	metrics  *metrics.Metrics
	notifier *notify.Dispatcher
	closers  []func() error
}

func (b *bot) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	if b.backend != nil {
		errs = append(errs, b.backend.Close())
	}
	return errors.Join(errs...)
}

func buildBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bot, error) {
	rule, err := strategies.Lookup(cfg.Strategy.Name, cfg.Strategy.Options)
	if err != nil {
		return nil, err
	}
	src, err := buildFeed(cfg)
	if err != nil {
		return nil, err
	}

	be, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	b := &bot{
		cfg:      cfg,
		log:      logger,
		backend:  be,
		metrics:  metrics.New(),
		notifier: buildNotifier(cfg, logger),
	}

	deps := engine.Deps{
		Feed: src,
		Generator: &strategies.Generator{
			Rule:      rule,
			Exit:      cfg.Exit,
			Gate:      cfg.Confidence.ConfidenceGate,
			Policy:    cfg.Risk,
			RR:        cfg.Strategy.RR,
			Symbol:    cfg.Symbol,
			Timeframe: cfg.Timeframe,
			Logger:    logger,
		},
		Tracker:  position.NewTracker(be, cfg.Symbol, cfg.Timeframe),
		Cache:    be,
		Ledger:   be,
		Notifier: b.notifier,
		Metrics:  b.metrics,
		Logger:   logger,
	}
	if be.locker != nil {
		deps.Locker = be.locker
	}
	if cfg.Confidence.Enabled {
		deps.Scorer = feed.NewHTTPScorer(cfg.Confidence.URL, cfg.Symbol, cfg.Confidence.Window, cfg.Confidence.Timeout.Duration)
	}
	if cfg.Journal.CSVPath != "" {
		mirror, err := journal.NewCSV(cfg.Journal.CSVPath)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("journal mirror: %w", err)
		}
		b.closers = append(b.closers, mirror.Close)
		deps.Recorder = mirror
	}

	b.engine, err = engine.New(engine.Config{
		Symbol:       cfg.Symbol,
		Timeframe:    cfg.Timeframe,
		Params:       cfg.Indicators,
		FetchTimeout: cfg.Feed.Timeout.Duration,
		LockTTL:      cfg.Schedule.LockTTL.Duration,
	}, deps)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	logger.Info("bot ready",
		slog.String("symbol", cfg.Symbol),
		slog.String("timeframe", cfg.Timeframe),
		slog.String("strategy", rule.Name()),
		slog.String("feed", src.Name()),
		slog.String("store", cfg.Store.Backend),
		slog.Any("notify", b.notifier.Senders()),
		slog.Bool("confidence", cfg.Confidence.Enabled),
		slog.Bool("lock", be.locker != nil))
	return b, nil
}
