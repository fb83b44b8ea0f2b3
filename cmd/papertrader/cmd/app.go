package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rustyeddy/papertrader/advisor"
	"github.com/rustyeddy/papertrader/broker"
	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/market/binance"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/strategies"
	"github.com/shopspring/decimal"
)

// app is the wired simulator shared by serve and simulate.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     journal.Store
	querier   journal.Querier
	feed      market.Feed
	engine    *sim.Engine
	scheduler *sim.Scheduler
	service   *broker.Service
	collector *market.Collector
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, querier, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	feed := market.Archived(newFeed(cfg.Feed), store, logger)

	ledger := portfolio.NewLedger(decimal.NewFromFloat(cfg.Account.InitialCash))
	engine := sim.NewEngine(ledger, store,
		sim.WithFeeRate(decimal.NewFromFloat(cfg.Account.FeeRate)),
		sim.WithLogger(logger),
	)

	strat, err := newStrategy(ctx, cfg, engine, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sched := sim.NewScheduler(feed, strat, engine, store,
		sim.WithTickTimeout(cfg.Simulation.TickTimeoutDuration()),
		sim.WithSchedulerLogger(logger),
		sim.WithCurrency(cfg.Account.Currency),
	)

	opts := []broker.Option{
		broker.WithArchive(store),
		broker.WithQuerier(querier),
		broker.WithLogger(logger),
	}
	if adv, ok := strat.(*strategies.Advisory); ok {
		opts = append(opts, broker.WithAdvisory(adv))
	}
	svc := broker.NewService(engine, sched, feed, opts...)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		querier:   querier,
		feed:      feed,
		engine:    engine,
		scheduler: sched,
		service:   svc,
		collector: &market.Collector{
			Feed:     feed,
			Coins:    market.PresetCoins,
			Interval: cfg.Collector.IntervalDuration(),
			Parallel: cfg.Collector.Parallel,
			Logger:   logger,
		},
	}, nil
}

// startSimulation starts the configured run. The configured symbol is
// resolved to its coin id so scheduled and manual trades share positions.
func (a *app) startSimulation() error {
	coin, err := market.PresetCoins.Lookup(a.cfg.Simulation.Symbol)
	if err != nil {
		return err
	}
	return a.scheduler.Start(coin.ID, a.cfg.Simulation.IntervalDuration())
}

// Close stops the simulation and closes the journal.
func (a *app) Close() {
	a.scheduler.Stop()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("unable to close journal", "error", err)
	}
}

// openJournal returns the configured store and, for database backends,
// the same store as a Querier.
func openJournal(ctx context.Context, cfg config.JournalConfig) (journal.Store, journal.Querier, error) {
	switch cfg.Type {
	case "sqlite":
		j, err := journal.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return j, j, nil
	case "postgres":
		j, err := journal.NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return j, j, nil
	case "csv":
		j, err := journal.NewCSV(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return j, nil, nil
	case "none":
		return journal.Discard, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

func newFeed(cfg config.FeedConfig) market.Feed {
	if cfg.Type == "random" {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return market.NewRandomWalk(market.PresetCoins, seed)
	}

	opts := []binance.Option{
		binance.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}),
		binance.WithTimeout(cfg.TimeoutDuration()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, binance.WithBaseURL(cfg.BaseURL))
	}
	return binance.New(opts...)
}

func newStrategy(ctx context.Context, cfg *config.Config, exec strategies.Executor, logger *slog.Logger) (strategies.Strategy, error) {
	var adv strategies.Advisor
	if cfg.Strategy.Name != "noop" {
		var err error
		adv, err = newAdvisor(ctx, cfg.Advisor, cfg.Simulation.TickTimeoutDuration(), logger)
		if err != nil {
			return nil, err
		}
	}
	return strategies.ByName(cfg.Strategy.Name, adv, exec,
		strategies.WithBuyFraction(decimal.NewFromFloat(cfg.Strategy.BuyFraction)),
		strategies.WithLogger(logger),
	)
}

func newAdvisor(ctx context.Context, cfg config.AdvisorConfig, timeout time.Duration, logger *slog.Logger) (strategies.Advisor, error) {
	switch cfg.Type {
	case "deepseek":
		if cfg.APIKey == "" {
			logger.Warn("deepseek api key is not set, advisory ticks will fail", "env", config.EnvDeepSeekKey)
		}
		return advisor.NewDeepSeek(cfg.APIKey,
			advisor.WithBaseURL(cfg.BaseURL),
			advisor.WithModel(cfg.Model),
			advisor.WithTimeout(timeout),
		), nil
	case "gemini":
		g, err := advisor.NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "scripted":
		return advisor.NewScripted(cfg.Responses...), nil
	default:
		return nil, fmt.Errorf("unknown advisor type %q", cfg.Type)
	}
}
