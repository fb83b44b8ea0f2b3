package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/strategies"
	"github.com/shopspring/decimal"
)

// Service implements Broker on top of the simulation engine.
type Service struct {
	engine    *sim.Engine
	scheduler *sim.Scheduler
	feed      market.Feed
	archive   journal.Archive
	querier   journal.Querier
	advisory  *strategies.Advisory
	coins     market.Registry
	logger    *slog.Logger
}

var _ Broker = (*Service)(nil)

type Option func(*Service)

func WithArchive(a journal.Archive) Option {
	return func(s *Service) { s.archive = a }
}

// WithQuerier enables the journal backed queries: EquityHistory,
// Trades, ProfitLoss and PriceHistory.
func WithQuerier(q journal.Querier) Option {
	return func(s *Service) { s.querier = q }
}

// WithAdvisory enables Advice.
func WithAdvisory(a *strategies.Advisory) Option {
	return func(s *Service) { s.advisory = a }
}

func WithCoins(coins market.Registry) Option {
	return func(s *Service) { s.coins = coins }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(engine *sim.Engine, scheduler *sim.Scheduler, feed market.Feed, opts ...Option) *Service {
	s := &Service{
		engine:    engine,
		scheduler: scheduler,
		feed:      feed,
		archive:   journal.Discard,
		coins:     market.PresetCoins,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetAccountInfo(ctx context.Context) (portfolio.Account, error) {
	return s.engine.Account(), nil
}

// ResetAccount starts the portfolio over with initialCash. It is refused
// while a simulation runs. Journaled trades are kept.
func (s *Service) ResetAccount(ctx context.Context, initialCash decimal.Decimal) (portfolio.Account, error) {
	if s.scheduler.Running() {
		return portfolio.Account{}, fmt.Errorf("reset account: %w", sim.ErrAlreadyRunning)
	}
	return s.engine.Reset(initialCash)
}

// Holdings marks the open positions at current market prices. A position
// the feed cannot price is left out.
func (s *Service) Holdings(ctx context.Context) ([]portfolio.Holding, error) {
	acct := s.engine.Account()
	prices := make(map[string]decimal.Decimal, len(acct.Positions))
	for sym := range acct.Positions {
		snap, err := s.feed.GetMarketData(ctx, sym)
		if err != nil {
			s.logger.Warn("unable to price holding", "symbol", sym, "error", err)
			continue
		}
		prices[sym] = snap.Price
	}
	return portfolio.Holdings(acct, prices), nil
}

// ExecuteTrade places a manual order. A zero price trades at the current
// market price of the coin.
func (s *Service) ExecuteTrade(ctx context.Context, symbol, side string, quantity, price decimal.Decimal) (portfolio.TradeResult, error) {
	sd, err := portfolio.ParseSide(side)
	if err != nil {
		return portfolio.TradeResult{}, err
	}
	coin, err := s.coins.Lookup(symbol)
	if err != nil {
		return portfolio.TradeResult{}, err
	}

	if price.IsZero() {
		snap, err := s.feed.GetMarketData(ctx, coin.ID)
		if err != nil {
			return portfolio.TradeResult{}, fmt.Errorf("price %s: %w", coin.ID, err)
		}
		price = snap.Price
	}

	return s.engine.Execute(ctx, portfolio.Order{
		Symbol:   coin.ID,
		Side:     sd,
		Quantity: quantity,
		Price:    price,
		Reason:   "manual",
	})
}

// Trades lists journaled trades matching f.
func (s *Service) Trades(ctx context.Context, f journal.TradeFilter) ([]journal.TradeRecord, error) {
	if s.querier == nil {
		return nil, ErrNoHistory
	}
	if f.Symbol != "" {
		coin, err := s.coins.Lookup(f.Symbol)
		if err != nil {
			return nil, err
		}
		f.Symbol = coin.ID
	}
	if f.Side != "" {
		side, err := portfolio.ParseSide(f.Side)
		if err != nil {
			return nil, err
		}
		f.Side = string(side)
	}
	return s.querier.ListTrades(ctx, f)
}

// ProfitLoss totals the journaled trades of symbol and marks any open
// position at the market price.
func (s *Service) ProfitLoss(ctx context.Context, symbol string) (ProfitLoss, error) {
	coin, err := s.coins.Lookup(symbol)
	if err != nil {
		return ProfitLoss{}, err
	}
	if s.querier == nil {
		return ProfitLoss{}, ErrNoHistory
	}

	records, err := s.querier.ListTrades(ctx, journal.TradeFilter{Symbol: coin.ID})
	if err != nil {
		return ProfitLoss{}, fmt.Errorf("list %s trades: %w", coin.ID, err)
	}
	sum := journal.Summarize(records)
	pl := ProfitLoss{Symbol: coin.ID, Trades: sum, Realized: sum.RealizedPL}

	if pos, ok := s.engine.Account().Position(coin.ID); ok {
		snap, err := s.feed.GetMarketData(ctx, coin.ID)
		if err != nil {
			return ProfitLoss{}, fmt.Errorf("price %s: %w", coin.ID, err)
		}
		held := portfolio.Account{Positions: map[string]portfolio.Position{coin.ID: pos}}
		h := portfolio.Holdings(held, map[string]decimal.Decimal{coin.ID: snap.Price})[0]
		pl.Position = &h
		pl.Unrealized = h.UnrealizedPL
	}
	pl.Total = pl.Realized.Add(pl.Unrealized)
	return pl, nil
}

// Advice asks the advisor about symbol without trading.
func (s *Service) Advice(ctx context.Context, symbol string) (Advice, error) {
	if s.advisory == nil {
		return Advice{}, ErrNoAdvisor
	}
	coin, err := s.coins.Lookup(symbol)
	if err != nil {
		return Advice{}, err
	}
	snap, err := s.feed.GetMarketData(ctx, coin.ID)
	if err != nil {
		return Advice{}, fmt.Errorf("price %s: %w", coin.ID, err)
	}

	dec, err := s.advisory.Recommend(ctx, coin.ID, snap, s.engine.Account())
	if err != nil {
		return Advice{}, err
	}
	at := snap.Time
	if at.IsZero() {
		at = time.Now()
	}
	return Advice{
		Symbol: coin.ID,
		Price:  snap.Price,
		Signal: dec.Signal,
		Text:   dec.Advice,
		Order:  dec.Order,
		Time:   at,
	}, nil
}

func (s *Service) StartSimulation(symbol string, intervalSeconds int) error {
	coin, err := s.coins.Lookup(symbol)
	if err != nil {
		return err
	}
	if intervalSeconds <= 0 {
		return fmt.Errorf("%w: interval must be at least one second, got %d", sim.ErrInvalidSchedule, intervalSeconds)
	}
	return s.scheduler.Start(coin.ID, time.Duration(intervalSeconds)*time.Second)
}

func (s *Service) StopSimulation() { s.scheduler.Stop() }

func (s *Service) SimulationStatus() sim.Status { return s.scheduler.Status() }

// Coins returns the supported coins and refreshes the archived copy of
// the registry.
func (s *Service) Coins(ctx context.Context) ([]market.Coin, error) {
	coins := append([]market.Coin(nil), s.coins...)
	if err := s.archive.SaveCoins(ctx, coins); err != nil {
		s.logger.Warn("unable to archive coin list", "error", err)
	}
	return coins, nil
}

func (s *Service) MarketData(ctx context.Context, coinID string) (market.Snapshot, error) {
	coin, err := s.coins.Lookup(coinID)
	if err != nil {
		return market.Snapshot{}, err
	}
	return s.feed.GetMarketData(ctx, coin.ID)
}

// AllMarketData fetches every supported coin. Coins whose lookup fails
// are left out.
func (s *Service) AllMarketData(ctx context.Context) ([]market.Snapshot, error) {
	c := &market.Collector{Feed: s.feed, Coins: s.coins, Logger: s.logger}
	return c.FetchAll(ctx), nil
}

func (s *Service) LatestMarketData(ctx context.Context) ([]market.Snapshot, error) {
	return s.archive.LatestMarketData(ctx)
}

// EquityHistory lists the equity snapshots of a run. An empty runID
// means the current run.
func (s *Service) EquityHistory(ctx context.Context, runID string) ([]journal.EquitySnapshot, error) {
	if s.querier == nil {
		return nil, ErrNoHistory
	}
	if runID == "" {
		runID = s.scheduler.Status().RunID
	}
	return s.querier.ListEquity(ctx, runID)
}

// PriceHistory lists the archived snapshots of coinID since the given
// time, oldest first.
func (s *Service) PriceHistory(ctx context.Context, coinID string, since time.Time) ([]market.Snapshot, error) {
	coin, err := s.coins.Lookup(coinID)
	if err != nil {
		return nil, err
	}
	if s.querier == nil {
		return nil, ErrNoHistory
	}
	return s.querier.PriceHistory(ctx, coin.ID, since)
}
