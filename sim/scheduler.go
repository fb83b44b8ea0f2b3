package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/id"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/rustyeddy/papertrader/strategies"
)

var (
	ErrAlreadyRunning  = errors.New("simulation already running")
	ErrInvalidSchedule = errors.New("invalid simulation schedule")
)

const DefaultTickTimeout = 30 * time.Second

// Status describes the scheduler for operators. After Stop it keeps
// describing the last run.
type Status struct {
	Running         bool      `json:"running"`
	Symbol          string    `json:"symbol,omitempty"`
	IntervalSeconds float64   `json:"intervalSeconds,omitempty"`
	RunID           string    `json:"runId,omitempty"`
	StartedAt       time.Time `json:"startedAt,omitzero"`
	Ticks           int       `json:"ticks"`
	LastError       string    `json:"lastError,omitempty"`
}

// Scheduler runs a strategy against one symbol on a fixed interval. At
// most one run is active; ticks of a run are strictly sequential.
type Scheduler struct {
	feed        market.Feed
	strategy    strategies.Strategy
	engine      *Engine
	journal     journal.Journal
	logger      *slog.Logger
	tickTimeout time.Duration
	currency    string

	mu        sync.Mutex
	running   bool
	symbol    string
	interval  time.Duration
	runID     string
	startedAt time.Time
	ticks     int
	lastErr   error
	cancel    context.CancelFunc
	done      chan struct{}
}

type SchedulerOption func(*Scheduler)

// WithTickTimeout bounds the external calls made by a single tick.
func WithTickTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickTimeout = d }
}

func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithCurrency sets the currency used when logging valuations.
func WithCurrency(code string) SchedulerOption {
	return func(s *Scheduler) { s.currency = code }
}

func NewScheduler(feed market.Feed, strategy strategies.Strategy, engine *Engine, j journal.Journal, opts ...SchedulerOption) *Scheduler {
	if j == nil {
		j = journal.Discard
	}
	s := &Scheduler{
		feed:        feed,
		strategy:    strategy,
		engine:      engine,
		journal:     j,
		logger:      slog.Default(),
		tickTimeout: DefaultTickTimeout,
		currency:    "USD",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a run for symbol. The first tick fires one interval
// after Start returns.
func (s *Scheduler) Start(symbol string, interval time.Duration) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidSchedule)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidSchedule, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("simulation already running", "symbol", s.symbol, "run", s.runID)
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.running = true
	s.symbol = symbol
	s.interval = interval
	s.runID = id.NewRun()
	s.startedAt = time.Now()
	s.ticks = 0
	s.lastErr = nil
	s.cancel = cancel
	s.done = done

	s.logger.Info("simulation started", "symbol", symbol, "interval", interval, "run", s.runID)
	go s.loop(ctx, done, symbol, interval, s.runID)
	return nil
}

// Stop cancels the active run and waits for its goroutine to exit.
// Calling Stop when nothing runs does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done, runID := s.cancel, s.done, s.runID
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	cleared := s.done == done
	if cleared {
		s.running = false
		s.cancel = nil
		s.done = nil
	}
	s.mu.Unlock()

	if cleared {
		s.logger.Info("simulation stopped", "run", runID)
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:         s.running,
		Symbol:          s.symbol,
		IntervalSeconds: s.interval.Seconds(),
		RunID:           s.runID,
		StartedAt:       s.startedAt,
		Ticks:           s.ticks,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}, symbol string, interval time.Duration, runID string) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a pending tick loses to a stop request
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			err := s.runTick(ctx, symbol, runID)
			s.recordTick(runID, err)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("simulation tick failed", "symbol", symbol, "run", runID, "error", err)
			}
			if elapsed := time.Since(start); elapsed > interval {
				s.logger.Warn("simulation tick overran interval", "run", runID,
					"elapsed", elapsed, "interval", interval)
			}
		}
	}
}

// runTick isolates one tick: it is bounded by the tick timeout and a
// panic inside it is turned into an error.
func (s *Scheduler) runTick(ctx context.Context, symbol, runID string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return s.Tick(ctx, symbol, runID)
}

func (s *Scheduler) recordTick(runID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return
	}
	s.ticks++
	s.lastErr = err
}

// Tick performs one simulation step: fetch the market, let the strategy
// decide, value the portfolio at the fetched price and journal the
// equity. Journal failures are logged, everything else is returned.
func (s *Scheduler) Tick(ctx context.Context, symbol, runID string) error {
	snap, err := s.feed.GetMarketData(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", symbol, err)
	}

	dec, err := s.strategy.Decide(ctx, symbol, snap, s.engine.Account())
	if err != nil {
		return err
	}

	// positions are keyed by the scheduled symbol
	snap.CoinID = symbol
	value, rate, err := s.engine.Valuation(snap.Prices())
	if err != nil {
		return err
	}
	acct := s.engine.Account()
	at := snap.Time
	if at.IsZero() {
		at = time.Now()
	}

	s.logger.Info("simulation tick", "run", runID, "symbol", symbol,
		"price", snap.Price, "signal", dec.Signal, "traded", !dec.NoAction(),
		"value", portfolio.Display(value, s.currency), "return_pct", rate.StringFixed(2))

	err = s.journal.RecordEquity(ctx, journal.EquitySnapshot{
		RunID:      runID,
		Time:       at,
		Symbol:     symbol,
		Price:      snap.Price,
		Cash:       acct.Cash,
		Value:      value,
		ReturnRate: rate,
	})
	if err != nil {
		s.logger.Warn("unable to journal equity", "run", runID, "error", err)
	}
	return nil
}
