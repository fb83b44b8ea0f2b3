// Package sim runs the paper portfolio: Engine applies trades to the
// ledger under a single lock, Scheduler drives an advisory strategy on a
// timer.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/shopspring/decimal"
)

var DefaultFeeRate = decimal.RequireFromString("0.001")

// Engine is the only writer of its ledger. Every mutation and every
// read of ledger state happens with mu held.
type Engine struct {
	mu      sync.Mutex
	ledger  *portfolio.Ledger
	feeRate decimal.Decimal
	journal journal.Journal
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Engine)

func WithFeeRate(rate decimal.Decimal) Option {
	return func(e *Engine) { e.feeRate = rate }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(ledger *portfolio.Ledger, j journal.Journal, opts ...Option) *Engine {
	if j == nil {
		j = journal.Discard
	}
	e := &Engine{
		ledger:  ledger,
		feeRate: DefaultFeeRate,
		journal: j,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func validateOrder(o portfolio.Order) error {
	if strings.TrimSpace(o.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", portfolio.ErrInvalidOrder)
	}
	if o.Side != portfolio.SideBuy && o.Side != portfolio.SideSell {
		return fmt.Errorf("%w: unknown side %q", portfolio.ErrInvalidOrder, o.Side)
	}
	if !o.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", portfolio.ErrInvalidOrder, o.Quantity)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", portfolio.ErrInvalidOrder, o.Price)
	}
	return nil
}

// Execute validates o, applies it to the ledger and appends the executed
// trade to the history. When the ledger refuses the order its error is
// returned as is and the trade is dropped.
func (e *Engine) Execute(ctx context.Context, o portfolio.Order) (portfolio.TradeResult, error) {
	if err := validateOrder(o); err != nil {
		return portfolio.TradeResult{}, err
	}
	if o.Reason == "" {
		o.Reason = "manual"
	}

	e.mu.Lock()
	trade := portfolio.NewTrade(o.Symbol, o.Side, o.Quantity, o.Price, e.now())
	fee := o.Quantity.Mul(o.Price).Mul(e.feeRate)

	var (
		cash     decimal.Decimal
		pos      *portfolio.Position
		realized decimal.Decimal
		err      error
	)
	switch o.Side {
	case portfolio.SideBuy:
		var p portfolio.Position
		cash, p, err = e.ledger.Buy(o.Symbol, o.Quantity, o.Price, e.feeRate)
		pos = &p
	case portfolio.SideSell:
		held, _ := e.ledger.Position(o.Symbol)
		cash, pos, err = e.ledger.Sell(o.Symbol, o.Quantity, o.Price, e.feeRate)
		realized = o.Price.Sub(held.AverageCost).Mul(o.Quantity).Sub(fee)
	}
	if err != nil {
		e.mu.Unlock()
		e.logger.Warn("trade rejected", "symbol", o.Symbol, "side", o.Side,
			"quantity", o.Quantity, "price", o.Price, "error", err)
		return portfolio.TradeResult{}, err
	}

	// the ledger committed, a pending trade cannot fail to execute
	_ = trade.Execute()
	e.ledger.RecordTrade(trade)
	e.mu.Unlock()

	e.logger.Info("trade executed", "id", trade.ID, "symbol", o.Symbol, "side", o.Side,
		"quantity", o.Quantity, "price", o.Price, "cash", cash, "reason", o.Reason)

	err = e.journal.RecordTrade(ctx, journal.TradeRecord{
		TradeID:    trade.ID,
		Symbol:     trade.Symbol,
		Side:       string(trade.Side),
		Quantity:   trade.Quantity,
		Price:      trade.Price,
		Fee:        fee,
		RealizedPL: realized,
		CashAfter:  cash,
		Time:       trade.CreatedAt,
		Reason:     o.Reason,
	})
	if err != nil {
		e.logger.Warn("unable to journal trade", "id", trade.ID, "error", err)
	}

	return portfolio.TradeResult{
		Success:  true,
		Trade:    trade,
		Cash:     cash,
		Position: pos,
	}, nil
}

// Reset replaces the ledger with an empty one holding initialCash. The
// journal keeps the trades of the old ledger.
func (e *Engine) Reset(initialCash decimal.Decimal) (portfolio.Account, error) {
	if !initialCash.IsPositive() {
		return portfolio.Account{}, fmt.Errorf("%w: initial cash must be positive, got %s", portfolio.ErrInvalidOrder, initialCash)
	}

	e.mu.Lock()
	e.ledger = portfolio.NewLedger(initialCash)
	acct := e.ledger.Account()
	e.mu.Unlock()

	e.logger.Info("account reset", "initial_cash", initialCash)
	return acct, nil
}

func (e *Engine) Account() portfolio.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Account()
}

// Valuation returns the portfolio value and return rate at prices.
func (e *Engine) Valuation(prices map[string]decimal.Decimal) (value, returnRate decimal.Decimal, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	value = e.ledger.PortfolioValue(prices)
	returnRate, err = e.ledger.ReturnRate(prices)
	return value, returnRate, err
}
