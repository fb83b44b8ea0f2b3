// Package broker is the operator facing surface of the simulator. The
// HTTP api and the CLI both drive the portfolio through a Broker.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/strategies"
	"github.com/shopspring/decimal"
)

var (
	ErrNoHistory = errors.New("journal does not support queries")
	ErrNoAdvisor = errors.New("no advisor configured")
)

type Broker interface {
	GetAccountInfo(ctx context.Context) (portfolio.Account, error)
	ResetAccount(ctx context.Context, initialCash decimal.Decimal) (portfolio.Account, error)
	Holdings(ctx context.Context) ([]portfolio.Holding, error)
	ExecuteTrade(ctx context.Context, symbol, side string, quantity, price decimal.Decimal) (portfolio.TradeResult, error)
	Trades(ctx context.Context, f journal.TradeFilter) ([]journal.TradeRecord, error)
	ProfitLoss(ctx context.Context, symbol string) (ProfitLoss, error)
	Advice(ctx context.Context, symbol string) (Advice, error)

	StartSimulation(symbol string, intervalSeconds int) error
	StopSimulation()
	SimulationStatus() sim.Status
	EquityHistory(ctx context.Context, runID string) ([]journal.EquitySnapshot, error)

	Coins(ctx context.Context) ([]market.Coin, error)
	MarketData(ctx context.Context, coinID string) (market.Snapshot, error)
	AllMarketData(ctx context.Context) ([]market.Snapshot, error)
	LatestMarketData(ctx context.Context) ([]market.Snapshot, error)
	PriceHistory(ctx context.Context, coinID string, since time.Time) ([]market.Snapshot, error)
}

// Advice is an advisor recommendation that was not acted on. Order is
// the trade the advisory strategy would place, if any.
type Advice struct {
	Symbol string            `json:"symbol"`
	Price  decimal.Decimal   `json:"price"`
	Signal strategies.Signal `json:"signal"`
	Text   string            `json:"advice"`
	Order  *portfolio.Order  `json:"order,omitempty"`
	Time   time.Time         `json:"time"`
}

// ProfitLoss of one symbol. Realized comes from the journaled trades,
// Unrealized from the open position marked at the market price.
type ProfitLoss struct {
	Symbol     string               `json:"symbol"`
	Trades     journal.TradeSummary `json:"trades"`
	Realized   decimal.Decimal      `json:"realized"`
	Unrealized decimal.Decimal      `json:"unrealized"`
	Total      decimal.Decimal      `json:"total"`
	Position   *portfolio.Holding   `json:"position,omitempty"`
}
