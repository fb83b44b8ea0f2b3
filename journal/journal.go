// Package journal persists what the simulator does and sees: executed
// trades, periodic equity snapshots, market snapshots and the coin
// registry.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// TradeRecord is an executed trade as written to the journal.
// RealizedPL is only set for sells: (price - average cost) * quantity - fee.
type TradeRecord struct {
	TradeID    string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
	RealizedPL decimal.Decimal `json:"realizedPL"`
	CashAfter  decimal.Decimal `json:"balanceAfter"`
	Time       time.Time       `json:"timestamp"`
	Reason     string          `json:"reason"`
}

// EquitySnapshot is the portfolio valuation logged after a simulation tick.
type EquitySnapshot struct {
	RunID      string          `json:"run"`
	Time       time.Time       `json:"time"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Cash       decimal.Decimal `json:"balance"`
	Value      decimal.Decimal `json:"value"`
	ReturnRate decimal.Decimal `json:"returnRate"`
}

type Journal interface {
	RecordTrade(ctx context.Context, t TradeRecord) error
	RecordEquity(ctx context.Context, e EquitySnapshot) error
	Close() error
}

// Archive keeps market history and the coin registry.
type Archive interface {
	market.Recorder
	SaveCoins(ctx context.Context, coins []market.Coin) error
	LatestMarketData(ctx context.Context) ([]market.Snapshot, error)
}

// Store is a backend that is both a Journal and an Archive.
type Store interface {
	Journal
	Archive
}

// Querier is implemented by the database backends.
type Querier interface {
	GetTrade(ctx context.Context, tradeID string) (TradeRecord, error)
	ListTradesBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error)
	ListTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error)
	ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error)
	PriceHistory(ctx context.Context, coinID string, since time.Time) ([]market.Snapshot, error)
}

// TradeFilter selects trades by exact match. Empty fields match
// everything; Symbol and Side are compared lower case.
type TradeFilter struct {
	Symbol string
	Side   string
	Reason string
}

// where renders the filter as a WHERE clause using placeholder(n) for
// the n-th argument.
func (f TradeFilter) where(placeholder func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}
	add("symbol", strings.ToLower(strings.TrimSpace(f.Symbol)))
	add("side", strings.ToLower(strings.TrimSpace(f.Side)))
	add("reason", strings.TrimSpace(f.Reason))

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// TradeSummary totals a set of trade records.
type TradeSummary struct {
	Trades     int             `json:"trades"`
	Buys       int             `json:"buys"`
	Sells      int             `json:"sells"`
	BoughtQty  decimal.Decimal `json:"boughtQuantity"`
	SoldQty    decimal.Decimal `json:"soldQuantity"`
	Volume     decimal.Decimal `json:"volume"`
	Fees       decimal.Decimal `json:"fees"`
	RealizedPL decimal.Decimal `json:"realizedPL"`
}

func Summarize(records []TradeRecord) TradeSummary {
	var s TradeSummary
	for _, r := range records {
		s.Trades++
		switch r.Side {
		case "buy":
			s.Buys++
			s.BoughtQty = s.BoughtQty.Add(r.Quantity)
		case "sell":
			s.Sells++
			s.SoldQty = s.SoldQty.Add(r.Quantity)
		}
		s.Volume = s.Volume.Add(r.Quantity.Mul(r.Price))
		s.Fees = s.Fees.Add(r.Fee)
		s.RealizedPL = s.RealizedPL.Add(r.RealizedPL)
	}
	return s
}

// Discard drops everything. Useful when no journal is configured.
var Discard Store = discard{}

type discard struct{}

func (discard) RecordTrade(context.Context, TradeRecord) error              { return nil }
func (discard) RecordEquity(context.Context, EquitySnapshot) error          { return nil }
func (discard) RecordMarket(context.Context, market.Snapshot) error         { return nil }
func (discard) SaveCoins(context.Context, []market.Coin) error              { return nil }
func (discard) LatestMarketData(context.Context) ([]market.Snapshot, error) { return nil, nil }
func (discard) Close() error                                                { return nil }
