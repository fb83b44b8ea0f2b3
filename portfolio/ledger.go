// Package portfolio holds the accounting model of the paper portfolio:
// cash, open positions with a single average cost, and the trade
// history. Nothing in here does I/O, reads the clock or locks; callers
// that share a Ledger between goroutines must serialize access to it.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Ledger struct {
	cash        decimal.Decimal
	initialCash decimal.Decimal
	positions   map[string]*Position
	history     []Trade
}

func NewLedger(initialCash decimal.Decimal) *Ledger {
	return &Ledger{
		cash:        initialCash,
		initialCash: initialCash,
		positions:   make(map[string]*Position),
	}
}

func (l *Ledger) Cash() decimal.Decimal        { return l.cash }
func (l *Ledger) InitialCash() decimal.Decimal { return l.initialCash }

// Position returns a copy of the open position for symbol.
func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for sym, p := range l.positions {
		out[sym] = *p
	}
	return out
}

func (l *Ledger) History() []Trade {
	return append([]Trade(nil), l.history...)
}

func (l *Ledger) Account() Account {
	return Account{
		Cash:        l.cash,
		InitialCash: l.initialCash,
		Positions:   l.Positions(),
		History:     l.History(),
	}
}

func checkOrder(quantity, price, feeRate decimal.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, quantity)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", ErrInvalidOrder, price)
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fee rate must be in [0,1), got %s", ErrInvalidOrder, feeRate)
	}
	return nil
}

// Buy debits quantity*price plus the fee and folds the purchase into the
// position's average cost. The ledger is left untouched on error.
func (l *Ledger) Buy(symbol string, quantity, price, feeRate decimal.Decimal) (decimal.Decimal, Position, error) {
	if err := checkOrder(quantity, price, feeRate); err != nil {
		return l.cash, Position{}, err
	}

	cost := quantity.Mul(price)
	total := cost.Add(cost.Mul(feeRate))
	if total.GreaterThan(l.cash) {
		return l.cash, Position{}, fmt.Errorf("%w: buy %s %s costs %s, cash is %s",
			ErrInsufficientFunds, quantity, symbol, total, l.cash)
	}

	l.cash = l.cash.Sub(total)

	pos, ok := l.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		l.positions[symbol] = pos
	}
	newQty := pos.Quantity.Add(quantity)
	pos.AverageCost = pos.AverageCost.Mul(pos.Quantity).Add(cost).Div(newQty)
	pos.Quantity = newQty

	return l.cash, *pos, nil
}

// Sell credits quantity*price less the fee. The average cost of what is
// left is unchanged; a position sold down to exactly zero is removed and
// the returned position is nil.
func (l *Ledger) Sell(symbol string, quantity, price, feeRate decimal.Decimal) (decimal.Decimal, *Position, error) {
	if err := checkOrder(quantity, price, feeRate); err != nil {
		return l.cash, nil, err
	}

	pos, ok := l.positions[symbol]
	if !ok {
		return l.cash, nil, fmt.Errorf("%w: no %s position", ErrInsufficientPosition, symbol)
	}
	if pos.Quantity.LessThan(quantity) {
		return l.cash, nil, fmt.Errorf("%w: sell %s %s, holding %s",
			ErrInsufficientPosition, quantity, symbol, pos.Quantity)
	}

	revenue := quantity.Mul(price)
	l.cash = l.cash.Add(revenue.Sub(revenue.Mul(feeRate)))
	pos.Quantity = pos.Quantity.Sub(quantity)

	if pos.Quantity.IsZero() {
		delete(l.positions, symbol)
		return l.cash, nil, nil
	}
	remaining := *pos
	return l.cash, &remaining, nil
}

// PortfolioValue is cash plus every position marked at prices. Positions
// whose symbol has no price are left out of the sum rather than failing.
func (l *Ledger) PortfolioValue(prices map[string]decimal.Decimal) decimal.Decimal {
	value := l.cash
	for _, sym := range l.symbols() {
		price, ok := prices[sym]
		if !ok {
			continue
		}
		value = value.Add(l.positions[sym].Value(price))
	}
	return value
}

// ReturnRate is the percentage change of PortfolioValue over the initial
// cash.
func (l *Ledger) ReturnRate(prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	if l.initialCash.IsZero() {
		return decimal.Zero, ErrZeroInitialCash
	}
	value := l.PortfolioValue(prices)
	return value.Sub(l.initialCash).Div(l.initialCash).Mul(hundred), nil
}

func (l *Ledger) RecordTrade(t Trade) {
	l.history = append(l.history, t)
}

// symbols returns held symbols in a stable order so sums are reproducible.
func (l *Ledger) symbols() []string {
	syms := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}
