package portfolio

import "github.com/shopspring/decimal"

// Account is a point-in-time copy of a ledger. Nothing in it aliases the
// ledger's own state.
type Account struct {
	Cash        decimal.Decimal     `json:"balance"`
	InitialCash decimal.Decimal     `json:"initialBalance"`
	Positions   map[string]Position `json:"positions"`
	History     []Trade             `json:"history"`
}

// Position returns the open position for symbol, if any.
func (a Account) Position(symbol string) (Position, bool) {
	p, ok := a.Positions[symbol]
	return p, ok
}

// TradeResult is returned by a successful trade execution. Position is
// nil when a sell closed the position.
type TradeResult struct {
	Success  bool            `json:"success"`
	Trade    Trade           `json:"trade"`
	Cash     decimal.Decimal `json:"balance"`
	Position *Position       `json:"position"`
}

// Order is a request to trade. Reason is carried into the journal, it
// defaults to "manual".
type Order struct {
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Reason   string          `json:"reason,omitempty"`
}
