package portfolio

import "github.com/shopspring/decimal"

// Position is an open holding in one symbol. AverageCost is the
// quantity-weighted cost of the buys still held, fees excluded.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"avgPrice"`
}

// Value marks the position at price.
func (p Position) Value(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// CostBasis is what the held quantity cost to acquire.
func (p Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AverageCost)
}

// UnrealizedPL is the gain or loss of the position if closed at price.
func (p Position) UnrealizedPL(price decimal.Decimal) decimal.Decimal {
	return p.Value(price).Sub(p.CostBasis())
}
