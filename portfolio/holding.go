package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Holding is a position marked at a market price. Weight is its share of
// the marked value of all holdings, in percent.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"avgPrice"`
	Price        decimal.Decimal `json:"price"`
	Value        decimal.Decimal `json:"value"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
	Weight       decimal.Decimal `json:"weight"`
}

// Holdings marks every position of acct that has a price, ordered by
// symbol. Unpriced positions are left out, as in PortfolioValue.
func Holdings(acct Account, prices map[string]decimal.Decimal) []Holding {
	out := make([]Holding, 0, len(acct.Positions))
	total := decimal.Zero
	for sym, p := range acct.Positions {
		price, ok := prices[sym]
		if !ok {
			continue
		}
		h := Holding{
			Symbol:       sym,
			Quantity:     p.Quantity,
			AverageCost:  p.AverageCost,
			Price:        price,
			Value:        p.Value(price),
			CostBasis:    p.CostBasis(),
			UnrealizedPL: p.UnrealizedPL(price),
		}
		total = total.Add(h.Value)
		out = append(out, h)
	}

	for i := range out {
		if total.IsPositive() {
			out[i].Weight = out[i].Value.Mul(hundred).Div(total).Round(2)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Symbol < out[b].Symbol })
	return out
}
