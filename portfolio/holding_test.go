package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldings(t *testing.T) {
	acct := Account{
		Cash: d("1000"),
		Positions: map[string]Position{
			"ethereum": {Symbol: "ethereum", Quantity: d("2"), AverageCost: d("3000")},
			"bitcoin":  {Symbol: "bitcoin", Quantity: d("0.1"), AverageCost: d("50000")},
			"solana":   {Symbol: "solana", Quantity: d("10"), AverageCost: d("150")},
		},
	}
	prices := map[string]decimal.Decimal{"bitcoin": d("60000"), "ethereum": d("2000")}

	hs := Holdings(acct, prices)
	require.Len(t, hs, 2)

	btc, eth := hs[0], hs[1]
	assert.Equal(t, "bitcoin", btc.Symbol)
	assertDec(t, "6000", btc.Value)
	assertDec(t, "5000", btc.CostBasis)
	assertDec(t, "1000", btc.UnrealizedPL)
	assertDec(t, "60", btc.Weight)

	assert.Equal(t, "ethereum", eth.Symbol)
	assertDec(t, "4000", eth.Value)
	assertDec(t, "6000", eth.CostBasis)
	assertDec(t, "-2000", eth.UnrealizedPL)
	assertDec(t, "40", eth.Weight)
}

func TestHoldingsEmpty(t *testing.T) {
	assert.Empty(t, Holdings(Account{}, nil))

	acct := Account{Positions: map[string]Position{"bitcoin": {Symbol: "bitcoin", Quantity: d("1"), AverageCost: d("1")}}}
	hs := Holdings(acct, map[string]decimal.Decimal{"bitcoin": decimal.Zero})
	require.Len(t, hs, 1)
	assert.True(t, hs[0].Weight.IsZero())
}
