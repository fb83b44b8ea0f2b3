package market

import (
	"fmt"
	"strings"
)

// Coin is a tradable asset. ID is the symbol used throughout the
// portfolio, Pair the exchange ticker it is priced from.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Pair   string `json:"pair"`
}

type Registry []Coin

var PresetCoins = Registry{
	{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Pair: "BTCUSDT"},
	{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Pair: "ETHUSDT"},
	{ID: "binancecoin", Symbol: "bnb", Name: "Binance Coin", Pair: "BNBUSDT"},
	{ID: "solana", Symbol: "sol", Name: "Solana", Pair: "SOLUSDT"},
	{ID: "ripple", Symbol: "xrp", Name: "Ripple", Pair: "XRPUSDT"},
	{ID: "dogecoin", Symbol: "doge", Name: "Dogecoin", Pair: "DOGEUSDT"},
}

func (r Registry) Lookup(coinID string) (Coin, error) {
	key := strings.ToLower(strings.TrimSpace(coinID))
	for _, c := range r {
		if c.ID == key {
			return c, nil
		}
	}
	return Coin{}, fmt.Errorf("%w: %q", ErrUnsupportedSymbol, coinID)
}

func (r Registry) IDs() []string {
	ids := make([]string, len(r))
	for i, c := range r {
		ids[i] = c.ID
	}
	return ids
}
