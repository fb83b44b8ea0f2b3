// Package market describes what the simulator knows about the outside
// market: the supported coins, a price snapshot, and the feeds that
// produce snapshots.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
	ErrFeedUnavailable   = errors.New("price feed unavailable")
)

// Snapshot is one observation of a coin's market. MarketCap may be an
// approximation depending on the feed.
type Snapshot struct {
	CoinID           string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Change24hPercent decimal.Decimal `json:"priceChangePercentage24h"`
	MarketCap        decimal.Decimal `json:"marketCap"`
	Volume24h        decimal.Decimal `json:"volume24h"`
	Time             time.Time       `json:"time"`
}

// Prices returns the snapshot as a price map suitable for valuation.
func (s Snapshot) Prices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{s.CoinID: s.Price}
}

// Feed looks up the current market of one coin. Implementations wrap
// ErrUnsupportedSymbol or ErrFeedUnavailable.
type Feed interface {
	GetMarketData(ctx context.Context, coinID string) (Snapshot, error)
}
