package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var startPrices = map[string]string{
	"bitcoin":     "65000",
	"ethereum":    "3200",
	"binancecoin": "580",
	"solana":      "150",
	"ripple":      "0.52",
	"dogecoin":    "0.15",
}

// RandomWalk is an offline feed. Every call moves the coin's price by up
// to 2% in either direction.
type RandomWalk struct {
	mu     sync.Mutex
	coins  Registry
	rnd    *rand.Rand
	last   map[string]decimal.Decimal
	open   map[string]decimal.Decimal
	volume map[string]decimal.Decimal
	now    func() time.Time
}

func NewRandomWalk(coins Registry, seed int64) *RandomWalk {
	return &RandomWalk{
		coins:  coins,
		rnd:    rand.New(rand.NewSource(seed)),
		last:   make(map[string]decimal.Decimal),
		open:   make(map[string]decimal.Decimal),
		volume: make(map[string]decimal.Decimal),
		now:    time.Now,
	}
}

func (w *RandomWalk) GetMarketData(ctx context.Context, coinID string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	coin, err := w.coins.Lookup(coinID)
	if err != nil {
		return Snapshot{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := w.last[coin.ID]
	if !ok {
		prev = decimal.RequireFromString(startPriceOf(coin.ID))
		w.open[coin.ID] = prev
	}
	step := decimal.NewFromFloat((w.rnd.Float64() - 0.5) * 0.04)
	price := prev.Add(prev.Mul(step)).Round(8)
	w.last[coin.ID] = price

	vol := decimal.NewFromInt(int64(w.rnd.Intn(900_000) + 100_000))
	w.volume[coin.ID] = w.volume[coin.ID].Add(vol)

	open := w.open[coin.ID]
	change := price.Sub(open).Div(open).Mul(decimal.NewFromInt(100)).Round(4)

	return Snapshot{
		CoinID:           coin.ID,
		Symbol:           coin.Symbol,
		Name:             coin.Name,
		Price:            price,
		Change24hPercent: change,
		MarketCap:        w.volume[coin.ID].Mul(price).Round(2),
		Volume24h:        w.volume[coin.ID],
		Time:             w.now(),
	}, nil
}

func startPriceOf(coinID string) string {
	if p, ok := startPrices[coinID]; ok {
		return p
	}
	return "100"
}
