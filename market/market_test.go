package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	fail map[string]error
}

func (f *fakeFeed) GetMarketData(ctx context.Context, coinID string) (Snapshot, error) {
	if err := f.fail[coinID]; err != nil {
		return Snapshot{}, err
	}
	return Snapshot{CoinID: coinID, Price: decimal.NewFromInt(10)}, nil
}

type memRecorder struct {
	mu   sync.Mutex
	seen []Snapshot
	err  error
}

func (r *memRecorder) RecordMarket(ctx context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
	return r.err
}

func TestRegistryLookup(t *testing.T) {
	c, err := PresetCoins.Lookup(" Bitcoin ")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", c.Pair)

	_, err = PresetCoins.Lookup("shibainu")
	assert.ErrorIs(t, err, ErrUnsupportedSymbol)

	assert.Len(t, PresetCoins.IDs(), 6)
}

func TestRandomWalkStaysWithinStep(t *testing.T) {
	w := NewRandomWalk(PresetCoins, 42)
	ctx := context.Background()

	prev := decimal.RequireFromString("65000")
	for i := 0; i < 200; i++ {
		s, err := w.GetMarketData(ctx, "bitcoin")
		require.NoError(t, err)
		assert.True(t, s.Price.IsPositive())

		lo := prev.Mul(decimal.RequireFromString("0.98")).Round(8)
		hi := prev.Mul(decimal.RequireFromString("1.02")).Round(8)
		assert.True(t, s.Price.GreaterThanOrEqual(lo), "step %d: %s below %s", i, s.Price, lo)
		assert.True(t, s.Price.LessThanOrEqual(hi), "step %d: %s above %s", i, s.Price, hi)
		prev = s.Price
	}

	_, err := w.GetMarketData(ctx, "shibainu")
	assert.ErrorIs(t, err, ErrUnsupportedSymbol)
}

func TestRandomWalkIsSeeded(t *testing.T) {
	a := NewRandomWalk(PresetCoins, 7)
	b := NewRandomWalk(PresetCoins, 7)
	for i := 0; i < 5; i++ {
		sa, err := a.GetMarketData(context.Background(), "solana")
		require.NoError(t, err)
		sb, err := b.GetMarketData(context.Background(), "solana")
		require.NoError(t, err)
		assert.True(t, sa.Price.Equal(sb.Price))
	}
}

func TestArchivedRecordsAndSwallowsRecorderErrors(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	feed := Archived(&fakeFeed{}, rec, nil)

	s, err := feed.GetMarketData(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", s.CoinID)
	assert.Len(t, rec.seen, 1)
}

func TestArchivedSkipsFailedLookups(t *testing.T) {
	rec := &memRecorder{}
	feed := Archived(&fakeFeed{fail: map[string]error{"bitcoin": ErrFeedUnavailable}}, rec, nil)

	_, err := feed.GetMarketData(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, ErrFeedUnavailable)
	assert.Empty(t, rec.seen)
}

func TestCollectorFetchAllSkipsFailures(t *testing.T) {
	c := &Collector{
		Feed:     &fakeFeed{fail: map[string]error{"ethereum": ErrFeedUnavailable}},
		Coins:    PresetCoins,
		Parallel: 2,
	}

	got := c.FetchAll(context.Background())
	require.Len(t, got, 5)
	assert.Equal(t, "bitcoin", got[0].CoinID)
	assert.Equal(t, "binancecoin", got[1].CoinID)
}

func TestCollectorReportsEveryFetch(t *testing.T) {
	var (
		mu     sync.Mutex
		failed []string
		calls  int
	)
	c := &Collector{
		Feed:  &fakeFeed{fail: map[string]error{"solana": ErrFeedUnavailable}},
		Coins: PresetCoins,
		OnFetch: func(coin Coin, err error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if err != nil {
				failed = append(failed, coin.ID)
			}
		},
	}

	c.FetchAll(context.Background())
	assert.Equal(t, len(PresetCoins), calls)
	assert.Equal(t, []string{"solana"}, failed)
}

func TestCollectorRunRecordsUntilCancelled(t *testing.T) {
	rec := &memRecorder{}
	c := &Collector{
		Feed:     Archived(&fakeFeed{}, rec, nil),
		Coins:    PresetCoins[:2],
		Interval: 5 * time.Millisecond,
	}

	stop := c.Start(context.Background())
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.seen) >= 6
	}, time.Second, time.Millisecond)
	stop()

	rec.mu.Lock()
	n := len(rec.seen)
	rec.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, n, len(rec.seen))
}

func TestCollectorRejectsZeroInterval(t *testing.T) {
	c := &Collector{Feed: &fakeFeed{}, Coins: PresetCoins}
	assert.Error(t, c.Run(context.Background()))
}
