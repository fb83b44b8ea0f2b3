package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/id"
	"github.com/rustyeddy/papertrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set PAPERTRADER_TEST_POSTGRES_DSN to run against a scratch database.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("PAPERTRADER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAPERTRADER_TEST_POSTGRES_DSN not set")
	}
	j, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestPostgresRoundTrip(t *testing.T) {
	j := newTestPostgres(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	tradeID := id.New()
	require.NoError(t, j.RecordTrade(ctx, sampleTrade(tradeID, at)))
	got, err := j.GetTrade(ctx, tradeID)
	require.NoError(t, err)
	assert.True(t, d("7542.45").Equal(got.CashAfter))

	runID := id.NewRun()
	require.NoError(t, j.RecordEquity(ctx, EquitySnapshot{
		RunID: runID, Time: at, Symbol: "bitcoin",
		Price: d("1"), Cash: d("2"), Value: d("3"), ReturnRate: d("4"),
	}))
	eq, err := j.ListEquity(ctx, runID)
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.True(t, d("3").Equal(eq[0].Value))

	require.NoError(t, j.SaveCoins(ctx, market.PresetCoins))
	require.NoError(t, j.RecordMarket(ctx, market.Snapshot{
		CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Price: d("60000"), Time: at,
	}))
	latest, err := j.LatestMarketData(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, latest)

	trades, err := j.ListTrades(ctx, TradeFilter{Symbol: "bitcoin", Side: "sell"})
	require.NoError(t, err)
	assert.NotEmpty(t, trades)

	history, err := j.PriceHistory(ctx, "bitcoin", at.Add(-time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.True(t, d("60000").Equal(history[len(history)-1].Price))
}
