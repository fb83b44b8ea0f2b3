package broker

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/strategies"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixedFeed struct {
	price decimal.Decimal
	calls atomic.Int32
}

func (f *fixedFeed) GetMarketData(_ context.Context, coinID string) (market.Snapshot, error) {
	f.calls.Add(1)
	return market.Snapshot{CoinID: coinID, Price: f.price, Time: time.Now()}, nil
}

func newService(t *testing.T, opts ...Option) (*Service, *journal.SQLite, *fixedFeed) {
	t.Helper()
	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "papertrader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	feed := &fixedFeed{price: d("50000")}
	archived := market.Archived(feed, j, nil)
	engine := sim.NewEngine(portfolio.NewLedger(d("10000")), j)
	sched := sim.NewScheduler(archived, strategies.Noop{}, engine, j)
	t.Cleanup(sched.Stop)

	opts = append([]Option{WithArchive(j), WithQuerier(j)}, opts...)
	svc := NewService(engine, sched, archived, opts...)
	return svc, j, feed
}

func TestServiceExecuteTrade(t *testing.T) {
	svc, j, _ := newService(t)
	ctx := context.Background()

	res, err := svc.ExecuteTrade(ctx, "Bitcoin", "buy", d("0.1"), d("50000"))
	require.NoError(t, err)
	assert.True(t, d("4995").Equal(res.Cash))
	assert.Equal(t, "bitcoin", res.Trade.Symbol)

	acct, err := svc.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Len(t, acct.History, 1)

	rec, err := j.GetTrade(ctx, res.Trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "manual", rec.Reason)
}

func TestServiceExecuteTradeAtMarket(t *testing.T) {
	svc, _, feed := newService(t)

	res, err := svc.ExecuteTrade(context.Background(), "bitcoin", "buy", d("0.01"), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int32(1), feed.calls.Load())
	assert.True(t, d("50000").Equal(res.Trade.Price))
}

func TestServiceExecuteTradeErrors(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ExecuteTrade(ctx, "bitcoin", "hodl", d("1"), d("1"))
	assert.ErrorIs(t, err, portfolio.ErrInvalidOrder)

	_, err = svc.ExecuteTrade(ctx, "shibainu", "buy", d("1"), d("1"))
	assert.ErrorIs(t, err, market.ErrUnsupportedSymbol)

	_, err = svc.ExecuteTrade(ctx, "bitcoin", "sell", d("1"), d("1"))
	assert.ErrorIs(t, err, portfolio.ErrInsufficientPosition)
}

func TestServiceSimulationLifecycle(t *testing.T) {
	svc, _, _ := newService(t)

	assert.ErrorIs(t, svc.StartSimulation("bitcoin", 0), sim.ErrInvalidSchedule)
	assert.ErrorIs(t, svc.StartSimulation("nope", 60), market.ErrUnsupportedSymbol)

	require.NoError(t, svc.StartSimulation("ETHEREUM", 60))
	st := svc.SimulationStatus()
	assert.True(t, st.Running)
	assert.Equal(t, "ethereum", st.Symbol)
	assert.InDelta(t, 60, st.IntervalSeconds, 0)

	assert.ErrorIs(t, svc.StartSimulation("bitcoin", 60), sim.ErrAlreadyRunning)

	svc.StopSimulation()
	svc.StopSimulation()
	assert.False(t, svc.SimulationStatus().Running)
}

func TestServiceCoinsAreArchived(t *testing.T) {
	svc, j, _ := newService(t)
	ctx := context.Background()

	coins, err := svc.Coins(ctx)
	require.NoError(t, err)
	assert.Len(t, coins, len(market.PresetCoins))

	saved, err := j.Coins(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, len(market.PresetCoins))
}

func TestServiceMarketDataIsArchived(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	snap, err := svc.MarketData(ctx, "solana")
	require.NoError(t, err)
	assert.Equal(t, "solana", snap.CoinID)

	latest, err := svc.LatestMarketData(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "solana", latest[0].CoinID)

	_, err = svc.MarketData(ctx, "unknown")
	assert.ErrorIs(t, err, market.ErrUnsupportedSymbol)
}

func TestServiceAllMarketData(t *testing.T) {
	svc, _, feed := newService(t)

	snaps, err := svc.AllMarketData(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, len(market.PresetCoins))
	assert.Equal(t, "bitcoin", snaps[0].CoinID)
	assert.Equal(t, int32(len(market.PresetCoins)), feed.calls.Load())
}

func TestServiceEquityHistory(t *testing.T) {
	svc, j, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, j.RecordEquity(ctx, journal.EquitySnapshot{
		RunID: "run-1", Time: time.Now(), Symbol: "bitcoin",
		Price: d("1"), Cash: d("10000"), Value: d("10000"), ReturnRate: decimal.Zero,
	}))

	snaps, err := svc.EquityHistory(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	bare := NewService(nil, nil, nil)
	_, err = bare.EquityHistory(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestServiceResetAccount(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ExecuteTrade(ctx, "bitcoin", "buy", d("0.1"), d("50000"))
	require.NoError(t, err)

	acct, err := svc.ResetAccount(ctx, d("5000"))
	require.NoError(t, err)
	assert.True(t, d("5000").Equal(acct.Cash))
	assert.Empty(t, acct.Positions)

	_, err = svc.ResetAccount(ctx, decimal.Zero)
	assert.ErrorIs(t, err, portfolio.ErrInvalidOrder)

	require.NoError(t, svc.StartSimulation("bitcoin", 60))
	_, err = svc.ResetAccount(ctx, d("1000"))
	assert.ErrorIs(t, err, sim.ErrAlreadyRunning)

	got, err := svc.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.True(t, d("5000").Equal(got.Cash))
}

func TestServiceHoldings(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	hs, err := svc.Holdings(ctx)
	require.NoError(t, err)
	assert.Empty(t, hs)

	_, err = svc.ExecuteTrade(ctx, "bitcoin", "buy", d("0.1"), d("40000"))
	require.NoError(t, err)

	hs, err = svc.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.True(t, d("5000").Equal(hs[0].Value))
	assert.True(t, d("4000").Equal(hs[0].CostBasis))
	assert.True(t, d("1000").Equal(hs[0].UnrealizedPL))
	assert.True(t, d("100").Equal(hs[0].Weight))
}

func TestServiceTrades(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ExecuteTrade(ctx, "bitcoin", "buy", d("0.1"), d("40000"))
	require.NoError(t, err)
	_, err = svc.ExecuteTrade(ctx, "ethereum", "buy", d("1"), d("2000"))
	require.NoError(t, err)
	_, err = svc.ExecuteTrade(ctx, "bitcoin", "sell", d("0.05"), d("50000"))
	require.NoError(t, err)

	all, err := svc.Trades(ctx, journal.TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	btc, err := svc.Trades(ctx, journal.TradeFilter{Symbol: "BITCOIN"})
	require.NoError(t, err)
	assert.Len(t, btc, 2)

	sells, err := svc.Trades(ctx, journal.TradeFilter{Side: "Sell", Reason: "manual"})
	require.NoError(t, err)
	require.Len(t, sells, 1)
	assert.Equal(t, "bitcoin", sells[0].Symbol)

	_, err = svc.Trades(ctx, journal.TradeFilter{Side: "short"})
	assert.ErrorIs(t, err, portfolio.ErrInvalidOrder)
	_, err = svc.Trades(ctx, journal.TradeFilter{Symbol: "nope"})
	assert.ErrorIs(t, err, market.ErrUnsupportedSymbol)

	_, err = NewService(nil, nil, nil).Trades(ctx, journal.TradeFilter{})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestServiceProfitLoss(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ExecuteTrade(ctx, "bitcoin", "buy", d("0.1"), d("40000"))
	require.NoError(t, err)
	_, err = svc.ExecuteTrade(ctx, "bitcoin", "sell", d("0.05"), d("50000"))
	require.NoError(t, err)

	pl, err := svc.ProfitLoss(ctx, "Bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", pl.Symbol)
	assert.Equal(t, 2, pl.Trades.Trades)
	// (50000 - 40000) * 0.05 less a 2.5 fee
	assert.True(t, d("497.5").Equal(pl.Realized), "realized %s", pl.Realized)
	// 0.05 left, marked at the 50000 feed price
	assert.True(t, d("500").Equal(pl.Unrealized), "unrealized %s", pl.Unrealized)
	assert.True(t, d("997.5").Equal(pl.Total))
	require.NotNil(t, pl.Position)
	assert.True(t, d("0.05").Equal(pl.Position.Quantity))

	flat, err := svc.ProfitLoss(ctx, "ethereum")
	require.NoError(t, err)
	assert.Nil(t, flat.Position)
	assert.True(t, flat.Total.IsZero())

	_, err = NewService(nil, nil, nil).ProfitLoss(ctx, "bitcoin")
	assert.ErrorIs(t, err, ErrNoHistory)
}

type adviceFunc func() (string, error)

func (f adviceFunc) Analyze(context.Context, market.Snapshot, portfolio.Account, string) (string, error) {
	return f()
}

func TestServiceAdviceDoesNotTrade(t *testing.T) {
	adv := strategies.NewAdvisory(adviceFunc(func() (string, error) { return "I would buy here", nil }), nil)
	svc, _, _ := newService(t, WithAdvisory(adv))
	ctx := context.Background()

	got, err := svc.Advice(ctx, "BITCOIN")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", got.Symbol)
	assert.Equal(t, strategies.SignalBuy, got.Signal)
	assert.Equal(t, "I would buy here", got.Text)
	assert.True(t, d("50000").Equal(got.Price))
	require.NotNil(t, got.Order)
	assert.True(t, d("0.02").Equal(got.Order.Quantity))

	acct, err := svc.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Empty(t, acct.History)
	assert.True(t, d("10000").Equal(acct.Cash))

	_, err = svc.Advice(ctx, "nope")
	assert.ErrorIs(t, err, market.ErrUnsupportedSymbol)

	bare, _, _ := newService(t)
	_, err = bare.Advice(ctx, "bitcoin")
	assert.ErrorIs(t, err, ErrNoAdvisor)
}

func TestServicePriceHistory(t *testing.T) {
	svc, _, feed := newService(t)
	ctx := context.Background()

	_, err := svc.MarketData(ctx, "bitcoin")
	require.NoError(t, err)
	feed.price = d("51000")
	_, err = svc.MarketData(ctx, "bitcoin")
	require.NoError(t, err)
	_, err = svc.MarketData(ctx, "ethereum")
	require.NoError(t, err)

	hist, err := svc.PriceHistory(ctx, "Bitcoin", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, d("50000").Equal(hist[0].Price))
	assert.True(t, d("51000").Equal(hist[1].Price))

	_, err = svc.PriceHistory(ctx, "nope", time.Time{})
	assert.ErrorIs(t, err, market.ErrUnsupportedSymbol)
}
