package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/portfolio"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJournal struct {
	mu       sync.Mutex
	trades   []journal.TradeRecord
	equity   []journal.EquitySnapshot
	tradeErr error
}

func (j *testJournal) RecordTrade(_ context.Context, rec journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, rec)
	return j.tradeErr
}

func (j *testJournal) RecordEquity(_ context.Context, rec journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, rec)
	return nil
}

func (j *testJournal) Close() error { return nil }

func (j *testJournal) equityCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.equity)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T, cash string) (*Engine, *testJournal) {
	t.Helper()
	j := &testJournal{}
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	e := NewEngine(portfolio.NewLedger(d(cash)), j, WithClock(func() time.Time { return at }))
	return e, j
}

func order(symbol string, side portfolio.Side, qty, price string) portfolio.Order {
	return portfolio.Order{Symbol: symbol, Side: side, Quantity: d(qty), Price: d(price)}
}

func TestEngineBuyThenSell(t *testing.T) {
	e, j := newEngine(t, "10000")
	ctx := context.Background()

	res, err := e.Execute(ctx, order("bitcoin", portfolio.SideBuy, "0.1", "50000"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, portfolio.StatusExecuted, res.Trade.Status)
	assert.True(t, d("4995").Equal(res.Cash), "cash %s", res.Cash)
	require.NotNil(t, res.Position)
	assert.True(t, d("0.1").Equal(res.Position.Quantity))
	assert.True(t, d("50000").Equal(res.Position.AverageCost))

	res, err = e.Execute(ctx, order("bitcoin", portfolio.SideSell, "0.05", "51000"))
	require.NoError(t, err)
	assert.True(t, d("7542.45").Equal(res.Cash), "cash %s", res.Cash)
	require.NotNil(t, res.Position)
	assert.True(t, d("0.05").Equal(res.Position.Quantity))

	acct := e.Account()
	require.Len(t, acct.History, 2)
	assert.Equal(t, portfolio.SideBuy, acct.History[0].Side)
	assert.Equal(t, portfolio.SideSell, acct.History[1].Side)

	require.Len(t, j.trades, 2)
	assert.Equal(t, "manual", j.trades[0].Reason)
	assert.True(t, d("5").Equal(j.trades[0].Fee))
	assert.True(t, j.trades[0].RealizedPL.IsZero())
	// (51000 - 50000) * 0.05 - 2.55
	assert.True(t, d("47.45").Equal(j.trades[1].RealizedPL), "realized %s", j.trades[1].RealizedPL)
	assert.Equal(t, res.Trade.ID, j.trades[1].TradeID)
}

func TestEngineSellingEverythingClosesPosition(t *testing.T) {
	e, _ := newEngine(t, "1000")
	ctx := context.Background()

	_, err := e.Execute(ctx, order("solana", portfolio.SideBuy, "2", "100"))
	require.NoError(t, err)
	res, err := e.Execute(ctx, order("solana", portfolio.SideSell, "2", "100"))
	require.NoError(t, err)
	assert.Nil(t, res.Position)

	_, held := e.Account().Position("solana")
	assert.False(t, held)
}

func TestEngineRejections(t *testing.T) {
	tests := []struct {
		name string
		o    portfolio.Order
		want error
	}{
		{"zero quantity", order("bitcoin", portfolio.SideBuy, "0", "100"), portfolio.ErrInvalidOrder},
		{"negative price", order("bitcoin", portfolio.SideBuy, "1", "-1"), portfolio.ErrInvalidOrder},
		{"unknown side", order("bitcoin", portfolio.Side("short"), "1", "100"), portfolio.ErrInvalidOrder},
		{"missing symbol", order(" ", portfolio.SideBuy, "1", "100"), portfolio.ErrInvalidOrder},
		{"too expensive", order("bitcoin", portfolio.SideBuy, "1", "100000"), portfolio.ErrInsufficientFunds},
		{"nothing held", order("bitcoin", portfolio.SideSell, "1", "100"), portfolio.ErrInsufficientPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, j := newEngine(t, "10000")
			_, err := e.Execute(context.Background(), tt.o)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			acct := e.Account()
			assert.True(t, d("10000").Equal(acct.Cash))
			assert.Empty(t, acct.History)
			assert.Empty(t, acct.Positions)
			assert.Empty(t, j.trades)
		})
	}
}

func TestEngineJournalFailureDoesNotFailTrade(t *testing.T) {
	e, j := newEngine(t, "10000")
	j.tradeErr = errors.New("disk full")

	res, err := e.Execute(context.Background(), order("bitcoin", portfolio.SideBuy, "0.1", "50000"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, e.Account().History, 1)
}

func TestEngineConcurrentBuys(t *testing.T) {
	e := NewEngine(portfolio.NewLedger(d("100000")), nil, WithFeeRate(decimal.Zero))

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Execute(context.Background(), order("ethereum", portfolio.SideBuy, "1", "100"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acct := e.Account()
	assert.Len(t, acct.History, n)
	assert.True(t, d("95000").Equal(acct.Cash), "cash %s", acct.Cash)
	pos, ok := acct.Position("ethereum")
	require.True(t, ok)
	assert.True(t, d("50").Equal(pos.Quantity))
}

func TestEngineValuation(t *testing.T) {
	e, _ := newEngine(t, "10000")
	_, err := e.Execute(context.Background(), order("bitcoin", portfolio.SideBuy, "0.1", "50000"))
	require.NoError(t, err)

	value, rate, err := e.Valuation(map[string]decimal.Decimal{"bitcoin": d("60000")})
	require.NoError(t, err)
	assert.True(t, d("10995").Equal(value), "value %s", value)
	assert.True(t, d("9.95").Equal(rate), "rate %s", rate)
}

func TestEngineReset(t *testing.T) {
	e, j := newEngine(t, "10000")
	ctx := context.Background()

	_, err := e.Execute(ctx, order("bitcoin", portfolio.SideBuy, "0.1", "50000"))
	require.NoError(t, err)

	acct, err := e.Reset(d("2500"))
	require.NoError(t, err)
	assert.True(t, d("2500").Equal(acct.Cash))
	assert.True(t, d("2500").Equal(acct.InitialCash))
	assert.Empty(t, acct.Positions)
	assert.Empty(t, acct.History)

	_, err = e.Execute(ctx, order("bitcoin", portfolio.SideSell, "0.1", "50000"))
	assert.ErrorIs(t, err, portfolio.ErrInsufficientPosition)
	assert.Len(t, j.trades, 1, "journal keeps trades from before the reset")
}

func TestEngineResetRejectsNonPositiveCash(t *testing.T) {
	e, _ := newEngine(t, "10000")

	for _, cash := range []string{"0", "-1"} {
		_, err := e.Reset(d(cash))
		assert.ErrorIs(t, err, portfolio.ErrInvalidOrder, cash)
	}
	assert.True(t, d("10000").Equal(e.Account().Cash))
}
