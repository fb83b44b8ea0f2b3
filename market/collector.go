package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Collector periodically fetches every coin of a registry. It is meant
// to run over an Archived feed so the archive keeps a price history of
// all coins, not only the simulated one.
type Collector struct {
	Feed     Feed
	Coins    Registry
	Interval time.Duration
	// Parallel bounds concurrent lookups, 0 means one per coin.
	Parallel int
	Logger   *slog.Logger
	// OnFetch, when set, is called after every lookup. It may be called
	// concurrently.
	OnFetch func(coin Coin, err error)
}

// FetchAll looks up every coin. Coins that fail are logged and left out;
// the result keeps registry order.
func (c *Collector) FetchAll(ctx context.Context) []Snapshot {
	logger := c.logger()
	results := make([]*Snapshot, len(c.Coins))

	g, ctx := errgroup.WithContext(ctx)
	if c.Parallel > 0 {
		g.SetLimit(c.Parallel)
	}
	for i, coin := range c.Coins {
		g.Go(func() error {
			s, err := c.Feed.GetMarketData(ctx, coin.ID)
			if c.OnFetch != nil {
				c.OnFetch(coin, err)
			}
			if err != nil {
				logger.Error("unable to fetch market data", "coin", coin.ID, "error", err)
				return nil
			}
			results[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Snapshot, 0, len(results))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Run fetches immediately and then once per Interval until ctx is done.
func (c *Collector) Run(ctx context.Context) error {
	if c.Interval <= 0 {
		return fmt.Errorf("collector interval must be positive, got %s", c.Interval)
	}
	logger := c.logger()
	collect := func() {
		got := c.FetchAll(ctx)
		logger.Info("market data collected", "coins", len(got), "of", len(c.Coins))
	}

	collect()
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			collect()
		}
	}
}

// Start runs the collector in the background. The returned stop func
// cancels it and waits for the loop to exit.
func (c *Collector) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Run(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
