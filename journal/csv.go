package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/market"
)

var (
	tradesHeader = []string{"trade_id", "symbol", "side", "quantity", "price", "fee", "realized_pl", "cash_after", "time", "reason"}
	equityHeader = []string{"run_id", "time", "symbol", "price", "cash", "value", "return_rate"}
	marketHeader = []string{"coin_id", "symbol", "name", "price", "market_cap", "volume_24h", "price_change_24h", "time"}
	coinsHeader  = []string{"id", "symbol", "name", "pair"}
)

// CSV appends to trades.csv, equity.csv and market.csv in a directory, and
// rewrites coins.csv on SaveCoins. Headers are written only into empty
// files so reopening a directory keeps its history. LatestMarketData only
// knows about the snapshots written by this process.
type CSV struct {
	mu  sync.Mutex
	dir string

	trades, equity, snapshots *csv.Writer
	files                     []*os.File

	latest map[string]market.Snapshot
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	j := &CSV{dir: dir, latest: make(map[string]market.Snapshot)}

	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		w := csv.NewWriter(f)
		if info.Size() > 0 {
			return w, nil
		}
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.trades, err = open("trades.csv", tradesHeader); err != nil {
		j.Close()
		return nil, err
	}
	if j.equity, err = open("equity.csv", equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	if j.snapshots, err = open("market.csv", marketHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordTrade(_ context.Context, t TradeRecord) error {
	return j.write(j.trades, []string{
		t.TradeID,
		t.Symbol,
		t.Side,
		t.Quantity.String(),
		t.Price.String(),
		t.Fee.String(),
		t.RealizedPL.String(),
		t.CashAfter.String(),
		t.Time.UTC().Format(time.RFC3339),
		t.Reason,
	})
}

func (j *CSV) RecordEquity(_ context.Context, e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339),
		e.Symbol,
		e.Price.String(),
		e.Cash.String(),
		e.Value.String(),
		e.ReturnRate.String(),
	})
}

func (j *CSV) RecordMarket(_ context.Context, s market.Snapshot) error {
	err := j.write(j.snapshots, []string{
		s.CoinID,
		s.Symbol,
		s.Name,
		s.Price.String(),
		s.MarketCap.String(),
		s.Volume24h.String(),
		s.Change24hPercent.String(),
		s.Time.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.latest[s.CoinID] = s
	j.mu.Unlock()
	return nil
}

func (j *CSV) SaveCoins(_ context.Context, coins []market.Coin) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Create(filepath.Join(j.dir, "coins.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{coinsHeader}
	for _, c := range coins {
		rows = append(rows, []string{c.ID, c.Symbol, c.Name, c.Pair})
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write coins: %w", err)
	}
	return f.Close()
}

func (j *CSV) LatestMarketData(context.Context) ([]market.Snapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]market.Snapshot, 0, len(j.latest))
	for _, s := range j.latest {
		out = append(out, s)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CoinID < out[b].CoinID })
	return out, nil
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, w := range []*csv.Writer{j.trades, j.equity, j.snapshots} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, f := range j.files {
		if err := f.Close(); err != nil {
			return err
		}
	}
	j.files = nil
	return nil
}
