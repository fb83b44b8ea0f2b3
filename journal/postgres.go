package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/papertrader/market"
)

// Postgres stores decimals as NUMERIC through the shopspring codec.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, verifies connectivity and applies the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (j *Postgres) RecordTrade(ctx context.Context, t TradeRecord) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO trades
		(trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.TradeID, t.Symbol, t.Side, t.Quantity, t.Price, t.Fee,
		t.RealizedPL, t.CashAfter, t.Time, t.Reason,
	)
	return err
}

func (j *Postgres) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO equity
		(run_id, time, symbol, price, cash, value, return_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.RunID, e.Time, e.Symbol, e.Price, e.Cash, e.Value, e.ReturnRate,
	)
	return err
}

func (j *Postgres) RecordMarket(ctx context.Context, s market.Snapshot) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO market_data
		(coin_id, symbol, name, price, market_cap, volume_24h, price_change_24h, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.CoinID, s.Symbol, s.Name, s.Price, s.MarketCap, s.Volume24h,
		s.Change24hPercent, s.Time,
	)
	return err
}

func (j *Postgres) SaveCoins(ctx context.Context, coins []market.Coin) error {
	return pgx.BeginFunc(ctx, j.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM coins`); err != nil {
			return fmt.Errorf("clear coins: %w", err)
		}
		batch := &pgx.Batch{}
		for _, c := range coins {
			batch.Queue(`INSERT INTO coins (id, symbol, name, pair) VALUES ($1, $2, $3, $4)`,
				c.ID, c.Symbol, c.Name, c.Pair)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (j *Postgres) LatestMarketData(ctx context.Context) ([]market.Snapshot, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT DISTINCT ON (coin_id)
		       coin_id, symbol, name, price, market_cap, volume_24h, price_change_24h, time
		FROM market_data
		ORDER BY coin_id, id DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (market.Snapshot, error) {
		var s market.Snapshot
		err := row.Scan(&s.CoinID, &s.Symbol, &s.Name, &s.Price, &s.MarketCap,
			&s.Volume24h, &s.Change24hPercent, &s.Time)
		return s, err
	})
}

func (j *Postgres) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.pool.QueryRow(ctx, `
		SELECT trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason
		FROM trades
		WHERE trade_id = $1`, tradeID)

	rec, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	return rec, err
}

func (j *Postgres) ListTradesBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason
		FROM trades
		WHERE time >= $1 AND time < $2
		ORDER BY time ASC, trade_id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TradeRecord, error) {
		return scanTrade(row)
	})
}

func (j *Postgres) ListTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error) {
	where, args := f.where(func(n int) string { return fmt.Sprintf("$%d", n) })
	rows, err := j.pool.Query(ctx, `
		SELECT trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason
		FROM trades `+where+`
		ORDER BY time ASC, trade_id ASC`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TradeRecord, error) {
		return scanTrade(row)
	})
}

func (j *Postgres) PriceHistory(ctx context.Context, coinID string, since time.Time) ([]market.Snapshot, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT coin_id, symbol, name, price, market_cap, volume_24h, price_change_24h, time
		FROM market_data
		WHERE coin_id = $1 AND time >= $2
		ORDER BY time ASC, id ASC`, coinID, since)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (market.Snapshot, error) {
		var s market.Snapshot
		err := row.Scan(&s.CoinID, &s.Symbol, &s.Name, &s.Price, &s.MarketCap,
			&s.Volume24h, &s.Change24hPercent, &s.Time)
		return s, err
	})
}

func (j *Postgres) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT run_id, time, symbol, price, cash, value, return_rate
		FROM equity
		WHERE run_id = $1
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EquitySnapshot, error) {
		var e EquitySnapshot
		err := row.Scan(&e.RunID, &e.Time, &e.Symbol, &e.Price, &e.Cash, &e.Value, &e.ReturnRate)
		return e, err
	})
}

func (j *Postgres) Close() error {
	j.pool.Close()
	return nil
}
