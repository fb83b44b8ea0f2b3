package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/papertrader/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; the scheduler, the collector and the API share the file
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(ctx context.Context, t TradeRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Side, t.Quantity, t.Price, t.Fee,
		t.RealizedPL, t.CashAfter, t.Time.UTC(), t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO equity
		(run_id, time, symbol, price, cash, value, return_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time.UTC(), e.Symbol, e.Price, e.Cash, e.Value, e.ReturnRate,
	)
	return err
}

func (j *SQLite) RecordMarket(ctx context.Context, s market.Snapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO market_data
		(coin_id, symbol, name, price, market_cap, volume_24h, price_change_24h, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.CoinID, s.Symbol, s.Name, s.Price, s.MarketCap, s.Volume24h,
		s.Change24hPercent, s.Time.UTC(),
	)
	return err
}

// SaveCoins replaces the coin registry.
func (j *SQLite) SaveCoins(ctx context.Context, coins []market.Coin) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coins`); err != nil {
		return fmt.Errorf("clear coins: %w", err)
	}
	for _, c := range coins {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO coins (id, symbol, name, pair) VALUES (?, ?, ?, ?)`,
			c.ID, c.Symbol, c.Name, c.Pair); err != nil {
			return fmt.Errorf("insert coin %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) Coins(ctx context.Context) ([]market.Coin, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, symbol, name, pair FROM coins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Coin
	for rows.Next() {
		var c market.Coin
		if err := rows.Scan(&c.ID, &c.Symbol, &c.Name, &c.Pair); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestMarketData returns the most recently recorded snapshot of each
// coin, ordered by coin id.
func (j *SQLite) LatestMarketData(ctx context.Context) ([]market.Snapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT m.coin_id, m.symbol, m.name, m.price, m.market_cap, m.volume_24h, m.price_change_24h, m.time
		FROM market_data m
		JOIN (SELECT coin_id, MAX(id) AS id FROM market_data GROUP BY coin_id) latest
		  ON latest.id = m.id
		ORDER BY m.coin_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Snapshot
	for rows.Next() {
		var s market.Snapshot
		if err := rows.Scan(&s.CoinID, &s.Symbol, &s.Name, &s.Price, &s.MarketCap,
			&s.Volume24h, &s.Change24hPercent, &s.Time); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	return rec, err
}

// ListTradesBetween returns trades executed within [start, end).
func (j *SQLite) ListTradesBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListTrades returns the trades matching f, oldest first.
func (j *SQLite) ListTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error) {
	where, args := f.where(func(int) string { return "?" })
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, side, quantity, price, fee, realized_pl, cash_after, time, reason
		FROM trades `+where+`
		ORDER BY time ASC, trade_id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PriceHistory returns the recorded snapshots of coinID taken at or
// after since, oldest first.
func (j *SQLite) PriceHistory(ctx context.Context, coinID string, since time.Time) ([]market.Snapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT coin_id, symbol, name, price, market_cap, volume_24h, price_change_24h, time
		FROM market_data
		WHERE coin_id = ? AND time >= ?
		ORDER BY time ASC, id ASC`, coinID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Snapshot
	for rows.Next() {
		var s market.Snapshot
		if err := rows.Scan(&s.CoinID, &s.Symbol, &s.Name, &s.Price, &s.MarketCap,
			&s.Volume24h, &s.Change24hPercent, &s.Time); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, symbol, price, cash, value, return_rate
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Symbol, &e.Price, &e.Cash, &e.Value, &e.ReturnRate); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Side,
		&rec.Quantity,
		&rec.Price,
		&rec.Fee,
		&rec.RealizedPL,
		&rec.CashAfter,
		&rec.Time,
		&rec.Reason,
	)
	return rec, err
}
