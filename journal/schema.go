package journal

// Decimal columns are TEXT in SQLite so amounts round-trip exactly.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	fee TEXT NOT NULL,
	realized_pl TEXT NOT NULL,
	cash_after TEXT NOT NULL,
	time DATETIME NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	price TEXT NOT NULL,
	cash TEXT NOT NULL,
	value TEXT NOT NULL,
	return_rate TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS market_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	coin_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL,
	price TEXT NOT NULL,
	market_cap TEXT NOT NULL,
	volume_24h TEXT NOT NULL,
	price_change_24h TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS coins (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL,
	pair TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, time);
CREATE INDEX IF NOT EXISTS idx_market_coin ON market_data(coin_id, id);
CREATE INDEX IF NOT EXISTS idx_market_coin_time ON market_data(coin_id, time);
`

const PostgresSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	price NUMERIC NOT NULL,
	fee NUMERIC NOT NULL,
	realized_pl NUMERIC NOT NULL,
	cash_after NUMERIC NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	symbol TEXT NOT NULL,
	price NUMERIC NOT NULL,
	cash NUMERIC NOT NULL,
	value NUMERIC NOT NULL,
	return_rate NUMERIC NOT NULL
);

CREATE TABLE IF NOT EXISTS market_data (
	id BIGSERIAL PRIMARY KEY,
	coin_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL,
	price NUMERIC NOT NULL,
	market_cap NUMERIC NOT NULL,
	volume_24h NUMERIC NOT NULL,
	price_change_24h NUMERIC NOT NULL,
	time TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS coins (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL,
	pair TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, time);
CREATE INDEX IF NOT EXISTS idx_market_coin ON market_data(coin_id, id);
CREATE INDEX IF NOT EXISTS idx_market_coin_time ON market_data(coin_id, time);
`
