package sqlite

// Times are stored as unix nanoseconds so range queries compare integers.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	symbol TEXT PRIMARY KEY,
	id TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	entry_time INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id TEXT NOT NULL UNIQUE,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	exit_price REAL NOT NULL,
	risk REAL NOT NULL,
	reward REAL NOT NULL,
	pnl REAL NOT NULL,
	result TEXT NOT NULL,
	entry_time INTEGER NOT NULL,
	exit_time INTEGER NOT NULL,
	strategy TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol_exit ON trades(symbol, exit_time);

CREATE TABLE IF NOT EXISTS last_signal (
	symbol TEXT PRIMARY KEY,
	payload TEXT NOT NULL
);
`
