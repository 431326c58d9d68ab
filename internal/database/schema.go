package database

import (
	"context"
	"fmt"
)

// migrations are applied in order on startup. Statements are idempotent so
// re-running against an existing database is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS hosts (
		id BIGSERIAL PRIMARY KEY,
		host TEXT NOT NULL,
		remote_host TEXT NOT NULL,
		exchange TEXT NOT NULL DEFAULT '',
		strategy TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		stake_currency TEXT NOT NULL DEFAULT '',
		trading_mode TEXT NOT NULL DEFAULT '',
		run_mode TEXT NOT NULL DEFAULT '',
		bot_version TEXT NOT NULL DEFAULT '',
		strategy_version TEXT NOT NULL DEFAULT '',
		starting_capital NUMERIC,
		added TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_checked TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (host, remote_host)
	)`,
	`CREATE TABLE IF NOT EXISTS sysinfo (
		id BIGSERIAL PRIMARY KEY,
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		cpu_pct TEXT NOT NULL,
		ram_pct DOUBLE PRECISION NOT NULL,
		last_process_ts DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS balances (
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		currency TEXT NOT NULL,
		free NUMERIC NOT NULL,
		balance NUMERIC NOT NULL,
		PRIMARY KEY (host_id, currency)
	)`,
	`CREATE TABLE IF NOT EXISTS base_lists (
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		quote TEXT NOT NULL,
		list_type TEXT NOT NULL,
		PRIMARY KEY (host_id, quote, list_type)
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id BIGSERIAL PRIMARY KEY,
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		timestamp BIGINT NOT NULL,
		name TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prices (
		id BIGSERIAL PRIMARY KEY,
		exchange TEXT NOT NULL,
		trading_mode TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price NUMERIC NOT NULL,
		updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		trade_id BIGINT NOT NULL,
		pair TEXT NOT NULL,
		base_currency TEXT NOT NULL,
		quote_currency TEXT NOT NULL,
		exchange TEXT NOT NULL,
		is_open BOOLEAN NOT NULL,
		amount NUMERIC NOT NULL,
		stake_amount NUMERIC NOT NULL,
		profit_abs NUMERIC NOT NULL,
		enter_tag TEXT NOT NULL DEFAULT '',
		fee_open_cost NUMERIC NOT NULL,
		fee_open_currency TEXT NOT NULL DEFAULT '',
		fee_close_cost NUMERIC,
		fee_close_currency TEXT,
		open_timestamp BIGINT NOT NULL,
		open_rate NUMERIC NOT NULL,
		close_timestamp BIGINT,
		close_rate NUMERIC,
		exit_reason TEXT,
		stop_loss_abs NUMERIC NOT NULL,
		leverage NUMERIC NOT NULL,
		is_short BOOLEAN NOT NULL,
		trading_mode TEXT NOT NULL,
		funding_fees NUMERIC NOT NULL,
		PRIMARY KEY (host_id, trade_id)
	)`,
	// Orders are keyed to trades by convention only; an order insert must
	// succeed even when the parent trade row is missing.
	`CREATE TABLE IF NOT EXISTS orders (
		host_id BIGINT NOT NULL,
		trade_id BIGINT NOT NULL,
		order_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		filled NUMERIC NOT NULL,
		order_side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		order_timestamp BIGINT NOT NULL,
		order_filled_timestamp BIGINT NOT NULL,
		is_entry BOOLEAN,
		status TEXT NOT NULL,
		average NUMERIC,
		PRIMARY KEY (host_id, trade_id, order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS news (
		id BIGSERIAL PRIMARY KEY,
		exchange TEXT NOT NULL,
		headline TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		hyperlink TEXT NOT NULL DEFAULT '',
		news_time BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_host_ts ON logs (host_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_lookup ON prices (exchange, trading_mode, symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_news_time ON news (exchange, news_time)`,
}

// Migrate creates the schema. Called once on startup before the scraper or
// the API touch the pool.
func Migrate(ctx context.Context, pool DatabasePool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
