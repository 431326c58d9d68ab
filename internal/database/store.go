package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ecoppen/freqdash/internal/models"
)

// Store is the canonical persistence layer. All scraper writes and all
// dashboard reads go through it.
type Store struct {
	pool DatabasePool
}

// NewStore creates a store over a database pool.
func NewStore(pool DatabasePool) *Store {
	return &Store{pool: pool}
}

// UpsertHost inserts or refreshes a host row keyed on (host, remote_host)
// and returns its id. The trading mode is stored upper-cased. Starting
// capital is left alone on update; it is maintained separately from the
// balance pass.
func (s *Store) UpsertHost(ctx context.Context, host models.Host) (int64, error) {
	query := `
		INSERT INTO hosts (
			host, remote_host, exchange, strategy, state, stake_currency,
			trading_mode, run_mode, bot_version, strategy_version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (host, remote_host)
		DO UPDATE SET
			exchange = EXCLUDED.exchange,
			strategy = EXCLUDED.strategy,
			state = EXCLUDED.state,
			stake_currency = EXCLUDED.stake_currency,
			trading_mode = EXCLUDED.trading_mode,
			run_mode = EXCLUDED.run_mode,
			bot_version = EXCLUDED.bot_version,
			strategy_version = EXCLUDED.strategy_version,
			last_checked = NOW()
		RETURNING id
	`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		host.Host, host.RemoteHost, host.Exchange, host.Strategy, host.State,
		host.StakeCurrency, strings.ToUpper(host.TradingMode), host.RunMode,
		host.BotVersion, host.StrategyVersion,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert host: %w", err)
	}

	return id, nil
}

// UpdateStartingCapital records the instance's reported starting capital.
func (s *Store) UpdateStartingCapital(ctx context.Context, hostID int64, capital decimal.Decimal) error {
	query := `UPDATE hosts SET starting_capital = $1 WHERE id = $2`
	if _, err := s.pool.Exec(ctx, query, capital, hostID); err != nil {
		return fmt.Errorf("failed to update starting capital: %w", err)
	}
	return nil
}

// GetHosts returns every known host ordered by id.
func (s *Store) GetHosts(ctx context.Context) ([]models.Host, error) {
	query := `
		SELECT id, host, remote_host, exchange, strategy, state, stake_currency,
		       trading_mode, run_mode, bot_version, strategy_version,
		       starting_capital, added, last_checked
		FROM hosts
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get hosts: %w", err)
	}
	defer rows.Close()

	var hosts []models.Host
	for rows.Next() {
		var h models.Host
		err := rows.Scan(
			&h.ID, &h.Host, &h.RemoteHost, &h.Exchange, &h.Strategy, &h.State,
			&h.StakeCurrency, &h.TradingMode, &h.RunMode, &h.BotVersion,
			&h.StrategyVersion, &h.StartingCapital, &h.Added, &h.LastChecked,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hosts: %w", err)
	}

	return hosts, nil
}

// GetHost returns one host by id, or nil when it does not exist.
func (s *Store) GetHost(ctx context.Context, id int64) (*models.Host, error) {
	query := `
		SELECT id, host, remote_host, exchange, strategy, state, stake_currency,
		       trading_mode, run_mode, bot_version, strategy_version,
		       starting_capital, added, last_checked
		FROM hosts
		WHERE id = $1
	`

	var h models.Host
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&h.ID, &h.Host, &h.RemoteHost, &h.Exchange, &h.Strategy, &h.State,
		&h.StakeCurrency, &h.TradingMode, &h.RunMode, &h.BotVersion,
		&h.StrategyVersion, &h.StartingCapital, &h.Added, &h.LastChecked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	return &h, nil
}

// GetHostsAndModes maps each exchange present in hosts to the trading modes
// seen on it. The scraper uses this to decide which price snapshots to take.
func (s *Store) GetHostsAndModes(ctx context.Context) (map[string][]string, error) {
	query := `SELECT DISTINCT exchange, trading_mode FROM hosts ORDER BY exchange, trading_mode`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get hosts and modes: %w", err)
	}
	defer rows.Close()

	modes := make(map[string][]string)
	for rows.Next() {
		var exchange, mode string
		if err := rows.Scan(&exchange, &mode); err != nil {
			return nil, fmt.Errorf("failed to scan host mode: %w", err)
		}
		modes[exchange] = append(modes[exchange], mode)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating host modes: %w", err)
	}

	return modes, nil
}

// AddSysinfo appends one resource sample for a host.
func (s *Store) AddSysinfo(ctx context.Context, info models.SysInfo) error {
	query := `INSERT INTO sysinfo (host_id, cpu_pct, ram_pct) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, info.HostID, info.CPUPct, info.RAMPct); err != nil {
		return fmt.Errorf("failed to add sysinfo: %w", err)
	}
	return nil
}

// AttachLastProcessTS sets the health timestamp on the newest sysinfo row
// for a host. The health endpoint is polled after the sysinfo sample, so
// the newest row is the one from the current cycle.
func (s *Store) AttachLastProcessTS(ctx context.Context, hostID int64, ts float64) error {
	query := `
		UPDATE sysinfo SET last_process_ts = $1
		WHERE id = (SELECT id FROM sysinfo WHERE host_id = $2 ORDER BY id DESC LIMIT 1)
	`
	if _, err := s.pool.Exec(ctx, query, ts, hostID); err != nil {
		return fmt.Errorf("failed to attach last process ts: %w", err)
	}
	return nil
}

// GetOldestOpenTradeID returns the lowest open trade id for a host; when no
// trade is open it falls back to the lowest stored trade id of any kind, and
// to zero on an empty table. The scraper uses it as the closed-trade fetch
// offset.
func (s *Store) GetOldestOpenTradeID(ctx context.Context, hostID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MIN(trade_id), 0) FROM trades WHERE host_id = $1 AND is_open`,
		hostID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get oldest open trade id: %w", err)
	}
	if id > 0 {
		return id, nil
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(MIN(trade_id), 0) FROM trades WHERE host_id = $1`,
		hostID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get oldest trade id: %w", err)
	}

	return id, nil
}

// UpsertTrades replaces trade rows on conflict of (host_id, trade_id), then
// upserts each trade's nested orders. Trading mode is stored upper-case.
func (s *Store) UpsertTrades(ctx context.Context, hostID int64, trades []models.Trade) error {
	query := `
		INSERT INTO trades (
			host_id, trade_id, pair, base_currency, quote_currency, exchange,
			is_open, amount, stake_amount, profit_abs, enter_tag,
			fee_open_cost, fee_open_currency, fee_close_cost, fee_close_currency,
			open_timestamp, open_rate, close_timestamp, close_rate, exit_reason,
			stop_loss_abs, leverage, is_short, trading_mode, funding_fees
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (host_id, trade_id)
		DO UPDATE SET
			pair = EXCLUDED.pair,
			base_currency = EXCLUDED.base_currency,
			quote_currency = EXCLUDED.quote_currency,
			exchange = EXCLUDED.exchange,
			is_open = EXCLUDED.is_open,
			amount = EXCLUDED.amount,
			stake_amount = EXCLUDED.stake_amount,
			profit_abs = EXCLUDED.profit_abs,
			enter_tag = EXCLUDED.enter_tag,
			fee_open_cost = EXCLUDED.fee_open_cost,
			fee_open_currency = EXCLUDED.fee_open_currency,
			fee_close_cost = EXCLUDED.fee_close_cost,
			fee_close_currency = EXCLUDED.fee_close_currency,
			open_timestamp = EXCLUDED.open_timestamp,
			open_rate = EXCLUDED.open_rate,
			close_timestamp = EXCLUDED.close_timestamp,
			close_rate = EXCLUDED.close_rate,
			exit_reason = EXCLUDED.exit_reason,
			stop_loss_abs = EXCLUDED.stop_loss_abs,
			leverage = EXCLUDED.leverage,
			is_short = EXCLUDED.is_short,
			trading_mode = EXCLUDED.trading_mode,
			funding_fees = EXCLUDED.funding_fees
	`

	for _, trade := range trades {
		_, err := s.pool.Exec(ctx, query,
			hostID, trade.TradeID, trade.Pair, trade.BaseCurrency,
			trade.QuoteCurrency, trade.Exchange, trade.IsOpen, trade.Amount,
			trade.StakeAmount, trade.ProfitAbs, trade.EnterTag,
			trade.FeeOpenCost, trade.FeeOpenCurrency, trade.FeeCloseCost,
			trade.FeeCloseCurrency, trade.OpenTimestamp, trade.OpenRate,
			trade.CloseTimestamp, trade.CloseRate, trade.ExitReason,
			trade.StopLossAbs, trade.Leverage, trade.IsShort,
			strings.ToUpper(trade.TradingMode), trade.FundingFees,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert trade %d: %w", trade.TradeID, err)
		}

		if err := s.upsertOrders(ctx, hostID, trade.TradeID, trade.Orders); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) upsertOrders(ctx context.Context, hostID, tradeID int64, orders []models.Order) error {
	query := `
		INSERT INTO orders (
			host_id, trade_id, order_id, amount, filled, order_side, order_type,
			order_timestamp, order_filled_timestamp, is_entry, status, average
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (host_id, trade_id, order_id)
		DO UPDATE SET
			amount = EXCLUDED.amount,
			filled = EXCLUDED.filled,
			order_side = EXCLUDED.order_side,
			order_type = EXCLUDED.order_type,
			order_timestamp = EXCLUDED.order_timestamp,
			order_filled_timestamp = EXCLUDED.order_filled_timestamp,
			is_entry = EXCLUDED.is_entry,
			status = EXCLUDED.status,
			average = EXCLUDED.average
	`

	for _, order := range orders {
		_, err := s.pool.Exec(ctx, query,
			hostID, tradeID, order.OrderID, order.Amount, order.Filled,
			order.OrderSide, order.OrderType, order.OrderTimestamp,
			order.OrderFilledTimestamp, order.IsEntry, order.Status, order.Average,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert order %s: %w", order.OrderID, err)
		}
	}

	return nil
}

const tradeColumns = `
	host_id, trade_id, pair, base_currency, quote_currency, exchange,
	is_open, amount, stake_amount, profit_abs, enter_tag,
	fee_open_cost, fee_open_currency, fee_close_cost, fee_close_currency,
	open_timestamp, open_rate, close_timestamp, close_rate, exit_reason,
	stop_loss_abs, leverage, is_short, trading_mode, funding_fees
`

func scanTrade(rows pgx.Rows) (models.Trade, error) {
	var t models.Trade
	err := rows.Scan(
		&t.HostID, &t.TradeID, &t.Pair, &t.BaseCurrency, &t.QuoteCurrency,
		&t.Exchange, &t.IsOpen, &t.Amount, &t.StakeAmount, &t.ProfitAbs,
		&t.EnterTag, &t.FeeOpenCost, &t.FeeOpenCurrency, &t.FeeCloseCost,
		&t.FeeCloseCurrency, &t.OpenTimestamp, &t.OpenRate, &t.CloseTimestamp,
		&t.CloseRate, &t.ExitReason, &t.StopLossAbs, &t.Leverage, &t.IsShort,
		&t.TradingMode, &t.FundingFees,
	)
	return t, err
}

// GetOpenTrades returns a host's open trades ordered by trade id.
func (s *Store) GetOpenTrades(ctx context.Context, hostID int64) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE host_id = $1 AND is_open ORDER BY trade_id`
	return s.queryTrades(ctx, query, hostID)
}

// GetClosedTrades returns a host's closed trades, newest first. A non-positive
// limit returns all of them.
func (s *Store) GetClosedTrades(ctx context.Context, hostID int64, limit int) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE host_id = $1 AND NOT is_open ORDER BY close_timestamp DESC`
	if limit > 0 {
		return s.queryTrades(ctx, query+` LIMIT $2`, hostID, limit)
	}
	return s.queryTrades(ctx, query, hostID)
}

func (s *Store) queryTrades(ctx context.Context, query string, args ...interface{}) ([]models.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetOrdersForTrade returns the stored orders of one trade in fill order.
func (s *Store) GetOrdersForTrade(ctx context.Context, hostID, tradeID int64) ([]models.Order, error) {
	query := `
		SELECT host_id, trade_id, order_id, amount, filled, order_side,
		       order_type, order_timestamp, order_filled_timestamp, is_entry,
		       status, average
		FROM orders
		WHERE host_id = $1 AND trade_id = $2
		ORDER BY order_timestamp
	`

	rows, err := s.pool.Query(ctx, query, hostID, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.HostID, &o.TradeID, &o.OrderID, &o.Amount, &o.Filled,
			&o.OrderSide, &o.OrderType, &o.OrderTimestamp,
			&o.OrderFilledTimestamp, &o.IsEntry, &o.Status, &o.Average,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// ReplaceBalances swaps a host's balance set for the one just fetched.
func (s *Store) ReplaceBalances(ctx context.Context, hostID int64, balances []models.Balance) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM balances WHERE host_id = $1`, hostID); err != nil {
		return fmt.Errorf("failed to clear balances: %w", err)
	}

	query := `INSERT INTO balances (host_id, currency, free, balance) VALUES ($1, $2, $3, $4)`
	for _, b := range balances {
		if _, err := s.pool.Exec(ctx, query, hostID, b.Currency, b.Free, b.Balance); err != nil {
			return fmt.Errorf("failed to insert balance %s: %w", b.Currency, err)
		}
	}

	return nil
}

// GetBalances returns a host's stored balances ordered by currency.
func (s *Store) GetBalances(ctx context.Context, hostID int64) ([]models.Balance, error) {
	query := `SELECT host_id, currency, free, balance FROM balances WHERE host_id = $1 ORDER BY currency`

	rows, err := s.pool.Query(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.HostID, &b.Currency, &b.Free, &b.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	return balances, nil
}

// ReplaceBaseList swaps a host's whitelist or blacklist for a freshly
// fetched one. Entries arrive as pairs like "BTC/USDT"; only the base
// currency before the slash is stored.
func (s *Store) ReplaceBaseList(ctx context.Context, hostID int64, listType string, pairs []string) error {
	query := `DELETE FROM base_lists WHERE host_id = $1 AND list_type = $2`
	if _, err := s.pool.Exec(ctx, query, hostID, listType); err != nil {
		return fmt.Errorf("failed to clear %s list: %w", listType, err)
	}

	insert := `
		INSERT INTO base_lists (host_id, quote, list_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (host_id, quote, list_type) DO NOTHING
	`
	for _, pair := range pairs {
		quote := strings.SplitN(pair, "/", 2)[0]
		if _, err := s.pool.Exec(ctx, insert, hostID, quote, listType); err != nil {
			return fmt.Errorf("failed to insert %s list entry %s: %w", listType, quote, err)
		}
	}

	return nil
}

// GetBaseList returns a host's stored whitelist or blacklist entries.
func (s *Store) GetBaseList(ctx context.Context, hostID int64, listType string) ([]string, error) {
	query := `SELECT quote FROM base_lists WHERE host_id = $1 AND list_type = $2 ORDER BY quote`

	rows, err := s.pool.Query(ctx, query, hostID, listType)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s list: %w", listType, err)
	}
	defer rows.Close()

	var quotes []string
	for rows.Next() {
		var quote string
		if err := rows.Scan(&quote); err != nil {
			return nil, fmt.Errorf("failed to scan %s list entry: %w", listType, err)
		}
		quotes = append(quotes, quote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s list: %w", listType, err)
	}

	return quotes, nil
}

// AppendLogs stores the log lines newer than the latest one already held
// for the host. Returns how many were inserted.
func (s *Store) AppendLogs(ctx context.Context, hostID int64, entries []models.LogEntry) (int, error) {
	var latest int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(timestamp), 0) FROM logs WHERE host_id = $1`,
		hostID,
	).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest log timestamp: %w", err)
	}

	query := `INSERT INTO logs (host_id, timestamp, name, level, message) VALUES ($1, $2, $3, $4, $5)`
	inserted := 0
	for _, entry := range entries {
		if entry.Timestamp <= latest {
			continue
		}
		if _, err := s.pool.Exec(ctx, query, hostID, entry.Timestamp, entry.Name, entry.Level, entry.Message); err != nil {
			return inserted, fmt.Errorf("failed to insert log entry: %w", err)
		}
		inserted++
	}

	return inserted, nil
}

// GetLogs returns a host's newest log lines.
func (s *Store) GetLogs(ctx context.Context, hostID int64, limit int) ([]models.LogEntry, error) {
	query := `
		SELECT id, host_id, timestamp, name, level, message
		FROM logs
		WHERE host_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, hostID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.HostID, &e.Timestamp, &e.Name, &e.Level, &e.Message); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return entries, nil
}

// ReplacePrices swaps the price snapshot for one (exchange, trading mode)
// pair with a freshly fetched one.
func (s *Store) ReplacePrices(ctx context.Context, exchange, tradingMode string, tickers []models.Ticker) error {
	query := `DELETE FROM prices WHERE exchange = $1 AND trading_mode = $2`
	if _, err := s.pool.Exec(ctx, query, exchange, tradingMode); err != nil {
		return fmt.Errorf("failed to clear prices: %w", err)
	}

	insert := `INSERT INTO prices (exchange, trading_mode, symbol, price) VALUES ($1, $2, $3, $4)`
	for _, ticker := range tickers {
		if _, err := s.pool.Exec(ctx, insert, exchange, tradingMode, ticker.Symbol, ticker.Price); err != nil {
			return fmt.Errorf("failed to insert price %s: %w", ticker.Symbol, err)
		}
	}

	return nil
}

// GetPrices returns the stored snapshot for an exchange and trading mode.
// A non-empty quote keeps only symbols that start or end with it.
func (s *Store) GetPrices(ctx context.Context, exchange, tradingMode, quote string) ([]models.Price, error) {
	query := `
		SELECT id, exchange, trading_mode, symbol, price, updated
		FROM prices
		WHERE exchange = $1 AND trading_mode = $2
		  AND ($3 = '' OR symbol LIKE $3 || '%' OR symbol LIKE '%' || $3)
		ORDER BY symbol
	`

	rows, err := s.pool.Query(ctx, query, exchange, tradingMode, quote)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}
	defer rows.Close()

	var prices []models.Price
	for rows.Next() {
		var p models.Price
		if err := rows.Scan(&p.ID, &p.Exchange, &p.TradingMode, &p.Symbol, &p.Price, &p.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// GetPrice returns one stored price, or nil when the symbol is not in the
// snapshot.
func (s *Store) GetPrice(ctx context.Context, exchange, tradingMode, symbol string) (*models.Price, error) {
	query := `
		SELECT id, exchange, trading_mode, symbol, price, updated
		FROM prices
		WHERE exchange = $1 AND trading_mode = $2 AND symbol = $3
	`

	var p models.Price
	err := s.pool.QueryRow(ctx, query, exchange, tradingMode, symbol).Scan(
		&p.ID, &p.Exchange, &p.TradingMode, &p.Symbol, &p.Price, &p.Updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price: %w", err)
	}

	return &p, nil
}

// ReplaceNews swaps the stored announcements for one exchange.
func (s *Store) ReplaceNews(ctx context.Context, exchange string, items []models.NewsItem) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM news WHERE exchange = $1`, exchange); err != nil {
		return fmt.Errorf("failed to clear news: %w", err)
	}

	insert := `INSERT INTO news (exchange, headline, category, hyperlink, news_time) VALUES ($1, $2, $3, $4, $5)`
	for _, item := range items {
		if _, err := s.pool.Exec(ctx, insert, exchange, item.Headline, item.Category, item.Hyperlink, item.NewsTime); err != nil {
			return fmt.Errorf("failed to insert news item: %w", err)
		}
	}

	return nil
}

// GetNews returns stored announcements newest first, bounded by the
// millisecond window and optionally filtered to one exchange.
func (s *Store) GetNews(ctx context.Context, start, end int64, exchange string) ([]models.NewsItem, error) {
	query := `
		SELECT id, exchange, headline, category, hyperlink, news_time
		FROM news
		WHERE news_time >= $1 AND news_time <= $2
		  AND ($3 = '' OR exchange = $3)
		ORDER BY news_time DESC
	`

	rows, err := s.pool.Query(ctx, query, start, end, exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to get news: %w", err)
	}
	defer rows.Close()

	var items []models.NewsItem
	for rows.Next() {
		var item models.NewsItem
		if err := rows.Scan(&item.ID, &item.Exchange, &item.Headline, &item.Category, &item.Hyperlink, &item.NewsTime); err != nil {
			return nil, fmt.Errorf("failed to scan news item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating news: %w", err)
	}

	return items, nil
}

// CountNews counts stored announcements in a millisecond window, optionally
// filtered to one exchange.
func (s *Store) CountNews(ctx context.Context, start, end int64, exchange string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM news
		WHERE news_time >= $1 AND news_time <= $2
		  AND ($3 = '' OR exchange = $3)
	`

	var count int64
	if err := s.pool.QueryRow(ctx, query, start, end, exchange).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}

	return count, nil
}

// TradeStats aggregates one host's trading record for the dashboard.
// ProfitFactor is nil when the host has no losing trades.
type TradeStats struct {
	ClosedTrades  int64            `json:"closed_trades"`
	WinningTrades int64            `json:"winning_trades"`
	LosingTrades  int64            `json:"losing_trades"`
	ClosedProfit  decimal.Decimal  `json:"closed_profit"`
	ProfitFactor  *decimal.Decimal `json:"profit_factor"`
	OpenTrades    int64            `json:"open_trades"`
	OpenProfit    decimal.Decimal  `json:"open_profit"`
	FirstTradeTS  *int64           `json:"first_trade_timestamp"`
}

// GetTradeStats computes a host's dashboard aggregates. A closed trade with
// non-negative profit counts as a win.
func (s *Store) GetTradeStats(ctx context.Context, hostID int64) (TradeStats, error) {
	var stats TradeStats

	closedQuery := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE profit_abs >= 0),
		       COUNT(*) FILTER (WHERE profit_abs < 0),
		       COALESCE(SUM(profit_abs), 0),
		       COALESCE(SUM(profit_abs) FILTER (WHERE profit_abs >= 0), 0),
		       COALESCE(SUM(profit_abs) FILTER (WHERE profit_abs < 0), 0)
		FROM trades
		WHERE host_id = $1 AND NOT is_open
	`

	var gains, losses decimal.Decimal
	err := s.pool.QueryRow(ctx, closedQuery, hostID).Scan(
		&stats.ClosedTrades, &stats.WinningTrades, &stats.LosingTrades,
		&stats.ClosedProfit, &gains, &losses,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to get closed trade stats: %w", err)
	}

	if !losses.IsZero() {
		factor := gains.Div(losses.Abs())
		stats.ProfitFactor = &factor
	}

	openQuery := `
		SELECT COUNT(*), COALESCE(SUM(profit_abs), 0)
		FROM trades
		WHERE host_id = $1 AND is_open
	`
	if err := s.pool.QueryRow(ctx, openQuery, hostID).Scan(&stats.OpenTrades, &stats.OpenProfit); err != nil {
		return stats, fmt.Errorf("failed to get open trade stats: %w", err)
	}

	firstQuery := `SELECT MIN(open_timestamp) FROM trades WHERE host_id = $1`
	if err := s.pool.QueryRow(ctx, firstQuery, hostID).Scan(&stats.FirstTradeTS); err != nil {
		return stats, fmt.Errorf("failed to get first trade timestamp: %w", err)
	}

	return stats, nil
}

// GetClosedProfitBetween sums closed profit for a host inside a millisecond
// close-time window.
func (s *Store) GetClosedProfitBetween(ctx context.Context, hostID, start, end int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(profit_abs), 0)
		FROM trades
		WHERE host_id = $1 AND NOT is_open
		  AND close_timestamp >= $2 AND close_timestamp <= $3
	`

	var profit decimal.Decimal
	if err := s.pool.QueryRow(ctx, query, hostID, start, end).Scan(&profit); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get closed profit: %w", err)
	}

	return profit, nil
}
