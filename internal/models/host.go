package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Host is one remote bot instance, identified by the (Host, RemoteHost)
// address pair. Rows are upserted once per reconciliation cycle and never
// deleted by the scraper.
type Host struct {
	ID              int64            `json:"id" db:"id"`
	Host            string           `json:"host" db:"host"`
	RemoteHost      string           `json:"remote_host" db:"remote_host"`
	Exchange        string           `json:"exchange" db:"exchange"`
	Strategy        string           `json:"strategy" db:"strategy"`
	State           string           `json:"state" db:"state"`
	StakeCurrency   string           `json:"stake_currency" db:"stake_currency"`
	TradingMode     string           `json:"trading_mode" db:"trading_mode"`
	RunMode         string           `json:"run_mode" db:"run_mode"`
	BotVersion      string           `json:"bot_version" db:"bot_version"`
	StrategyVersion string           `json:"strategy_version" db:"strategy_version"`
	StartingCapital *decimal.Decimal `json:"starting_capital" db:"starting_capital"`
	Added           time.Time        `json:"added" db:"added"`
	LastChecked     time.Time        `json:"last_checked" db:"last_checked"`
}

// SysInfo is an append-only resource sample reported by an instance.
// LastProcessTS is attached afterwards from the health endpoint.
type SysInfo struct {
	ID            int64    `json:"id" db:"id"`
	HostID        int64    `json:"host_id" db:"host_id"`
	CPUPct        string   `json:"cpu_pct" db:"cpu_pct"`
	RAMPct        float64  `json:"ram_pct" db:"ram_pct"`
	LastProcessTS *float64 `json:"last_process_ts" db:"last_process_ts"`
}

// Balance is one currency's balance on a host; the per-host set is replaced
// wholesale each cycle.
type Balance struct {
	HostID   int64           `json:"host_id" db:"host_id"`
	Currency string          `json:"currency" db:"currency"`
	Free     decimal.Decimal `json:"free" db:"free"`
	Balance  decimal.Decimal `json:"balance" db:"balance"`
}

// BaseList is one whitelist or blacklist entry for a host.
type BaseList struct {
	HostID   int64  `json:"host_id" db:"host_id"`
	Quote    string `json:"quote" db:"quote"`
	ListType string `json:"list_type" db:"list_type"`
}

// List types stored in base_lists.
const (
	ListTypeWhite = "white"
	ListTypeBlack = "black"
)

// LogEntry is one remote bot log line; entries are deduplicated by
// timestamp, not identity.
type LogEntry struct {
	ID        int64  `json:"id" db:"id"`
	HostID    int64  `json:"host_id" db:"host_id"`
	Timestamp int64  `json:"timestamp" db:"timestamp"`
	Name      string `json:"name" db:"name"`
	Level     string `json:"level" db:"level"`
	Message   string `json:"message" db:"message"`
}
