package freqtrade

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Config is the subset of the remote bot's show_config payload the
// reconciliation engine persists. Version doubles as the reachability
// probe: an empty Version means the instance did not answer usefully.
type Config struct {
	Version         string `json:"version"`
	StrategyVersion string `json:"strategy_version"`
	Strategy        string `json:"strategy"`
	State           string `json:"state"`
	StakeCurrency   string `json:"stake_currency"`
	TradingMode     string `json:"trading_mode"`
	RunMode         string `json:"runmode"`
	Exchange        string `json:"exchange"`
}

// Sysinfo is the remote bot's resource sample. CPUPct carries one entry
// per core.
type Sysinfo struct {
	CPUPct []float64 `json:"cpu_pct"`
	RAMPct float64   `json:"ram_pct"`
}

// Currency is one entry of the balance sheet.
type Currency struct {
	Currency string          `json:"currency"`
	Free     decimal.Decimal `json:"free"`
	Balance  decimal.Decimal `json:"balance"`
}

// Balance is the remote bot's balance payload. StartingCapital is persisted
// onto the host row, the currency set replaces the stored balances.
type Balance struct {
	Currencies      []Currency       `json:"currencies"`
	Total           decimal.Decimal  `json:"total"`
	StartingCapital *decimal.Decimal `json:"starting_capital"`
}

// LogLine is one remote bot log entry. The wire shape is a positional
// array [date, timestamp, name, level, message].
type LogLine struct {
	Timestamp int64
	Name      string
	Level     string
	Message   string
}

// UnmarshalJSON maps the positional log row onto the named fields. The
// timestamp cell arrives as a float of milliseconds.
func (l *LogLine) UnmarshalJSON(data []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	if len(row) < 5 {
		return nil
	}
	var ts float64
	if err := json.Unmarshal(row[1], &ts); err != nil {
		return err
	}
	l.Timestamp = int64(ts)
	if err := json.Unmarshal(row[2], &l.Name); err != nil {
		return err
	}
	if err := json.Unmarshal(row[3], &l.Level); err != nil {
		return err
	}
	return json.Unmarshal(row[4], &l.Message)
}

// Lock is one pair lock currently held by the remote bot.
type Lock struct {
	ID       int64  `json:"id"`
	Pair     string `json:"pair"`
	Reason   string `json:"reason"`
	LockTime string `json:"lock_time"`
	LockEnd  string `json:"lock_end_time"`
	Active   bool   `json:"active"`
}

// Health reports the remote bot's last processing heartbeat.
type Health struct {
	LastProcess   string   `json:"last_process"`
	LastProcessTS *float64 `json:"last_process_ts"`
}
