package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is the canonical last-price record every adapter converges on.
// Symbol is the upper-case base+quote concatenation with no separator.
type Ticker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Candle is one normalized kline entry. Timestamp is Unix milliseconds on
// the exchange's own clock; adapters that receive seconds convert at the
// boundary.
type Candle struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Price is one row of the price snapshot table. Rows for the same
// (exchange, trading mode) pair are replaced wholesale each scrape cycle.
type Price struct {
	ID          int64           `json:"id" db:"id"`
	Exchange    string          `json:"exchange" db:"exchange"`
	TradingMode string          `json:"trading_mode" db:"trading_mode"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Updated     time.Time       `json:"updated" db:"updated"`
}

// NewsItem is one exchange announcement; the stored set is replaced per
// exchange each cycle.
type NewsItem struct {
	ID        int64  `json:"id" db:"id"`
	Exchange  string `json:"exchange" db:"exchange"`
	Headline  string `json:"headline" db:"headline"`
	Category  string `json:"category" db:"category"`
	Hyperlink string `json:"hyperlink" db:"hyperlink"`
	NewsTime  int64  `json:"timestamp" db:"news_time"`
}
