package models

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExchangeName identifies one of the supported exchanges. The set is closed
// at build time; the adapter registry is keyed by these values.
type ExchangeName string

const (
	ExchangeBinance ExchangeName = "binance"
	ExchangeBybit   ExchangeName = "bybit"
	ExchangeGateio  ExchangeName = "gateio"
	ExchangeKucoin  ExchangeName = "kucoin"
	ExchangeOkx     ExchangeName = "okx"
)

// SupportedExchanges lists every exchange the registry constructs, in a
// stable order.
func SupportedExchanges() []ExchangeName {
	return []ExchangeName{
		ExchangeBinance,
		ExchangeBybit,
		ExchangeGateio,
		ExchangeKucoin,
		ExchangeOkx,
	}
}

var titleCaser = cases.Title(language.English)

// DisplayName renders the exchange name for dashboard output. OKX is an
// initialism, the rest are title-cased.
func DisplayName(name string) string {
	if ExchangeName(name) == ExchangeOkx {
		return "OKX"
	}
	return titleCaser.String(name)
}

// Market distinguishes spot from derivatives endpoints.
type Market string

const (
	MarketSpot    Market = "SPOT"
	MarketFutures Market = "FUTURES"
)

// ParseMarket normalizes a query-string market value.
func ParseMarket(s string) (Market, bool) {
	switch Market(s) {
	case MarketSpot:
		return MarketSpot, true
	case MarketFutures:
		return MarketFutures, true
	}
	return "", false
}

// Interval is the canonical kline interval vocabulary. Adapters translate
// these into each exchange's own codes.
type Interval string

const (
	IntervalOneMinute      Interval = "1m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalOneHour        Interval = "1h"
	IntervalFourHours      Interval = "4h"
	IntervalOneDay         Interval = "1d"
	IntervalOneWeek        Interval = "1w"
)

// Intervals lists every canonical interval code.
func Intervals() []Interval {
	return []Interval{
		IntervalOneMinute,
		IntervalFiveMinutes,
		IntervalFifteenMinutes,
		IntervalOneHour,
		IntervalFourHours,
		IntervalOneDay,
		IntervalOneWeek,
	}
}

// ParseInterval validates a query-string interval value.
func ParseInterval(s string) (Interval, bool) {
	for _, iv := range Intervals() {
		if Interval(s) == iv {
			return iv, true
		}
	}
	return "", false
}

// Settle is the settlement currency dimension some futures APIs require.
type Settle string

const (
	SettleBTC  Settle = "btc"
	SettleUSD  Settle = "usd"
	SettleUSDT Settle = "usdt"
)

// ParseSettle validates a query-string settle value. The empty string is
// valid and means "not provided".
func ParseSettle(s string) (Settle, bool) {
	switch Settle(s) {
	case "":
		return "", true
	case SettleBTC, SettleUSD, SettleUSDT:
		return Settle(s), true
	}
	return "", false
}
