package exchange

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecoppen/freqdash/internal/models"
)

// Adapter is the uniform contract every exchange implementation satisfies.
// Callers are exchange-agnostic: canonical symbols in, canonical records out.
//
// Error policy: a response that lacks the expected field is "no data" and
// yields the sentinel price or an empty slice with a nil error. Transport
// failures degrade the same way. The only error surfaced is *APIError, for
// responses carrying an explicit code+msg envelope, so callers can tell an
// exchange rejection from an unreachable exchange.
type Adapter interface {
	Name() models.ExchangeName

	SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error)
	SpotPrices(ctx context.Context) ([]models.Ticker, error)
	SpotKline(ctx context.Context, q KlineQuery) ([]models.Candle, error)

	FuturesPrice(ctx context.Context, base, quote string) (decimal.Decimal, error)
	FuturesPrices(ctx context.Context) ([]models.Ticker, error)
	FuturesKline(ctx context.Context, q KlineQuery) ([]models.Candle, error)

	// Trade URL templates keep the BASE/QUOTE placeholders; only the
	// dashboard substitutes them.
	SpotTradeURL() string
	FuturesTradeURL() string

	// Weight reports the adapter's current rate-budget consumption.
	Weight() int
}

// NewsSource is implemented by adapters whose exchange publishes a public
// announcement feed.
type NewsSource interface {
	News(ctx context.Context) ([]models.NewsItem, error)
}

// KlineQuery is a canonical candle request. StartTime and EndTime are Unix
// milliseconds; adapters convert to each exchange's own clock resolution.
// Settle is only consulted by exchanges whose futures API is partitioned by
// settlement currency.
type KlineQuery struct {
	Base      string
	Quote     string
	Interval  models.Interval
	StartTime *int64
	EndTime   *int64
	Limit     int
	Settle    models.Settle
}

// DefaultKlineLimit is applied when a query does not set one.
const DefaultKlineLimit = 500

func (q KlineQuery) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultKlineLimit
}

// intervalDurations maps canonical intervals onto wall-clock spans, for
// exchanges whose kline endpoints require a computed start when the caller
// gives none.
var intervalDurations = map[models.Interval]time.Duration{
	models.IntervalOneMinute:      time.Minute,
	models.IntervalFiveMinutes:    5 * time.Minute,
	models.IntervalFifteenMinutes: 15 * time.Minute,
	models.IntervalOneHour:        time.Hour,
	models.IntervalFourHours:      4 * time.Hour,
	models.IntervalOneDay:         24 * time.Hour,
	models.IntervalOneWeek:        7 * 24 * time.Hour,
}

// noPrice is the sentinel returned when an exchange response lacks the
// expected price field.
var noPrice = decimal.NewFromInt(-1)

// NoPrice reports whether a price is the "unavailable" sentinel.
func NoPrice(d decimal.Decimal) bool {
	return d.Equal(noPrice)
}

// truncate applies a client-side limit for exchanges without a server-side
// one.
func truncate(candles []models.Candle, limit int) []models.Candle {
	if limit > 0 && len(candles) > limit {
		return candles[:limit]
	}
	return candles
}

// clipEnd drops candles newer than endTime, for exchanges whose kline
// endpoint has no server-side end parameter. endTime is Unix milliseconds
// and inclusive; nil disables the clip.
func clipEnd(candles []models.Candle, endTime *int64) []models.Candle {
	if endTime == nil {
		return candles
	}
	out := candles[:0]
	for _, c := range candles {
		if c.Timestamp <= *endTime {
			out = append(out, c)
		}
	}
	return out
}

// sortCandles orders candles ascending by timestamp. Exchanges disagree on
// kline ordering, so every adapter sorts before returning.
func sortCandles(candles []models.Candle) []models.Candle {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
	return candles
}
