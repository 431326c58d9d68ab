package exchange

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/models"
)

// Kucoin maps the canonical adapter contract onto api.kucoin.com (spot) and
// api-futures.kucoin.com. Spot pairs are dash-separated and spot kline
// timestamps are seconds; the futures API takes milliseconds and a
// granularity in minutes. Both ends are normalized here.
type Kucoin struct {
	base
}

var kucoinSpotIntervals = map[models.Interval]string{
	models.IntervalOneMinute:      "1min",
	models.IntervalFiveMinutes:    "5min",
	models.IntervalFifteenMinutes: "15min",
	models.IntervalOneHour:        "1hour",
	models.IntervalFourHours:      "4hour",
	models.IntervalOneDay:         "1day",
	models.IntervalOneWeek:        "1week",
}

var kucoinFuturesGranularity = map[models.Interval]int{
	models.IntervalOneMinute:      1,
	models.IntervalFiveMinutes:    5,
	models.IntervalFifteenMinutes: 15,
	models.IntervalOneHour:        60,
	models.IntervalFourHours:      240,
	models.IntervalOneDay:         1440,
	models.IntervalOneWeek:        10080,
}

// NewKucoin constructs the kucoin adapter.
func NewKucoin() *Kucoin {
	return &Kucoin{base{
		name:            models.ExchangeKucoin,
		spotAPIURL:      "https://api.kucoin.com",
		futuresAPIURL:   "https://api-futures.kucoin.com",
		spotTradeURL:    "https://www.kucoin.com/trade/BASE-QUOTE",
		futuresTradeURL: "https://www.kucoin.com/futures/trade/BASEQUOTE",
		limiter:         newLimiter(600),
		http:            newHTTPClient(),
	}}
}

func kucoinSpotSymbol(baseCur, quote string) string {
	return strings.ToUpper(baseCur) + "-" + strings.ToUpper(quote)
}

// SpotPrice returns the last spot price from the level1 orderbook.
func (k *Kucoin) SpotPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	k.CheckWeight()
	params := url.Values{}
	params.Set("symbol", kucoinSpotSymbol(baseCur, quote))
	var resp struct {
		Data struct {
			Price decimal.Decimal `json:"price"`
		} `json:"data"`
	}
	_, err := k.http.getJSON(ctx, k.spotAPIURL, "/api/v1/market/orderbook/level1", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return noPrice, apiErr
		}
		logrus.WithError(err).Warn("kucoin spot price request failed")
		return noPrice, nil
	}
	if resp.Data.Price.IsZero() {
		return noPrice, nil
	}
	return resp.Data.Price, nil
}

// SpotPrices returns the allTickers snapshot. Kucoin's dash-separated
// symbols are collapsed to the canonical concatenated form.
func (k *Kucoin) SpotPrices(ctx context.Context) ([]models.Ticker, error) {
	k.CheckWeight()
	var resp struct {
		Data struct {
			Ticker []struct {
				Symbol string          `json:"symbol"`
				Last   decimal.Decimal `json:"last"`
			} `json:"ticker"`
		} `json:"data"`
	}
	_, err := k.http.getJSON(ctx, k.spotAPIURL, "/api/v1/market/allTickers", nil, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("kucoin spot prices request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(resp.Data.Ticker))
	for _, t := range resp.Data.Ticker {
		out = append(out, models.Ticker{
			Symbol: strings.ReplaceAll(t.Symbol, "-", ""),
			Price:  t.Last,
		})
	}
	return out, nil
}

// SpotKline returns spot candles. Rows are string arrays ordered
// [ts, open, close, high, low, volume, turnover] with second-resolution
// timestamps; endAt is exclusive, so one second is added to keep the
// canonical end inclusive.
func (k *Kucoin) SpotKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	k.CheckWeight()
	params := url.Values{}
	params.Set("symbol", kucoinSpotSymbol(q.Base, q.Quote))
	params.Set("type", kucoinSpotIntervals[q.Interval])
	if q.StartTime != nil {
		params.Set("startAt", strconv.FormatInt(*q.StartTime/1000, 10))
	}
	if q.EndTime != nil {
		params.Set("endAt", strconv.FormatInt(*q.EndTime/1000+1, 10))
	}

	var resp struct {
		Data [][]json.RawMessage `json:"data"`
	}
	_, err := k.http.getJSON(ctx, k.spotAPIURL, "/api/v1/market/candles", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("kucoin spot kline request failed")
		return []models.Candle{}, nil
	}

	candles := make([]models.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		if len(row) < 6 {
			continue
		}
		ts, ok := rawInt64(row[0])
		if !ok {
			continue
		}
		open, ok1 := rawDecimal(row[1])
		closePrice, ok2 := rawDecimal(row[2])
		high, ok3 := rawDecimal(row[3])
		low, ok4 := rawDecimal(row[4])
		volume, ok5 := rawDecimal(row[5])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: ts * 1000,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return truncate(sortCandles(candles), q.limit()), nil
}

// FuturesPrice returns the last traded contract price.
func (k *Kucoin) FuturesPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	k.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(baseCur, quote))
	var resp struct {
		Data struct {
			Price decimal.Decimal `json:"price"`
		} `json:"data"`
	}
	_, err := k.http.getJSON(ctx, k.futuresAPIURL, "/api/v1/ticker", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return noPrice, apiErr
		}
		logrus.WithError(err).Warn("kucoin futures price request failed")
		return noPrice, nil
	}
	if resp.Data.Price.IsZero() {
		return noPrice, nil
	}
	return resp.Data.Price, nil
}

// FuturesPrices returns the mark price of every active contract.
func (k *Kucoin) FuturesPrices(ctx context.Context) ([]models.Ticker, error) {
	k.CheckWeight()
	var resp struct {
		Data []struct {
			Symbol    string          `json:"symbol"`
			MarkPrice decimal.Decimal `json:"markPrice"`
		} `json:"data"`
	}
	_, err := k.http.getJSON(ctx, k.futuresAPIURL, "/api/v1/contracts/active", nil, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("kucoin futures prices request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(resp.Data))
	for _, c := range resp.Data {
		out = append(out, models.Ticker{Symbol: c.Symbol, Price: c.MarkPrice})
	}
	return out, nil
}

// FuturesKline returns contract candles. The futures API takes millisecond
// bounds directly; "to" is exclusive, so one millisecond is added. Rows are
// numeric arrays ordered [ts, open, high, low, close, volume].
func (k *Kucoin) FuturesKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	k.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(q.Base, q.Quote))
	params.Set("granularity", strconv.Itoa(kucoinFuturesGranularity[q.Interval]))
	if q.StartTime != nil {
		params.Set("from", strconv.FormatInt(*q.StartTime, 10))
	}
	if q.EndTime != nil {
		params.Set("to", strconv.FormatInt(*q.EndTime+1, 10))
	}

	var resp struct {
		Data [][]json.RawMessage `json:"data"`
	}
	_, err := k.http.getJSON(ctx, k.futuresAPIURL, "/api/v1/kline/query", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("kucoin futures kline request failed")
		return []models.Candle{}, nil
	}

	candles := make([]models.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		if len(row) < 6 {
			continue
		}
		ts, ok := rawInt64(row[0])
		if !ok {
			continue
		}
		open, ok1 := rawDecimal(row[1])
		high, ok2 := rawDecimal(row[2])
		low, ok3 := rawDecimal(row[3])
		closePrice, ok4 := rawDecimal(row[4])
		volume, ok5 := rawDecimal(row[5])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return truncate(sortCandles(candles), q.limit()), nil
}
