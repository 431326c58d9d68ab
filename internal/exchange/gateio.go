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

// Gateio maps the canonical adapter contract onto the gate.io v4 API. The
// futures API is partitioned by settlement currency, so every futures call
// without a settle short-circuits to an empty result before any network
// I/O happens.
type Gateio struct {
	base
}

// Gate.io has no native weekly code; 7d is the closest span.
var gateioIntervals = map[models.Interval]string{
	models.IntervalOneMinute:      "1m",
	models.IntervalFiveMinutes:    "5m",
	models.IntervalFifteenMinutes: "15m",
	models.IntervalOneHour:        "1h",
	models.IntervalFourHours:      "4h",
	models.IntervalOneDay:         "1d",
	models.IntervalOneWeek:        "7d",
}

// NewGateio constructs the gate.io adapter.
func NewGateio() *Gateio {
	return &Gateio{base{
		name:            models.ExchangeGateio,
		spotAPIURL:      "https://api.gateio.ws",
		futuresAPIURL:   "https://api.gateio.ws",
		spotTradeURL:    "https://www.gate.io/trade/BASE_QUOTE",
		futuresTradeURL: "https://www.gate.io/futures_trade/USDT/BASE_QUOTE",
		limiter:         newLimiter(1000),
		http:            newHTTPClient(),
	}}
}

// pair builds gate.io's underscore-separated pair code.
func gateioPair(baseCur, quote string) string {
	return strings.ToUpper(baseCur) + "_" + strings.ToUpper(quote)
}

type gateioTicker struct {
	CurrencyPair string          `json:"currency_pair"`
	Last         decimal.Decimal `json:"last"`
}

func (g *Gateio) spotTickers(ctx context.Context, params url.Values) ([]models.Ticker, error) {
	g.CheckWeight()
	var tickers []gateioTicker
	_, err := g.http.getJSON(ctx, g.spotAPIURL, "/api/v4/spot/tickers", params, &tickers)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("gateio spot tickers request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, models.Ticker{
			Symbol: strings.ReplaceAll(t.CurrencyPair, "_", ""),
			Price:  t.Last,
		})
	}
	return out, nil
}

// SpotPrice returns the last spot price for one pair.
func (g *Gateio) SpotPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("currency_pair", gateioPair(baseCur, quote))
	tickers, err := g.spotTickers(ctx, params)
	if err != nil {
		return noPrice, err
	}
	if len(tickers) == 0 || tickers[0].Price.IsZero() {
		return noPrice, nil
	}
	return tickers[0].Price, nil
}

// SpotPrices returns the full spot ticker snapshot.
func (g *Gateio) SpotPrices(ctx context.Context) ([]models.Ticker, error) {
	return g.spotTickers(ctx, nil)
}

// SpotKline returns spot candles. Gate.io candlestick rows are string
// arrays ordered [ts, quote_volume, close, high, low, open, base_volume]
// with timestamps in seconds.
func (g *Gateio) SpotKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	g.CheckWeight()
	params := url.Values{}
	params.Set("currency_pair", gateioPair(q.Base, q.Quote))
	params.Set("interval", gateioIntervals[q.Interval])
	if q.StartTime != nil {
		params.Set("from", strconv.FormatInt(*q.StartTime/1000, 10))
	}
	if q.EndTime != nil {
		params.Set("to", strconv.FormatInt(*q.EndTime/1000, 10))
	}
	// from+to and limit are mutually exclusive on this endpoint.
	if q.StartTime == nil && q.EndTime == nil {
		params.Set("limit", strconv.Itoa(q.limit()))
	}

	var rows [][]json.RawMessage
	_, err := g.http.getJSON(ctx, g.spotAPIURL, "/api/v4/spot/candlesticks", params, &rows)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("gateio spot kline request failed")
		return []models.Candle{}, nil
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, ok := rawInt64(row[0])
		if !ok {
			continue
		}
		volume, ok1 := rawDecimal(row[1])
		closePrice, ok2 := rawDecimal(row[2])
		high, ok3 := rawDecimal(row[3])
		low, ok4 := rawDecimal(row[4])
		open, ok5 := rawDecimal(row[5])
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

type gateioContract struct {
	Contract string          `json:"contract"`
	Last     decimal.Decimal `json:"last"`
}

func (g *Gateio) futuresTickers(ctx context.Context, settle models.Settle, params url.Values) ([]models.Ticker, error) {
	g.CheckWeight()
	var tickers []gateioContract
	path := "/api/v4/futures/" + string(settle) + "/tickers"
	_, err := g.http.getJSON(ctx, g.futuresAPIURL, path, params, &tickers)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("gateio futures tickers request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, models.Ticker{
			Symbol: strings.ReplaceAll(t.Contract, "_", ""),
			Price:  t.Last,
		})
	}
	return out, nil
}

// FuturesPrice returns the last contract price. The settle currency selects
// the API partition and defaults to usdt, matching the dashboard's
// perpetual listings.
func (g *Gateio) FuturesPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("contract", gateioPair(baseCur, quote))
	tickers, err := g.futuresTickers(ctx, models.SettleUSDT, params)
	if err != nil {
		return noPrice, err
	}
	if len(tickers) == 0 || tickers[0].Price.IsZero() {
		return noPrice, nil
	}
	return tickers[0].Price, nil
}

// FuturesPrices returns the usdt-settled contract snapshot.
func (g *Gateio) FuturesPrices(ctx context.Context) ([]models.Ticker, error) {
	return g.futuresTickers(ctx, models.SettleUSDT, nil)
}

// FuturesKline returns contract candles. A query without a settle returns
// empty without touching the network, because the candlestick URL cannot be
// formed without one.
func (g *Gateio) FuturesKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	if q.Settle == "" {
		return []models.Candle{}, nil
	}
	g.CheckWeight()
	params := url.Values{}
	params.Set("contract", gateioPair(q.Base, q.Quote))
	params.Set("interval", gateioIntervals[q.Interval])
	if q.StartTime != nil {
		params.Set("from", strconv.FormatInt(*q.StartTime/1000, 10))
	}
	if q.EndTime != nil {
		params.Set("to", strconv.FormatInt(*q.EndTime/1000, 10))
	}
	if q.StartTime == nil && q.EndTime == nil {
		params.Set("limit", strconv.Itoa(q.limit()))
	}

	// Futures candlesticks come back as objects, unlike the spot arrays.
	var rows []struct {
		T int64           `json:"t"`
		V decimal.Decimal `json:"v"`
		C decimal.Decimal `json:"c"`
		H decimal.Decimal `json:"h"`
		L decimal.Decimal `json:"l"`
		O decimal.Decimal `json:"o"`
	}
	path := "/api/v4/futures/" + string(q.Settle) + "/candlesticks"
	_, err := g.http.getJSON(ctx, g.futuresAPIURL, path, params, &rows)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("gateio futures kline request failed")
		return []models.Candle{}, nil
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, models.Candle{
			Timestamp: row.T * 1000,
			Open:      row.O,
			High:      row.H,
			Low:       row.L,
			Close:     row.C,
			Volume:    row.V,
		})
	}
	return truncate(sortCandles(candles), q.limit()), nil
}
