package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/models"
)

// usedWeightHeader is the authoritative one-minute weight counter binance
// returns on every response.
const usedWeightHeader = "X-MBX-USED-WEIGHT-1M"

// Binance maps the canonical adapter contract onto api.binance.com (spot)
// and fapi.binance.com (USD-M futures). Binance's interval vocabulary is
// identical to the canonical one, so the translation table is the identity.
type Binance struct {
	base
}

var binanceIntervals = map[models.Interval]string{
	models.IntervalOneMinute:      "1m",
	models.IntervalFiveMinutes:    "5m",
	models.IntervalFifteenMinutes: "15m",
	models.IntervalOneHour:        "1h",
	models.IntervalFourHours:      "4h",
	models.IntervalOneDay:         "1d",
	models.IntervalOneWeek:        "1w",
}

// NewBinance constructs the binance adapter.
func NewBinance() *Binance {
	return &Binance{base{
		name:            models.ExchangeBinance,
		spotAPIURL:      "https://api.binance.com",
		futuresAPIURL:   "https://fapi.binance.com",
		spotTradeURL:    "https://www.binance.com/en/trade/BASE_QUOTE",
		futuresTradeURL: "https://www.binance.com/en/futures/BASEQUOTE",
		limiter:         newLimiter(1000),
		http:            newHTTPClient(),
	}}
}

type binanceTicker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (b *Binance) updateWeightFromHeader(header http.Header) {
	if header == nil {
		return
	}
	if used := header.Get(usedWeightHeader); used != "" {
		if weight, err := strconv.Atoi(used); err == nil {
			b.UpdateWeight(weight)
		}
	}
}

func (b *Binance) price(ctx context.Context, apiURL, path, baseCur, quote string) (decimal.Decimal, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(baseCur, quote))
	var ticker binanceTicker
	header, err := b.http.getJSON(ctx, apiURL, path, params, &ticker)
	b.updateWeightFromHeader(header)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return noPrice, apiErr
		}
		logrus.WithError(err).Warn("binance price request failed")
		return noPrice, nil
	}
	if ticker.Price.IsZero() {
		return noPrice, nil
	}
	return ticker.Price, nil
}

// SpotPrice returns the last spot price, or the -1 sentinel when the
// response lacks the price field.
func (b *Binance) SpotPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	return b.price(ctx, b.spotAPIURL, "/api/v3/ticker/price", baseCur, quote)
}

// FuturesPrice returns the last USD-M futures price.
func (b *Binance) FuturesPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	return b.price(ctx, b.futuresAPIURL, "/fapi/v1/ticker/price", baseCur, quote)
}

func (b *Binance) prices(ctx context.Context, apiURL, path string) ([]models.Ticker, error) {
	b.CheckWeight()
	var tickers []binanceTicker
	header, err := b.http.getJSON(ctx, apiURL, path, nil, &tickers)
	b.updateWeightFromHeader(header)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("binance prices request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, models.Ticker{Symbol: t.Symbol, Price: t.Price})
	}
	return out, nil
}

// SpotPrices returns the full spot ticker snapshot.
func (b *Binance) SpotPrices(ctx context.Context) ([]models.Ticker, error) {
	return b.prices(ctx, b.spotAPIURL, "/api/v3/ticker/price")
}

// FuturesPrices returns the full futures ticker snapshot.
func (b *Binance) FuturesPrices(ctx context.Context) ([]models.Ticker, error) {
	return b.prices(ctx, b.futuresAPIURL, "/fapi/v1/ticker/price")
}

func (b *Binance) kline(ctx context.Context, apiURL, path string, q KlineQuery) ([]models.Candle, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(q.Base, q.Quote))
	params.Set("interval", binanceIntervals[q.Interval])
	params.Set("limit", strconv.Itoa(q.limit()))
	if q.StartTime != nil {
		params.Set("startTime", strconv.FormatInt(*q.StartTime, 10))
	}
	if q.EndTime != nil {
		params.Set("endTime", strconv.FormatInt(*q.EndTime, 10))
	}

	// Rows mix bare numbers (timestamps) and quoted decimals:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	header, err := b.http.getJSON(ctx, apiURL, path, params, &rows)
	b.updateWeightFromHeader(header)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("binance kline request failed")
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

// SpotKline returns spot candles for the canonical interval set.
func (b *Binance) SpotKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	return b.kline(ctx, b.spotAPIURL, "/api/v3/klines", q)
}

// FuturesKline returns USD-M futures candles. Binance has no settlement
// dimension, so q.Settle is ignored.
func (b *Binance) FuturesKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	return b.kline(ctx, b.futuresAPIURL, "/fapi/v1/klines", q)
}

type binanceNewsResponse struct {
	Data struct {
		Articles []struct {
			Code        string `json:"code"`
			Title       string `json:"title"`
			ReleaseDate int64  `json:"releaseDate"`
		} `json:"articles"`
	} `json:"data"`
}

// News returns the latest announcements from the binance CMS feed.
func (b *Binance) News(ctx context.Context) ([]models.NewsItem, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("catalogId", "48")
	params.Set("pageNo", "1")
	params.Set("pageSize", "20")
	var resp binanceNewsResponse
	_, err := b.http.getJSON(ctx, "https://www.binance.com", "/bapi/composite/v1/public/cms/article/catalog/list/query", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("binance news request failed")
		return []models.NewsItem{}, nil
	}
	items := make([]models.NewsItem, 0, len(resp.Data.Articles))
	for _, article := range resp.Data.Articles {
		items = append(items, models.NewsItem{
			Exchange:  string(models.ExchangeBinance),
			Headline:  article.Title,
			Category:  "announcement",
			Hyperlink: "https://www.binance.com/en/support/announcement/" + article.Code,
			NewsTime:  article.ReleaseDate,
		})
	}
	return items, nil
}
