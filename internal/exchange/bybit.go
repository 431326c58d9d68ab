package exchange

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/models"
)

// Bybit maps the canonical adapter contract onto api.bybit.com. Spot data
// comes from the v3 public quote API; USDT-perpetual data still lives on the
// v2 endpoints. Bybit does not report weight consumption in headers, so the
// tracked weight never moves.
type Bybit struct {
	base
}

var bybitSpotIntervals = map[models.Interval]string{
	models.IntervalOneMinute:      "1m",
	models.IntervalFiveMinutes:    "5m",
	models.IntervalFifteenMinutes: "15m",
	models.IntervalOneHour:        "1h",
	models.IntervalFourHours:      "4h",
	models.IntervalOneDay:         "1d",
	models.IntervalOneWeek:        "1w",
}

var bybitFuturesIntervals = map[models.Interval]string{
	models.IntervalOneMinute:      "1",
	models.IntervalFiveMinutes:    "5",
	models.IntervalFifteenMinutes: "15",
	models.IntervalOneHour:        "60",
	models.IntervalFourHours:      "240",
	models.IntervalOneDay:         "D",
	models.IntervalOneWeek:        "W",
}

// NewBybit constructs the bybit adapter.
func NewBybit() *Bybit {
	return &Bybit{base{
		name:            models.ExchangeBybit,
		spotAPIURL:      "https://api.bybit.com",
		futuresAPIURL:   "https://api.bybit.com",
		spotTradeURL:    "https://www.bybit.com/en-US/trade/spot/BASE/QUOTE",
		futuresTradeURL: "https://www.bybit.com/trade/usdt/BASEQUOTE",
		limiter:         newLimiter(120),
		http:            newHTTPClient(),
	}}
}

// bybitStatus covers both envelope spellings: retCode/retMsg on the v3 and
// v5 APIs, ret_code/ret_msg on v2. The shared envelope detector ignores
// these fields, so rejections are surfaced here instead.
type bybitStatus struct {
	RetCode   int    `json:"retCode"`
	RetMsg    string `json:"retMsg"`
	RetCodeV2 int    `json:"ret_code"`
	RetMsgV2  string `json:"ret_msg"`
}

func (s bybitStatus) err(endpoint string) *APIError {
	if s.RetCode != 0 && s.RetMsg != "" {
		return &APIError{URL: endpoint, Code: strconv.Itoa(s.RetCode), Msg: s.RetMsg}
	}
	if s.RetCodeV2 != 0 && s.RetMsgV2 != "" {
		return &APIError{URL: endpoint, Code: strconv.Itoa(s.RetCodeV2), Msg: s.RetMsgV2}
	}
	return nil
}

type bybitTicker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// SpotPrice returns the last spot price from the v3 quote endpoint.
func (b *Bybit) SpotPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(baseCur, quote))
	var resp struct {
		bybitStatus
		Result bybitTicker `json:"result"`
	}
	_, err := b.http.getJSON(ctx, b.spotAPIURL, "/spot/v3/public/quote/ticker/price", params, &resp)
	if err != nil {
		logrus.WithError(err).Warn("bybit spot price request failed")
		return noPrice, nil
	}
	if apiErr := resp.err(b.spotAPIURL + "/spot/v3/public/quote/ticker/price"); apiErr != nil {
		return noPrice, apiErr
	}
	if resp.Result.Price.IsZero() {
		return noPrice, nil
	}
	return resp.Result.Price, nil
}

// SpotPrices returns the full v3 spot ticker snapshot.
func (b *Bybit) SpotPrices(ctx context.Context) ([]models.Ticker, error) {
	b.CheckWeight()
	var resp struct {
		bybitStatus
		Result struct {
			List []bybitTicker `json:"list"`
		} `json:"result"`
	}
	_, err := b.http.getJSON(ctx, b.spotAPIURL, "/spot/v3/public/quote/ticker/price", nil, &resp)
	if err != nil {
		logrus.WithError(err).Warn("bybit spot prices request failed")
		return []models.Ticker{}, nil
	}
	if apiErr := resp.err(b.spotAPIURL + "/spot/v3/public/quote/ticker/price"); apiErr != nil {
		return nil, apiErr
	}
	out := make([]models.Ticker, 0, len(resp.Result.List))
	for _, t := range resp.Result.List {
		out = append(out, models.Ticker{Symbol: t.Symbol, Price: t.Price})
	}
	return out, nil
}

// SpotKline returns v3 spot candles. Bybit reports spot kline timestamps in
// milliseconds already.
func (b *Bybit) SpotKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(q.Base, q.Quote))
	params.Set("interval", bybitSpotIntervals[q.Interval])
	params.Set("limit", strconv.Itoa(q.limit()))
	if q.StartTime != nil {
		params.Set("startTime", strconv.FormatInt(*q.StartTime, 10))
	}
	if q.EndTime != nil {
		params.Set("endTime", strconv.FormatInt(*q.EndTime, 10))
	}
	var resp struct {
		bybitStatus
		Result struct {
			List []struct {
				T int64           `json:"t"`
				O decimal.Decimal `json:"o"`
				H decimal.Decimal `json:"h"`
				L decimal.Decimal `json:"l"`
				C decimal.Decimal `json:"c"`
				V decimal.Decimal `json:"v"`
			} `json:"list"`
		} `json:"result"`
	}
	_, err := b.http.getJSON(ctx, b.spotAPIURL, "/spot/v3/public/quote/kline", params, &resp)
	if err != nil {
		logrus.WithError(err).Warn("bybit spot kline request failed")
		return []models.Candle{}, nil
	}
	if apiErr := resp.err(b.spotAPIURL + "/spot/v3/public/quote/kline"); apiErr != nil {
		return nil, apiErr
	}
	candles := make([]models.Candle, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		candles = append(candles, models.Candle{
			Timestamp: row.T,
			Open:      row.O,
			High:      row.H,
			Low:       row.L,
			Close:     row.C,
			Volume:    row.V,
		})
	}
	return truncate(sortCandles(candles), q.limit()), nil
}

type bybitFuturesTicker struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
}

func (b *Bybit) futuresTickers(ctx context.Context, params url.Values) ([]bybitFuturesTicker, error) {
	var resp struct {
		bybitStatus
		Result []bybitFuturesTicker `json:"result"`
	}
	_, err := b.http.getJSON(ctx, b.futuresAPIURL, "/v2/public/tickers", params, &resp)
	if err != nil {
		return nil, err
	}
	if apiErr := resp.err(b.futuresAPIURL + "/v2/public/tickers"); apiErr != nil {
		return nil, apiErr
	}
	return resp.Result, nil
}

// FuturesPrice returns the last USDT-perpetual price.
func (b *Bybit) FuturesPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("symbol", symbol(baseCur, quote))
	tickers, err := b.futuresTickers(ctx, params)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return noPrice, apiErr
		}
		logrus.WithError(err).Warn("bybit futures price request failed")
		return noPrice, nil
	}
	if len(tickers) == 0 || tickers[0].LastPrice.IsZero() {
		return noPrice, nil
	}
	return tickers[0].LastPrice, nil
}

// FuturesPrices returns the full perpetual ticker snapshot.
func (b *Bybit) FuturesPrices(ctx context.Context) ([]models.Ticker, error) {
	b.CheckWeight()
	tickers, err := b.futuresTickers(ctx, nil)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("bybit futures prices request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, models.Ticker{Symbol: t.Symbol, Price: t.LastPrice})
	}
	return out, nil
}

// FuturesKline returns USDT-perpetual candles from the v2 linear endpoint.
// The endpoint demands a start ("from", in seconds) and has no end
// parameter, so a missing StartTime is derived from the interval and limit
// and EndTime is applied client-side. Timestamps come back in seconds and
// are normalized to milliseconds.
func (b *Bybit) FuturesKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	b.CheckWeight()
	from := time.Now().Add(-time.Duration(q.limit()) * intervalDurations[q.Interval]).Unix()
	if q.StartTime != nil {
		from = *q.StartTime / 1000
	}
	params := url.Values{}
	params.Set("symbol", symbol(q.Base, q.Quote))
	params.Set("interval", bybitFuturesIntervals[q.Interval])
	params.Set("limit", strconv.Itoa(q.limit()))
	params.Set("from", strconv.FormatInt(from, 10))
	var resp struct {
		bybitStatus
		Result []struct {
			OpenTime int64           `json:"open_time"`
			Open     decimal.Decimal `json:"open"`
			High     decimal.Decimal `json:"high"`
			Low      decimal.Decimal `json:"low"`
			Close    decimal.Decimal `json:"close"`
			Volume   decimal.Decimal `json:"volume"`
		} `json:"result"`
	}
	_, err := b.http.getJSON(ctx, b.futuresAPIURL, "/public/linear/kline", params, &resp)
	if err != nil {
		logrus.WithError(err).Warn("bybit futures kline request failed")
		return []models.Candle{}, nil
	}
	if apiErr := resp.err(b.futuresAPIURL + "/public/linear/kline"); apiErr != nil {
		return nil, apiErr
	}
	candles := make([]models.Candle, 0, len(resp.Result))
	for _, row := range resp.Result {
		candles = append(candles, models.Candle{
			Timestamp: row.OpenTime * 1000,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	return truncate(clipEnd(sortCandles(candles), q.EndTime), q.limit()), nil
}

// News returns the latest announcements from the bybit v5 feed.
func (b *Bybit) News(ctx context.Context) ([]models.NewsItem, error) {
	b.CheckWeight()
	params := url.Values{}
	params.Set("locale", "en-US")
	params.Set("limit", "20")
	var resp struct {
		bybitStatus
		Result struct {
			List []struct {
				Title string `json:"title"`
				Type  struct {
					Title string `json:"title"`
				} `json:"type"`
				URL           string `json:"url"`
				DateTimestamp int64  `json:"dateTimestamp"`
			} `json:"list"`
		} `json:"result"`
	}
	_, err := b.http.getJSON(ctx, b.spotAPIURL, "/v5/announcements/index", params, &resp)
	if err != nil {
		logrus.WithError(err).Warn("bybit news request failed")
		return []models.NewsItem{}, nil
	}
	if apiErr := resp.err(b.spotAPIURL + "/v5/announcements/index"); apiErr != nil {
		return nil, apiErr
	}
	items := make([]models.NewsItem, 0, len(resp.Result.List))
	for _, article := range resp.Result.List {
		category := article.Type.Title
		if category == "" {
			category = "announcement"
		}
		items = append(items, models.NewsItem{
			Exchange:  string(models.ExchangeBybit),
			Headline:  article.Title,
			Category:  category,
			Hyperlink: article.URL,
			NewsTime:  article.DateTimestamp,
		})
	}
	return items, nil
}
