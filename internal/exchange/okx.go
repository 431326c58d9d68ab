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

// Okx maps the canonical adapter contract onto the okx v5 API, which serves
// spot and perpetual-swap markets from the same host and distinguishes them
// by instrument type. Instrument ids are dash-separated (BTC-USDT,
// BTC-USDT-SWAP) and collapse to the canonical symbol on the way out.
type Okx struct {
	base
}

var okxBars = map[models.Interval]string{
	models.IntervalOneMinute:      "1m",
	models.IntervalFiveMinutes:    "5m",
	models.IntervalFifteenMinutes: "15m",
	models.IntervalOneHour:        "1H",
	models.IntervalFourHours:      "4H",
	models.IntervalOneDay:         "1D",
	models.IntervalOneWeek:        "1W",
}

// NewOkx constructs the okx adapter.
func NewOkx() *Okx {
	return &Okx{base{
		name:            models.ExchangeOkx,
		spotAPIURL:      "https://www.okx.com",
		futuresAPIURL:   "https://www.okx.com",
		spotTradeURL:    "https://www.okx.com/trade-spot/base-quote",
		futuresTradeURL: "https://www.okx.com/trade-futures/base-quote",
		limiter:         newLimiter(600),
		http:            newHTTPClient(),
	}}
}

func okxSpotInstID(baseCur, quote string) string {
	return strings.ToUpper(baseCur) + "-" + strings.ToUpper(quote)
}

func okxSwapInstID(baseCur, quote string) string {
	return okxSpotInstID(baseCur, quote) + "-SWAP"
}

// okxSymbol collapses an instrument id to the canonical symbol.
func okxSymbol(instID string) string {
	return strings.ReplaceAll(strings.TrimSuffix(instID, "-SWAP"), "-", "")
}

type okxTicker struct {
	InstID string          `json:"instId"`
	Last   decimal.Decimal `json:"last"`
}

func (o *Okx) price(ctx context.Context, instID string) (decimal.Decimal, error) {
	o.CheckWeight()
	params := url.Values{}
	params.Set("instId", instID)
	var resp struct {
		Data []okxTicker `json:"data"`
	}
	_, err := o.http.getJSON(ctx, o.spotAPIURL, "/api/v5/market/ticker", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return noPrice, apiErr
		}
		logrus.WithError(err).Warn("okx price request failed")
		return noPrice, nil
	}
	if len(resp.Data) == 0 || resp.Data[0].Last.IsZero() {
		return noPrice, nil
	}
	return resp.Data[0].Last, nil
}

func (o *Okx) prices(ctx context.Context, instType string) ([]models.Ticker, error) {
	o.CheckWeight()
	params := url.Values{}
	params.Set("instType", instType)
	var resp struct {
		Data []okxTicker `json:"data"`
	}
	_, err := o.http.getJSON(ctx, o.spotAPIURL, "/api/v5/market/tickers", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("okx prices request failed")
		return []models.Ticker{}, nil
	}
	out := make([]models.Ticker, 0, len(resp.Data))
	for _, t := range resp.Data {
		out = append(out, models.Ticker{Symbol: okxSymbol(t.InstID), Price: t.Last})
	}
	return out, nil
}

// SpotPrice returns the last spot price.
func (o *Okx) SpotPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	return o.price(ctx, okxSpotInstID(baseCur, quote))
}

// SpotPrices returns the full spot ticker snapshot.
func (o *Okx) SpotPrices(ctx context.Context) ([]models.Ticker, error) {
	return o.prices(ctx, "SPOT")
}

// FuturesPrice returns the last perpetual-swap price.
func (o *Okx) FuturesPrice(ctx context.Context, baseCur, quote string) (decimal.Decimal, error) {
	return o.price(ctx, okxSwapInstID(baseCur, quote))
}

// FuturesPrices returns the full swap ticker snapshot.
func (o *Okx) FuturesPrices(ctx context.Context) ([]models.Ticker, error) {
	return o.prices(ctx, "SWAP")
}

// kline fetches candles for one instrument. Okx paginates by exclusive
// timestamp cursors ("after" walks older than, "before" newer than), so the
// canonical inclusive bounds are widened by one millisecond each way and
// re-clipped client-side. Rows are string arrays ordered
// [ts, open, high, low, close, volume, ...] with millisecond timestamps.
func (o *Okx) kline(ctx context.Context, instID string, q KlineQuery) ([]models.Candle, error) {
	o.CheckWeight()
	params := url.Values{}
	params.Set("instId", instID)
	params.Set("bar", okxBars[q.Interval])
	params.Set("limit", strconv.Itoa(q.limit()))
	if q.StartTime != nil {
		params.Set("before", strconv.FormatInt(*q.StartTime-1, 10))
	}
	if q.EndTime != nil {
		params.Set("after", strconv.FormatInt(*q.EndTime+1, 10))
	}

	var resp struct {
		Data [][]json.RawMessage `json:"data"`
	}
	_, err := o.http.getJSON(ctx, o.spotAPIURL, "/api/v5/market/candles", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("okx kline request failed")
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
	return truncate(clipEnd(sortCandles(candles), q.EndTime), q.limit()), nil
}

// SpotKline returns spot candles.
func (o *Okx) SpotKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	return o.kline(ctx, okxSpotInstID(q.Base, q.Quote), q)
}

// FuturesKline returns perpetual-swap candles. Okx swaps carry the
// settlement in the instrument id, so q.Settle is ignored.
func (o *Okx) FuturesKline(ctx context.Context, q KlineQuery) ([]models.Candle, error) {
	return o.kline(ctx, okxSwapInstID(q.Base, q.Quote), q)
}

// News returns the latest public announcements.
func (o *Okx) News(ctx context.Context) ([]models.NewsItem, error) {
	o.CheckWeight()
	params := url.Values{}
	params.Set("page", "1")
	var resp struct {
		Data []struct {
			Details []struct {
				AnnType string `json:"annType"`
				PTime   string `json:"pTime"`
				Title   string `json:"title"`
				URL     string `json:"url"`
			} `json:"details"`
		} `json:"data"`
	}
	_, err := o.http.getJSON(ctx, o.spotAPIURL, "/api/v5/support/announcements", params, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		logrus.WithError(err).Warn("okx news request failed")
		return []models.NewsItem{}, nil
	}
	var items []models.NewsItem
	for _, page := range resp.Data {
		for _, article := range page.Details {
			ts, err := strconv.ParseInt(article.PTime, 10, 64)
			if err != nil {
				continue
			}
			category := article.AnnType
			if category == "" {
				category = "announcement"
			}
			items = append(items, models.NewsItem{
				Exchange:  string(models.ExchangeOkx),
				Headline:  article.Title,
				Category:  category,
				Hyperlink: article.URL,
				NewsTime:  ts,
			})
		}
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	return items, nil
}
