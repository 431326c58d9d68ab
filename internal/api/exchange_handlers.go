package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/database"
	"github.com/ecoppen/freqdash/internal/exchange"
	"github.com/ecoppen/freqdash/internal/models"
)

// priceCacheTTL bounds how stale the cached full-snapshot responses can be.
const priceCacheTTL = 10 * time.Second

// notImplemented is the body returned for a market the adapters do not
// serve, kept stable for the dashboard's error handling.
var notImplemented = gin.H{"error": "not implemented yet"}

type PriceResponse struct {
	Exchange string          `json:"exchange"`
	Market   models.Market   `json:"market"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
}

type PricesResponse struct {
	Exchange  string          `json:"exchange"`
	Market    models.Market   `json:"market"`
	Tickers   []models.Ticker `json:"tickers"`
	Timestamp time.Time       `json:"timestamp"`
}

type KlineResponse struct {
	Exchange string          `json:"exchange"`
	Market   models.Market   `json:"market"`
	Symbol   string          `json:"symbol"`
	Interval models.Interval `json:"interval"`
	Candles  []models.Candle `json:"candles"`
}

type NewsResponse struct {
	News   []models.NewsItem `json:"news"`
	Counts NewsCounts        `json:"counts"`
}

type NewsCounts struct {
	Hour int64 `json:"hour"`
	Day  int64 `json:"day"`
	All  int64 `json:"all"`
}

func (h *Handler) adapterFor(c *gin.Context) (exchange.Adapter, models.Market, bool) {
	name := strings.ToLower(c.Query("exchange"))
	adapter, ok := h.registry.Get(models.ExchangeName(name))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown exchange %q", name)})
		return nil, "", false
	}

	market, ok := models.ParseMarket(strings.ToUpper(c.DefaultQuery("market", string(models.MarketSpot))))
	if !ok {
		c.JSON(http.StatusOK, notImplemented)
		return nil, "", false
	}

	return adapter, market, true
}

func (h *Handler) getPrice(c *gin.Context) {
	adapter, market, ok := h.adapterFor(c)
	if !ok {
		return
	}

	base := strings.ToUpper(c.Query("base"))
	quote := strings.ToUpper(c.Query("quote"))

	var price decimal.Decimal
	var err error
	if market == models.MarketSpot {
		price, err = adapter.SpotPrice(c.Request.Context(), base, quote)
	} else {
		price, err = adapter.FuturesPrice(c.Request.Context(), base, quote)
	}
	if err != nil {
		var apiErr *exchange.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Msg})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, PriceResponse{
		Exchange: string(adapter.Name()),
		Market:   market,
		Symbol:   base + quote,
		Price:    price,
	})
}

func (h *Handler) getPrices(c *gin.Context) {
	adapter, market, ok := h.adapterFor(c)
	if !ok {
		return
	}

	cacheKey := database.PriceCacheKey(string(adapter.Name()), market)
	if h.redis != nil {
		if cached, err := h.redis.Get(c.Request.Context(), cacheKey); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			return
		}
	}

	var tickers []models.Ticker
	var err error
	if market == models.MarketSpot {
		tickers, err = adapter.SpotPrices(c.Request.Context())
	} else {
		tickers, err = adapter.FuturesPrices(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	response := PricesResponse{
		Exchange:  string(adapter.Name()),
		Market:    market,
		Tickers:   tickers,
		Timestamp: time.Now(),
	}

	if h.redis != nil {
		if body, err := json.Marshal(response); err == nil {
			if err := h.redis.Set(c.Request.Context(), cacheKey, body, priceCacheTTL); err != nil {
				logrus.WithError(err).Warn("Failed to cache price snapshot")
			}
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) getKline(c *gin.Context) {
	adapter, market, ok := h.adapterFor(c)
	if !ok {
		return
	}

	interval, ok := models.ParseInterval(c.DefaultQuery("interval", string(models.IntervalOneHour)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown interval %q", c.Query("interval"))})
		return
	}

	settle, ok := models.ParseSettle(strings.ToLower(c.Query("settle")))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown settle currency %q", c.Query("settle"))})
		return
	}

	query := exchange.KlineQuery{
		Base:     strings.ToUpper(c.Query("base")),
		Quote:    strings.ToUpper(c.Query("quote")),
		Interval: interval,
		Settle:   settle,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		query.Limit = limit
	}
	if ts, ok, valid := optionalMillis(c, "start_time"); valid {
		if ok {
			query.StartTime = ts
		}
	} else {
		return
	}
	if ts, ok, valid := optionalMillis(c, "end_time"); valid {
		if ok {
			query.EndTime = ts
		}
	} else {
		return
	}

	var candles []models.Candle
	var err error
	if market == models.MarketSpot {
		candles, err = adapter.SpotKline(c.Request.Context(), query)
	} else {
		candles, err = adapter.FuturesKline(c.Request.Context(), query)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, KlineResponse{
		Exchange: string(adapter.Name()),
		Market:   market,
		Symbol:   query.Base + query.Quote,
		Interval: interval,
		Candles:  candles,
	})
}

// optionalMillis parses one millisecond query parameter. The second return
// reports presence, the third validity; an invalid value has already been
// answered with a 400.
func optionalMillis(c *gin.Context, name string) (*int64, bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false, true
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s %q", name, raw)})
		return nil, false, false
	}
	return &ms, true, true
}

func (h *Handler) getNews(c *gin.Context) {
	now := time.Now().UnixMilli()

	start := int64(0)
	if ts, ok, valid := optionalMillis(c, "start"); valid {
		if ok {
			start = *ts
		}
	} else {
		return
	}

	end := now
	if ts, ok, valid := optionalMillis(c, "end"); valid {
		if ok {
			end = *ts
		}
	} else {
		return
	}

	exchangeName := strings.ToLower(c.Query("exchange"))

	ctx := c.Request.Context()
	items, err := h.store.GetNews(ctx, start, end, exchangeName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := NewsResponse{News: items}
	if response.Counts.Hour, err = h.store.CountNews(ctx, now-time.Hour.Milliseconds(), now, exchangeName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if response.Counts.Day, err = h.store.CountNews(ctx, now-(24*time.Hour).Milliseconds(), now, exchangeName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if response.Counts.All, err = h.store.CountNews(ctx, 0, now, exchangeName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}
