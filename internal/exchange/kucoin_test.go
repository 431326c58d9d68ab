package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoppen/freqdash/internal/models"
)

func TestKucoinAttributes(t *testing.T) {
	kucoin := NewKucoin()
	assert.Equal(t, models.ExchangeKucoin, kucoin.Name())
	assert.Equal(t, "https://www.kucoin.com/trade/BASE-QUOTE", kucoin.SpotTradeURL())
	assert.Equal(t, "https://www.kucoin.com/futures/trade/BASEQUOTE", kucoin.FuturesTradeURL())
	assert.Equal(t, 0, kucoin.Weight())
	assert.Equal(t, 600, kucoin.MaxWeight())
}

func TestKucoinSpotPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/market/orderbook/level1", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		body := `{"code":"200000","data":{"time":1672321212636,"sequence":"497452241","price":"16601.4","size":"0.0001"}}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	kucoin := NewKucoin()
	kucoin.spotAPIURL = server.URL

	price, err := kucoin.SpotPrice(context.Background(), "BTC", "USDT")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("16601.4").Equal(price))
}

func TestKucoinSpotPricesCollapsesDash(t *testing.T) {
	server := fixtureServer(t, map[string]string{
		"/api/v1/market/allTickers": `{"code":"200000","data":{"time":1672321391000,"ticker":[{"symbol":"BTC-USDT","last":"16601.4"},{"symbol":"ETH-BTC","last":"0.072"}]}}`,
	})
	defer server.Close()

	kucoin := NewKucoin()
	kucoin.spotAPIURL = server.URL

	prices, err := kucoin.SpotPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "BTCUSDT", prices[0].Symbol)
	assert.Equal(t, "ETHBTC", prices[1].Symbol)
}

func TestKucoinSpotKlineFieldOrder(t *testing.T) {
	// Kucoin rows are [ts, open, close, high, low, volume, turnover].
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/market/candles", r.URL.Path)
		assert.Equal(t, "1day", r.URL.Query().Get("type"))
		assert.Equal(t, "1632009600", r.URL.Query().Get("startAt"))
		// endAt is exclusive upstream, so the inclusive end gains a second.
		assert.Equal(t, strconv.FormatInt(1632182400+1, 10), r.URL.Query().Get("endAt"))
		w.Header().Set("Content-Type", "application/json")
		body := `{"code":"200000","data":[["1632096000","47252.31","43049.82","47338.82","42523.37","531.465973","23400000.0"],["1632009600","48272.38","47252.31","48328.8","46864.83","180.834669","8600337.21"]]}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	kucoin := NewKucoin()
	kucoin.spotAPIURL = server.URL

	start := int64(1632009600000)
	end := int64(1632182400000)
	candles, err := kucoin.SpotKline(context.Background(), KlineQuery{
		Base:      "BTC",
		Quote:     "USDT",
		Interval:  models.IntervalOneDay,
		StartTime: &start,
		EndTime:   &end,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	// Sorted ascending even though the exchange answered newest first.
	assert.Equal(t, int64(1632009600000), candles[0].Timestamp)
	assert.True(t, decimal.RequireFromString("48272.38").Equal(candles[0].Open))
	assert.True(t, decimal.RequireFromString("47252.31").Equal(candles[0].Close))
	assert.True(t, decimal.RequireFromString("48328.8").Equal(candles[0].High))
	assert.True(t, decimal.RequireFromString("46864.83").Equal(candles[0].Low))
	assert.True(t, decimal.RequireFromString("180.834669").Equal(candles[0].Volume))
}

func TestKucoinFuturesPrices(t *testing.T) {
	server := fixtureServer(t, map[string]string{
		"/api/v1/contracts/active": `{"code":"200000","data":[{"symbol":"XBTUSDTM","markPrice":16605.41},{"symbol":"ETHUSDTM","markPrice":1199.84}]}`,
	})
	defer server.Close()

	kucoin := NewKucoin()
	kucoin.futuresAPIURL = server.URL

	prices, err := kucoin.FuturesPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "XBTUSDTM", prices[0].Symbol)
	assert.True(t, decimal.RequireFromString("16605.41").Equal(prices[0].Price))
}

func TestKucoinFuturesKline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/kline/query", r.URL.Path)
		assert.Equal(t, "1440", r.URL.Query().Get("granularity"))
		assert.Equal(t, "1632009600000", r.URL.Query().Get("from"))
		assert.Equal(t, "1632182400001", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		body := `{"code":"200000","data":[[1632009600000,48300,48340.5,46880,47274.5,34445.799],[1632096000000,47274.5,47342,42500,43057,91656.427]]}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	kucoin := NewKucoin()
	kucoin.futuresAPIURL = server.URL

	start := int64(1632009600000)
	end := int64(1632182400000)
	candles, err := kucoin.FuturesKline(context.Background(), KlineQuery{
		Base:      "XBT",
		Quote:     "USDTM",
		Interval:  models.IntervalOneDay,
		StartTime: &start,
		EndTime:   &end,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1632009600000), candles[0].Timestamp)
	assert.True(t, decimal.RequireFromString("48300").Equal(candles[0].Open))
	assert.True(t, decimal.RequireFromString("48340.5").Equal(candles[0].High))
	assert.True(t, decimal.RequireFromString("46880").Equal(candles[0].Low))
	assert.True(t, decimal.RequireFromString("47274.5").Equal(candles[0].Close))
}
