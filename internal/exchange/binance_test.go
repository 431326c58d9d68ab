package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoppen/freqdash/internal/models"
)

func TestBinanceAttributes(t *testing.T) {
	binance := NewBinance()
	assert.Equal(t, models.ExchangeBinance, binance.Name())
	assert.Equal(t, "https://www.binance.com/en/trade/BASE_QUOTE", binance.SpotTradeURL())
	assert.Equal(t, "https://www.binance.com/en/futures/BASEQUOTE", binance.FuturesTradeURL())
	assert.Equal(t, 0, binance.Weight())
	assert.Equal(t, 1000, binance.MaxWeight())
}

func TestBinanceSpotPriceTracksWeightHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(usedWeightHeader, "7")
		if _, err := w.Write([]byte(`{"symbol":"BTCUSDT","price":"16599.59"}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	binance := NewBinance()
	binance.spotAPIURL = server.URL

	price, err := binance.SpotPrice(context.Background(), "BTC", "USDT")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("16599.59").Equal(price))
	assert.Equal(t, 7, binance.Weight())
}

func TestBinanceSpotPriceMissingFieldDegradesToSentinel(t *testing.T) {
	server := fixtureServer(t, map[string]string{"/api/v3/ticker/price": `{"symbol":"BTCUSDT"}`})
	defer server.Close()

	binance := NewBinance()
	binance.spotAPIURL = server.URL

	price, err := binance.SpotPrice(context.Background(), "BTC", "USDT")
	require.NoError(t, err)
	assert.True(t, NoPrice(price))
}

func TestBinanceSpotPriceTransportErrorDegradesToSentinel(t *testing.T) {
	binance := NewBinance()
	binance.spotAPIURL = "http://127.0.0.1:1"

	price, err := binance.SpotPrice(context.Background(), "BTC", "USDT")
	require.NoError(t, err)
	assert.True(t, NoPrice(price))
}

func TestBinanceRejectionSurfacesAPIError(t *testing.T) {
	server := fixtureServer(t, map[string]string{
		"/api/v3/ticker/price": `{"code":-1121,"msg":"Invalid symbol."}`,
	})
	defer server.Close()

	binance := NewBinance()
	binance.spotAPIURL = server.URL

	price, err := binance.SpotPrice(context.Background(), "NOPE", "USDT")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "-1121", apiErr.Code)
	assert.Equal(t, "Invalid symbol.", apiErr.Msg)
	assert.True(t, NoPrice(price))
}

func TestBinanceSpotPrices(t *testing.T) {
	server := fixtureServer(t, map[string]string{
		"/api/v3/ticker/price": `[{"symbol":"BTCUSDT","price":"16599.59"},{"symbol":"ETHUSDT","price":"1196.06"}]`,
	})
	defer server.Close()

	binance := NewBinance()
	binance.spotAPIURL = server.URL

	prices, err := binance.SpotPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "BTCUSDT", prices[0].Symbol)
	assert.True(t, decimal.RequireFromString("1196.06").Equal(prices[1].Price))
}

func TestBinanceSpotKlineParsesMixedRows(t *testing.T) {
	server := fixtureServer(t, map[string]string{
		"/api/v3/klines": `[[1632009600000,"48272.38","48328.80","46864.83","47252.31","180.834669",1632095999999,"8600337.21",100,"90.1","4300168.6","0"],[1632096000000,"47252.31","47338.82","42523.37","43049.82","531.465973",1632182399999,"23400000.00",200,"265.7","11700000.0","0"]]`,
	})
	defer server.Close()

	binance := NewBinance()
	binance.spotAPIURL = server.URL

	candles, err := binance.SpotKline(context.Background(), KlineQuery{
		Base:     "BTC",
		Quote:    "USDT",
		Interval: models.IntervalOneDay,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1632009600000), candles[0].Timestamp)
	assert.True(t, decimal.RequireFromString("48272.38").Equal(candles[0].Open))
	assert.True(t, decimal.RequireFromString("48328.80").Equal(candles[0].High))
	assert.True(t, decimal.RequireFromString("46864.83").Equal(candles[0].Low))
	assert.True(t, decimal.RequireFromString("47252.31").Equal(candles[0].Close))
	assert.True(t, decimal.RequireFromString("180.834669").Equal(candles[0].Volume))
}

func TestBinanceFuturesKlineUsesFapiPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`[]`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	binance := NewBinance()
	binance.futuresAPIURL = server.URL

	candles, err := binance.FuturesKline(context.Background(), KlineQuery{
		Base:     "BTC",
		Quote:    "USDT",
		Interval: models.IntervalOneDay,
	})
	require.NoError(t, err)
	assert.Empty(t, candles)
}
