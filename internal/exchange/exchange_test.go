package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ecoppen/freqdash/internal/models"
)

func TestNoPriceSentinel(t *testing.T) {
	assert.True(t, NoPrice(decimal.NewFromInt(-1)))
	assert.False(t, NoPrice(decimal.NewFromInt(0)))
	assert.False(t, NoPrice(decimal.RequireFromString("16599.59")))
}

func TestKlineQueryLimit(t *testing.T) {
	assert.Equal(t, DefaultKlineLimit, KlineQuery{}.limit())
	assert.Equal(t, 3, KlineQuery{Limit: 3}.limit())
}

func TestSortCandlesAscending(t *testing.T) {
	candles := []models.Candle{
		{Timestamp: 1632182400000},
		{Timestamp: 1632009600000},
		{Timestamp: 1632096000000},
	}
	sorted := sortCandles(candles)
	assert.Equal(t, int64(1632009600000), sorted[0].Timestamp)
	assert.Equal(t, int64(1632096000000), sorted[1].Timestamp)
	assert.Equal(t, int64(1632182400000), sorted[2].Timestamp)
}

func TestTruncate(t *testing.T) {
	candles := []models.Candle{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 3}}
	assert.Len(t, truncate(candles, 2), 2)
	assert.Len(t, truncate(candles, 5), 3)
	assert.Len(t, truncate(candles, 0), 3)
}

func TestClipEnd(t *testing.T) {
	candles := []models.Candle{{Timestamp: 100}, {Timestamp: 200}, {Timestamp: 300}}

	assert.Len(t, clipEnd(candles, nil), 3)

	end := int64(200)
	clipped := clipEnd([]models.Candle{{Timestamp: 100}, {Timestamp: 200}, {Timestamp: 300}}, &end)
	assert.Len(t, clipped, 2)
	assert.Equal(t, int64(200), clipped[1].Timestamp)
}

func TestIntervalTablesCoverEveryCanonicalInterval(t *testing.T) {
	tables := map[string]func(models.Interval) (string, bool){
		"binance": func(iv models.Interval) (string, bool) { s, ok := binanceIntervals[iv]; return s, ok },
		"bybit spot": func(iv models.Interval) (string, bool) {
			s, ok := bybitSpotIntervals[iv]
			return s, ok
		},
		"bybit futures": func(iv models.Interval) (string, bool) {
			s, ok := bybitFuturesIntervals[iv]
			return s, ok
		},
		"gateio": func(iv models.Interval) (string, bool) { s, ok := gateioIntervals[iv]; return s, ok },
		"kucoin spot": func(iv models.Interval) (string, bool) {
			s, ok := kucoinSpotIntervals[iv]
			return s, ok
		},
		"okx": func(iv models.Interval) (string, bool) { s, ok := okxBars[iv]; return s, ok },
	}

	for name, lookup := range tables {
		for _, iv := range models.Intervals() {
			code, ok := lookup(iv)
			assert.True(t, ok, "%s has no code for %s", name, iv)
			assert.NotEmpty(t, code, "%s maps %s to an empty code", name, iv)
		}
	}
	for _, iv := range models.Intervals() {
		_, ok := kucoinFuturesGranularity[iv]
		assert.True(t, ok, "kucoin futures has no granularity for %s", iv)
	}
	for _, iv := range models.Intervals() {
		_, ok := intervalDurations[iv]
		assert.True(t, ok, "no duration for %s", iv)
	}
}

func TestIntervalTablesHaveDistinctCodes(t *testing.T) {
	tables := map[string]map[models.Interval]string{
		"binance":       binanceIntervals,
		"bybit spot":    bybitSpotIntervals,
		"bybit futures": bybitFuturesIntervals,
		"gateio":        gateioIntervals,
		"kucoin spot":   kucoinSpotIntervals,
		"okx":           okxBars,
	}

	for name, table := range tables {
		seen := make(map[string]models.Interval, len(table))
		for iv, code := range table {
			if prev, dup := seen[code]; dup {
				t.Errorf("%s maps both %s and %s to %q", name, prev, iv, code)
			}
			seen[code] = iv
		}
	}

	seen := make(map[int]models.Interval, len(kucoinFuturesGranularity))
	for iv, granularity := range kucoinFuturesGranularity {
		if prev, dup := seen[granularity]; dup {
			t.Errorf("kucoin futures maps both %s and %s to %d", prev, iv, granularity)
		}
		seen[granularity] = iv
	}
}

func TestSymbolHelpers(t *testing.T) {
	assert.Equal(t, "BTCUSDT", symbol("btc", "usdt"))
	assert.Equal(t, "BTC_USDT", gateioPair("btc", "usdt"))
	assert.Equal(t, "BTC-USDT", kucoinSpotSymbol("btc", "usdt"))
	assert.Equal(t, "BTC-USDT-SWAP", okxSwapInstID("btc", "usdt"))
	assert.Equal(t, "BTCUSDT", okxSymbol("BTC-USDT-SWAP"))
	assert.Equal(t, "BTCUSDT", okxSymbol("BTC-USDT"))
}
