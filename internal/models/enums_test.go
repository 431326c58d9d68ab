package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMarket(t *testing.T) {
	market, ok := ParseMarket("SPOT")
	assert.True(t, ok)
	assert.Equal(t, MarketSpot, market)

	_, ok = ParseMarket("MARGIN")
	assert.False(t, ok)

	_, ok = ParseMarket("spot")
	assert.False(t, ok)
}

func TestParseInterval(t *testing.T) {
	interval, ok := ParseInterval("4h")
	assert.True(t, ok)
	assert.Equal(t, IntervalFourHours, interval)

	_, ok = ParseInterval("3m")
	assert.False(t, ok)
}

func TestParseSettleAllowsEmpty(t *testing.T) {
	settle, ok := ParseSettle("")
	assert.True(t, ok)
	assert.Equal(t, Settle(""), settle)

	_, ok = ParseSettle("eur")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Binance", DisplayName("binance"))
	assert.Equal(t, "Kucoin", DisplayName("kucoin"))
	assert.Equal(t, "OKX", DisplayName("okx"))
}
