package exchange

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecoppen/freqdash/internal/models"
)

// base carries the identity and plumbing shared by every adapter: URLs,
// trade-URL templates, the rate-budget limiter and the request layer.
type base struct {
	name            models.ExchangeName
	spotAPIURL      string
	futuresAPIURL   string
	spotTradeURL    string
	futuresTradeURL string

	*limiter
	http *httpClient
}

func (b *base) Name() models.ExchangeName { return b.name }

func (b *base) SpotTradeURL() string { return b.spotTradeURL }

func (b *base) FuturesTradeURL() string { return b.futuresTradeURL }

// symbol builds the canonical no-separator symbol.
func symbol(baseCur, quote string) string {
	return strings.ToUpper(baseCur) + strings.ToUpper(quote)
}

// rawDecimal parses a kline array cell that may be a JSON string or a bare
// number.
func rawDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// rawInt64 parses a kline timestamp cell that may be quoted or bare.
func rawInt64(raw json.RawMessage) (int64, bool) {
	d, ok := rawDecimal(raw)
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}
