package freqtrade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"identity": map[string]string{"u": "freqtrader"},
		"exp":      exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestLoginStoresAccessToken(t *testing.T) {
	access := signedToken(t, time.Now().Add(15*time.Minute))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/token/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "freqtrader", user)
		assert.Equal(t, "hunter2", pass)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"access_token": access, "refresh_token": "r"}); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "freqtrader", "hunter2")
	token := client.Login(context.Background())
	assert.Equal(t, access, token)
	assert.True(t, client.TokenValid())
}

func TestLoginFailureYieldsSentinel(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "error body", body: `{"detail":"Unauthorized"}`},
		{name: "not json", body: `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			client := NewClient(server.URL, "u", "p")
			token := client.Login(context.Background())
			assert.Equal(t, NoToken, token)
			assert.False(t, client.TokenValid())
		})
	}
}

func TestLoginUnreachableYieldsSentinel(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "u", "p")
	assert.Equal(t, NoToken, client.Login(context.Background()))
}

func TestTokenValidExpiry(t *testing.T) {
	client := NewClient("http://localhost", "u", "p")

	client.token = signedToken(t, time.Now().Add(-time.Minute))
	assert.False(t, client.TokenValid())

	client.token = signedToken(t, time.Now().Add(time.Minute))
	assert.True(t, client.TokenValid())

	client.ClearToken()
	assert.False(t, client.TokenValid())
}

func TestShowConfig(t *testing.T) {
	access := signedToken(t, time.Now().Add(15*time.Minute))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/show_config", r.URL.Path)
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		body := `{"version":"2023.1","strategy_version":"v1.4","strategy":"NostalgiaForInfinityX","state":"running","stake_currency":"USDT","trading_mode":"spot","runmode":"live","exchange":"binance","max_open_trades":6}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	client.token = access

	cfg, err := client.ShowConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2023.1", cfg.Version)
	assert.Equal(t, "NostalgiaForInfinityX", cfg.Strategy)
	assert.Equal(t, "USDT", cfg.StakeCurrency)
	assert.Equal(t, "live", cfg.RunMode)
	assert.Equal(t, "binance", cfg.Exchange)
}

func TestShowConfigMissingVersionIsZeroValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"detail":"maintenance"}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	cfg, err := client.ShowConfig(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.Version)
}

func TestGetClosedTradesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/trades", r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "17", r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		body := `{"trades":[{"trade_id":18,"pair":"BTC/USDT","base_currency":"BTC","quote_currency":"USDT","exchange":"binance","is_open":false,"amount":0.001,"stake_amount":20.5,"profit_abs":1.25,"enter_tag":"buy_signal","fee_open_cost":0.02,"fee_open_currency":"USDT","fee_close_cost":0.02,"fee_close_currency":"USDT","open_timestamp":1672300000000,"open_rate":16500.0,"close_timestamp":1672310000000,"close_rate":16600.0,"exit_reason":"roi","stop_loss_abs":15000.0,"leverage":1.0,"is_short":false,"trading_mode":"spot","funding_fees":0.0,"orders":[{"order_id":"1234","amount":0.001,"filled":0.001,"ft_order_side":"buy","order_type":"limit","order_timestamp":1672300000000,"order_filled_timestamp":1672300005000,"ft_is_entry":true,"status":"closed","average":16500.0}]}],"trades_count":1,"offset":17,"total_trades":18}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	trades, err := client.GetClosedTrades(context.Background(), 17)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, int64(18), trade.TradeID)
	assert.Equal(t, "BTC/USDT", trade.Pair)
	assert.False(t, trade.IsOpen)
	assert.True(t, decimal.RequireFromString("20.5").Equal(trade.StakeAmount))
	require.NotNil(t, trade.CloseRate)
	assert.True(t, decimal.RequireFromString("16600.0").Equal(*trade.CloseRate))
	require.NotNil(t, trade.ExitReason)
	assert.Equal(t, "roi", *trade.ExitReason)
	require.Len(t, trade.Orders, 1)
	assert.Equal(t, "1234", trade.Orders[0].OrderID)
	assert.Equal(t, "buy", trade.Orders[0].OrderSide)
	require.NotNil(t, trade.Orders[0].IsEntry)
	assert.True(t, *trade.Orders[0].IsEntry)
}

func TestGetOpenTradesBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/status", r.URL.Path)
		body := `[{"trade_id":19,"pair":"ETH/USDT","base_currency":"ETH","quote_currency":"USDT","exchange":"binance","is_open":true,"amount":0.01,"stake_amount":12.0,"profit_abs":-0.2,"enter_tag":"","fee_open_cost":0.01,"fee_open_currency":"USDT","open_timestamp":1672320000000,"open_rate":1200.0,"stop_loss_abs":1100.0,"leverage":1.0,"is_short":false,"trading_mode":"spot","funding_fees":0.0,"orders":[]}]`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	trades, err := client.GetOpenTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].IsOpen)
	assert.Nil(t, trades[0].CloseTimestamp)
	assert.Nil(t, trades[0].CloseRate)
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/balance", r.URL.Path)
		body := `{"currencies":[{"currency":"USDT","free":950.5,"balance":1000.0,"used":49.5},{"currency":"BTC","free":0.001,"balance":0.001,"used":0}],"total":1016.6,"starting_capital":1000.0,"starting_capital_ratio":0.0166}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	require.Len(t, balance.Currencies, 2)
	assert.Equal(t, "USDT", balance.Currencies[0].Currency)
	assert.True(t, decimal.RequireFromString("950.5").Equal(balance.Currencies[0].Free))
	require.NotNil(t, balance.StartingCapital)
	assert.True(t, decimal.RequireFromString("1000.0").Equal(*balance.StartingCapital))
}

func TestGetLogsPositionalRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/logs", r.URL.Path)
		body := `{"logs":[["2022-12-29 12:00:00",1672315200000.123,"freqtrade.worker","INFO","Bot heartbeat"],["2022-12-29 12:00:05",1672315205000.4,"freqtrade.strategy","WARNING","Pair ETH/USDT not tradable"]],"log_count":2}`
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	logs, err := client.GetLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(1672315200000), logs[0].Timestamp)
	assert.Equal(t, "freqtrade.worker", logs[0].Name)
	assert.Equal(t, "INFO", logs[0].Level)
	assert.Equal(t, "Bot heartbeat", logs[0].Message)
	assert.Equal(t, "WARNING", logs[1].Level)
}

func TestGetWhitelistAndBlacklist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/whitelist":
			if _, err := w.Write([]byte(`{"whitelist":["BTC/USDT","ETH/USDT"],"length":2,"method":["StaticPairList"]}`)); err != nil {
				t.Errorf("Failed to write response: %v", err)
			}
		case "/api/v1/blacklist":
			if _, err := w.Write([]byte(`{"blacklist":["DOGE/USDT"],"length":1}`)); err != nil {
				t.Errorf("Failed to write response: %v", err)
			}
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	white, err := client.GetWhitelist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, white)

	black, err := client.GetBlacklist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGE/USDT"}, black)
}

func TestGetHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		if _, err := w.Write([]byte(`{"last_process":"2022-12-29T12:00:00+00:00","last_process_ts":1672315200.25}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	health, err := client.GetHealth(context.Background())
	require.NoError(t, err)
	require.NotNil(t, health.LastProcessTS)
	assert.InDelta(t, 1672315200.25, *health.LastProcessTS, 0.001)
}

func TestGetUsesBasicAuthWhenTokenUnusable(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Minute))
	tests := []struct {
		name  string
		token string
	}{
		{name: "sentinel", token: NoToken},
		{name: "not a jwt", token: "mytoken"},
		{name: "expired", token: expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				require.True(t, ok)
				assert.Equal(t, "u", user)
				assert.Equal(t, "p", pass)
				if _, err := w.Write([]byte(`{"version":"2023.1"}`)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			client := NewClient(server.URL, "u", "p")
			client.token = tt.token

			cfg, err := client.ShowConfig(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "2023.1", cfg.Version)
		})
	}
}

func TestGetErrorStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "u", "p")
	_, err := client.ShowConfig(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
