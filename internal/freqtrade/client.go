package freqtrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/ecoppen/freqdash/internal/models"
)

// NoToken is the sentinel stored when login fails. Requests still go out
// with basic auth, because some instances allow unauthenticated or
// basic-auth reads even when the token endpoint is broken.
const NoToken = "no_jwt_retrieved"

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 15 * time.Second

	// ClosedTradePageLimit is the page size for the trades endpoint.
	ClosedTradePageLimit = 500
)

// Client talks to one remote bot instance's private REST API, reachable on
// the tunnel's local bind address. It is rebuilt each reconciliation cycle
// and holds that cycle's bearer token.
type Client struct {
	baseURL  string
	username string
	password string
	token    string
	http     *http.Client
}

// NewClient constructs a client for the API at baseURL (scheme://host:port).
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// Login exchanges the basic-auth credentials for a bearer token and returns
// it. Any failure stores and returns the NoToken sentinel; the caller
// proceeds best-effort.
func (c *Client) Login(ctx context.Context) string {
	c.token = NoToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/token/login", nil)
	if err != nil {
		logrus.WithError(err).Warn("Failed to create login request")
		return c.token
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("url", c.baseURL).Warn("Login request failed")
		return c.token
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing response body")
		}
	}()

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		logrus.WithError(err).Warn("Failed to decode login response")
		return c.token
	}
	if payload.AccessToken != "" {
		c.token = payload.AccessToken
	}
	return c.token
}

// Token returns the current bearer token, which may be the NoToken sentinel.
func (c *Client) Token() string { return c.token }

// TokenValid reports whether the stored token is a real JWT that has not
// expired. The signature is not checked; only the remote can verify it.
func (c *Client) TokenValid() bool {
	if c.token == "" || c.token == NoToken {
		return false
	}
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(c.token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(time.Now())
}

// ClearToken drops the bearer token at tunnel teardown.
func (c *Client) ClearToken() { c.token = "" }

// get performs one authenticated GET and decodes the body into out. A
// missing or unexpected body shape is the caller's concern; transport and
// status failures are returned as plain errors.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	logrus.WithField("url", endpoint).Debug("Requesting instance endpoint")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// An expired or sentinel token falls back to basic auth rather than
	// guaranteeing a 401.
	if c.TokenValid() {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing response body")
		}
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("instance returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// ShowConfig fetches the instance configuration. A response without the
// version field decodes to a zero Config and no error.
func (c *Client) ShowConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := c.get(ctx, "/show_config", nil, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GetSysinfo fetches the instance's resource sample.
func (c *Client) GetSysinfo(ctx context.Context) (Sysinfo, error) {
	var info Sysinfo
	if err := c.get(ctx, "/sysinfo", nil, &info); err != nil {
		return Sysinfo{}, err
	}
	return info, nil
}

// GetClosedTrades pages the trade history starting at offset. Trade ids are
// monotonic on the remote, so the caller passes its oldest stored open
// trade id to skip history it already holds.
func (c *Client) GetClosedTrades(ctx context.Context, offset int64) ([]models.Trade, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(ClosedTradePageLimit))
	params.Set("offset", strconv.FormatInt(offset, 10))
	var payload struct {
		Trades []models.Trade `json:"trades"`
	}
	if err := c.get(ctx, "/trades", params, &payload); err != nil {
		return nil, err
	}
	return payload.Trades, nil
}

// GetOpenTrades fetches the currently open trades from the status endpoint,
// which returns a bare array.
func (c *Client) GetOpenTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := c.get(ctx, "/status", nil, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// GetBalance fetches the balance sheet and starting capital.
func (c *Client) GetBalance(ctx context.Context) (Balance, error) {
	var balance Balance
	if err := c.get(ctx, "/balance", nil, &balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// GetLogs fetches the remote log buffer.
func (c *Client) GetLogs(ctx context.Context) ([]LogLine, error) {
	var payload struct {
		Logs []LogLine `json:"logs"`
	}
	if err := c.get(ctx, "/logs", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Logs, nil
}

// GetLocks fetches the active pair locks.
func (c *Client) GetLocks(ctx context.Context) ([]Lock, error) {
	var payload struct {
		Locks []Lock `json:"locks"`
	}
	if err := c.get(ctx, "/locks", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Locks, nil
}

// GetWhitelist fetches the pair whitelist.
func (c *Client) GetWhitelist(ctx context.Context) ([]string, error) {
	var payload struct {
		Whitelist []string `json:"whitelist"`
	}
	if err := c.get(ctx, "/whitelist", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Whitelist, nil
}

// GetBlacklist fetches the pair blacklist.
func (c *Client) GetBlacklist(ctx context.Context) ([]string, error) {
	var payload struct {
		Blacklist []string `json:"blacklist"`
	}
	if err := c.get(ctx, "/blacklist", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Blacklist, nil
}

// GetHealth fetches the last-process heartbeat.
func (c *Client) GetHealth(ctx context.Context) (Health, error) {
	var health Health
	if err := c.get(ctx, "/health", nil, &health); err != nil {
		return Health{}, err
	}
	return health, nil
}
