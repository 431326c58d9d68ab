package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// APIError is returned when an exchange answers with an explicit error
// envelope (a code and a non-empty message) instead of data. It is the only
// error an adapter surfaces to callers; transport and shape failures degrade
// to empty results.
type APIError struct {
	URL  string
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request to %q failed. Code: %s; Message: %s", e.URL, e.Code, e.Msg)
}

// errorEnvelope matches the code+msg shape shared by binance, gateio and
// okx error responses. Bybit reports retCode/retMsg and is handled as data.
type errorEnvelope struct {
	Code json.Number `json:"code"`
	Msg  string      `json:"msg"`
}

const requestTimeout = 10 * time.Second

// httpClient is the shared public-request layer for all adapters: one GET
// per call, a fixed short timeout, envelope detection, and JSON decoding
// into the adapter's response type.
type httpClient struct {
	c *http.Client
}

func newHTTPClient() *httpClient {
	return &httpClient{c: &http.Client{Timeout: requestTimeout}}
}

// getJSON performs a public GET and decodes the body into out. The response
// headers are returned so adapters can read authoritative weight counters.
// A decoded code+msg envelope with a non-empty message becomes *APIError;
// any other failure is returned as-is for the adapter to degrade on.
func (h *httpClient) getJSON(ctx context.Context, apiURL, path string, params url.Values, out any) (http.Header, error) {
	endpoint := apiURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	logrus.WithField("url", endpoint).Debug("Requesting exchange endpoint")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if isAPIError, apiErr := detectEnvelope(endpoint, body); isAPIError {
		return resp.Header, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.Header, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return resp.Header, nil
}

// detectEnvelope reports whether the body is an explicit error envelope.
func detectEnvelope(endpoint string, body []byte) (bool, *APIError) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false, nil
	}
	var env errorEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return false, nil
	}
	if env.Msg == "" {
		return false, nil
	}
	return true, &APIError{URL: endpoint, Code: env.Code.String(), Msg: env.Msg}
}
