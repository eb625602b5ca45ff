package orbsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 8 << 20

// Client is the REST client for the odds aggregation backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client.
//
// baseURL is the API root, e.g. "https://api.example.com/prod". A trailing
// slash is ignored.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchOdds reads GET {base}/odds. The returned error wraps one of
// domain.ErrUpstreamTransport, domain.ErrUpstreamStatus or
// domain.ErrUpstreamMalformed.
func (c *Client) FetchOdds(ctx context.Context) (domain.OddsSnapshot, error) {
	body, err := c.doGet(ctx, "/odds")
	if err != nil {
		return domain.OddsSnapshot{}, fmt.Errorf("orbsapi: get odds: %w", err)
	}

	var resp APIOddsResponse
	if err := decodeObject(body, &resp); err != nil {
		return domain.OddsSnapshot{}, fmt.Errorf("orbsapi: decode odds: %w", err)
	}

	return resp.ToDomainSnapshot(), nil
}

// FetchArbitrage reads GET {base}/arbitrage. Errors wrap the same sentinels
// as FetchOdds.
func (c *Client) FetchArbitrage(ctx context.Context) (domain.ArbitrageSnapshot, error) {
	body, err := c.doGet(ctx, "/arbitrage")
	if err != nil {
		return domain.ArbitrageSnapshot{}, fmt.Errorf("orbsapi: get arbitrage: %w", err)
	}

	var resp APIArbitrageResponse
	if err := decodeObject(body, &resp); err != nil {
		return domain.ArbitrageSnapshot{}, fmt.Errorf("orbsapi: decode arbitrage: %w", err)
	}

	return resp.ToDomainSnapshot(), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet performs a GET request that bypasses intermediary caches.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrUpstreamTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstreamTransport, err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to domain.ErrUpstreamStatus.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = apiErr.Message
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: not found: %s", domain.ErrUpstreamStatus, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited: %s", domain.ErrUpstreamStatus, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamStatus, statusCode, msg)
	}
}

// decodeObject unmarshals body into v, requiring a JSON object at the top level.
func decodeObject(body []byte, v any) error {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("%w: expected JSON object", domain.ErrUpstreamMalformed)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err)
	}
	return nil
}
