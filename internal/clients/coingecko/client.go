// Package coingecko provides a client for the CoinGecko public API
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultRelayURL  = "https://api.allorigins.win/raw?url="
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	apiKeyHeader = "x-cg-demo-api-key"
	maxErrorBody = 512
)

// Client talks to CoinGecko either directly or through a relay that takes the
// full endpoint URL as an encoded suffix.
type Client struct {
	baseURL    string
	relayURL   string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRelay routes every request through the given relay prefix.
func WithRelay(relayURL string) ClientOption {
	return func(c *Client) {
		c.relayURL = relayURL
	}
}

// WithAPIKey sets the demo API key. It is only sent on direct requests.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new CoinGecko client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the transport.
func (c *Client) Name() string {
	if c.relayURL != "" {
		return "relay"
	}
	return "direct"
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// requestURL builds the URL actually dialled for an endpoint.
func (c *Client) requestURL(path string, params url.Values) string {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	if c.relayURL == "" {
		return endpoint
	}
	return c.relayURL + url.QueryEscape(endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(path, params), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" && c.relayURL == "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("transport", c.Name()).Str("endpoint", path).Dur("elapsed", elapsed).Msg("CoinGecko request failed")
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().Str("transport", c.Name()).Str("endpoint", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("CoinGecko non-OK response")
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug().Str("transport", c.Name()).Str("endpoint", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("CoinGecko API call")

	return nil
}

// SimplePrice calls /simple/price for a batch of ids in one request.
func (c *Client) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]map[string]float64, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", vsCurrency)

	var out map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", params, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("failed to decode response: empty price body")
	}
	return out, nil
}

// CoinsList calls /coins/list, the full asset listing.
func (c *Client) CoinsList(ctx context.Context) ([]models.Coin, error) {
	var coins []models.Coin
	if err := c.get(ctx, "/coins/list", nil, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

type searchResponse struct {
	Coins []models.SearchCoin `json:"coins"`
}

// Search calls /search for free-text asset discovery.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchCoin, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp searchResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Coins, nil
}

// Ensure Client implements the client interfaces
var (
	_ interfaces.PriceSource = (*Client)(nil)
	_ interfaces.CoinCatalog = (*Client)(nil)
)
