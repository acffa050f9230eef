package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

const (
	DefaultEtherscanV2URL = "https://api.etherscan.io/v2/api"
	DefaultPageSize       = 200
	DefaultRetries        = 3
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultTimeout        = 30 * time.Second
	DefaultLimit          = 1000

	flareNetwork = "flare"
)

// ErrAPIStatus is returned when the explorer answers but reports a failure,
// for example a bad API key or rate limiting.
var ErrAPIStatus = errors.New("explorer returned an error status")

// Client talks to Etherscan-compatible explorer APIs: the Etherscan v2
// multi-chain endpoint for every network, and for Flare its own Blockscout
// explorer as well.
type Client struct {
	httpClient     *http.Client
	etherscanV2URL string
	apiKey         string
	networks       map[string]config.NetworkConfig
	pageSize       int
	retries        int
	retryDelay     time.Duration
	tokenTransfers bool
}

func NewClient(cfg config.ExplorerConfig, networks map[string]config.NetworkConfig) *Client {
	c := &Client{
		etherscanV2URL: cfg.EtherscanV2URL,
		apiKey:         cfg.APIKey,
		networks:       networks,
		pageSize:       cfg.PageSize,
		retries:        cfg.Retries,
		retryDelay:     time.Duration(cfg.RetryDelay) * time.Millisecond,
		tokenTransfers: cfg.TokenTransfers,
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout}
	if c.etherscanV2URL == "" {
		c.etherscanV2URL = DefaultEtherscanV2URL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.retries <= 0 {
		c.retries = DefaultRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	return c
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (r apiResponse) list() ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if len(r.Result) == 0 || r.Result[0] != '[' {
		return nil, false
	}
	if err := json.Unmarshal(r.Result, &items); err != nil {
		return nil, false
	}
	return items, true
}

// resultText returns the result when it is a plain string, which is where
// Etherscan puts its error details.
func (r apiResponse) resultText() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return ""
}

func (c *Client) network(name string) (config.NetworkConfig, error) {
	nc, ok := c.networks[strings.ToLower(name)]
	if !ok {
		return config.NetworkConfig{}, fmt.Errorf("unsupported network %q", name)
	}
	return nc, nil
}

// get performs one explorer call with retries on transport errors and 5xx
// answers. API level failures are returned as they are.
func (c *Client) get(ctx context.Context, network, baseURL string, params url.Values) (apiResponse, error) {
	action := params.Get("action")
	metrics.ExplorerRequests.WithLabelValues(network, action).Inc()
	start := time.Now()
	defer func() {
		metrics.ExplorerRequestDuration.WithLabelValues(network).Observe(time.Since(start).Seconds())
	}()

	reqURL := baseURL + "?" + params.Encode()
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.retryDelay*time.Duration(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}
		resp, err := c.do(ctx, reqURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Debug().Err(err).Str("network", network).Str("action", action).Int("attempt", attempt).Msg("explorer request failed")
	}
	metrics.ExplorerFailures.WithLabelValues(network, action).Inc()
	return apiResponse{}, fmt.Errorf("explorer %s %s: %w", network, action, lastErr)
}

func (c *Client) do(ctx context.Context, reqURL string) (apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apiResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiResponse{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return apiResponse{}, fmt.Errorf("couldn't unmarshal %s: %w", truncate(string(body), 200), err)
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func accountParams(action, wallet string, page, offset int) url.Values {
	return url.Values{
		"module":     {"account"},
		"action":     {action},
		"address":    {wallet},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {strconv.Itoa(page)},
		"offset":     {strconv.Itoa(offset)},
		"sort":       {"desc"},
	}
}
