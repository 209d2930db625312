// Package yahoo provides a market-data client for last-close price lookups.
// Responses are cached through the clientdata repository so repeated lookups
// within the TTL window never hit the network.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/clientdata"
)

// ErrNoData indicates the symbol exists but returned an empty price series.
type ErrNoData struct {
	Symbol string
}

func (e ErrNoData) Error() string {
	return fmt.Sprintf("no price data for symbol %s", e.Symbol)
}

// ErrSymbolNotFound indicates the upstream source does not know the symbol.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}

// Client fetches daily close prices from the Yahoo chart API.
type Client struct {
	baseURL   string
	client    *http.Client
	cacheRepo *clientdata.Repository
	ttl       time.Duration
	log       zerolog.Logger
}

// NewClient creates a new chart API client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *Client {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 5 * time.Second},
		cacheRepo: cacheRepo,
		ttl:       ttl,
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResponse mirrors the subset of the chart API payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	} `json:"chart"`
}

// GetLastClose returns the most recent daily close over a 5-day lookback.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) GetLastClose(ctx context.Context, symbol string) (float64, error) {
	last, _, err := c.GetLastTwoCloses(ctx, symbol)
	return last, err
}

// GetLastTwoCloses returns the two most recent daily closes. The previous
// close is 0 when only a single session is available in the lookback window.
func (c *Client) GetLastTwoCloses(ctx context.Context, symbol string) (float64, float64, error) {
	if c.cacheRepo != nil {
		cached, err := c.cacheRepo.GetIfFresh(symbol, c.ttl)
		if err == nil && cached != nil {
			c.log.Debug().Str("symbol", symbol).Float64("price", cached.Price).Msg("Cache hit")
			return cached.Price, cached.Previous, nil
		}
	}

	last, prev, err := c.fetch(ctx, symbol)
	if err != nil {
		// API failed - stale cached data beats no data
		if stale, ok := c.getStaleFromCache(symbol); ok {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Float64("price", stale.Price).
				Msg("API failed, using stale cached quote")
			return stale.Price, stale.Previous, nil
		}
		return 0, 0, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(symbol, clientdata.Quote{Price: last, Previous: prev}); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	return last, prev, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (float64, float64, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "portfoy/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, 0, ErrSymbolNotFound{Symbol: symbol}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil && result.Chart.Error.Code == "Not Found" {
		return 0, 0, ErrSymbolNotFound{Symbol: symbol}
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, 0, ErrNoData{Symbol: symbol}
	}

	// Walk the series backwards; null entries appear for sessions that have
	// not closed yet.
	closes := result.Chart.Result[0].Indicators.Quote[0].Close
	var values []float64
	for i := len(closes) - 1; i >= 0 && len(values) < 2; i-- {
		if closes[i] != nil {
			values = append(values, *closes[i])
		}
	}

	if len(values) == 0 {
		return 0, 0, ErrNoData{Symbol: symbol}
	}

	last := values[0]
	prev := 0.0
	if len(values) > 1 {
		prev = values[1]
	}
	return last, prev, nil
}

func (c *Client) getStaleFromCache(symbol string) (*clientdata.Quote, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	stale, err := c.cacheRepo.GetStale(symbol)
	if err != nil || stale == nil {
		return nil, false
	}
	return stale, true
}
