// Package exchangerate fetches spot and historical FX rates from the
// frankfurter.app API, with persistent TTL caching of spot rates.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/clientdata"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Client implements domain.FXProvider against frankfurter.app
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a frankfurter.app client.
// cacheRepo is optional - if nil, caching is disabled
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.frankfurter.app"
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedExchangeRate is the structure stored in the cache
type cachedExchangeRate struct {
	Rate float64 `json:"rate"`
}

// GetCurrentRate fetches the spot rate, cache-first. When the API fails a
// stale cached rate is served instead (stale data > no data); with neither
// available it returns nil without error.
func (c *Client) GetCurrentRate(from, to string) (*decimal.Decimal, error) {
	if from == to {
		one := decimal.NewFromInt(1)
		return &one, nil
	}

	cacheKey := from + ":" + to

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("exchangerate", cacheKey)
		if err == nil && data != nil {
			var cached cachedExchangeRate
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().
					Str("from", from).
					Str("to", to).
					Float64("rate", cached.Rate).
					Msg("Cache hit")
				rate := decimal.NewFromFloat(cached.Rate)
				return &rate, nil
			}
		}
	}

	rate, err := c.fetchSpot(from, to)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Err(err).
				Str("from", from).
				Str("to", to).
				Float64("rate", stale).
				Msg("API failed, using stale cached rate")
			d := decimal.NewFromFloat(stale)
			return &d, nil
		}
		c.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Spot rate unavailable")
		return nil, nil
	}

	if c.cacheRepo != nil {
		cached := cachedExchangeRate{Rate: rate}
		if err := c.cacheRepo.Store("exchangerate", cacheKey, cached, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Str("pair", cacheKey).Msg("Failed to cache exchange rate")
		}
	}

	c.log.Info().
		Str("from", from).
		Str("to", to).
		Float64("rate", rate).
		Msg("Fetched rate")

	d := decimal.NewFromFloat(rate)
	return &d, nil
}

// GetHistoricalRates fetches a daily rate series for [start, end]. The API
// only reports trading days; callers re-index to their own calendars.
func (c *Client) GetHistoricalRates(from, to string, start, end date.Date) (map[date.Date]float64, error) {
	if from == to {
		return map[date.Date]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s/%s..%s?from=%s&to=%s",
		c.baseURL, start, end, url.QueryEscape(from), url.QueryEscape(to))

	resp, err := c.client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	rates := make(map[date.Date]float64, len(result.Rates))
	for rawDay, pairs := range result.Rates {
		day, err := date.Parse(rawDay)
		if err != nil {
			continue
		}
		if rate, ok := pairs[to]; ok {
			rates[day] = rate
		}
	}

	c.log.Debug().
		Str("from", from).
		Str("to", to).
		Int("days", len(rates)).
		Msg("Fetched historical rates")

	return rates, nil
}

func (c *Client) fetchSpot(from, to string) (float64, error) {
	endpoint := fmt.Sprintf("%s/latest?from=%s&to=%s",
		c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	resp, err := c.client.Get(endpoint)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	rate, exists := result.Rates[to]
	if !exists {
		return 0, fmt.Errorf("rate not found for %s->%s", from, to)
	}

	return rate, nil
}

// getStaleFromCache retrieves a cached rate even if expired, as a fallback
// when API calls fail.
func (c *Client) getStaleFromCache(cacheKey string) (float64, bool) {
	if c.cacheRepo == nil {
		return 0, false
	}

	data, err := c.cacheRepo.Get("exchangerate", cacheKey)
	if err != nil || data == nil {
		return 0, false
	}

	var cached cachedExchangeRate
	if err := json.Unmarshal(data, &cached); err != nil {
		return 0, false
	}

	return cached.Rate, true
}
