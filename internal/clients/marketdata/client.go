// Package marketdata talks to the quote service for historical and current
// market prices.
package marketdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Client implements domain.PriceHistoryProvider and domain.PriceFetcher
// against the quote service HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a quote service client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "marketdata").Logger(),
	}
}

// GetPriceHistory fetches daily closes for symbol in [start, end]
func (c *Client) GetPriceHistory(symbol string, start, end date.Date) (map[date.Date]float64, error) {
	endpoint := fmt.Sprintf("%s/history?symbol=%s&start=%s&end=%s",
		c.baseURL, url.QueryEscape(symbol), start, end)

	resp, err := c.client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("quote service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var result struct {
		Prices map[string]float64 `json:"prices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse quote service response: %w", err)
	}

	history := make(map[date.Date]float64, len(result.Prices))
	for rawDay, price := range result.Prices {
		day, err := date.Parse(rawDay)
		if err != nil {
			c.log.Warn().Str("symbol", symbol).Str("date", rawDay).Msg("Skipping unparseable date")
			continue
		}
		history[day] = price
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("days", len(history)).
		Msg("Fetched price history")

	return history, nil
}

// GetCurrentPrice fetches the latest quote for symbol. Returns nil without
// error when the service has no quote for it.
func (c *Client) GetCurrentPrice(symbol string) (*decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))

	resp, err := c.client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("quote service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var result struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse quote service response: %w", err)
	}

	price := decimal.NewFromFloat(result.Price)
	return &price, nil
}
