// Package currency converts monetary amounts and date-indexed series between
// currencies.
package currency

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Converter converts amounts between currencies using an FX rate provider.
// Spot rates are memoized per (from, to) pair for the lifetime of the
// instance; the cache is not safe for concurrent use, construct one converter
// per request.
type Converter struct {
	fx    domain.FXProvider
	cache map[string]decimal.Decimal
	log   zerolog.Logger
}

// NewConverter creates a currency converter backed by fx.
func NewConverter(fx domain.FXProvider, log zerolog.Logger) *Converter {
	return &Converter{
		fx:    fx,
		cache: make(map[string]decimal.Decimal),
		log:   log.With().Str("component", "currency_converter").Logger(),
	}
}

// GetExchangeRate returns the current spot rate from one currency to another.
// Identity pairs are always 1. Returns nil when the rate is unavailable.
func (c *Converter) GetExchangeRate(from, to string) *decimal.Decimal {
	if from == to {
		one := decimal.NewFromInt(1)
		return &one
	}

	key := from + ":" + to
	if rate, ok := c.cache[key]; ok {
		return &rate
	}

	rate, err := c.fx.GetCurrentRate(from, to)
	if err != nil {
		c.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Failed to fetch exchange rate")
		return nil
	}
	if rate == nil {
		return nil
	}

	c.cache[key] = *rate
	return rate
}

// Convert converts amount from one currency to another. Returns nil when the
// rate is unavailable; callers fall back to the unconverted native amount.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) *decimal.Decimal {
	rate := c.GetExchangeRate(from, to)
	if rate == nil {
		return nil
	}
	converted := amount.Mul(*rate)
	return &converted
}

// ClearCache drops all memoized spot rates.
func (c *Converter) ClearCache() {
	c.cache = make(map[string]decimal.Decimal)
}

// ConvertSeries converts a date-indexed series of amounts using historical
// daily rates. The rate series is re-indexed to the input dates with forward
// then backward fill across non-trading days; any date still unresolved uses
// a rate of 1 rather than corrupting the value. On total failure to fetch
// historical rates the input is returned unchanged.
func (c *Converter) ConvertSeries(dates []date.Date, values []decimal.Decimal, from, to string) []decimal.Decimal {
	if from == to || len(dates) == 0 || len(dates) != len(values) {
		return values
	}

	rates, err := c.fx.GetHistoricalRates(from, to, dates[0], dates[len(dates)-1])
	if err != nil {
		c.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Failed to fetch historical rates")
		return values
	}
	if len(rates) == 0 {
		return values
	}

	rateDates := make([]date.Date, 0, len(rates))
	for d := range rates {
		rateDates = append(rateDates, d)
	}
	sort.Slice(rateDates, func(i, j int) bool { return rateDates[i].Before(rateDates[j]) })

	converted := make([]decimal.Decimal, len(values))
	for i, d := range dates {
		rate := resolveRate(rateDates, rates, d)
		converted[i] = values[i].Mul(decimal.NewFromFloat(rate))
	}

	return converted
}

// resolveRate finds the rate for a date: exact match, else nearest earlier,
// else nearest later, else 1.
func resolveRate(sorted []date.Date, rates map[date.Date]float64, day date.Date) float64 {
	if rate, ok := rates[day]; ok {
		return rate
	}

	// Index of the first rate date after day
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i].After(day) })

	if idx > 0 {
		return rates[sorted[idx-1]]
	}
	if idx < len(sorted) {
		return rates[sorted[idx]]
	}
	return 1
}
