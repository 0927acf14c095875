package domain

import (
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// PriceHistoryProvider supplies daily close prices for a symbol over a date
// range. Implementations may serve from a database cache, a live fetcher, or
// both; missing dates are tolerated by callers (forward-fill on lookup).
// A nil error with an empty map means "no data", which degrades the affected
// positions to zero rather than failing a valuation.
type PriceHistoryProvider interface {
	GetPriceHistory(symbol string, start, end date.Date) (map[date.Date]float64, error)
}

// PriceFetcher fetches a current spot price for a symbol.
// Returns (nil, nil) when the price is unavailable.
type PriceFetcher interface {
	GetCurrentPrice(symbol string) (*decimal.Decimal, error)
}

// FXProvider supplies spot and historical exchange rates such that
// amount_from x rate = amount_to. Both methods return nil (without error)
// when the rate cannot be determined; conversion then degrades one layer up.
type FXProvider interface {
	GetCurrentRate(from, to string) (*decimal.Decimal, error)
	GetHistoricalRates(from, to string, start, end date.Date) (map[date.Date]float64, error)
}

// EconomicDataSource resolves reference rates (WIBOR, CPI) used for bond
// coupon calculation. Each method returns nil when no record qualifies;
// "for date" lookups fall back to the nearest earlier observation.
type EconomicDataSource interface {
	LatestWIBOR(tenor string) (*decimal.Decimal, error)
	WIBORForDate(day date.Date, tenor string) (*decimal.Decimal, error)
	LatestInflation() (*decimal.Decimal, error)
	InflationForDate(day date.Date) (*decimal.Decimal, error)
}
