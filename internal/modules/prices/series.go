package prices

import (
	"sort"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Series is a date-indexed close price series with forward-fill lookup.
type Series struct {
	dates  []date.Date
	prices map[date.Date]float64
}

// NewSeries builds a Series from a date-to-price mapping.
func NewSeries(prices map[date.Date]float64) *Series {
	dates := make([]date.Date, 0, len(prices))
	for d := range prices {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &Series{dates: dates, prices: prices}
}

// PriceAt returns the price for day: an exact match when present, else the
// most recent earlier price (forward-fill across non-trading days), else nil.
func (s *Series) PriceAt(day date.Date) *float64 {
	if price, ok := s.prices[day]; ok {
		return &price
	}

	idx := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(day) })
	if idx == 0 {
		return nil
	}

	price := s.prices[s.dates[idx-1]]
	return &price
}

// Len returns the number of observations in the series.
func (s *Series) Len() int {
	return len(s.dates)
}

// Dates returns the observation dates in ascending order.
func (s *Series) Dates() []date.Date {
	return s.dates
}

// Values returns the prices aligned with Dates().
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.dates))
	for i, d := range s.dates {
		values[i] = s.prices[d]
	}
	return values
}
