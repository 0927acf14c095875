// Package analytics computes technical indicator series over price history
// for charting.
package analytics

import (
	"fmt"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Default indicator periods
const (
	DefaultSMALength = 20
	DefaultEMALength = 20
	DefaultRSILength = 14

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// HistorySource provides the close series the indicators are computed over.
type HistorySource interface {
	GetPriceHistory(symbol string, start, end date.Date) (map[date.Date]float64, error)
}

// Report carries aligned indicator series for one symbol. Warm-up positions
// hold zero, matching the underlying TA-Lib arrays.
type Report struct {
	Symbol     string      `json:"symbol"`
	Dates      []date.Date `json:"dates"`
	Close      []float64   `json:"close"`
	SMA        []float64   `json:"sma,omitempty"`
	EMA        []float64   `json:"ema,omitempty"`
	RSI        []float64   `json:"rsi,omitempty"`
	MACD       []float64   `json:"macd,omitempty"`
	MACDSignal []float64   `json:"macd_signal,omitempty"`
	MACDHist   []float64   `json:"macd_hist,omitempty"`
}

// Service computes technical indicator reports
type Service struct {
	history HistorySource
	log     zerolog.Logger
}

// NewService creates an analytics service
func NewService(history HistorySource, log zerolog.Logger) *Service {
	return &Service{
		history: history,
		log:     log.With().Str("service", "analytics").Logger(),
	}
}

// Compute builds an indicator report for symbol over [start, end]. Periods
// of zero take the defaults. Indicators whose warm-up exceeds the available
// history are left out of the report.
func (s *Service) Compute(symbol string, start, end date.Date, smaLength, emaLength, rsiLength int) (*Report, error) {
	if smaLength <= 0 {
		smaLength = DefaultSMALength
	}
	if emaLength <= 0 {
		emaLength = DefaultEMALength
	}
	if rsiLength <= 0 {
		rsiLength = DefaultRSILength
	}

	history, err := s.history.GetPriceHistory(symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no price history for %s", symbol)
	}

	dates := sortedDates(history)
	closes := make([]float64, len(dates))
	for i, day := range dates {
		closes[i] = history[day]
	}

	report := &Report{
		Symbol: symbol,
		Dates:  dates,
		Close:  closes,
	}

	if len(closes) >= smaLength {
		report.SMA = talib.Sma(closes, smaLength)
	}
	if len(closes) >= emaLength {
		report.EMA = talib.Ema(closes, emaLength)
	}
	if len(closes) > rsiLength {
		report.RSI = talib.Rsi(closes, rsiLength)
	}
	if len(closes) > macdSlow+macdSignal {
		macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		report.MACD = macd
		report.MACDSignal = signal
		report.MACDHist = hist
	}

	return report, nil
}

func sortedDates(history map[date.Date]float64) []date.Date {
	dates := make([]date.Date, 0, len(history))
	for day := range history {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
