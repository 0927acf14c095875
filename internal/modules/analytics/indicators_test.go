package analytics

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

type stubHistory struct {
	history map[date.Date]float64
	err     error
}

func (s *stubHistory) GetPriceHistory(symbol string, start, end date.Date) (map[date.Date]float64, error) {
	return s.history, s.err
}

func flatHistory(days int, price float64) map[date.Date]float64 {
	history := make(map[date.Date]float64, days)
	day := date.New(2026, 1, 1)
	for i := 0; i < days; i++ {
		history[day] = price
		day = day.Add(1)
	}
	return history
}

func TestComputeFlatSeries(t *testing.T) {
	svc := NewService(&stubHistory{history: flatHistory(60, 100)}, zerolog.Nop())

	report, err := svc.Compute("AAPL", date.New(2026, 1, 1), date.New(2026, 3, 1), 0, 0, 0)
	require.NoError(t, err)

	require.Len(t, report.Close, 60)
	assert.True(t, report.Dates[0].Before(report.Dates[59]), "dates are sorted ascending")

	require.Len(t, report.SMA, 60)
	assert.InDelta(t, 100.0, report.SMA[59], 1e-9, "SMA of a flat series is the price")
	require.Len(t, report.EMA, 60)
	assert.InDelta(t, 100.0, report.EMA[59], 1e-9)
	require.NotEmpty(t, report.MACD)
	assert.InDelta(t, 0.0, report.MACD[59], 1e-9, "flat series has no momentum")
}

func TestComputeShortSeriesSkipsIndicators(t *testing.T) {
	svc := NewService(&stubHistory{history: flatHistory(5, 100)}, zerolog.Nop())

	report, err := svc.Compute("AAPL", date.New(2026, 1, 1), date.New(2026, 1, 5), 20, 20, 14)
	require.NoError(t, err)

	assert.Len(t, report.Close, 5)
	assert.Empty(t, report.SMA)
	assert.Empty(t, report.RSI)
	assert.Empty(t, report.MACD)
}

func TestComputeNoHistory(t *testing.T) {
	svc := NewService(&stubHistory{}, zerolog.Nop())

	_, err := svc.Compute("NONE", date.New(2026, 1, 1), date.New(2026, 1, 5), 0, 0, 0)
	assert.Error(t, err)
}

func TestComputeHistoryError(t *testing.T) {
	svc := NewService(&stubHistory{err: fmt.Errorf("upstream down")}, zerolog.Nop())

	_, err := svc.Compute("AAPL", date.New(2026, 1, 1), date.New(2026, 1, 5), 0, 0, 0)
	assert.Error(t, err)
}
