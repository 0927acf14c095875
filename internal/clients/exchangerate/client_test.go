package exchangerate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

func TestGetCurrentRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "PLN", r.URL.Query().Get("to"))
		w.Write([]byte(`{"base": "USD", "rates": {"PLN": 4.05}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())

	rate, err := client.GetCurrentRate("USD", "PLN")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, "4.05", rate.String())
}

func TestGetCurrentRateIdentity(t *testing.T) {
	client := NewClient("http://unreachable.invalid", nil, zerolog.Nop())

	rate, err := client.GetCurrentRate("USD", "USD")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, "1", rate.String())
}

func TestGetCurrentRateUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())

	rate, err := client.GetCurrentRate("USD", "PLN")
	require.NoError(t, err, "a failed fetch without cache is no data, not an error")
	assert.Nil(t, rate)
}

func TestGetHistoricalRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2026-01-01..2026-01-05", r.URL.Path)
		w.Write([]byte(`{"rates": {
			"2026-01-01": {"PLN": 4.0},
			"2026-01-02": {"PLN": 4.1},
			"2026-01-05": {"PLN": 4.05}
		}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, zerolog.Nop())

	rates, err := client.GetHistoricalRates("USD", "PLN", date.New(2026, 1, 1), date.New(2026, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, map[date.Date]float64{
		date.New(2026, 1, 1): 4.0,
		date.New(2026, 1, 2): 4.1,
		date.New(2026, 1, 5): 4.05,
	}, rates)
}

func TestGetHistoricalRatesIdentity(t *testing.T) {
	client := NewClient("http://unreachable.invalid", nil, zerolog.Nop())

	rates, err := client.GetHistoricalRates("USD", "USD", date.New(2026, 1, 1), date.New(2026, 1, 5))
	require.NoError(t, err)
	assert.Empty(t, rates)
}
