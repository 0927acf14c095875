// Package indicators computes risk and performance indicators from daily
// snapshot series.
package indicators

import (
	"github.com/rs/zerolog"

	"github.com/SzymonLiszewski/investfolio/pkg/formulas"
)

const periodsPerYear = 252

// Result carries the computed indicators. A nil field means the indicator
// is undefined for the input (too few observations, zero volatility, no
// downside, no invested capital).
type Result struct {
	Sharpe          *float64 `json:"sharpe_ratio"`
	Sortino         *float64 `json:"sortino_ratio"`
	Alpha           *float64 `json:"alpha"`
	BenchmarkProfit *float64 `json:"benchmark_profit,omitempty"`
}

// Calculator derives indicators from aligned daily series of portfolio
// value, cumulative net-invested and benchmark closes.
type Calculator struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewCalculator creates an indicator calculator with an annual risk-free rate
func NewCalculator(riskFreeRate float64, log zerolog.Logger) *Calculator {
	return &Calculator{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "indicators").Logger(),
	}
}

// Calculate computes Sharpe, Sortino and Alpha. values and invested are the
// snapshot series for the same dates; benchmark is the benchmark close
// series, ideally aligned to the same dates. Fewer than two usable return
// observations leave every indicator nil.
func (c *Calculator) Calculate(values, invested, benchmark []float64) Result {
	var result Result

	returns := AdjustedReturns(values, invested)
	if len(returns) < 2 {
		return result
	}

	result.Sharpe = formulas.CalculateSharpeRatio(returns, c.riskFreeRate, periodsPerYear)
	result.Sortino = formulas.CalculateSortinoRatio(returns, c.riskFreeRate, periodsPerYear)

	if len(benchmark) == len(values) && len(invested) == len(values) {
		result.Alpha, result.BenchmarkProfit = cashFlowAlpha(values, invested, benchmark)
	} else if len(benchmark) >= 2 {
		// Without usable cash flows, fall back to CAPM regression alpha.
		// Note this is a different definition than the cash-flow alpha and
		// the two are not numerically comparable.
		c.log.Debug().
			Int("values", len(values)).
			Int("invested", len(invested)).
			Int("benchmark", len(benchmark)).
			Msg("Cash-flow simulation unavailable, using regression alpha")
		result.Alpha = capmAlpha(returns, benchmark)
	}

	return result
}

// AdjustedReturns computes daily returns with external cash flows removed:
// r_t = (V_t - V_{t-1} - CF_t) / V_{t-1}, where CF_t is the day's change in
// net invested. When the invested series does not line up with the value
// series it falls back to plain percentage change.
func AdjustedReturns(values, invested []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	if len(invested) != len(values) {
		return formulas.CalculateReturns(values)
	}

	returns := make([]float64, 0, len(values)-1)
	for t := 1; t < len(values); t++ {
		prev := values[t-1]
		if prev <= 0 {
			continue
		}
		cashFlow := invested[t] - invested[t-1]
		returns = append(returns, (values[t]-prev-cashFlow)/prev)
	}
	return returns
}

// cashFlowAlpha simulates investing the portfolio's own cash flows into the
// benchmark and compares the two profits. Each day's cash flow buys (or
// sells) benchmark units at that day's close; the first day's flow is the
// opening invested amount.
func cashFlowAlpha(values, invested, benchmark []float64) (alpha, benchmarkProfit *float64) {
	n := len(values)
	if n == 0 {
		return nil, nil
	}

	totalInvested := invested[n-1]
	if totalInvested <= 0 {
		return nil, nil
	}

	units := 0.0
	for t := 0; t < n; t++ {
		cashFlow := invested[t]
		if t > 0 {
			cashFlow = invested[t] - invested[t-1]
		}
		if benchmark[t] > 0 {
			units += cashFlow / benchmark[t]
		}
	}

	benchValue := units * benchmark[n-1]
	benchProfit := benchValue - totalInvested
	portfolioProfit := values[n-1] - totalInvested

	a := (portfolioProfit - benchProfit) / totalInvested
	return &a, &benchProfit
}

// capmAlpha regresses portfolio returns on benchmark returns and annualizes
// the intercept.
func capmAlpha(portfolioReturns, benchmark []float64) *float64 {
	benchReturns := formulas.CalculateReturns(benchmark)
	if len(benchReturns) != len(portfolioReturns) || len(benchReturns) < 2 {
		return nil
	}

	intercept, _ := formulas.LinearRegression(benchReturns, portfolioReturns)
	annualized := intercept * periodsPerYear
	return &annualized
}
