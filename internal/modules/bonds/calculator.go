// Package bonds implements Polish Treasury Bond valuation: interest accrual
// across coupon periods, annual capitalization and yield to maturity.
package bonds

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

const daysPerYear = 365

var (
	decDaysPerYear = decimal.NewFromInt(daysPerYear)
	decHundred     = decimal.NewFromInt(100)
)

// Polish retail bond series that pay interest out instead of adding it to
// principal. Everything else compounds once per year.
var zeroCapitalizationTypes = map[string]bool{
	"OTS": true,
	"ROR": true,
	"DOR": true,
}

// Calculator values a single bond position on an arbitrary valuation date.
// A caller-supplied projected inflation overrides the latest observed CPI
// for inflation-indexed rates.
type Calculator struct {
	rates              domain.EconomicDataSource
	projectedInflation *decimal.Decimal
	wiborTenor         string
	log                zerolog.Logger
}

// NewCalculator creates a bond calculator reading reference rates from rates.
func NewCalculator(rates domain.EconomicDataSource, log zerolog.Logger) *Calculator {
	return &Calculator{
		rates:      rates,
		wiborTenor: "3M",
		log:        log.With().Str("component", "bond_calculator").Logger(),
	}
}

// WithProjectedInflation returns a copy of the calculator that uses the given
// inflation rate instead of observed CPI for inflation-indexed coupons.
func (c *Calculator) WithProjectedInflation(rate *decimal.Decimal) *Calculator {
	clone := *c
	clone.projectedInflation = rate
	return &clone
}

// WithWIBORTenor returns a copy of the calculator using the given WIBOR tenor
// ("3M" or "6M") for variable-rate coupons.
func (c *Calculator) WithWIBORTenor(tenor string) *Calculator {
	clone := *c
	clone.wiborTenor = tenor
	return &clone
}

// CurrentInterestRate resolves the coupon rate applicable on asOf, in percent
// per year. Returns nil when the required reference rates are unavailable.
func (c *Calculator) CurrentInterestRate(asset *domain.Asset, purchaseDate, asOf date.Date) *decimal.Decimal {
	switch asset.InterestRateType {
	case domain.RateFixed:
		return asset.InterestRate

	case domain.RateVariableWIBOR:
		if c.rates == nil {
			return nil
		}
		wibor, err := c.rates.WIBORForDate(asOf, c.wiborTenor)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to look up WIBOR rate")
			return nil
		}
		if wibor == nil {
			return nil
		}
		rate := wibor.Add(marginOrZero(asset.WIBORMargin))
		return &rate

	case domain.RateIndexedInflation:
		// A stated base rate applies during the first year after purchase.
		if asset.BaseInterestRate != nil && !purchaseDate.IsZero() &&
			asOf.DaysSince(purchaseDate) < daysPerYear {
			return asset.BaseInterestRate
		}
		inflation := c.inflationAt(asOf)
		if inflation == nil {
			return nil
		}
		rate := inflation.Add(marginOrZero(asset.InflationMargin))
		return &rate
	}

	return nil
}

// Value computes the present value of quantity units of the bond on asOf.
// Returns nil when the applicable rate cannot be resolved; callers substitute
// face value so one bond never fails a whole portfolio valuation.
func (c *Calculator) Value(asset *domain.Asset, quantity decimal.Decimal, purchaseDate, asOf date.Date) *decimal.Decimal {
	principal := asset.EffectiveFaceValue().Mul(quantity)

	// Matured bonds stop accruing entirely.
	if !asset.MaturityDate.IsZero() && !asOf.Before(asset.MaturityDate) {
		return &principal
	}

	// Without a purchase date there is no accrual period to measure.
	if purchaseDate.IsZero() || !purchaseDate.Before(asOf) {
		return &principal
	}

	days := asOf.DaysSince(purchaseDate)

	if zeroCapitalizationTypes[asset.BondType] {
		rate := c.CurrentInterestRate(asset, purchaseDate, asOf)
		if rate == nil {
			return nil
		}
		interest := principal.Mul(*rate).Mul(decimal.NewFromInt(int64(days))).
			Div(decDaysPerYear).Div(decHundred)
		value := principal.Add(interest)
		return &value
	}

	// Annual capitalization: compound once per elapsed full year, then accrue
	// simple interest on the post-compounding principal for the partial year.
	fullYears := days / daysPerYear
	value := principal
	for year := 0; year < fullYears; year++ {
		rate := c.rateForYear(asset, purchaseDate, year)
		if rate == nil {
			return nil
		}
		value = value.Mul(decimal.NewFromInt(1).Add(rate.Div(decHundred)))
	}

	remainingDays := days - fullYears*daysPerYear
	if remainingDays == 0 {
		return &value
	}

	currentRate := c.rateForYear(asset, purchaseDate, fullYears)
	if currentRate == nil {
		return nil
	}

	interest := value.Mul(*currentRate).Mul(decimal.NewFromInt(int64(remainingDays))).
		Div(decDaysPerYear).Div(decHundred)
	value = value.Add(interest)
	return &value
}

// YieldToMaturity approximates the annualized yield of buying the bond at
// price on asOf and holding it to maturity:
//
//	YTM = (annual coupon + (face - price) / years) / price * 100
//
// Returns zero at or after maturity.
func (c *Calculator) YieldToMaturity(asset *domain.Asset, price decimal.Decimal, asOf date.Date) decimal.Decimal {
	if asset.MaturityDate.IsZero() || !asOf.Before(asset.MaturityDate) || price.IsZero() {
		return decimal.Zero
	}

	years := decimal.NewFromInt(int64(asset.MaturityDate.DaysSince(asOf))).Div(decDaysPerYear)
	if !years.IsPositive() {
		return decimal.Zero
	}

	face := asset.EffectiveFaceValue()

	var coupon decimal.Decimal
	if rate := c.CurrentInterestRate(asset, date.Date{}, asOf); rate != nil {
		coupon = face.Mul(*rate).Div(decHundred)
	}

	return coupon.Add(face.Sub(price).Div(years)).Div(price).Mul(decHundred)
}

// rateForYear resolves the coupon rate for the year-th coupon period after
// purchase (year 0 is the first).
func (c *Calculator) rateForYear(asset *domain.Asset, purchaseDate date.Date, year int) *decimal.Decimal {
	anniversary := purchaseDate.Add(year * daysPerYear)

	switch asset.InterestRateType {
	case domain.RateFixed:
		return asset.InterestRate

	case domain.RateVariableWIBOR:
		if c.rates == nil {
			return nil
		}
		wibor, err := c.rates.WIBORForDate(anniversary, c.wiborTenor)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to look up WIBOR rate")
			return nil
		}
		if wibor == nil {
			return nil
		}
		rate := wibor.Add(marginOrZero(asset.WIBORMargin))
		return &rate

	case domain.RateIndexedInflation:
		if year == 0 && asset.BaseInterestRate != nil {
			return asset.BaseInterestRate
		}
		inflation := c.inflationAt(anniversary)
		if inflation == nil {
			return nil
		}
		rate := inflation.Add(marginOrZero(asset.InflationMargin))
		return &rate
	}

	return nil
}

func (c *Calculator) inflationAt(day date.Date) *decimal.Decimal {
	if c.projectedInflation != nil {
		return c.projectedInflation
	}
	if c.rates == nil {
		return nil
	}
	inflation, err := c.rates.InflationForDate(day)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to look up inflation rate")
		return nil
	}
	return inflation
}

func marginOrZero(margin *decimal.Decimal) decimal.Decimal {
	if margin == nil {
		return decimal.Zero
	}
	return *margin
}
