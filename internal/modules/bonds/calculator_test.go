package bonds

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// stubRates is a fixed-value EconomicDataSource for tests.
type stubRates struct {
	wibor     *decimal.Decimal
	inflation *decimal.Decimal
}

func (s *stubRates) LatestWIBOR(tenor string) (*decimal.Decimal, error) { return s.wibor, nil }
func (s *stubRates) WIBORForDate(day date.Date, tenor string) (*decimal.Decimal, error) {
	return s.wibor, nil
}
func (s *stubRates) LatestInflation() (*decimal.Decimal, error) { return s.inflation, nil }
func (s *stubRates) InflationForDate(day date.Date) (*decimal.Decimal, error) {
	return s.inflation, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fixedBond(rate string) *domain.Asset {
	return &domain.Asset{
		Symbol:           "TOS0128",
		Type:             domain.AssetTypeBond,
		BondType:         "TOS",
		MaturityDate:     date.New(2028, 1, 1),
		InterestRateType: domain.RateFixed,
		InterestRate:     decp(rate),
	}
}

func newTestCalculator(rates domain.EconomicDataSource) *Calculator {
	return NewCalculator(rates, zerolog.Nop())
}

func TestValueOnPurchaseDay(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")

	purchase := date.New(2025, 1, 1)
	value := calc.Value(bond, dec("10"), purchase, purchase)

	require.NotNil(t, value)
	assert.True(t, value.Equal(dec("1000")), "expected face value, got %s", value)
}

func TestValueAtMaturityIsFaceValue(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")

	// At and after maturity the value is pure face value, no accrual
	for _, asOf := range []date.Date{date.New(2028, 1, 1), date.New(2030, 6, 15)} {
		value := calc.Value(bond, dec("3"), date.New(2025, 1, 1), asOf)
		require.NotNil(t, value)
		assert.True(t, value.Equal(dec("300")), "expected 300 at %s, got %s", asOf, value)
	}
}

func TestZeroCapitalizationSimpleInterest(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := &domain.Asset{
		Symbol:           "OTS0426",
		Type:             domain.AssetTypeBond,
		BondType:         "OTS",
		MaturityDate:     date.New(2026, 4, 1),
		InterestRateType: domain.RateFixed,
		InterestRate:     decp("3"),
	}

	purchase := date.New(2025, 1, 1)
	asOf := purchase.Add(90)

	value := calc.Value(bond, dec("10"), purchase, asOf)
	require.NotNil(t, value)

	// 1000 * (1 + 3 * 90 / 365 / 100)
	expected := dec("1000").Add(dec("1000").Mul(dec("3")).Mul(dec("90")).Div(dec("365")).Div(dec("100")))
	assert.True(t, value.Equal(expected), "expected %s, got %s", expected, value)
}

func TestZeroCapitalizationMonotonicInDays(t *testing.T) {
	calc := newTestCalculator(&stubRates{wibor: decp("5.8")})
	bond := &domain.Asset{
		Symbol:           "ROR0926",
		Type:             domain.AssetTypeBond,
		BondType:         "ROR",
		MaturityDate:     date.New(2026, 9, 1),
		InterestRateType: domain.RateVariableWIBOR,
		WIBORMargin:      decp("0"),
	}

	purchase := date.New(2025, 9, 1)
	prev := decimal.Zero
	for days := 1; days <= 300; days += 30 {
		value := calc.Value(bond, dec("1"), purchase, purchase.Add(days))
		require.NotNil(t, value)
		assert.True(t, value.GreaterThan(prev), "value must grow with accrual days")
		prev = *value
	}
}

func TestAnnualCapitalizationAnniversaryRoundTrip(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")

	purchase := date.New(2025, 1, 1)

	// On the first anniversary the value is exactly one year of compounding
	year1 := calc.Value(bond, dec("1"), purchase, purchase.Add(365))
	require.NotNil(t, year1)
	assert.True(t, year1.Equal(dec("105")), "expected 105, got %s", year1)

	// Second anniversary compounds on the larger base
	year2 := calc.Value(bond, dec("1"), purchase, purchase.Add(730))
	require.NotNil(t, year2)
	assert.True(t, year2.Equal(dec("110.25")), "expected 110.25, got %s", year2)
}

func TestAnnualCapitalizationPartialYear(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")

	purchase := date.New(2025, 1, 1)
	value := calc.Value(bond, dec("1"), purchase, purchase.Add(365+73))

	require.NotNil(t, value)

	// One full year compounded, then 73 days of simple interest on 105
	expected := dec("105").Add(dec("105").Mul(dec("5")).Mul(dec("73")).Div(dec("365")).Div(dec("100")))
	assert.True(t, value.Equal(expected), "expected %s, got %s", expected, value)
}

func TestInflationIndexedFirstYearUsesBaseRate(t *testing.T) {
	calc := newTestCalculator(&stubRates{inflation: decp("10")})
	bond := &domain.Asset{
		Symbol:           "EDO0135",
		Type:             domain.AssetTypeBond,
		BondType:         "EDO",
		MaturityDate:     date.New(2035, 1, 1),
		InterestRateType: domain.RateIndexedInflation,
		BaseInterestRate: decp("7"),
		InflationMargin:  decp("1.5"),
	}

	purchase := date.New(2025, 1, 1)

	// Mid first year: base rate applies
	rate := calc.CurrentInterestRate(bond, purchase, purchase.Add(100))
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(dec("7")))

	// After the first year: inflation + margin
	rate = calc.CurrentInterestRate(bond, purchase, purchase.Add(400))
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(dec("11.5")))
}

func TestInflationIndexedCompounding(t *testing.T) {
	calc := newTestCalculator(&stubRates{inflation: decp("10")})
	bond := &domain.Asset{
		Symbol:           "EDO0135",
		Type:             domain.AssetTypeBond,
		BondType:         "EDO",
		MaturityDate:     date.New(2035, 1, 1),
		InterestRateType: domain.RateIndexedInflation,
		BaseInterestRate: decp("7"),
		InflationMargin:  decp("1.5"),
	}

	purchase := date.New(2025, 1, 1)
	value := calc.Value(bond, dec("1"), purchase, purchase.Add(365+100))
	require.NotNil(t, value)

	// Year 0 at the base rate, then 100 days at inflation + margin
	base := dec("107")
	expected := base.Add(base.Mul(dec("11.5")).Mul(dec("100")).Div(dec("365")).Div(dec("100")))
	assert.True(t, value.Equal(expected), "expected %s, got %s", expected, value)
}

func TestProjectedInflationOverridesObserved(t *testing.T) {
	calc := newTestCalculator(&stubRates{inflation: decp("10")}).
		WithProjectedInflation(decp("4"))

	bond := &domain.Asset{
		Symbol:           "COI0129",
		Type:             domain.AssetTypeBond,
		BondType:         "COI",
		MaturityDate:     date.New(2029, 1, 1),
		InterestRateType: domain.RateIndexedInflation,
		InflationMargin:  decp("1"),
	}

	rate := calc.CurrentInterestRate(bond, date.New(2025, 1, 1), date.New(2027, 1, 1))
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(dec("5")), "projected inflation should override CPI")
}

func TestMissingReferenceRateReturnsNil(t *testing.T) {
	calc := newTestCalculator(&stubRates{}) // no WIBOR data
	bond := &domain.Asset{
		Symbol:           "ROR0926",
		Type:             domain.AssetTypeBond,
		BondType:         "ROR",
		MaturityDate:     date.New(2026, 9, 1),
		InterestRateType: domain.RateVariableWIBOR,
		WIBORMargin:      decp("0.5"),
	}

	value := calc.Value(bond, dec("1"), date.New(2025, 9, 1), date.New(2025, 12, 1))
	assert.Nil(t, value, "missing WIBOR data must degrade to nil, not error")
}

func TestNilRateSourceDegradesToNil(t *testing.T) {
	calc := newTestCalculator(nil)
	bond := &domain.Asset{
		Symbol:           "ROR0926",
		Type:             domain.AssetTypeBond,
		BondType:         "ROR",
		MaturityDate:     date.New(2026, 9, 1),
		InterestRateType: domain.RateVariableWIBOR,
		WIBORMargin:      decp("0.5"),
	}

	assert.Nil(t, calc.CurrentInterestRate(bond, date.New(2025, 9, 1), date.New(2025, 12, 1)))
	assert.Nil(t, calc.Value(bond, dec("1"), date.New(2025, 9, 1), date.New(2025, 12, 1)))
}

func TestWIBORMarginApplied(t *testing.T) {
	calc := newTestCalculator(&stubRates{wibor: decp("5.8")})
	bond := &domain.Asset{
		Symbol:           "DOR1027",
		Type:             domain.AssetTypeBond,
		BondType:         "DOR",
		MaturityDate:     date.New(2027, 10, 1),
		InterestRateType: domain.RateVariableWIBOR,
		WIBORMargin:      decp("0.25"),
	}

	rate := calc.CurrentInterestRate(bond, date.New(2025, 10, 1), date.New(2026, 1, 1))
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(dec("6.05")))
}

func TestCustomFaceValue(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")
	bond.FaceValue = dec("1000")

	purchase := date.New(2025, 1, 1)
	value := calc.Value(bond, dec("2"), purchase, purchase.Add(365))

	require.NotNil(t, value)
	assert.True(t, value.Equal(dec("2100")), "expected 2100, got %s", value)
}

func TestYieldToMaturity(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")
	bond.MaturityDate = date.New(2027, 1, 1)

	asOf := bond.MaturityDate.Add(-730) // exactly two years to maturity
	ytm := calc.YieldToMaturity(bond, dec("95"), asOf)

	// (5 + (100-95)/2) / 95 * 100
	expected := dec("5").Add(dec("5").Div(dec("2"))).Div(dec("95")).Mul(dec("100"))
	assert.True(t, ytm.Sub(expected).Abs().LessThan(dec("0.0001")), "expected %s, got %s", expected, ytm)
}

func TestYieldToMaturityAtMaturityIsZero(t *testing.T) {
	calc := newTestCalculator(&stubRates{})
	bond := fixedBond("5")

	assert.True(t, calc.YieldToMaturity(bond, dec("95"), bond.MaturityDate).IsZero())
	assert.True(t, calc.YieldToMaturity(bond, dec("95"), bond.MaturityDate.Add(10)).IsZero())
}
