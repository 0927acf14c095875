// Package domain contains the core business types shared across modules.
// It has no infrastructure dependencies.
package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// AssetType identifies the family of a tradable instrument.
type AssetType string

const (
	AssetTypeStock  AssetType = "stocks"
	AssetTypeBond   AssetType = "bonds"
	AssetTypeCrypto AssetType = "cryptocurrencies"
)

// InterestRateType describes how a bond's coupon rate is determined.
type InterestRateType string

const (
	RateFixed            InterestRateType = "fixed"
	RateVariableWIBOR    InterestRateType = "variable_wibor"
	RateIndexedInflation InterestRateType = "indexed_inflation"
)

// TransactionSide is the direction of a ledger entry.
type TransactionSide string

const (
	Buy  TransactionSide = "B"
	Sell TransactionSide = "S"
)

// Asset is a tradable instrument. Bond-specific fields are only meaningful
// when Type == AssetTypeBond.
type Asset struct {
	ID     int64
	Symbol string // unique ticker, optional (Polish bonds have a series instead)
	Name   string
	Type   AssetType

	BondType         string // series family code, e.g. EDO, COI, TOS, OTS, ROR, DOR
	BondSeries       string
	MaturityDate     date.Date // zero when not a bond
	InterestRateType InterestRateType
	InterestRate     *decimal.Decimal // % per year, fixed-rate bonds
	WIBORMargin      *decimal.Decimal // % added to WIBOR, variable-rate bonds
	InflationMargin  *decimal.Decimal // % added to CPI, inflation-indexed bonds
	BaseInterestRate *decimal.Decimal // % for the first year of inflation-indexed bonds
	FaceValue        decimal.Decimal  // per-unit nominal, defaults to 100
}

// DefaultFaceValue is the nominal of one Polish treasury bond unit.
var DefaultFaceValue = decimal.NewFromInt(100)

// EffectiveFaceValue returns the bond face value, falling back to the
// 100-unit default when unset.
func (a Asset) EffectiveFaceValue() decimal.Decimal {
	if a.FaceValue.IsPositive() {
		return a.FaceValue
	}
	return DefaultFaceValue
}

// NativeCurrency returns the currency the asset trades in.
// Bonds are always PLN (Polish Treasury Bonds), cryptocurrencies are quoted
// against USD, stocks are inferred from the exchange suffix of the ticker.
func (a Asset) NativeCurrency() string {
	switch a.Type {
	case AssetTypeBond:
		return "PLN"
	case AssetTypeCrypto:
		return "USD"
	case AssetTypeStock:
		if a.Symbol != "" {
			return stockCurrencyFromSuffix(a.Symbol)
		}
	}
	return "USD"
}

// suffixCurrencies maps exchange ticker suffixes to trading currencies.
// Bare symbols are US listings (USD).
var suffixCurrencies = []struct {
	suffix   string
	currency string
}{
	{".WA", "PLN"}, // Warsaw
	{".L", "GBP"},  // London
	{".DE", "EUR"}, // Xetra
	{".F", "EUR"},  // Frankfurt
	{".PA", "EUR"}, // Paris
	{".AS", "EUR"}, // Amsterdam
	{".MI", "EUR"}, // Milan
	{".MC", "EUR"}, // Madrid
	{".TO", "CAD"}, // Toronto
	{".AX", "AUD"}, // Sydney
	{".HK", "HKD"}, // Hong Kong
	{".T", "JPY"},  // Tokyo
}

func stockCurrencyFromSuffix(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, sc := range suffixCurrencies {
		if strings.HasSuffix(symbol, sc.suffix) {
			return sc.currency
		}
	}
	return "USD"
}

// Transaction is an immutable ledger entry. Corrections are new transactions,
// never mutations.
type Transaction struct {
	ID       int64
	OwnerID  string
	AssetID  int64
	Asset    *Asset // populated by repositories that join the asset
	Side     TransactionSide
	Quantity float64
	Price    decimal.Decimal
	// Currency of Price. Empty means the asset's native currency.
	Currency   string
	Date       date.Date
	ExternalID string // optional dedup id from an importing broker
}

// Amount returns price x quantity in the transaction's currency.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromFloat(t.Quantity))
}

// EffectiveCurrency returns the stated transaction currency or, when absent,
// the asset's native currency.
func (t Transaction) EffectiveCurrency() string {
	if c := strings.TrimSpace(t.Currency); c != "" {
		return c
	}
	if t.Asset != nil {
		return t.Asset.NativeCurrency()
	}
	return ""
}

// Position is the derived current holding for one (owner, asset) pair.
// Quantity is the replayed sum of buys minus sells, floored at zero.
// AvgPurchasePrice is maintained with the average-cost method and is nil
// for a position whose cost basis could not be established.
type Position struct {
	OwnerID          string
	AssetID          int64
	Quantity         float64
	AvgPurchasePrice *decimal.Decimal
	Currency         string // currency of AvgPurchasePrice
}

// Snapshot is a persisted point-in-time valuation of one owner's portfolio
// for one calendar day and currency.
type Snapshot struct {
	OwnerID    string
	Date       date.Date
	Currency   string
	TotalValue decimal.Decimal
	// TotalInvested is cumulative net cash invested (buys minus sells,
	// currency-converted) up to and including Date.
	TotalInvested decimal.Decimal
}

// EconomicData is one observation of the reference rates used for bond
// coupon resolution. Rows are append-only and unique per date.
type EconomicData struct {
	Date         date.Date
	WIBOR3M      decimal.Decimal
	WIBOR6M      decimal.Decimal
	InflationCPI decimal.Decimal
}

// WIBOR returns the rate for the requested tenor ("3M" or "6M").
func (e EconomicData) WIBOR(tenor string) decimal.Decimal {
	if strings.EqualFold(tenor, "6M") {
		return e.WIBOR6M
	}
	return e.WIBOR3M
}
