// Package valuation prices portfolio holdings. Each asset type has its own
// Valuer strategy; the Engine dispatches on the asset's type tag and handles
// currency conversion of the results.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/bonds"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// PriceLookup resolves a close price for a symbol, nil when no price is
// known. The caller binds it to a valuation date (latest close for current
// valuations, date-scoped forward-fill for historical ones).
type PriceLookup func(symbol string) *decimal.Decimal

// Holding is one priced position: the asset, how much of it is held and,
// for bonds, when the accrual clock started.
type Holding struct {
	Asset        domain.Asset
	Quantity     float64
	PurchaseDate date.Date // earliest buy date; only bond accrual uses it
}

// Valuer computes the value of a holding in the asset's native currency.
// A nil result means the holding cannot be priced.
type Valuer interface {
	Value(h Holding, asOf date.Date, prices PriceLookup) *decimal.Decimal
}

// marketValuer prices quantity times market close. It serves stocks and
// cryptocurrencies, which differ only in their native currency.
type marketValuer struct{}

func (marketValuer) Value(h Holding, _ date.Date, prices PriceLookup) *decimal.Decimal {
	if prices == nil {
		return nil
	}
	price := prices(h.Asset.Symbol)
	if price == nil {
		return nil
	}
	value := price.Mul(decimal.NewFromFloat(h.Quantity))
	return &value
}

// bondValuer delegates to the treasury bond calculator and falls back to
// face value times quantity when the coupon rate cannot be resolved.
type bondValuer struct {
	calc *bonds.Calculator
}

func (b bondValuer) Value(h Holding, asOf date.Date, _ PriceLookup) *decimal.Decimal {
	quantity := decimal.NewFromFloat(h.Quantity)
	if b.calc != nil {
		if value := b.calc.Value(&h.Asset, quantity, h.PurchaseDate, asOf); value != nil {
			return value
		}
	}
	principal := h.Asset.EffectiveFaceValue().Mul(quantity)
	return &principal
}
