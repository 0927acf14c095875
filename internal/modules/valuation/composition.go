package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/positions"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// CompositionEntry pairs a holding with its reconstructed cost basis.
// CostBasis may be nil when no basis could be established.
type CompositionEntry struct {
	Holding   Holding
	CostBasis *positions.CostBasis
}

// AssetBreakdown is one priced asset inside a composition report. Profit
// fields are nil when the cost basis is unknown.
type AssetBreakdown struct {
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name"`
	Type          domain.AssetType `json:"type"`
	Quantity      float64          `json:"quantity"`
	Value         decimal.Decimal  `json:"value"`
	CostBasis     *decimal.Decimal `json:"cost_basis,omitempty"`
	Profit        *decimal.Decimal `json:"profit,omitempty"`
	ProfitPercent *decimal.Decimal `json:"profit_percentage,omitempty"`
	Percentage    decimal.Decimal  `json:"percentage"`
}

// Composition is the full portfolio breakdown in one currency.
type Composition struct {
	Currency   string                              `json:"currency"`
	TotalValue decimal.Decimal                     `json:"total_value"`
	Assets     []AssetBreakdown                    `json:"assets"`
	ByType     map[domain.AssetType]decimal.Decimal `json:"by_type"` // percentage of total
}

// Compose values every entry and builds the per-asset and per-type
// percentage breakdowns in targetCurrency. Entries that cannot be priced
// are left out of the report entirely.
func (e *Engine) Compose(entries []CompositionEntry, asOf date.Date, prices PriceLookup, targetCurrency string) *Composition {
	comp := &Composition{
		Currency: targetCurrency,
		Assets:   []AssetBreakdown{},
		ByType:   map[domain.AssetType]decimal.Decimal{},
	}

	typeTotals := map[domain.AssetType]decimal.Decimal{}

	for _, entry := range entries {
		h := entry.Holding

		native := e.ValueHolding(h, asOf, prices)
		if native == nil {
			continue
		}
		value := e.toCurrency(*native, h.Asset.NativeCurrency(), targetCurrency)

		breakdown := AssetBreakdown{
			Symbol:   h.Asset.Symbol,
			Name:     h.Asset.Name,
			Type:     h.Asset.Type,
			Quantity: h.Quantity,
			Value:    value,
		}

		if cb := entry.CostBasis; cb != nil {
			cost := e.toCurrency(cb.TotalCost, cb.Currency, targetCurrency)
			profit := value.Sub(cost)
			breakdown.CostBasis = &cost
			breakdown.Profit = &profit
			if cost.IsPositive() {
				pct := profit.Div(cost).Mul(decimal.NewFromInt(100))
				breakdown.ProfitPercent = &pct
			}
		}

		comp.Assets = append(comp.Assets, breakdown)
		comp.TotalValue = comp.TotalValue.Add(value)
		typeTotals[h.Asset.Type] = typeTotals[h.Asset.Type].Add(value)
	}

	if comp.TotalValue.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range comp.Assets {
			comp.Assets[i].Percentage = comp.Assets[i].Value.Div(comp.TotalValue).Mul(hundred)
		}
		for assetType, total := range typeTotals {
			comp.ByType[assetType] = total.Div(comp.TotalValue).Mul(hundred)
		}
	}

	return comp
}
