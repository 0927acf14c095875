package positions

import (
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
)

// AmountConverter converts a monetary amount between currencies, returning
// nil when no rate is available.
type AmountConverter interface {
	Convert(amount decimal.Decimal, from, to string) *decimal.Decimal
}

// CostBasis is the reconstructed total cost of a holding in the asset's
// native currency.
type CostBasis struct {
	TotalCost decimal.Decimal
	Quantity  float64
	Currency  string
}

// AvgPrice returns the per-unit average cost, or nil for an empty holding.
func (cb CostBasis) AvgPrice() *decimal.Decimal {
	if cb.Quantity <= 0 {
		return nil
	}
	avg := cb.TotalCost.Div(decimal.NewFromFloat(cb.Quantity))
	return &avg
}

// ReconstructCostBasis replays an asset's full transaction history (ordered
// by date, then insertion order) and rebuilds the average-cost basis in the
// asset's native currency. Buy amounts in a foreign currency are converted;
// when conversion fails the raw amount is used rather than dropping the lot.
// Sells reduce cost proportionally to quantity (average-cost method). Returns
// nil when the replayed quantity ends at or below zero.
//
// currentQuantity is the externally tracked holding size; when it differs
// from the replayed quantity the cost is scaled to match, so corrections to
// the position row do not desynchronize the basis.
func ReconstructCostBasis(
	asset *domain.Asset,
	transactions []domain.Transaction,
	currentQuantity float64,
	converter AmountConverter,
) *CostBasis {
	native := asset.NativeCurrency()

	quantity := 0.0
	cost := decimal.Zero

	for _, tx := range transactions {
		switch tx.Side {
		case domain.Buy:
			amount := tx.Amount()
			txCurrency := tx.EffectiveCurrency()
			if txCurrency != native && converter != nil {
				if converted := converter.Convert(amount, txCurrency, native); converted != nil {
					amount = *converted
				}
			}
			cost = cost.Add(amount)
			quantity += tx.Quantity

		case domain.Sell:
			if quantity <= 0 {
				continue
			}
			quantityAfter := quantity - tx.Quantity
			if quantityAfter < 0 {
				quantityAfter = 0
			}
			// Cost shrinks in proportion to the quantity sold
			cost = cost.Mul(decimal.NewFromFloat(quantityAfter)).Div(decimal.NewFromFloat(quantity))
			quantity = quantityAfter
		}
	}

	if quantity <= 0 {
		return nil
	}

	if currentQuantity > 0 && currentQuantity != quantity {
		cost = cost.Mul(decimal.NewFromFloat(currentQuantity)).Div(decimal.NewFromFloat(quantity))
		quantity = currentQuantity
	}

	return &CostBasis{
		TotalCost: cost,
		Quantity:  quantity,
		Currency:  native,
	}
}
