// Package positions maintains derived holdings: running quantity and
// average-cost basis per (owner, asset).
package positions

import (
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
)

// ApplyTransaction folds one ledger entry into a position and returns the
// updated position. It is pure: the same function serves live incremental
// updates and historical replay, so the two paths cannot diverge.
//
// needsRecompute is true when the transaction currency differs from the
// stored average-price currency; the average can then only be rebuilt by
// replaying the full transaction history with currency conversion (the
// caller's job), because mixing currencies in a weighted average would
// produce a meaningless number.
//
// Over-selling floors the quantity at zero instead of rejecting the
// transaction; a zeroed position also drops its cost basis.
func ApplyTransaction(pos domain.Position, tx domain.Transaction) (updated domain.Position, needsRecompute bool) {
	updated = pos

	delta := tx.Quantity
	if tx.Side == domain.Sell {
		delta = -tx.Quantity
	}

	newQuantity := pos.Quantity + delta
	if newQuantity <= 0 {
		updated.Quantity = 0
		updated.AvgPurchasePrice = nil
		updated.Currency = ""
		return updated, false
	}
	updated.Quantity = newQuantity

	if tx.Side == domain.Sell {
		// Average-cost method: a sell reduces quantity but never moves the
		// average purchase price.
		return updated, false
	}

	txCurrency := tx.EffectiveCurrency()

	if pos.AvgPurchasePrice == nil || pos.Quantity <= 0 {
		// First lot establishes both the average and its currency
		price := tx.Price
		updated.AvgPurchasePrice = &price
		updated.Currency = txCurrency
		return updated, false
	}

	if pos.Currency != "" && txCurrency != pos.Currency {
		return updated, true
	}

	// Quantity-weighted average of the previous lot pool and the new lot
	prevQty := decimal.NewFromFloat(pos.Quantity)
	buyQty := decimal.NewFromFloat(tx.Quantity)
	totalQty := prevQty.Add(buyQty)

	avg := pos.AvgPurchasePrice.Mul(prevQty).Add(tx.Price.Mul(buyQty)).Div(totalQty)
	updated.AvgPurchasePrice = &avg
	if updated.Currency == "" {
		updated.Currency = txCurrency
	}

	return updated, false
}
