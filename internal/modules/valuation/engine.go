package valuation

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/bonds"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Converter turns an amount from one currency into another, nil when no
// rate is available.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) *decimal.Decimal
}

// Engine values sets of holdings in a target currency.
type Engine struct {
	valuers   map[domain.AssetType]Valuer
	converter Converter
	log       zerolog.Logger
}

// NewEngine creates an engine with the standard per-type valuers.
func NewEngine(calc *bonds.Calculator, converter Converter, log zerolog.Logger) *Engine {
	return &Engine{
		valuers: map[domain.AssetType]Valuer{
			domain.AssetTypeStock:  marketValuer{},
			domain.AssetTypeCrypto: marketValuer{},
			domain.AssetTypeBond:   bondValuer{calc: calc},
		},
		converter: converter,
		log:       log.With().Str("service", "valuation").Logger(),
	}
}

// ValueHolding values one holding in its native currency. Returns nil for
// empty holdings and holdings that cannot be priced.
func (e *Engine) ValueHolding(h Holding, asOf date.Date, prices PriceLookup) *decimal.Decimal {
	if h.Quantity <= 0 {
		return nil
	}
	valuer, ok := e.valuers[h.Asset.Type]
	if !ok {
		// Unknown asset types get market pricing, the least surprising default
		valuer = marketValuer{}
	}
	return valuer.Value(h, asOf, prices)
}

// ValueHoldings sums the holdings' values in targetCurrency. Unpriceable
// holdings contribute zero; a holding whose currency cannot be converted
// keeps its native value rather than being dropped.
func (e *Engine) ValueHoldings(holdings []Holding, asOf date.Date, prices PriceLookup, targetCurrency string) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		value := e.ValueHolding(h, asOf, prices)
		if value == nil {
			continue
		}
		total = total.Add(e.toCurrency(*value, h.Asset.NativeCurrency(), targetCurrency))
	}
	return total
}

func (e *Engine) toCurrency(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to || to == "" || e.converter == nil {
		return amount
	}
	if converted := e.converter.Convert(amount, from, to); converted != nil {
		return *converted
	}
	e.log.Warn().
		Str("from", from).
		Str("to", to).
		Msg("Currency conversion unavailable, keeping native amount")
	return amount
}
