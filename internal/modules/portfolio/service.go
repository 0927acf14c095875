// Package portfolio assembles the read models served by the API: current
// composition, historical value series and performance indicators.
package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/assets"
	"github.com/SzymonLiszewski/investfolio/internal/modules/indicators"
	"github.com/SzymonLiszewski/investfolio/internal/modules/positions"
	"github.com/SzymonLiszewski/investfolio/internal/modules/prices"
	"github.com/SzymonLiszewski/investfolio/internal/modules/snapshots"
	"github.com/SzymonLiszewski/investfolio/internal/modules/transactions"
	"github.com/SzymonLiszewski/investfolio/internal/modules/valuation"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// benchmarkCurrency is the currency benchmark indices quote in.
const benchmarkCurrency = "USD"

// SeriesConverter converts monetary amounts and daily series between
// currencies. Satisfied by *currency.Converter.
type SeriesConverter interface {
	Convert(amount decimal.Decimal, from, to string) *decimal.Decimal
	ConvertSeries(dates []date.Date, values []decimal.Decimal, from, to string) []decimal.Decimal
}

// Service is the portfolio read side. It composes repositories and the
// valuation engine into API-shaped results.
type Service struct {
	positionRepo    *positions.Repository
	positionSvc     *positions.Service
	assetRepo       *assets.Repository
	ledger          *transactions.Repository
	priceSvc        *prices.Service
	snapshotRepo    *snapshots.Repository
	engine          *valuation.Engine
	indicatorCalc   *indicators.Calculator
	converter       SeriesConverter
	benchmarkSymbol string
	log             zerolog.Logger
}

// NewService creates a portfolio read service
func NewService(
	positionRepo *positions.Repository,
	positionSvc *positions.Service,
	assetRepo *assets.Repository,
	ledger *transactions.Repository,
	priceSvc *prices.Service,
	snapshotRepo *snapshots.Repository,
	engine *valuation.Engine,
	indicatorCalc *indicators.Calculator,
	converter SeriesConverter,
	benchmarkSymbol string,
	log zerolog.Logger,
) *Service {
	return &Service{
		positionRepo:    positionRepo,
		positionSvc:     positionSvc,
		assetRepo:       assetRepo,
		ledger:          ledger,
		priceSvc:        priceSvc,
		snapshotRepo:    snapshotRepo,
		engine:          engine,
		indicatorCalc:   indicatorCalc,
		converter:       converter,
		benchmarkSymbol: benchmarkSymbol,
		log:             log.With().Str("service", "portfolio").Logger(),
	}
}

// Composition values the owner's current holdings in the given currency.
func (s *Service) Composition(ownerID, currency string) (*valuation.Composition, error) {
	held, err := s.positionRepo.GetHeldForOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	entries := make([]valuation.CompositionEntry, 0, len(held))
	for _, pos := range held {
		asset, err := s.assetRepo.GetByID(pos.AssetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load asset %d: %w", pos.AssetID, err)
		}
		if asset == nil {
			s.log.Warn().Int64("asset_id", pos.AssetID).Msg("Position references unknown asset")
			continue
		}

		entries = append(entries, valuation.CompositionEntry{
			Holding: valuation.Holding{
				Asset:        *asset,
				Quantity:     pos.Quantity,
				PurchaseDate: s.firstBuyDate(ownerID, asset.ID),
			},
			CostBasis: s.positionSvc.CostBasisFor(asset, pos),
		})
	}

	return s.engine.Compose(entries, date.Today(), s.currentPriceLookup(), currency), nil
}

// ValueHistory returns the owner's snapshot series for [start, end].
func (s *Service) ValueHistory(ownerID string, start, end date.Date, currency string) ([]domain.Snapshot, error) {
	return s.snapshotRepo.GetRange(ownerID, start, end, currency)
}

// Indicators computes Sharpe, Sortino and Alpha over the owner's snapshot
// series, benchmarked against the configured index. The benchmark quotes in
// USD, so cash flows are compared in USD and the benchmark profit converted
// back to the requested currency.
func (s *Service) Indicators(ownerID string, start, end date.Date, currency string) (indicators.Result, error) {
	snaps, err := s.snapshotRepo.GetRange(ownerID, start, end, currency)
	if err != nil {
		return indicators.Result{}, fmt.Errorf("failed to load snapshots: %w", err)
	}

	dates := make([]date.Date, len(snaps))
	valueSeries := make([]decimal.Decimal, len(snaps))
	investedSeries := make([]decimal.Decimal, len(snaps))
	for i, snap := range snaps {
		dates[i] = snap.Date
		valueSeries[i] = snap.TotalValue
		investedSeries[i] = snap.TotalInvested
	}

	if currency != benchmarkCurrency && s.converter != nil {
		valueSeries = s.converter.ConvertSeries(dates, valueSeries, currency, benchmarkCurrency)
		investedSeries = s.converter.ConvertSeries(dates, investedSeries, currency, benchmarkCurrency)
	}

	values := make([]float64, len(snaps))
	invested := make([]float64, len(snaps))
	for i := range snaps {
		values[i], _ = valueSeries[i].Float64()
		invested[i], _ = investedSeries[i].Float64()
	}

	result := s.indicatorCalc.Calculate(values, invested, s.benchmarkSeries(snaps, start, end))

	if result.BenchmarkProfit != nil && currency != benchmarkCurrency && s.converter != nil {
		profit := decimal.NewFromFloat(*result.BenchmarkProfit)
		if back := s.converter.Convert(profit, benchmarkCurrency, currency); back != nil {
			f, _ := back.Float64()
			result.BenchmarkProfit = &f
		}
	}

	return result, nil
}

// benchmarkSeries aligns benchmark closes to the snapshot dates with
// forward fill. When any date stays unresolved no aligned series exists, so
// nil is returned and the alpha figure is omitted.
func (s *Service) benchmarkSeries(snaps []domain.Snapshot, start, end date.Date) []float64 {
	if len(snaps) == 0 || s.benchmarkSymbol == "" {
		return nil
	}

	series, err := s.priceSvc.GetSeries(s.benchmarkSymbol, start, end)
	if err != nil || series.Len() == 0 {
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", s.benchmarkSymbol).Msg("Failed to load benchmark series")
		}
		return nil
	}

	aligned := make([]float64, 0, len(snaps))
	for _, snap := range snaps {
		price := series.PriceAt(snap.Date)
		if price == nil {
			s.log.Warn().
				Str("symbol", s.benchmarkSymbol).
				Str("date", snap.Date.String()).
				Msg("Benchmark has no price on snapshot date, skipping alpha")
			return nil
		}
		aligned = append(aligned, *price)
	}
	return aligned
}

// firstBuyDate returns the owner's earliest buy of the asset; bonds accrue
// interest from this date.
func (s *Service) firstBuyDate(ownerID string, assetID int64) date.Date {
	txs, err := s.ledger.GetForOwnerAsset(ownerID, assetID)
	if err != nil {
		s.log.Warn().Err(err).Int64("asset_id", assetID).Msg("Failed to load ledger for purchase date")
		return date.Date{}
	}
	for _, tx := range txs {
		if tx.Side == domain.Buy {
			return tx.Date
		}
	}
	return date.Date{}
}

// currentPriceLookup resolves spot prices, memoized for the duration of one
// composition call.
func (s *Service) currentPriceLookup() valuation.PriceLookup {
	cache := map[string]*decimal.Decimal{}
	return func(symbol string) *decimal.Decimal {
		if price, seen := cache[symbol]; seen {
			return price
		}
		price, err := s.priceSvc.GetCurrentPrice(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Current price lookup failed")
			price = nil
		}
		cache[symbol] = price
		return price
	}
}
