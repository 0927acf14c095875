package snapshots

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/positions"
	"github.com/SzymonLiszewski/investfolio/internal/modules/prices"
	"github.com/SzymonLiszewski/investfolio/internal/modules/valuation"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// LedgerSource is the slice of the transaction store the builder replays.
type LedgerSource interface {
	GetForOwnerUpTo(ownerID string, end date.Date) ([]domain.Transaction, error)
	FirstDate(ownerID string) (date.Date, error)
	Owners() ([]string, error)
}

// AssetSource resolves asset rows referenced by ledger entries.
type AssetSource interface {
	GetByID(id int64) (*domain.Asset, error)
}

// SeriesSource provides historical close series for market symbols.
type SeriesSource interface {
	GetSeries(symbol string, start, end date.Date) (*prices.Series, error)
}

// Converter converts transaction amounts into the snapshot currency.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) *decimal.Decimal
}

// Builder regenerates daily snapshots by replaying the ledger day by day.
// Each day is computed independently; a missing price series degrades the
// affected asset to zero without aborting the walk.
type Builder struct {
	repo         *Repository
	ledger       LedgerSource
	assets       AssetSource
	prices       SeriesSource
	engine       *valuation.Engine
	converter    Converter
	baseCurrency string
	log          zerolog.Logger
}

// NewBuilder creates a snapshot builder. baseCurrency is used for owners
// with no snapshot history yet.
func NewBuilder(
	repo *Repository,
	ledger LedgerSource,
	assets AssetSource,
	priceSource SeriesSource,
	engine *valuation.Engine,
	converter Converter,
	baseCurrency string,
	log zerolog.Logger,
) *Builder {
	return &Builder{
		repo:         repo,
		ledger:       ledger,
		assets:       assets,
		prices:       priceSource,
		engine:       engine,
		converter:    converter,
		baseCurrency: baseCurrency,
		log:          log.With().Str("service", "snapshots").Logger(),
	}
}

// Build computes and upserts one snapshot per day in [start, end] for the
// owner, in the given currency. The walk is a fold over the date range with
// a monotonic cursor into the ledger: positions and running net-invested
// carry forward from day to day, so each day only consumes transactions
// dated up to it.
func (b *Builder) Build(ownerID string, start, end date.Date, currency string) error {
	today := date.Today()
	if end.After(today) {
		end = today
	}
	if start.IsZero() || start.After(end) {
		return nil
	}

	txs, err := b.ledger.GetForOwnerUpTo(ownerID, end)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	assetsByID, err := b.loadAssets(txs)
	if err != nil {
		return err
	}
	series := b.loadSeries(assetsByID, start, end)

	cursor := 0
	invested := decimal.Zero
	positionsByAsset := map[int64]domain.Position{}
	firstBuy := map[int64]date.Date{}

	for day := start; !day.After(end); day = day.Add(1) {
		for cursor < len(txs) && !txs[cursor].Date.After(day) {
			tx := txs[cursor]
			cursor++

			asset := assetsByID[tx.AssetID]
			if asset == nil {
				continue
			}
			tx.Asset = asset

			updated, _ := positions.ApplyTransaction(positionsByAsset[tx.AssetID], tx)
			positionsByAsset[tx.AssetID] = updated

			if tx.Side == domain.Buy {
				if _, seen := firstBuy[tx.AssetID]; !seen {
					firstBuy[tx.AssetID] = tx.Date
				}
			}

			amount := b.toCurrency(tx.Amount(), tx.EffectiveCurrency(), currency)
			if tx.Side == domain.Buy {
				invested = invested.Add(amount)
			} else {
				invested = invested.Sub(amount)
			}
		}

		holdings := make([]valuation.Holding, 0, len(positionsByAsset))
		for assetID, pos := range positionsByAsset {
			if pos.Quantity <= 0 {
				continue
			}
			holdings = append(holdings, valuation.Holding{
				Asset:        *assetsByID[assetID],
				Quantity:     pos.Quantity,
				PurchaseDate: firstBuy[assetID],
			})
		}

		lookup := b.priceLookup(series, day)
		total := b.engine.ValueHoldings(holdings, day, lookup, currency)

		snap := domain.Snapshot{
			OwnerID:       ownerID,
			Date:          day,
			Currency:      currency,
			TotalValue:    total,
			TotalInvested: invested,
		}
		if err := b.repo.Upsert(snap); err != nil {
			return fmt.Errorf("failed to store snapshot for %s: %w", day, err)
		}
	}

	b.log.Info().
		Str("owner", ownerID).
		Str("from", start.String()).
		Str("to", end.String()).
		Str("currency", currency).
		Msg("Snapshots rebuilt")

	return nil
}

// RebuildFrom rebuilds snapshots from a given date through today in the
// owner's default currency (the currency of their latest snapshot, or the
// configured base currency when they have none).
func (b *Builder) RebuildFrom(ownerID string, from date.Date) error {
	return b.Build(ownerID, from, date.Today(), b.DefaultCurrency(ownerID))
}

// Backfill rebuilds the owner's entire snapshot history starting at their
// first transaction.
func (b *Builder) Backfill(ownerID string, currency string) error {
	first, err := b.ledger.FirstDate(ownerID)
	if err != nil {
		return fmt.Errorf("failed to find first transaction: %w", err)
	}
	if first.IsZero() {
		return nil
	}
	if currency == "" {
		currency = b.DefaultCurrency(ownerID)
	}
	return b.Build(ownerID, first, date.Today(), currency)
}

// DefaultCurrency returns the currency of the owner's latest snapshot,
// falling back to the configured base currency.
func (b *Builder) DefaultCurrency(ownerID string) string {
	latest, err := b.repo.Latest(ownerID)
	if err != nil {
		b.log.Warn().Err(err).Str("owner", ownerID).Msg("Failed to read latest snapshot")
	}
	if latest != nil && latest.Currency != "" {
		return latest.Currency
	}
	return b.baseCurrency
}

func (b *Builder) loadAssets(txs []domain.Transaction) (map[int64]*domain.Asset, error) {
	result := map[int64]*domain.Asset{}
	for _, tx := range txs {
		if _, seen := result[tx.AssetID]; seen {
			continue
		}
		asset, err := b.assets.GetByID(tx.AssetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load asset %d: %w", tx.AssetID, err)
		}
		if asset == nil {
			b.log.Warn().Int64("asset_id", tx.AssetID).Msg("Ledger references unknown asset")
		}
		result[tx.AssetID] = asset
	}
	return result, nil
}

// loadSeries fetches one close series per market-priced symbol. A failed
// fetch leaves the symbol out; the affected holdings value to zero.
func (b *Builder) loadSeries(assetsByID map[int64]*domain.Asset, start, end date.Date) map[string]*prices.Series {
	result := map[string]*prices.Series{}
	for _, asset := range assetsByID {
		if asset == nil || asset.Type == domain.AssetTypeBond || asset.Symbol == "" {
			continue
		}
		if _, seen := result[asset.Symbol]; seen {
			continue
		}
		series, err := b.prices.GetSeries(asset.Symbol, start, end)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Failed to load price series")
			continue
		}
		result[asset.Symbol] = series
	}
	return result
}

func (b *Builder) priceLookup(series map[string]*prices.Series, day date.Date) valuation.PriceLookup {
	return func(symbol string) *decimal.Decimal {
		s := series[symbol]
		if s == nil {
			return nil
		}
		price := s.PriceAt(day)
		if price == nil {
			return nil
		}
		d := decimal.NewFromFloat(*price)
		return &d
	}
}

func (b *Builder) toCurrency(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to || from == "" || to == "" || b.converter == nil {
		return amount
	}
	if converted := b.converter.Convert(amount, from, to); converted != nil {
		return *converted
	}
	return amount
}
