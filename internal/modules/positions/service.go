package positions

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
)

// TransactionSource provides an asset's full ledger for cost-basis
// reconstruction. Defined here to avoid an import cycle with the
// transactions module.
type TransactionSource interface {
	GetForOwnerAsset(ownerID string, assetID int64) ([]domain.Transaction, error)
}

// Service keeps position rows in sync with the transaction ledger.
type Service struct {
	repo         *Repository
	transactions TransactionSource
	converter    AmountConverter
	log          zerolog.Logger
}

// NewService creates a position service.
func NewService(repo *Repository, transactions TransactionSource, converter AmountConverter, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		transactions: transactions,
		converter:    converter,
		log:          log.With().Str("service", "positions").Logger(),
	}
}

// Apply folds a newly recorded transaction into the owner's position for the
// asset and persists the result. When the transaction currency conflicts with
// the stored average, the cost basis is rebuilt from the full ledger.
func (s *Service) Apply(asset *domain.Asset, tx domain.Transaction) (*domain.Position, error) {
	existing, err := s.repo.Get(tx.OwnerID, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}

	pos := domain.Position{OwnerID: tx.OwnerID, AssetID: asset.ID}
	if existing != nil {
		pos = *existing
	}

	updated, needsRecompute := ApplyTransaction(pos, tx)

	if needsRecompute {
		if err := s.recomputeBasis(asset, &updated); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Upsert(updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// recomputeBasis rebuilds the average cost from the full ledger in the
// asset's native currency.
func (s *Service) recomputeBasis(asset *domain.Asset, pos *domain.Position) error {
	history, err := s.transactions.GetForOwnerAsset(pos.OwnerID, asset.ID)
	if err != nil {
		return fmt.Errorf("failed to load transaction history: %w", err)
	}

	basis := ReconstructCostBasis(asset, history, pos.Quantity, s.converter)
	if basis == nil {
		pos.AvgPurchasePrice = nil
		pos.Currency = ""
		return nil
	}

	pos.AvgPurchasePrice = basis.AvgPrice()
	pos.Currency = basis.Currency

	s.log.Debug().
		Str("owner", pos.OwnerID).
		Int64("asset_id", pos.AssetID).
		Str("currency", basis.Currency).
		Msg("Cost basis reconstructed after currency change")

	return nil
}

// CostBasisFor returns the cost basis for a held position, preferring the
// incrementally maintained average and falling back to full reconstruction.
func (s *Service) CostBasisFor(asset *domain.Asset, pos domain.Position) *CostBasis {
	if pos.Quantity <= 0 {
		return nil
	}

	if pos.AvgPurchasePrice != nil {
		currency := pos.Currency
		if currency == "" {
			currency = asset.NativeCurrency()
		}
		return &CostBasis{
			TotalCost: pos.AvgPurchasePrice.Mul(decimal.NewFromFloat(pos.Quantity)),
			Quantity:  pos.Quantity,
			Currency:  currency,
		}
	}

	history, err := s.transactions.GetForOwnerAsset(pos.OwnerID, asset.ID)
	if err != nil {
		s.log.Warn().Err(err).Int64("asset_id", asset.ID).Msg("Failed to load ledger for cost basis")
		return nil
	}

	return ReconstructCostBasis(asset, history, pos.Quantity, s.converter)
}
