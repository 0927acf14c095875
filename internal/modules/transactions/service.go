package transactions

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/assets"
	"github.com/SzymonLiszewski/investfolio/internal/modules/positions"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Validation errors surface to API clients unchanged, so they carry
// user-facing messages.
var (
	ErrMissingOwner         = errors.New("owner id is required")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidSide          = errors.New("side must be B (buy) or S (sell)")
	ErrMissingDate          = errors.New("transaction date is required")
	ErrMissingAsset         = errors.New("an asset symbol or bond description is required")
	ErrDuplicateTransaction = errors.New("transaction with this external id already exists")
)

// PriceResolver supplies a historical close used to default a missing
// transaction price. Nil without error means no price is known.
type PriceResolver interface {
	PriceOn(symbol string, day date.Date) (*decimal.Decimal, error)
}

// SnapshotRebuilder regenerates portfolio snapshots from a given date
// onward after the ledger changes.
type SnapshotRebuilder interface {
	RebuildFrom(ownerID string, from date.Date) error
}

// BondDetails describes a treasury bond purchased for the first time; the
// asset row is created on the fly from these fields.
type BondDetails struct {
	BondType         string
	Series           string
	MaturityDate     date.Date
	InterestRateType domain.InterestRateType
	InterestRate     *decimal.Decimal
	WIBORMargin      *decimal.Decimal
	InflationMargin  *decimal.Decimal
	BaseInterestRate *decimal.Decimal
	FaceValue        decimal.Decimal
}

// RecordInput is one trade to append to the ledger.
type RecordInput struct {
	OwnerID    string
	Symbol     string
	AssetType  domain.AssetType
	Side       domain.TransactionSide
	Quantity   float64
	Price      *decimal.Decimal // nil defaults from price history (bonds: face value)
	Currency   string
	Date       date.Date
	ExternalID string
	Bond       *BondDetails
}

// Service records ledger entries and keeps the derived state current.
type Service struct {
	repo      *Repository
	assets    *assets.Repository
	positions *positions.Service
	prices    PriceResolver
	snapshots SnapshotRebuilder
	log       zerolog.Logger
}

// NewService creates a transaction recording service. prices and snapshots
// may be nil; price defaulting and snapshot rebuilds are then skipped.
func NewService(
	repo *Repository,
	assetRepo *assets.Repository,
	positionSvc *positions.Service,
	prices PriceResolver,
	snapshots SnapshotRebuilder,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		assets:    assetRepo,
		positions: positionSvc,
		prices:    prices,
		snapshots: snapshots,
		log:       log.With().Str("service", "transactions").Logger(),
	}
}

// Record validates the input, creates the asset row if needed, appends the
// ledger entry, folds it into the owner's position and triggers a snapshot
// rebuild from the transaction date. The rebuild is best-effort; a rebuild
// failure does not fail the recording.
func (s *Service) Record(input RecordInput) (*domain.Transaction, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	asset, err := s.resolveAsset(input)
	if err != nil {
		return nil, err
	}

	price, err := s.resolvePrice(input, asset)
	if err != nil {
		return nil, err
	}

	externalID := input.ExternalID
	if externalID == "" {
		externalID = uuid.NewString()
	}

	tx := &domain.Transaction{
		OwnerID:    input.OwnerID,
		AssetID:    asset.ID,
		Asset:      asset,
		Side:       input.Side,
		Quantity:   input.Quantity,
		Price:      price,
		Currency:   input.Currency,
		Date:       input.Date,
		ExternalID: externalID,
	}

	created, err := s.repo.Create(tx)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrDuplicateTransaction
	}

	if _, err := s.positions.Apply(asset, *tx); err != nil {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}

	if s.snapshots != nil {
		if err := s.snapshots.RebuildFrom(input.OwnerID, input.Date); err != nil {
			s.log.Error().Err(err).
				Str("owner", input.OwnerID).
				Str("from", input.Date.String()).
				Msg("Snapshot rebuild after transaction failed")
		}
	}

	s.log.Info().
		Str("owner", input.OwnerID).
		Str("symbol", asset.Symbol).
		Str("side", string(tx.Side)).
		Float64("quantity", tx.Quantity).
		Msg("Transaction recorded")

	return tx, nil
}

func validate(input RecordInput) error {
	if input.OwnerID == "" {
		return ErrMissingOwner
	}
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if input.Side != domain.Buy && input.Side != domain.Sell {
		return ErrInvalidSide
	}
	if input.Date.IsZero() {
		return ErrMissingDate
	}
	if input.Symbol == "" && input.Bond == nil {
		return ErrMissingAsset
	}
	return nil
}

func (s *Service) resolveAsset(input RecordInput) (*domain.Asset, error) {
	assetType := input.AssetType
	if assetType == "" {
		assetType = domain.AssetTypeStock
	}

	asset := domain.Asset{
		Symbol: input.Symbol,
		Name:   input.Symbol,
		Type:   assetType,
	}

	if b := input.Bond; b != nil {
		asset.Type = domain.AssetTypeBond
		asset.BondType = b.BondType
		asset.BondSeries = b.Series
		asset.MaturityDate = b.MaturityDate
		asset.InterestRateType = b.InterestRateType
		asset.InterestRate = b.InterestRate
		asset.WIBORMargin = b.WIBORMargin
		asset.InflationMargin = b.InflationMargin
		asset.BaseInterestRate = b.BaseInterestRate
		asset.FaceValue = b.FaceValue
		if asset.Symbol == "" {
			asset.Symbol = b.Series
		}
		if asset.Name == "" || asset.Name == input.Symbol {
			asset.Name = b.BondType + " " + b.Series
		}
	}

	resolved, err := s.assets.GetOrCreate(asset)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset: %w", err)
	}
	return resolved, nil
}

// resolvePrice fills a missing transaction price from the close on the
// transaction date; bonds default to face value instead.
func (s *Service) resolvePrice(input RecordInput, asset *domain.Asset) (decimal.Decimal, error) {
	if input.Price != nil {
		return *input.Price, nil
	}

	if asset.Type == domain.AssetTypeBond {
		return asset.EffectiveFaceValue(), nil
	}

	if s.prices != nil {
		price, err := s.prices.PriceOn(asset.Symbol, input.Date)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Price lookup for transaction failed")
		} else if price != nil {
			return *price, nil
		}
	}

	return decimal.Zero, fmt.Errorf("no price available for %s on %s", asset.Symbol, input.Date)
}
