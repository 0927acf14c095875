// Package assets manages the tradable instrument registry.
package assets

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Repository handles asset database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new asset repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "assets").Logger(),
	}
}

const assetColumns = `id, symbol, name, type, bond_type, bond_series, maturity_date,
	interest_rate_type, interest_rate, wibor_margin, inflation_margin,
	base_interest_rate, face_value`

// GetByID returns an asset by its id, or nil when not found
func (r *Repository) GetByID(id int64) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = ?`

	row := r.db.QueryRow(query, id)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset by id: %w", err)
	}

	return asset, nil
}

// GetBySymbol returns an asset by symbol, or nil when not found
func (r *Repository) GetBySymbol(symbol string) (*domain.Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	query := `SELECT ` + assetColumns + ` FROM assets WHERE symbol = ?`

	row := r.db.QueryRow(query, symbol)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset by symbol: %w", err)
	}

	return asset, nil
}

// GetAll returns every registered asset
func (r *Repository) GetAll() ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY symbol`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		result = append(result, *asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return result, nil
}

// GetByType returns all assets of a given type
func (r *Repository) GetByType(assetType domain.AssetType) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE type = ? ORDER BY symbol`

	rows, err := r.db.Query(query, string(assetType))
	if err != nil {
		return nil, fmt.Errorf("failed to query assets by type: %w", err)
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		result = append(result, *asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return result, nil
}

// GetBondSeries returns the series codes registered for a bond type
func (r *Repository) GetBondSeries(bondType string) ([]string, error) {
	query := `SELECT bond_series FROM assets
		WHERE type = ? AND bond_type = ? AND bond_series IS NOT NULL
		ORDER BY bond_series`

	rows, err := r.db.Query(query, string(domain.AssetTypeBond), bondType)
	if err != nil {
		return nil, fmt.Errorf("failed to query bond series: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var series string
		if err := rows.Scan(&series); err != nil {
			return nil, fmt.Errorf("failed to scan bond series: %w", err)
		}
		result = append(result, series)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bond series: %w", err)
	}

	return result, nil
}

// Create inserts a new asset and returns it with the assigned id
func (r *Repository) Create(asset domain.Asset) (*domain.Asset, error) {
	asset.Symbol = strings.ToUpper(strings.TrimSpace(asset.Symbol))
	if asset.Symbol == "" {
		return nil, fmt.Errorf("asset symbol is required")
	}

	query := `INSERT INTO assets
		(symbol, name, type, bond_type, bond_series, maturity_date,
		 interest_rate_type, interest_rate, wibor_margin, inflation_margin,
		 base_interest_rate, face_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		asset.Symbol,
		asset.Name,
		string(asset.Type),
		asset.BondType,
		nullString(asset.BondSeries),
		nullDate(asset.MaturityDate),
		nullString(string(asset.InterestRateType)),
		nullDecimal(asset.InterestRate),
		nullDecimal(asset.WIBORMargin),
		nullDecimal(asset.InflationMargin),
		nullDecimal(asset.BaseInterestRate),
		nullFloatFromDecimal(asset.FaceValue),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted asset id: %w", err)
	}
	asset.ID = id

	r.log.Info().Str("symbol", asset.Symbol).Str("type", string(asset.Type)).Msg("Asset created")
	return &asset, nil
}

// GetOrCreate returns the asset with the given symbol, creating it when absent
func (r *Repository) GetOrCreate(asset domain.Asset) (*domain.Asset, error) {
	existing, err := r.GetBySymbol(asset.Symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return r.Create(asset)
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row scanner) (*domain.Asset, error) {
	var a domain.Asset
	var assetType, rateType, bondType sql.NullString
	var bondSeries sql.NullString
	var maturity date.Date
	var interestRate, wiborMargin, inflationMargin, baseRate, faceValue sql.NullFloat64

	err := row.Scan(
		&a.ID,
		&a.Symbol,
		&a.Name,
		&assetType,
		&bondType,
		&bondSeries,
		&maturity,
		&rateType,
		&interestRate,
		&wiborMargin,
		&inflationMargin,
		&baseRate,
		&faceValue,
	)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AssetType(assetType.String)
	a.BondType = bondType.String
	a.BondSeries = bondSeries.String
	a.MaturityDate = maturity
	a.InterestRateType = domain.InterestRateType(rateType.String)
	a.InterestRate = decimalPtr(interestRate)
	a.WIBORMargin = decimalPtr(wiborMargin)
	a.InflationMargin = decimalPtr(inflationMargin)
	a.BaseInterestRate = decimalPtr(baseRate)
	if faceValue.Valid {
		a.FaceValue = decimal.NewFromFloat(faceValue.Float64)
	}

	return &a, nil
}

func decimalPtr(v sql.NullFloat64) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := decimal.NewFromFloat(v.Float64)
	return &d
}

func nullDecimal(v *decimal.Decimal) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	f, _ := v.Float64()
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullFloatFromDecimal(v decimal.Decimal) sql.NullFloat64 {
	if v.IsZero() {
		return sql.NullFloat64{}
	}
	f, _ := v.Float64()
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullDate(d date.Date) interface{} {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
