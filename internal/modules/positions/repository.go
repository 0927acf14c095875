package positions

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
)

// Repository handles position rows in portfolio.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// Get returns the position for (owner, asset), or nil when none exists
func (r *Repository) Get(ownerID string, assetID int64) (*domain.Position, error) {
	query := `SELECT owner_id, asset_id, quantity, avg_purchase_price, currency
		FROM positions WHERE owner_id = ? AND asset_id = ?`

	rows, err := r.db.Query(query, ownerID, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	pos, err := scanPosition(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}

	return &pos, nil
}

// GetAllForOwner returns every position held by an owner, including empty ones
func (r *Repository) GetAllForOwner(ownerID string) ([]domain.Position, error) {
	query := `SELECT owner_id, asset_id, quantity, avg_purchase_price, currency
		FROM positions WHERE owner_id = ? ORDER BY asset_id`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var result []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		result = append(result, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return result, nil
}

// GetHeldForOwner returns only positions with positive quantity
func (r *Repository) GetHeldForOwner(ownerID string) ([]domain.Position, error) {
	query := `SELECT owner_id, asset_id, quantity, avg_purchase_price, currency
		FROM positions WHERE owner_id = ? AND quantity > 0 ORDER BY asset_id`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query held positions: %w", err)
	}
	defer rows.Close()

	var result []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		result = append(result, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return result, nil
}

// Upsert inserts or replaces a position row
func (r *Repository) Upsert(pos domain.Position) error {
	query := `INSERT OR REPLACE INTO positions
		(owner_id, asset_id, quantity, avg_purchase_price, currency)
		VALUES (?, ?, ?, ?, ?)`

	var avgPrice sql.NullFloat64
	if pos.AvgPurchasePrice != nil {
		f, _ := pos.AvgPurchasePrice.Float64()
		avgPrice = sql.NullFloat64{Float64: f, Valid: true}
	}

	_, err := r.db.Exec(query, pos.OwnerID, pos.AssetID, pos.Quantity, avgPrice, pos.Currency)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	r.log.Debug().
		Str("owner", pos.OwnerID).
		Int64("asset_id", pos.AssetID).
		Float64("quantity", pos.Quantity).
		Msg("Position upserted")

	return nil
}

// Delete removes the position row for (owner, asset)
func (r *Repository) Delete(ownerID string, assetID int64) error {
	_, err := r.db.Exec(`DELETE FROM positions WHERE owner_id = ? AND asset_id = ?`, ownerID, assetID)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

func scanPosition(rows *sql.Rows) (domain.Position, error) {
	var pos domain.Position
	var avgPrice sql.NullFloat64
	var currency sql.NullString

	err := rows.Scan(&pos.OwnerID, &pos.AssetID, &pos.Quantity, &avgPrice, &currency)
	if err != nil {
		return pos, err
	}

	if avgPrice.Valid {
		d := decimal.NewFromFloat(avgPrice.Float64)
		pos.AvgPurchasePrice = &d
	}
	pos.Currency = currency.String

	return pos, nil
}
