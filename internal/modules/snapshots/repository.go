// Package snapshots persists daily point-in-time portfolio valuations and
// rebuilds them from the transaction ledger.
package snapshots

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Repository handles portfolio_snapshots rows in portfolio.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Upsert inserts or replaces the snapshot for (owner, date, currency)
func (r *Repository) Upsert(snap domain.Snapshot) error {
	query := `INSERT OR REPLACE INTO portfolio_snapshots
		(owner_id, date, currency, total_value, total_invested)
		VALUES (?, ?, ?, ?, ?)`

	totalValue, _ := snap.TotalValue.Float64()
	totalInvested, _ := snap.TotalInvested.Float64()

	_, err := r.db.Exec(query, snap.OwnerID, snap.Date, snap.Currency, totalValue, totalInvested)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// GetRange returns the owner's snapshots in [start, end] for one currency,
// ordered by date.
func (r *Repository) GetRange(ownerID string, start, end date.Date, currency string) ([]domain.Snapshot, error) {
	query := `SELECT owner_id, date, currency, total_value, total_invested
		FROM portfolio_snapshots
		WHERE owner_id = ? AND currency = ? AND date >= ? AND date <= ?
		ORDER BY date`

	rows, err := r.db.Query(query, ownerID, currency, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var result []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		result = append(result, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return result, nil
}

// Latest returns the owner's most recent snapshot in any currency, or nil
// when none exists. Its currency doubles as the owner's default currency.
func (r *Repository) Latest(ownerID string) (*domain.Snapshot, error) {
	query := `SELECT owner_id, date, currency, total_value, total_invested
		FROM portfolio_snapshots WHERE owner_id = ?
		ORDER BY date DESC LIMIT 1`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	snap, err := scanSnapshot(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return &snap, nil
}

func scanSnapshot(rows *sql.Rows) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var totalValue, totalInvested float64

	err := rows.Scan(&snap.OwnerID, &snap.Date, &snap.Currency, &totalValue, &totalInvested)
	if err != nil {
		return snap, err
	}

	snap.TotalValue = decimal.NewFromFloat(totalValue)
	snap.TotalInvested = decimal.NewFromFloat(totalInvested)

	return snap, nil
}
