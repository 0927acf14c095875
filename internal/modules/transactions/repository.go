// Package transactions stores the immutable trade ledger and records new
// entries, keeping derived positions and snapshots in sync.
package transactions

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Repository handles transaction rows in portfolio.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

const transactionColumns = `id, external_id, owner_id, asset_id, side, quantity, price, currency, date`

// Create inserts a ledger row and fills in the generated id. Rows carrying
// an external_id already present in the ledger are skipped; created reports
// whether a row was actually written.
func (r *Repository) Create(tx *domain.Transaction) (created bool, err error) {
	query := `INSERT OR IGNORE INTO transactions
		(external_id, owner_id, asset_id, side, quantity, price, currency, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	price, _ := tx.Price.Float64()
	result, err := r.db.Exec(query,
		tx.ExternalID, tx.OwnerID, tx.AssetID, string(tx.Side),
		tx.Quantity, price, tx.Currency, tx.Date)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}
	if affected == 0 {
		r.log.Debug().Str("external_id", tx.ExternalID).Msg("Duplicate transaction ignored")
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read transaction id: %w", err)
	}
	tx.ID = id

	return true, nil
}

// GetForOwner returns the owner's full ledger ordered by date then insertion
func (r *Repository) GetForOwner(ownerID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE owner_id = ? ORDER BY date, id`
	return r.queryTransactions(query, ownerID)
}

// GetForOwnerAsset returns the owner's ledger for one asset, ordered
func (r *Repository) GetForOwnerAsset(ownerID string, assetID int64) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE owner_id = ? AND asset_id = ? ORDER BY date, id`
	return r.queryTransactions(query, ownerID, assetID)
}

// GetForOwnerUpTo returns ledger entries dated on or before end, ordered
func (r *Repository) GetForOwnerUpTo(ownerID string, end date.Date) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE owner_id = ? AND date <= ? ORDER BY date, id`
	return r.queryTransactions(query, ownerID, end)
}

// FirstDate returns the owner's earliest transaction date, or the zero date
// when the ledger is empty.
func (r *Repository) FirstDate(ownerID string) (date.Date, error) {
	var raw sql.NullString
	err := r.db.QueryRow(`SELECT MIN(date) FROM transactions WHERE owner_id = ?`, ownerID).Scan(&raw)
	if err != nil {
		return date.Date{}, fmt.Errorf("failed to query first transaction date: %w", err)
	}
	if !raw.Valid {
		return date.Date{}, nil
	}
	return date.Parse(raw.String)
}

// Owners returns every owner id with at least one ledger entry
func (r *Repository) Owners() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

func (r *Repository) queryTransactions(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return result, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var tx domain.Transaction
	var externalID, currency sql.NullString
	var side string
	var price float64

	err := rows.Scan(&tx.ID, &externalID, &tx.OwnerID, &tx.AssetID,
		&side, &tx.Quantity, &price, &currency, &tx.Date)
	if err != nil {
		return tx, err
	}

	tx.ExternalID = externalID.String
	tx.Side = domain.TransactionSide(side)
	tx.Price = decimal.NewFromFloat(price)
	tx.Currency = currency.String

	return tx, nil
}
