// Package prices serves historical close prices from a database cache with
// gap-fill against a live fetcher.
package prices

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Repository handles the price_history table in history.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// GetRange returns cached close prices for symbol in [start, end]
func (r *Repository) GetRange(symbol string, start, end date.Date) (map[date.Date]float64, error) {
	query := `SELECT date, close FROM price_history
		WHERE symbol = ? AND date >= ? AND date <= ?`

	rows, err := r.db.Query(query, symbol, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	result := make(map[date.Date]float64)
	for rows.Next() {
		var day date.Date
		var close float64
		if err := rows.Scan(&day, &close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		result[day] = close
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}

	return result, nil
}

// LatestDate returns the most recent cached date for symbol, or the zero date
// when nothing is cached.
func (r *Repository) LatestDate(symbol string) (date.Date, error) {
	var day date.Date
	err := r.db.QueryRow(
		`SELECT date FROM price_history WHERE symbol = ? ORDER BY date DESC LIMIT 1`,
		symbol,
	).Scan(&day)
	if err == sql.ErrNoRows {
		return date.Date{}, nil
	}
	if err != nil {
		return date.Date{}, fmt.Errorf("failed to query latest price date: %w", err)
	}
	return day, nil
}

// UpsertMany stores a batch of close prices for symbol in one transaction
func (r *Repository) UpsertMany(symbol string, closes map[date.Date]float64) error {
	if len(closes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO price_history (symbol, date, close) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for day, close := range closes {
		if _, err := stmt.Exec(symbol, day.String(), close); err != nil {
			return fmt.Errorf("failed to upsert price for %s: %w", day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	r.log.Debug().Str("symbol", symbol).Int("rows", len(closes)).Msg("Price history stored")
	return nil
}
