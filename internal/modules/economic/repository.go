// Package economic stores reference rates (WIBOR, CPI inflation) used for
// bond coupon resolution.
package economic

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Repository handles the economic_data time series in history.db.
// All "for date" lookups fall back to the nearest earlier record.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new economic data repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "economic").Logger(),
	}
}

// Upsert inserts or replaces the record for a date
func (r *Repository) Upsert(record domain.EconomicData) error {
	if record.Date.IsZero() {
		return fmt.Errorf("economic data date is required")
	}

	query := `INSERT OR REPLACE INTO economic_data (date, wibor_3m, wibor_6m, inflation_cpi)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		record.Date.String(),
		decimalFloat(record.WIBOR3M),
		decimalFloat(record.WIBOR6M),
		decimalFloat(record.InflationCPI),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert economic data: %w", err)
	}

	return nil
}

// GetRange returns all records in [start, end] ordered by date
func (r *Repository) GetRange(start, end date.Date) ([]domain.EconomicData, error) {
	query := `SELECT date, wibor_3m, wibor_6m, inflation_cpi FROM economic_data
		WHERE date >= ? AND date <= ? ORDER BY date`

	rows, err := r.db.Query(query, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query economic data range: %w", err)
	}
	defer rows.Close()

	var result []domain.EconomicData
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan economic data: %w", err)
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating economic data: %w", err)
	}

	return result, nil
}

// Latest returns the most recent record, or nil when the table is empty
func (r *Repository) Latest() (*domain.EconomicData, error) {
	query := `SELECT date, wibor_3m, wibor_6m, inflation_cpi FROM economic_data
		ORDER BY date DESC LIMIT 1`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest economic data: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan economic data: %w", err)
	}

	return &record, nil
}

// ForDate returns the record for the given date, falling back to the most
// recent earlier record. Returns nil when nothing qualifies.
func (r *Repository) ForDate(day date.Date) (*domain.EconomicData, error) {
	query := `SELECT date, wibor_3m, wibor_6m, inflation_cpi FROM economic_data
		WHERE date <= ? ORDER BY date DESC LIMIT 1`

	rows, err := r.db.Query(query, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query economic data for date: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan economic data: %w", err)
	}

	return &record, nil
}

// LatestWIBOR returns the most recent WIBOR rate for the tenor ("3M" or "6M")
func (r *Repository) LatestWIBOR(tenor string) (*decimal.Decimal, error) {
	record, err := r.Latest()
	if err != nil || record == nil {
		return nil, err
	}
	return wiborFromRecord(record, tenor), nil
}

// WIBORForDate returns the WIBOR rate in effect at the given date
func (r *Repository) WIBORForDate(day date.Date, tenor string) (*decimal.Decimal, error) {
	record, err := r.ForDate(day)
	if err != nil || record == nil {
		return nil, err
	}
	return wiborFromRecord(record, tenor), nil
}

// LatestInflation returns the most recent CPI inflation rate
func (r *Repository) LatestInflation() (*decimal.Decimal, error) {
	record, err := r.Latest()
	if err != nil || record == nil {
		return nil, err
	}
	return inflationFromRecord(record), nil
}

// InflationForDate returns the CPI inflation rate in effect at the given date
func (r *Repository) InflationForDate(day date.Date) (*decimal.Decimal, error) {
	record, err := r.ForDate(day)
	if err != nil || record == nil {
		return nil, err
	}
	return inflationFromRecord(record), nil
}

func wiborFromRecord(record *domain.EconomicData, tenor string) *decimal.Decimal {
	var rate decimal.Decimal
	if strings.EqualFold(tenor, "6M") {
		rate = record.WIBOR6M
	} else {
		rate = record.WIBOR3M
	}
	if rate.IsZero() {
		return nil
	}
	return &rate
}

func inflationFromRecord(record *domain.EconomicData) *decimal.Decimal {
	if record.InflationCPI.IsZero() {
		return nil
	}
	rate := record.InflationCPI
	return &rate
}

func scanRecord(rows *sql.Rows) (domain.EconomicData, error) {
	var record domain.EconomicData
	var day date.Date
	var wibor3m, wibor6m, inflation sql.NullFloat64

	if err := rows.Scan(&day, &wibor3m, &wibor6m, &inflation); err != nil {
		return record, err
	}

	record.Date = day
	if wibor3m.Valid {
		record.WIBOR3M = decimal.NewFromFloat(wibor3m.Float64)
	}
	if wibor6m.Valid {
		record.WIBOR6M = decimal.NewFromFloat(wibor6m.Float64)
	}
	if inflation.Valid {
		record.InflationCPI = decimal.NewFromFloat(inflation.Float64)
	}

	return record, nil
}

func decimalFloat(v decimal.Decimal) sql.NullFloat64 {
	if v.IsZero() {
		return sql.NullFloat64{}
	}
	f, _ := v.Float64()
	return sql.NullFloat64{Float64: f, Valid: true}
}
