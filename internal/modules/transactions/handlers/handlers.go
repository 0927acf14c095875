// Package handlers provides HTTP handlers for recording transactions.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/transactions"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Handler handles transaction HTTP requests
type Handler struct {
	service *transactions.Service
	log     zerolog.Logger
}

// NewHandler creates a new transaction handler
func NewHandler(service *transactions.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "transactions").Logger(),
	}
}

type bondRequest struct {
	BondType         string           `json:"bond_type"`
	Series           string           `json:"series"`
	MaturityDate     date.Date        `json:"maturity_date"`
	InterestRateType string           `json:"interest_rate_type"`
	InterestRate     *decimal.Decimal `json:"interest_rate"`
	WIBORMargin      *decimal.Decimal `json:"wibor_margin"`
	InflationMargin  *decimal.Decimal `json:"inflation_margin"`
	BaseInterestRate *decimal.Decimal `json:"base_interest_rate"`
	FaceValue        decimal.Decimal  `json:"face_value"`
}

type recordRequest struct {
	OwnerID    string           `json:"owner_id"`
	Symbol     string           `json:"symbol"`
	AssetType  string           `json:"asset_type"`
	Side       string           `json:"side"`
	Quantity   float64          `json:"quantity"`
	Price      *decimal.Decimal `json:"price"`
	Currency   string           `json:"currency"`
	Date       string           `json:"date"`
	ExternalID string           `json:"external_id"`
	Bond       *bondRequest     `json:"bond"`
}

// HandleRecord appends one transaction to the ledger
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	day, err := date.Parse(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	input := transactions.RecordInput{
		OwnerID:    req.OwnerID,
		Symbol:     req.Symbol,
		AssetType:  domain.AssetType(req.AssetType),
		Side:       domain.TransactionSide(req.Side),
		Quantity:   req.Quantity,
		Price:      req.Price,
		Currency:   req.Currency,
		Date:       day,
		ExternalID: req.ExternalID,
	}
	if req.Bond != nil {
		input.Bond = &transactions.BondDetails{
			BondType:         req.Bond.BondType,
			Series:           req.Bond.Series,
			MaturityDate:     req.Bond.MaturityDate,
			InterestRateType: domain.InterestRateType(req.Bond.InterestRateType),
			InterestRate:     req.Bond.InterestRate,
			WIBORMargin:      req.Bond.WIBORMargin,
			InflationMargin:  req.Bond.InflationMargin,
			BaseInterestRate: req.Bond.BaseInterestRate,
			FaceValue:        req.Bond.FaceValue,
		}
	}

	tx, err := h.service.Record(input)
	if err != nil {
		switch {
		case errors.Is(err, transactions.ErrDuplicateTransaction):
			h.writeError(w, http.StatusConflict, err.Error())
		case isValidationError(err):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Failed to record transaction")
			h.writeError(w, http.StatusInternalServerError, "failed to record transaction")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":          tx.ID,
		"external_id": tx.ExternalID,
		"asset_id":    tx.AssetID,
		"date":        tx.Date,
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, transactions.ErrMissingOwner) ||
		errors.Is(err, transactions.ErrInvalidQuantity) ||
		errors.Is(err, transactions.ErrInvalidSide) ||
		errors.Is(err, transactions.ErrMissingDate) ||
		errors.Is(err, transactions.ErrMissingAsset)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
