// Package handlers provides HTTP handlers for on-demand bond valuation.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/assets"
	"github.com/SzymonLiszewski/investfolio/internal/modules/bonds"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Handler handles bond valuation HTTP requests
type Handler struct {
	calc      *bonds.Calculator
	assetRepo *assets.Repository
	log       zerolog.Logger
}

// NewHandler creates a new bond handler
func NewHandler(calc *bonds.Calculator, assetRepo *assets.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		calc:      calc,
		assetRepo: assetRepo,
		log:       log.With().Str("handler", "bonds").Logger(),
	}
}

type valueRequest struct {
	BondType           string           `json:"bond_type"`
	Series             string           `json:"series"`
	MaturityDate       date.Date        `json:"maturity_date"`
	InterestRateType   string           `json:"interest_rate_type"`
	InterestRate       *decimal.Decimal `json:"interest_rate"`
	WIBORMargin        *decimal.Decimal `json:"wibor_margin"`
	InflationMargin    *decimal.Decimal `json:"inflation_margin"`
	BaseInterestRate   *decimal.Decimal `json:"base_interest_rate"`
	FaceValue          decimal.Decimal  `json:"face_value"`
	Quantity           float64          `json:"quantity"`
	PurchaseDate       date.Date        `json:"purchase_date"`
	AsOf               date.Date        `json:"as_of"`
	Price              *decimal.Decimal `json:"price"`
	ProjectedInflation *decimal.Decimal `json:"projected_inflation"`
}

// HandleValue values a described bond holding. A projected_inflation field
// overrides the stored CPI for inflation-indexed coupons, so clients can
// run what-if valuations.
func (h *Handler) HandleValue(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.PurchaseDate.IsZero() {
		h.writeError(w, http.StatusBadRequest, "purchase_date is required")
		return
	}

	asset := &domain.Asset{
		Type:             domain.AssetTypeBond,
		Symbol:           req.Series,
		BondType:         req.BondType,
		BondSeries:       req.Series,
		MaturityDate:     req.MaturityDate,
		InterestRateType: domain.InterestRateType(req.InterestRateType),
		InterestRate:     req.InterestRate,
		WIBORMargin:      req.WIBORMargin,
		InflationMargin:  req.InflationMargin,
		BaseInterestRate: req.BaseInterestRate,
		FaceValue:        req.FaceValue,
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = date.Today()
	}

	calc := h.calc
	if req.ProjectedInflation != nil {
		calc = calc.WithProjectedInflation(req.ProjectedInflation)
	}

	quantity := decimal.NewFromFloat(req.Quantity)
	principal := asset.EffectiveFaceValue().Mul(quantity)

	value := calc.Value(asset, quantity, req.PurchaseDate, asOf)
	if value == nil {
		// No resolvable coupon rate: degrade to principal
		value = &principal
	}

	price := asset.EffectiveFaceValue()
	if req.Price != nil {
		price = *req.Price
	}

	response := map[string]interface{}{
		"value":            value,
		"accrued_interest": value.Sub(principal),
		"currency":         "PLN",
		"as_of":            asOf,
		"ytm":              calc.YieldToMaturity(asset, price, asOf),
	}
	if rate := calc.CurrentInterestRate(asset, req.PurchaseDate, asOf); rate != nil {
		response["current_interest_rate"] = rate
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSeries lists the known series codes for a bond family
func (h *Handler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	bondType := r.URL.Query().Get("type")
	if bondType == "" {
		h.writeError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}

	series, err := h.assetRepo.GetBondSeries(bondType)
	if err != nil {
		h.log.Error().Err(err).Str("type", bondType).Msg("Failed to list bond series")
		h.writeError(w, http.StatusInternalServerError, "failed to list bond series")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":   bondType,
		"series": series,
	})
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
