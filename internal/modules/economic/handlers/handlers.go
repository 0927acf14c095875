// Package handlers provides HTTP handlers for economic reference data.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/economic"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Handler handles economic data HTTP requests
type Handler struct {
	repo *economic.Repository
	log  zerolog.Logger
}

// NewHandler creates a new economic data handler
func NewHandler(repo *economic.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "economic").Logger(),
	}
}

type record struct {
	Date         date.Date       `json:"date"`
	WIBOR3M      decimal.Decimal `json:"wibor_3m"`
	WIBOR6M      decimal.Decimal `json:"wibor_6m"`
	InflationCPI decimal.Decimal `json:"inflation_cpi"`
}

func toRecord(data domain.EconomicData) record {
	return record{
		Date:         data.Date,
		WIBOR3M:      data.WIBOR3M,
		WIBOR6M:      data.WIBOR6M,
		InflationCPI: data.InflationCPI,
	}
}

// HandleGetLatest returns the most recent reference rate observation
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.repo.Latest()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest economic data")
		h.writeError(w, http.StatusInternalServerError, "failed to load economic data")
		return
	}
	if latest == nil {
		h.writeError(w, http.StatusNotFound, "no economic data recorded")
		return
	}

	h.writeJSON(w, http.StatusOK, toRecord(*latest))
}

// HandleGetHistory returns observations within a date range
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	end := date.Today()
	start := end.Add(-365)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return
		}
		end = parsed
	}

	data, err := h.repo.GetRange(start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load economic history")
		h.writeError(w, http.StatusInternalServerError, "failed to load economic data")
		return
	}

	result := make([]record, 0, len(data))
	for _, row := range data {
		result = append(result, toRecord(row))
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleUpsert stores one observation, replacing any existing row for the
// same date.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req record
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date.IsZero() {
		h.writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	err := h.repo.Upsert(domain.EconomicData{
		Date:         req.Date,
		WIBOR3M:      req.WIBOR3M,
		WIBOR6M:      req.WIBOR6M,
		InflationCPI: req.InflationCPI,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to store economic data")
		h.writeError(w, http.StatusInternalServerError, "failed to store economic data")
		return
	}

	h.writeJSON(w, http.StatusCreated, req)
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
