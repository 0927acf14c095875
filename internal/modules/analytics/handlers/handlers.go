// Package handlers provides HTTP handlers for technical indicators.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/SzymonLiszewski/investfolio/internal/modules/analytics"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Handler handles technical indicator HTTP requests
type Handler struct {
	service *analytics.Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetIndicators returns SMA/EMA/RSI/MACD series for one symbol
func (h *Handler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

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

	report, err := h.service.Compute(symbol, start, end,
		intParam(r, "sma"), intParam(r, "ema"), intParam(r, "rsi"))
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Indicator computation failed")
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

func intParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
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
