// Package handlers provides HTTP handlers for currency conversion.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/internal/modules/currency"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Handler handles currency HTTP requests
type Handler struct {
	converter *currency.Converter
	fx        domain.FXProvider
	log       zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(converter *currency.Converter, fx domain.FXProvider, log zerolog.Logger) *Handler {
	return &Handler{
		converter: converter,
		fx:        fx,
		log:       log.With().Str("handler", "currency").Logger(),
	}
}

type convertRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// HandleGetRate handles GET /api/currency/rate?from=USD&to=PLN
func (h *Handler) HandleGetRate(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	rate := h.converter.GetExchangeRate(from, to)
	if rate == nil {
		writeError(w, http.StatusNotFound, "exchange rate unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"from": from,
		"to":   to,
		"rate": rate,
	})
}

// HandleConvert handles POST /api/currency/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "amount must be greater than 0")
		return
	}

	converted := h.converter.Convert(req.Amount, req.From, req.To)
	if converted == nil {
		writeError(w, http.StatusNotFound, "exchange rate unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":      req.From,
		"to":        req.To,
		"amount":    req.Amount,
		"converted": converted,
	})
}

// HandleGetHistory handles GET /api/currency/history?from=&to=&start=&end=
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	end := date.Today()
	start := end.Add(-30)
	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := date.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		start = parsed
	}
	if s := r.URL.Query().Get("end"); s != "" {
		parsed, err := date.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		end = parsed
	}

	rates, err := h.fx.GetHistoricalRates(from, to, start, end)
	if err != nil {
		h.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Historical rates fetch failed")
		writeError(w, http.StatusBadGateway, "historical rates unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":  from,
		"to":    to,
		"start": start,
		"end":   end,
		"rates": rates,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
