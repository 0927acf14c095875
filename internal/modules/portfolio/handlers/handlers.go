// Package handlers provides HTTP handlers for portfolio queries.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/SzymonLiszewski/investfolio/internal/modules/portfolio"
	"github.com/SzymonLiszewski/investfolio/internal/modules/snapshots"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service      *portfolio.Service
	builder      *snapshots.Builder
	baseCurrency string
	log          zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, builder *snapshots.Builder, baseCurrency string, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		builder:      builder,
		baseCurrency: baseCurrency,
		log:          log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetComposition returns the owner's current holdings with values,
// cost basis, profit and percentage breakdowns.
func (h *Handler) HandleGetComposition(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	currency := h.currencyParam(r, ownerID)

	composition, err := h.service.Composition(ownerID, currency)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Composition failed")
		h.writeError(w, http.StatusInternalServerError, "failed to compute composition")
		return
	}

	h.writeJSON(w, http.StatusOK, composition)
}

// HandleGetHistory returns the owner's daily snapshot series
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	currency := h.currencyParam(r, ownerID)

	start, end, err := dateRangeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snaps, err := h.service.ValueHistory(ownerID, start, end, currency)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Value history failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load value history")
		return
	}

	type point struct {
		Date          date.Date `json:"date"`
		TotalValue    float64   `json:"total_value"`
		TotalInvested float64   `json:"total_invested"`
	}

	result := make([]point, 0, len(snaps))
	for _, snap := range snaps {
		value, _ := snap.TotalValue.Float64()
		invested, _ := snap.TotalInvested.Float64()
		result = append(result, point{Date: snap.Date, TotalValue: value, TotalInvested: invested})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"currency": currency,
		"history":  result,
	})
}

// HandleGetIndicators returns Sharpe, Sortino and Alpha for the owner
func (h *Handler) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	currency := h.currencyParam(r, ownerID)

	start, end, err := dateRangeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Indicators(ownerID, start, end, currency)
	if err != nil {
		h.log.Error().Err(err).Str("owner", ownerID).Msg("Indicators failed")
		h.writeError(w, http.StatusInternalServerError, "failed to compute indicators")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRebuildSnapshots regenerates the owner's snapshots. With a "from"
// query parameter the rebuild starts there; otherwise the full history is
// backfilled from the first transaction.
func (h *Handler) HandleRebuildSnapshots(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := date.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		if err := h.builder.RebuildFrom(ownerID, from); err != nil {
			h.log.Error().Err(err).Str("owner", ownerID).Msg("Snapshot rebuild failed")
			h.writeError(w, http.StatusInternalServerError, "snapshot rebuild failed")
			return
		}
	} else {
		if err := h.builder.Backfill(ownerID, h.currencyParam(r, ownerID)); err != nil {
			h.log.Error().Err(err).Str("owner", ownerID).Msg("Snapshot backfill failed")
			h.writeError(w, http.StatusInternalServerError, "snapshot backfill failed")
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currencyParam resolves the response currency: explicit query parameter,
// else the owner's default, else the configured base currency.
func (h *Handler) currencyParam(r *http.Request, ownerID string) string {
	if currency := r.URL.Query().Get("currency"); currency != "" {
		return currency
	}
	if currency := h.builder.DefaultCurrency(ownerID); currency != "" {
		return currency
	}
	return h.baseCurrency
}

// dateRangeParams parses start/end query parameters, defaulting to the
// last year.
func dateRangeParams(r *http.Request) (date.Date, date.Date, error) {
	end := date.Today()
	start := end.Add(-365)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			return date.Date{}, date.Date{}, err
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			return date.Date{}, date.Date{}, err
		}
		end = parsed
	}

	return start, end, nil
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
