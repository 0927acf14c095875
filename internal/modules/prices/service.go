package prices

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/SzymonLiszewski/investfolio/internal/clientdata"
	"github.com/SzymonLiszewski/investfolio/internal/domain"
	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// staleTailDays is how far the cached series may lag behind the requested end
// before a live fetch is attempted. Covers weekends and market holidays.
const staleTailDays = 4

// cachedPrice is the JSON blob stored in the current_prices cache table.
type cachedPrice struct {
	Price float64 `json:"price"`
}

// cachedRange is the JSON blob stored in the price_history_ranges cache
// table. It records the window the last live fetch was asked for, keyed by
// symbol.
type cachedRange struct {
	Start date.Date `json:"start"`
	End   date.Date `json:"end"`
}

// Service resolves price history cache-first, gap-filling from a live fetcher.
// A fetch failure degrades to whatever the cache holds, never an error.
type Service struct {
	repo    *Repository
	fetcher domain.PriceHistoryProvider
	spot    domain.PriceFetcher
	cache   *clientdata.Repository
	log     zerolog.Logger
}

// NewService creates a price service. fetcher, spot and cache may each be nil;
// the service then serves only what the history database already holds.
func NewService(
	repo *Repository,
	fetcher domain.PriceHistoryProvider,
	spot domain.PriceFetcher,
	cache *clientdata.Repository,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		spot:    spot,
		cache:   cache,
		log:     log.With().Str("service", "prices").Logger(),
	}
}

// GetPriceHistory returns close prices for symbol in [start, end], serving
// from the database cache and fetching missing data from the live source.
func (s *Service) GetPriceHistory(symbol string, start, end date.Date) (map[date.Date]float64, error) {
	cached, err := s.repo.GetRange(symbol, start, end)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read cached prices")
		cached = make(map[date.Date]float64)
	}

	if !s.needsFetch(symbol, cached, end) || s.fetcher == nil {
		return cached, nil
	}

	// A fresh range marker means the live source was already asked for this
	// window and had nothing newer. Serve the cache until the marker expires.
	if s.rangeCovered(symbol, start, end) {
		return cached, nil
	}

	fetched, err := s.fetcher.GetPriceHistory(symbol, start, end)
	if err != nil {
		// Stale data beats no data
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Live price fetch failed, serving cache")
		return cached, nil
	}

	s.markRangeFetched(symbol, start, end)

	if len(fetched) > 0 {
		if err := s.repo.UpsertMany(symbol, fetched); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to store fetched prices")
		}
		for day, price := range fetched {
			cached[day] = price
		}
	}

	return cached, nil
}

// GetSeries returns the price history as a forward-fill Series.
func (s *Service) GetSeries(symbol string, start, end date.Date) (*Series, error) {
	history, err := s.GetPriceHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}
	return NewSeries(history), nil
}

// GetCurrentPrice returns the current price for symbol, cache-first with a
// short TTL. Returns nil when no source can provide a price.
func (s *Service) GetCurrentPrice(symbol string) (*decimal.Decimal, error) {
	if s.cache != nil {
		if raw, err := s.cache.GetIfFresh("current_prices", symbol); err == nil && raw != nil {
			var cp cachedPrice
			if err := json.Unmarshal(raw, &cp); err == nil {
				price := decimal.NewFromFloat(cp.Price)
				return &price, nil
			}
		}
	}

	if s.spot == nil {
		return nil, nil
	}

	price, err := s.spot.GetCurrentPrice(symbol)
	if err != nil || price == nil {
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Current price fetch failed")
		}
		// Fall back to a stale cached price when the live source fails
		if s.cache != nil {
			if raw, cacheErr := s.cache.Get("current_prices", symbol); cacheErr == nil && raw != nil {
				var cp cachedPrice
				if jsonErr := json.Unmarshal(raw, &cp); jsonErr == nil {
					stale := decimal.NewFromFloat(cp.Price)
					return &stale, nil
				}
			}
		}
		return nil, nil
	}

	if s.cache != nil {
		f, _ := price.Float64()
		if err := s.cache.Store("current_prices", symbol, cachedPrice{Price: f}, clientdata.TTLCurrentPrice); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache current price")
		}
	}

	return price, nil
}

// PriceOn returns the close price for symbol on day, forward-filling over
// weekends and holidays from the preceding week. Falls back to the current
// price when day is today and no history is available yet. Returns nil when
// no source can resolve a price.
func (s *Service) PriceOn(symbol string, day date.Date) (*decimal.Decimal, error) {
	series, err := s.GetSeries(symbol, day.Add(-7), day)
	if err == nil && series != nil {
		if p := series.PriceAt(day); p != nil {
			price := decimal.NewFromFloat(*p)
			return &price, nil
		}
	}

	if day.Equal(date.Today()) {
		return s.GetCurrentPrice(symbol)
	}

	return nil, nil
}

// rangeCovered reports whether a fresh range marker already covers the
// requested window.
func (s *Service) rangeCovered(symbol string, start, end date.Date) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.GetIfFresh("price_history_ranges", symbol)
	if err != nil || raw == nil {
		return false
	}
	var cr cachedRange
	if err := json.Unmarshal(raw, &cr); err != nil {
		return false
	}
	return !start.Before(cr.Start) && !end.After(cr.End)
}

// markRangeFetched records that the live source was queried for the window.
func (s *Service) markRangeFetched(symbol string, start, end date.Date) {
	if s.cache == nil {
		return
	}
	cr := cachedRange{Start: start, End: end}
	if err := s.cache.Store("price_history_ranges", symbol, cr, clientdata.TTLPriceHistory); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to record fetched range")
	}
}

// needsFetch reports whether the cached range is missing or its tail is stale.
func (s *Service) needsFetch(symbol string, cached map[date.Date]float64, end date.Date) bool {
	if len(cached) == 0 {
		return true
	}

	latest, err := s.repo.LatestDate(symbol)
	if err != nil || latest.IsZero() {
		return true
	}

	return latest.Before(end.Add(-staleTailDays))
}
