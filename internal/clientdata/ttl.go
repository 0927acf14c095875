package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Range markers record the window the last live history fetch covered,
	// keyed by symbol. A day is enough; closed trading days never change.
	TTLPriceHistory = 24 * time.Hour

	// Short-lived data (changes frequently)
	TTLExchangeRate = time.Hour        // 1 hour - Currency exchange rates
	TTLCurrentPrice = 10 * time.Minute // 10 minutes - Current price cache for batch operations
)
