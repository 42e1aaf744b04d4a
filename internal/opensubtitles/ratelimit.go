package opensubtitles

import (
	"time"

	"golang.org/x/time/rate"
)

// MinInterval is the default spacing between consecutive API calls.
const MinInterval = time.Second

func newLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Every(MinInterval), 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}
