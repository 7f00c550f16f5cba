package httpclient

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests to stay under a platform's published limits
type RateLimiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
// A non-positive burst defaults to rps.
func NewRateLimiter(rps, burst int, logger zerolog.Logger) *RateLimiter {
	if burst <= 0 {
		burst = rps
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With().Str("component", "RateLimiter").Logger(),
	}
}

// Wait blocks until a request may be sent or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Debug().Err(err).Msg("Rate limiter wait aborted")
		return err
	}
	return nil
}

// Allow checks if a request is allowed without waiting
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
