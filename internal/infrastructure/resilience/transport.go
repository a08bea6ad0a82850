package resilience

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/example/themepark-booking/internal/internaltypes"
)

// Transport guards an adapter's outbound calls with a token-bucket limiter and
// a circuit breaker. Transport errors and 5xx responses count as failures;
// 4xx responses are vendor answers and count as successes.
type Transport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
	Breaker *CircuitBreaker
}

// NewLimiter converts a per-minute budget into a token bucket. rpm <= 0 means unlimited.
func NewLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	if t.Breaker != nil && !t.Breaker.Allow() {
		return nil, fmt.Errorf("%s: %w", t.Breaker.Name(), internaltypes.ErrCircuitOpen)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if t.Breaker != nil {
		if err != nil || resp.StatusCode >= 500 {
			t.Breaker.Failure()
		} else {
			t.Breaker.Success()
		}
	}
	return resp, err
}
