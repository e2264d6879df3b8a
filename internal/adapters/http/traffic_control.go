package httpadapter

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

type trafficControlConfig struct {
	rps         float64
	burst       int
	maxInFlight int
}

// trafficControlMiddleware sheds load before it reaches the handlers:
// a token-bucket limiter answers 429 with Retry-After, and a bounded
// in-flight semaphore answers 503 when the service is saturated.
func trafficControlMiddleware(next http.Handler, cfg trafficControlConfig) http.Handler {
	var limiter *rate.Limiter
	if cfg.rps > 0 {
		burst := cfg.burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.rps), burst)
	}

	var inFlight chan struct{}
	if cfg.maxInFlight > 0 {
		inFlight = make(chan struct{}, cfg.maxInFlight)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow() {
			retryAfter := 1
			if cfg.rps > 0 && cfg.rps < 1 {
				retryAfter = int(1 / cfg.rps)
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, errorBody("rate limit exceeded"))
			return
		}

		if inFlight != nil {
			select {
			case inFlight <- struct{}{}:
				defer func() { <-inFlight }()
			default:
				writeJSON(w, http.StatusServiceUnavailable, errorBody("server is saturated"))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
