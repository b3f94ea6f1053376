package geocode

import "golang.org/x/time/rate"

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}
