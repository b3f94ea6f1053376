package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/resilience"
)

// Cascade tries providers in order until one matches. Each provider sits
// behind its own circuit breaker so a failing backend is skipped quickly.
type Cascade struct {
	providers []Provider
	breakers  []*resilience.Breaker
	retry     resilience.Policy
}

// CascadeOption configures a Cascade.
type CascadeOption func(*Cascade)

// WithBreakerConfig sets the breaker configuration used for every provider.
func WithBreakerConfig(cfg resilience.BreakerConfig) CascadeOption {
	return func(c *Cascade) {
		for i, p := range c.providers {
			c.breakers[i] = resilience.NewBreaker(p.Name(), cfg)
		}
	}
}

// WithProviderRetry sets the retry policy applied to each provider call.
func WithProviderRetry(p resilience.Policy) CascadeOption {
	return func(c *Cascade) {
		c.retry = p
	}
}

// NewCascade creates a Cascade over providers.
func NewCascade(providers []Provider, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		providers: providers,
		breakers:  make([]*resilience.Breaker, len(providers)),
		retry:     resilience.DefaultPolicy().WithAttempts(2),
	}
	for i, p := range providers {
		c.breakers[i] = resilience.NewBreaker(p.Name(), resilience.BreakerConfig{})
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Geocode implements Client. It returns an unmatched result when every
// reachable provider missed, and an error only when every provider failed.
func (c *Cascade) Geocode(ctx context.Context, query string) (*Result, error) {
	if len(c.providers) == 0 {
		return nil, eris.New("geocode: no providers configured")
	}

	var lastErr error
	missed := false
	for i, p := range c.providers {
		res, err := resilience.Call(ctx, c.breakers[i], func(ctx context.Context) (*Result, error) {
			return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
				return p.Geocode(ctx, query)
			})
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: canceled")
			}
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if res != nil && res.Matched {
			return res, nil
		}
		missed = true
	}

	if missed || lastErr == nil {
		return &Result{Source: "cascade"}, nil
	}
	return nil, eris.Wrap(lastErr, "geocode: all providers failed")
}
