package resolve

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/phone-finder/internal/model"
)

// DefaultDelay is the pause a worker takes between one lookup returning and
// its next lookup starting.
// The upstream service throttles keys that call faster.
const DefaultDelay = 500 * time.Millisecond

// Looker resolves one query. *Resolver implements it.
type Looker interface {
	Resolve(ctx context.Context, q Query) model.ResolvedEntity
}

// ProgressFunc is called after each lookup with the number completed so far.
type ProgressFunc func(done, total int, ent model.ResolvedEntity)

// Batch resolves a list of names. Each worker waits a fixed delay after a
// lookup returns before starting its next one.
type Batch struct {
	looker  Looker
	workers int
	delay   time.Duration
	shared  *rate.Limiter
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithSharedLimiter makes every lookup also wait on l. Batches that share
// one limiter are capped together, so concurrent batches cannot exceed it.
func WithSharedLimiter(l *rate.Limiter) BatchOption {
	return func(b *Batch) {
		b.shared = l
	}
}

// NewBatch creates a Batch. Non-positive workers means one; a negative delay
// disables it and zero uses DefaultDelay.
func NewBatch(l Looker, workers int, delay time.Duration, opts ...BatchOption) *Batch {
	if workers <= 0 {
		workers = 1
	}
	if delay == 0 {
		delay = DefaultDelay
	}
	b := &Batch{looker: l, workers: workers, delay: delay}
	for _, o := range opts {
		o(b)
	}
	return b
}

// NewSharedLimiter returns a limiter admitting at most workers lookups per
// delay, for use with WithSharedLimiter. A negative delay disables it and
// zero uses DefaultDelay.
func NewSharedLimiter(workers int, delay time.Duration) *rate.Limiter {
	if workers <= 0 {
		workers = 1
	}
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay/time.Duration(workers)), workers)
}

// pause blocks for the inter-lookup delay or until ctx ends.
func (b *Batch) pause(ctx context.Context) error {
	if b.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run resolves every query and returns the entities in input order. If ctx
// ends early, unprocessed queries are reported as canceled and ctx's error
// is returned alongside the results.
func (b *Batch) Run(ctx context.Context, queries []Query, progress ProgressFunc) ([]model.ResolvedEntity, error) {
	out := make([]model.ResolvedEntity, len(queries))
	for i, q := range queries {
		out[i] = model.ResolvedEntity{QueryName: q.Name, ErrorReason: model.ReasonLookupCanceled}
	}
	if len(queries) == 0 {
		return out, nil
	}

	jobs := make(chan int)
	var mu sync.Mutex
	done := 0

	workers := min(b.workers, len(queries))
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			first := true
			for i := range jobs {
				if !first {
					if err := b.pause(ctx); err != nil {
						return nil //nolint:nilerr // cancellation is reported by Run
					}
				}
				first = false
				if b.shared != nil {
					if err := b.shared.Wait(ctx); err != nil {
						return nil //nolint:nilerr // cancellation is reported by Run
					}
				}
				if ctx.Err() != nil {
					return nil
				}
				ent := b.looker.Resolve(ctx, queries[i])

				mu.Lock()
				out[i] = ent
				done++
				n := done
				mu.Unlock()

				if progress != nil {
					progress(n, len(queries), ent)
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i := range queries {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	_ = g.Wait()
	zap.L().Info("batch resolve finished",
		zap.Int("queries", len(queries)),
		zap.Int("resolved", done),
		zap.Int("workers", workers),
	)
	return out, ctx.Err()
}
