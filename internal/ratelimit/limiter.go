package ratelimit

import "context"

// Limiter controls push send throughput per key. Keys group sends by
// audience, e.g. "notify:vendor".
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
