package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/storage"
)

// Options configure a Limiter. Plans maps plan names to tier sets; the
// reserved name "free" provides guest limits. CacheTTL bounds how long a
// token's plan assignment is cached; zero or negative disables caching.
// PlanLookup is optional; without it uncached tokens fall back to the guest
// path. Logger is optional; nil disables logging.
type Options struct {
	Namespace  string
	CacheTTL   time.Duration
	Plans      map[string]Plan
	PlanLookup PlanLookupFunc
	Logger     *slog.Logger
}

// Limiter is the public entry point of the decision engine. It holds only
// immutable configuration; every check is stateless and safe to run
// concurrently, with the shared store as the sole coordination point.
type Limiter struct {
	resolver *Resolver
}

func New(redis *storage.RedisClient, opts Options) (*Limiter, error) {
	if err := validatePlans(opts.Plans); err != nil {
		return nil, err
	}

	engine := NewEngine(redis)
	resolver := NewResolver(engine, redis, opts.Namespace, opts.CacheTTL, opts.Plans, opts.PlanLookup, opts.Logger)

	return &Limiter{resolver: resolver}, nil
}

// Check decides one request and reports whether it is denied. An empty
// token selects the guest (IP) path, which denies immediately and without
// store access when no free plan is configured.
func (l *Limiter) Check(ctx context.Context, token, ip string) (bool, error) {
	if token == "" {
		return l.resolver.CheckIP(ctx, ip)
	}
	return l.resolver.CheckToken(ctx, token, ip)
}
