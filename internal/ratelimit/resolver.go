package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/redis/go-redis/v9"
)

// PlanLookupFunc resolves a token to a plan name. An empty name with a nil
// error means the token has no plan and should fall back to guest limiting.
type PlanLookupFunc func(ctx context.Context, token string) (string, error)

// cachedNoPlan marks a token known to have no plan, so repeat checks skip
// the external lookup until the cache entry expires.
const cachedNoPlan = "-"

// Resolver maps an incoming identity to a tier set and runs the counter
// check: plan-assignment cache first, then the external lookup, then the
// guest (IP) path when no plan applies.
type Resolver struct {
	engine    *Engine
	redis     *storage.RedisClient
	namespace string
	cacheTTL  time.Duration
	plans     map[string]Plan
	lookup    PlanLookupFunc
	logger    *slog.Logger

	now func() time.Time
}

func NewResolver(engine *Engine, redis *storage.RedisClient, namespace string, cacheTTL time.Duration, plans map[string]Plan, lookup PlanLookupFunc, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		engine:    engine,
		redis:     redis,
		namespace: namespace,
		cacheTTL:  cacheTTL,
		plans:     plans,
		lookup:    lookup,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckIP runs the guest path: the free plan's tiers against the client
// IP. It reports whether the call is denied. Without a free plan every
// guest is denied, with no store access.
//
// Guest keys carry no namespace prefix, so deployments sharing one store
// also share IP counters.
func (r *Resolver) CheckIP(ctx context.Context, ip string) (bool, error) {
	free, ok := r.plans[FreePlan]
	if !ok {
		return true, nil
	}
	return r.engine.CheckAndIncrement(ctx, "rl:hit:"+ip, free.Limits, r.now(), 1)
}

// CheckToken runs the token path: cached plan assignment when present,
// external lookup on a cache miss, guest fallback when no plan applies.
// It reports whether the call is denied.
func (r *Resolver) CheckToken(ctx context.Context, token, ip string) (bool, error) {
	planKey := r.namespace + ":rl:" + token
	checkKey := r.namespace + ":rl:hit:" + token

	cached, err := r.redis.Get(ctx, planKey)
	switch {
	case err == redis.Nil:
		return r.resolveUncached(ctx, token, ip, planKey, checkKey)
	case err != nil:
		return false, fmt.Errorf("plan cache read failed: %w", err)
	case cached == cachedNoPlan:
		return r.CheckIP(ctx, ip)
	}

	plan, ok := r.plans[cached]
	if !ok {
		// The cached plan was removed or renamed since it was cached.
		// Drop the stale entry and treat the caller as a guest.
		r.logger.Debug("cached plan no longer configured", "plan", cached)
		if derr := r.redis.Del(ctx, planKey); derr != nil {
			r.logger.Warn("failed to delete stale plan cache entry", "key", planKey, "error", derr)
		}
		return r.CheckIP(ctx, ip)
	}

	return r.engine.CheckAndIncrement(ctx, checkKey, plan.Limits, r.now(), 1)
}

func (r *Resolver) resolveUncached(ctx context.Context, token, ip, planKey, checkKey string) (bool, error) {
	if r.lookup == nil {
		return r.CheckIP(ctx, ip)
	}

	name, err := r.lookup(ctx, token)
	if err != nil {
		return false, fmt.Errorf("plan lookup failed: %w", err)
	}

	if r.cacheTTL > 0 {
		value := name
		if value == "" {
			value = cachedNoPlan
		}
		// Best effort. A missed cache write only costs a repeat lookup.
		if serr := r.redis.Set(ctx, planKey, value, r.cacheTTL); serr != nil {
			r.logger.Warn("failed to cache plan assignment", "key", planKey, "error", serr)
		}
	}

	if name == "" {
		return r.CheckIP(ctx, ip)
	}

	plan, ok := r.plans[name]
	if !ok {
		r.logger.Debug("lookup returned unknown plan", "plan", name)
		return r.CheckIP(ctx, ip)
	}

	return r.engine.CheckAndIncrement(ctx, checkKey, plan.Limits, r.now(), 1)
}
