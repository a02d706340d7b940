package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/redis/go-redis/v9"
)

// checkScript performs the bucketed sliding-window check-and-increment for
// one key across every tier in a single atomic unit. Each tier keeps three
// kinds of hash fields under the prefix "<duration>:<precision>:": the
// aggregate count at the bare prefix, the last-trim stamp at "<prefix>o" and
// one sub-count per live time bucket at "<prefix><blockID>". The aggregate
// always equals the sum of the live bucket sub-counts.
//
// Returns 1 when the call is denied, 0 when it was allowed and recorded.
var checkScript = redis.NewScript(`
local payload = cjson.decode(ARGV[1])
local key = KEYS[1]
local limits = payload.limits
local ts = tonumber(payload.timestamp)
local weight = tonumber(payload.weight)

local longest = 0
for i = 1, #limits do
    if limits[i][1] > longest then
        longest = limits[i][1]
    end
end

-- Verification pass: trim expired buckets and check every tier before
-- writing anything. The first violated tier denies the whole call.
for i = 1, #limits do
    local duration = tonumber(limits[i][1])
    local threshold = tonumber(limits[i][2])
    local precision = tonumber(limits[i][3])
    local blocks = math.ceil(duration / precision)
    local prefix = string.format('%d:%d:', duration, precision)
    local block_id = math.floor(ts / precision)
    local trim_before = block_id - blocks + 1

    local old_ts = redis.call('HGET', key, prefix .. 'o')
    old_ts = old_ts and tonumber(old_ts) or trim_before
    if old_ts > ts then
        -- Clock went backwards relative to a prior write. Hard deny.
        return 1
    end

    local decr = 0
    local dele = {}
    local trim = math.min(trim_before, old_ts + blocks)
    for old_block = old_ts, trim - 1 do
        local bkey = prefix .. string.format('%d', old_block)
        local bcount = redis.call('HGET', key, bkey)
        if bcount then
            decr = decr + tonumber(bcount)
            table.insert(dele, bkey)
        end
    end

    local cur
    if #dele > 0 then
        redis.call('HDEL', key, unpack(dele))
        cur = redis.call('HINCRBY', key, prefix, -decr)
    else
        cur = redis.call('HGET', key, prefix)
        cur = cur and tonumber(cur) or 0
    end

    if tonumber(cur) + weight > threshold then
        return 1
    end
end

-- Update pass: the call is allowed, record it against every tier.
for i = 1, #limits do
    local duration = tonumber(limits[i][1])
    local precision = tonumber(limits[i][3])
    local blocks = math.ceil(duration / precision)
    local prefix = string.format('%d:%d:', duration, precision)
    local block_id = math.floor(ts / precision)
    local trim_before = block_id - blocks + 1

    redis.call('HSET', key, prefix .. 'o', trim_before)
    redis.call('HINCRBY', key, prefix, weight)
    redis.call('HINCRBY', key, prefix .. string.format('%d', block_id), weight)
end

if longest > 0 then
    redis.call('EXPIRE', key, longest)
end

return 0
`)

type checkPayload struct {
	Key       string    `json:"key"`
	Limits    [][]int64 `json:"limits"`
	Timestamp int64     `json:"timestamp"`
	Weight    int64     `json:"weight"`
}

// Engine decides allow/deny for one key against a set of tiers, backed by
// the shared store's atomic script execution.
type Engine struct {
	redis *storage.RedisClient
}

func NewEngine(redis *storage.RedisClient) *Engine {
	return &Engine{redis: redis}
}

// CheckAndIncrement atomically verifies every tier for key and, when no tier
// would be exceeded, records weight against all of them. The counter record
// expires after the longest tier duration of idle time.
//
// An empty tiers slice always allows and writes nothing, so such keys are
// never tracked and never expire. Callers should validate their tier sets.
func (e *Engine) CheckAndIncrement(ctx context.Context, key string, tiers []Tier, now time.Time, weight int64) (bool, error) {
	if len(tiers) == 0 {
		return false, nil
	}
	if weight <= 0 {
		weight = 1
	}

	limits := make([][]int64, 0, len(tiers))
	for _, tier := range tiers {
		t := tier.normalized()
		limits = append(limits, []int64{t.Duration, t.Threshold, t.Precision})
	}

	payload, err := json.Marshal(checkPayload{
		Key:       key,
		Limits:    limits,
		Timestamp: now.Unix(),
		Weight:    weight,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode check payload: %w", err)
	}

	result, err := e.redis.RunScript(ctx, checkScript, []string{key}, string(payload))
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}

	denied, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result %v", result)
	}

	return denied == 1, nil
}
