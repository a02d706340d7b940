package ratelimit

import (
	"encoding/json"
	"fmt"
)

// FreePlan is the reserved plan name for guest (IP-based) limiting.
// When no plan with this name is configured, guests are rejected outright.
const FreePlan = "free"

// Tier is a single quota rule: at most Threshold hits within a rolling
// window of Duration seconds, tracked in buckets of Precision seconds.
type Tier struct {
	Duration  int64
	Threshold int64
	Precision int64
}

// Tiers are written as [duration, threshold] or
// [duration, threshold, precision] in config and on the wire.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var parts []int64
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}

	switch len(parts) {
	case 2:
		t.Duration, t.Threshold, t.Precision = parts[0], parts[1], 0
	case 3:
		t.Duration, t.Threshold, t.Precision = parts[0], parts[1], parts[2]
	default:
		return fmt.Errorf("tier must have 2 or 3 elements, got %d", len(parts))
	}

	return nil
}

func (t Tier) MarshalJSON() ([]byte, error) {
	if t.Precision == 0 || t.Precision == t.Duration {
		return json.Marshal([]int64{t.Duration, t.Threshold})
	}
	return json.Marshal([]int64{t.Duration, t.Threshold, t.Precision})
}

// normalized returns the tier with Precision defaulted to Duration and
// clamped so it never exceeds it.
func (t Tier) normalized() Tier {
	if t.Precision <= 0 || t.Precision > t.Duration {
		t.Precision = t.Duration
	}
	return t
}

// Plan is a named, ordered set of tiers. Order is preserved as configured;
// the engine evaluates tiers in this order.
type Plan struct {
	Limits []Tier `json:"limits"`
}

func validatePlans(plans map[string]Plan) error {
	for name, plan := range plans {
		if len(plan.Limits) == 0 {
			// An empty tier set would allow everything and never expire
			// its counter record, leaking idle keys in the store.
			return fmt.Errorf("plan %q has no limits", name)
		}
		for i, tier := range plan.Limits {
			if tier.Duration <= 0 {
				return fmt.Errorf("plan %q tier %d: duration must be positive", name, i)
			}
			if tier.Precision < 0 {
				return fmt.Errorf("plan %q tier %d: precision must not be negative", name, i)
			}
		}
	}
	return nil
}
