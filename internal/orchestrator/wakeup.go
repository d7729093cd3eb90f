package orchestrator

import "github.com/villabot/villabot/internal/humanizer"

// minEventAge is the floor below which a candidate future event is
// considered "now" and discarded from the wake-up computation -- waking
// up 5 seconds early to handle a queue slot isn't worth the jitter.
const minEventAge = 30.0

// WakeEvents are the candidate future timestamps (seconds from now) the
// orchestrator gathers after a cycle: scavenge party return, earliest
// build-queue completion, earliest resource-affordability time, and farm
// cooldown. A zero-value field with its matching Has flag false is
// treated as absent.
type WakeEvents struct {
	ScavengeReturn     float64
	HasScavengeReturn  bool
	BuildFinish        float64
	HasBuildFinish     bool
	ResourceWait       float64
	HasResourceWait    bool
	FarmCooldown       float64
	HasFarmCooldown    bool
}

// ComputeWakeUp picks the next sleep duration in seconds: the earliest
// qualifying event plus cycle_delay(10, 30) jitter, or cycle_delay(active)
// if no event qualifies.
func ComputeWakeUp(events WakeEvents, h *humanizer.Humanizer, active humanizer.Range) float64 {
	candidates := make([]float64, 0, 4)
	if events.HasScavengeReturn && events.ScavengeReturn > minEventAge {
		candidates = append(candidates, events.ScavengeReturn)
	}
	if events.HasBuildFinish && events.BuildFinish > minEventAge {
		candidates = append(candidates, events.BuildFinish)
	}
	if events.HasResourceWait && events.ResourceWait > minEventAge {
		candidates = append(candidates, events.ResourceWait)
	}
	if events.HasFarmCooldown && events.FarmCooldown > minEventAge {
		candidates = append(candidates, events.FarmCooldown)
	}

	if len(candidates) == 0 {
		return h.CycleDelay(active.Low, active.High)
	}

	min := candidates[0]
	for _, c := range candidates[1:] {
		if c < min {
			min = c
		}
	}
	return min + h.CycleDelay(10, 30)
}
