package scavenge

import (
	"time"

	"github.com/villabot/villabot/internal/village"
	"github.com/villabot/villabot/internal/villaerr"
)

// ReturnWaitThreshold is how close to return a running tier must be before
// the planner briefly waits and re-reads instead of bailing out entirely.
const ReturnWaitThreshold = 90 * time.Second

// DispatchResult is the outcome of one planner run.
type DispatchResult struct {
	// Dispatched is the per-tier troop allocation actually sent, or nil
	// if nothing was dispatched this cycle (tiers still running, dry
	// run, or no eligible troops).
	Dispatched map[village.ScavengeTier]village.TroopCount

	// NextReturn is the latest return timestamp across all tiers
	// dispatched or already running, used to feed the orchestrator's
	// wake-up computation.
	NextReturn time.Time
}

// Driver is the subset of BrowserDriver the planner needs: submitting a
// dispatch for one tier and reading current tier status.
type Driver interface {
	TierStatuses() ([]village.TierStatus, error)
	Dispatch(tier village.ScavengeTier, troops village.TroopCount) (time.Time, error)
	PreviewFill(tier village.ScavengeTier, troops village.TroopCount) error
}

// Planner drives the scavenge dispatch cycle for a single village.
type Planner struct {
	driver Driver
	world  village.WorldParameters
}

// New constructs a Planner bound to driver and world.
func New(driver Driver, world village.WorldParameters) *Planner {
	return &Planner{driver: driver, world: world}
}

// Run executes one scavenge cycle: checks whether any eligible tier is
// currently running (bailing out to let the orchestrator's wake-up
// computation handle imminent returns), allocates the idle troop pool
// across eligible tiers for equal runtime, and dispatches (or, if dryRun,
// only previews the lowest tier's form fill).
func (p *Planner) Run(idleTroops village.TroopCount, reserve village.TroopCount, excluded map[string]bool, dryRun bool) (DispatchResult, error) {
	statuses, err := p.driver.TierStatuses()
	if err != nil {
		return DispatchResult{}, err
	}

	var eligible []village.ScavengeTier
	var latestRunning time.Time
	anyRunning := false
	for _, s := range statuses {
		if !s.Eligible() {
			continue
		}
		eligible = append(eligible, s.Tier)
		if s.Running {
			anyRunning = true
			if s.ReturnTime.After(latestRunning) {
				latestRunning = s.ReturnTime
			}
		}
	}

	if anyRunning {
		remaining := time.Until(latestRunning)
		if remaining > ReturnWaitThreshold {
			// Bail out; let the orchestrator's wake-up computation
			// handle the wait.
			return DispatchResult{NextReturn: latestRunning}, nil
		}
		// Close enough to return: wait for it, then re-read once.
		if remaining > 0 {
			time.Sleep(remaining)
		}
		statuses, err = p.driver.TierStatuses()
		if err != nil {
			return DispatchResult{}, err
		}
		var stillRunning time.Time
		found := false
		for _, s := range statuses {
			if s.Running {
				found = true
				if s.ReturnTime.After(stillRunning) {
					stillRunning = s.ReturnTime
				}
			}
		}
		if found {
			return DispatchResult{NextReturn: stillRunning}, nil
		}
	}

	pool := filterPool(idleTroops, reserve, excluded)
	if len(pool) == 0 || len(eligible) == 0 {
		return DispatchResult{}, nil
	}

	weights := EqualRuntimeWeights(eligible)
	allocation := AllocateByRatio(pool, weights, p.world.UnitCarry)
	if len(allocation) == 0 {
		return DispatchResult{}, nil
	}

	if dryRun {
		lowest := lowestTier(weights)
		if troops, ok := allocation[lowest]; ok {
			if err := p.driver.PreviewFill(lowest, troops); err != nil {
				return DispatchResult{}, err
			}
		}
		return DispatchResult{Dispatched: allocation}, nil
	}

	tiersDesc := make([]village.ScavengeTier, 0, len(allocation))
	for tier := range allocation {
		tiersDesc = append(tiersDesc, tier)
	}
	sortDesc(tiersDesc)

	var latestReturn time.Time
	for _, tier := range tiersDesc {
		troops := allocation[tier]
		returnTime, err := p.driver.Dispatch(tier, troops)
		if err != nil {
			if err == villaerr.ErrQueueFull {
				continue
			}
			return DispatchResult{}, err
		}
		if returnTime.After(latestReturn) {
			latestReturn = returnTime
		}
	}

	return DispatchResult{Dispatched: allocation, NextReturn: latestReturn}, nil
}

// SecondsUntilReturn computes the remaining wait before next, clamped at
// zero. This value feeds the orchestrator's wake-up calculation.
func SecondsUntilReturn(next time.Time, now time.Time) float64 {
	if next.IsZero() {
		return 0
	}
	remaining := next.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

func filterPool(idle, reserve village.TroopCount, excluded map[string]bool) village.TroopCount {
	afterReserve := idle.Subtract(reserve)
	out := make(village.TroopCount, len(afterReserve))
	for unit, n := range afterReserve {
		if excluded != nil && excluded[unit] {
			continue
		}
		if n > 0 {
			out[unit] = n
		}
	}
	return out
}

func sortDesc(tiers []village.ScavengeTier) {
	for i := 1; i < len(tiers); i++ {
		for j := i; j > 0 && tiers[j] > tiers[j-1]; j-- {
			tiers[j], tiers[j-1] = tiers[j-1], tiers[j]
		}
	}
}
