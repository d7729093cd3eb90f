package gameclient

import (
	"time"

	"github.com/villabot/villabot/internal/troops"
)

// FillScavengeAdapter wires a troops.Recruiter's fill-scavenge sizing
// pass to the orchestrator's between-cycle trigger. TrainSeconds and
// MaxAffordable are fixed values supplied by the caller (cmd/villabot
// passes compile-time constants), since neither a per-unit training
// duration table nor a live resource-affordability check has a reader in
// this package.
type FillScavengeAdapter struct {
	recruiter     *troops.Recruiter
	waiter        *ScavengeWaiter
	villageID     int
	unit          string
	trainSeconds  float64
	maxAffordable int
}

// NewFillScavengeAdapter constructs a FillScavengeAdapter for one
// village and unit.
func NewFillScavengeAdapter(recruiter *troops.Recruiter, waiter *ScavengeWaiter, villageID int, unit string, trainSeconds float64, maxAffordable int) *FillScavengeAdapter {
	return &FillScavengeAdapter{
		recruiter:     recruiter,
		waiter:        waiter,
		villageID:     villageID,
		unit:          unit,
		trainSeconds:  trainSeconds,
		maxAffordable: maxAffordable,
	}
}

// Run implements orchestrator.FillScavengeRunner.
func (a *FillScavengeAdapter) Run(now time.Time) error {
	remaining, ok := a.waiter.SecondsUntilReturn(a.villageID)
	if !ok {
		return nil
	}
	in := troops.FillScavengeInput{
		Unit:              a.unit,
		ScavengeRemaining: remaining,
		TrainSeconds:      a.trainSeconds,
		MaxAffordable:     a.maxAffordable,
	}
	_, err := a.recruiter.RunFillScavenge(a.villageID, in, now)
	return err
}
