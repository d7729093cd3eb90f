// Package troops implements the TroopRecruiter: target-mode top-up and
// fill-scavenge batch sizing.
package troops

import (
	"math"
	"time"

	"github.com/villabot/villabot/internal/village"
)

// UnitClass distinguishes batch-size caps; infantry batches cap at 50,
// cavalry at 25.
type UnitClass int

const (
	ClassInfantry UnitClass = iota
	ClassCavalry
)

// BatchCap returns the maximum batch size for a single training order of
// this unit class.
func (c UnitClass) BatchCap() int {
	if c == ClassCavalry {
		return 25
	}
	return 50
}

// Driver submits a training order for count units of unit in a village.
type Driver interface {
	Train(villageID int, unit string, count int) error
}

// Recruiter drives troop training for a single village.
type Recruiter struct {
	driver Driver
}

// New constructs a Recruiter bound to driver.
func New(driver Driver) *Recruiter {
	return &Recruiter{driver: driver}
}

// UnitTarget is one configured unit target for top-up mode.
type UnitTarget struct {
	Unit  string
	Class UnitClass
	Target int
}

// RunTargets executes top-up mode: for each unit with a positive target,
// deficit = target - owned - queued. If deficit > 0, submits a batch of
// min(deficit, class cap).
func (r *Recruiter) RunTargets(villageID int, targets []UnitTarget, owned, queued village.TroopCount) error {
	for _, t := range targets {
		if t.Target <= 0 {
			continue
		}
		deficit := t.Target - owned[t.Unit] - queued[t.Unit]
		if deficit <= 0 {
			continue
		}
		batch := deficit
		if cap := t.Class.BatchCap(); batch > cap {
			batch = cap
		}
		if err := r.driver.Train(villageID, t.Unit, batch); err != nil {
			return err
		}
	}
	return nil
}

// FillScavengeInput bundles the inputs fill-scavenge batch sizing needs.
type FillScavengeInput struct {
	Unit              string
	ScavengeRemaining float64 // seconds until scavenge return
	TrainSeconds      float64 // per-unit training time
	MaxAffordable     int
	QueueSeconds      float64 // seconds until existing training queue empties
}

// FillScavengeResult is the outcome of one fill-scavenge sizing pass.
type FillScavengeResult struct {
	Skipped   bool
	Batch     int
	TimerEnds time.Time
}

// RunFillScavenge sizes and submits a training batch so the queue
// terminates just after scavenging returns.
//
// Skips if remaining <= 30s, or if the existing queue already terminates
// within 30s of scavenge return. Otherwise batch size =
// min(maxAffordable, floor((remaining-queueSeconds)/perUnitTime)+1),
// clamped to at least 1.
func (r *Recruiter) RunFillScavenge(villageID int, in FillScavengeInput, now time.Time) (FillScavengeResult, error) {
	if in.ScavengeRemaining <= 30 {
		return FillScavengeResult{Skipped: true}, nil
	}
	if in.QueueSeconds >= in.ScavengeRemaining-30 {
		return FillScavengeResult{Skipped: true}, nil
	}

	gap := in.ScavengeRemaining - in.QueueSeconds
	batch := int(math.Floor(gap/in.TrainSeconds)) + 1
	if batch < 1 {
		batch = 1
	}
	if batch > in.MaxAffordable {
		batch = in.MaxAffordable
	}
	if batch <= 0 {
		return FillScavengeResult{Skipped: true}, nil
	}

	if err := r.driver.Train(villageID, in.Unit, batch); err != nil {
		return FillScavengeResult{}, err
	}

	timerEnds := now.Add(time.Duration((in.QueueSeconds + float64(batch)*in.TrainSeconds) * float64(time.Second)))
	return FillScavengeResult{Batch: batch, TimerEnds: timerEnds}, nil
}
