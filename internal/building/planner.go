// Package building implements the BuildingPlanner: template-driven
// upgrade selection and resource-wait projection.
package building

import (
	"time"

	"github.com/villabot/villabot/internal/village"
	"github.com/villabot/villabot/internal/villaerr"
)

// Mode selects how the planner picks the next building to upgrade.
type Mode int

const (
	ModePriority Mode = iota
	ModeSequential
)

// Resources is the three-resource cost/production/balance vector shared
// by affordability and resource-wait calculations.
type Resources struct {
	Wood, Stone, Iron float64
}

// CanAfford reports whether have covers cost for every resource type.
func (have Resources) CanAfford(cost Resources) bool {
	return have.Wood >= cost.Wood && have.Stone >= cost.Stone && have.Iron >= cost.Iron
}

// BuildingInfo is the cost (and any other metadata) for a building's next
// upgrade, as read from the headquarters screen.
type BuildingInfo struct {
	Cost Resources
}

// HQState is the consolidated headquarters snapshot for one cycle.
type HQState struct {
	Levels    map[string]int
	Queue     []village.BuildQueueEntry
	Available map[string]BuildingInfo
	Premium   bool
}

// Driver is the subset of BrowserDriver/HQ screen the planner needs.
type Driver interface {
	GetHQState(villageID int) (HQState, error)
	UpgradeBuilding(villageID int, building string) (bool, error)
}

// Result is the outcome of one building cycle.
type Result struct {
	Ordered       bool
	BuildingName  string
	QueueFinishTS time.Time
	ResourceWait  float64
}

// Planner drives the building-upgrade cycle for a single village.
type Planner struct {
	driver        Driver
	mode          Mode
	targetLevels  map[string]int
	priorityOrder []string
	buildSteps    []village.BuildStep
}

// New constructs a Planner in priority mode with the given target levels
// and priority order.
func New(driver Driver, targetLevels map[string]int, priorityOrder []string) *Planner {
	return &Planner{driver: driver, mode: ModePriority, targetLevels: targetLevels, priorityOrder: priorityOrder}
}

// NewSequential constructs a Planner in sequential mode with the given
// ordered build steps.
func NewSequential(driver Driver, steps []village.BuildStep) *Planner {
	return &Planner{driver: driver, mode: ModeSequential, buildSteps: steps}
}

// maxQueueSlots returns the number of in-flight queue slots available:
// 1 without premium, 2 with premium. This redesigns the original's
// "2 regardless of premium" bug per the resolved open question.
func maxQueueSlots(premium bool) int {
	if premium {
		return 2
	}
	return 1
}

// Run executes one building cycle: fetches the consolidated HQ state,
// then repeatedly picks and submits upgrades until the queue is full, an
// upgrade is unaffordable, or no candidate remains.
func (p *Planner) Run(villageID int, have Resources, production Resources) (Result, error) {
	var result Result

	if len(p.targetLevels) == 0 && len(p.buildSteps) == 0 {
		return result, nil
	}

	state, err := p.driver.GetHQState(villageID)
	if err != nil {
		return result, err
	}

	maxQueue := maxQueueSlots(state.Premium)

	for attempt := 0; attempt < maxQueue; attempt++ {
		for _, entry := range state.Queue {
			if !entry.FinishTime.IsZero() && entry.FinishTime.After(result.QueueFinishTS) {
				result.QueueFinishTS = entry.FinishTime
			}
		}

		if len(state.Queue) >= maxQueue {
			break
		}

		queuedBuildings := make([]string, 0, len(state.Queue))
		for _, e := range state.Queue {
			queuedBuildings = append(queuedBuildings, e.Building)
		}

		candidate := p.pickNextBuilding(state.Levels, queuedBuildings)
		if candidate == nil {
			break
		}
		buildingName := candidate.Building

		if info, ok := state.Available[buildingName]; ok {
			if !have.CanAfford(info.Cost) {
				result.ResourceWait = calculateResourceWait(have, info.Cost, production)
				result.BuildingName = buildingName
				break
			}
		} else if len(state.Available) > 0 {
			// Parsed buildings but this one isn't listed: stop this
			// cycle rather than guess at an unknown cost.
			break
		}

		ok, err := p.driver.UpgradeBuilding(villageID, buildingName)
		if err != nil {
			if err == villaerr.ErrQueueFull {
				break
			}
			return result, err
		}
		if !ok {
			break
		}
		result.Ordered = true
		result.BuildingName = buildingName

		state, err = p.driver.GetHQState(villageID)
		if err != nil {
			return result, err
		}
	}

	for _, entry := range state.Queue {
		if !entry.FinishTime.IsZero() && entry.FinishTime.After(result.QueueFinishTS) {
			result.QueueFinishTS = entry.FinishTime
		}
	}

	return result, nil
}

// candidate is an internal pick result: (building, current level, target).
type candidate struct {
	Building string
	Current  int
	Target   int
}

func (p *Planner) pickNextBuilding(currentLevels map[string]int, queuedBuildings []string) *candidate {
	if p.mode == ModeSequential {
		return p.pickSequential(currentLevels, queuedBuildings)
	}
	return p.pickPriority(currentLevels)
}

func (p *Planner) pickPriority(currentLevels map[string]int) *candidate {
	for _, name := range p.priorityOrder {
		target, ok := p.targetLevels[name]
		if !ok {
			continue
		}
		current := currentLevels[name]
		if current < target {
			return &candidate{Building: name, Current: current, Target: target}
		}
	}
	return nil
}

func (p *Planner) pickSequential(currentLevels map[string]int, queuedBuildings []string) *candidate {
	queuedCounts := make(map[string]int)
	for _, b := range queuedBuildings {
		queuedCounts[b]++
	}

	for _, step := range p.buildSteps {
		current := currentLevels[step.Building]
		queued := queuedCounts[step.Building]
		effectiveLevel := current + queued
		if effectiveLevel < step.Target {
			return &candidate{Building: step.Building, Current: current, Target: step.Target}
		}
	}
	return nil
}

// calculateResourceWait returns seconds until cost is affordable given
// have and production (per-hour rates), capped at 3600s. If any needed
// resource has zero production, the cap applies immediately.
func calculateResourceWait(have, cost, production Resources) float64 {
	maxWait := 0.0

	check := func(have, need, rate float64) (float64, bool) {
		deficit := need - have
		if deficit <= 0 {
			return 0, false
		}
		if rate <= 0 {
			return 3600, true
		}
		return deficit / (rate / 3600), false
	}

	if wait, capped := check(have.Wood, cost.Wood, production.Wood); capped {
		return 3600
	} else if wait > maxWait {
		maxWait = wait
	}
	if wait, capped := check(have.Stone, cost.Stone, production.Stone); capped {
		return 3600
	} else if wait > maxWait {
		maxWait = wait
	}
	if wait, capped := check(have.Iron, cost.Iron, production.Iron); capped {
		return 3600
	} else if wait > maxWait {
		maxWait = wait
	}

	if maxWait > 3600 {
		return 3600
	}
	return maxWait
}
