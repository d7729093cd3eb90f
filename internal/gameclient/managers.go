package gameclient

import (
	"time"

	"github.com/villabot/villabot/internal/building"
	"github.com/villabot/villabot/internal/farm"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/scavenge"
	"github.com/villabot/villabot/internal/troops"
	"github.com/villabot/villabot/internal/village"
)

// BuildingManager adapts a building.Planner into a pipeline.Manager,
// reading the current resource/production snapshot via Client before
// each run.
type BuildingManager struct {
	client  *Client
	planner *building.Planner
	store   *panelstate.Store

	lastResult building.Result
}

// NewBuildingManager constructs a BuildingManager.
func NewBuildingManager(client *Client, planner *building.Planner, store *panelstate.Store) *BuildingManager {
	return &BuildingManager{client: client, planner: planner, store: store}
}

func (m *BuildingManager) Feature() string { return "building" }

func (m *BuildingManager) Run(villageID int) error {
	v, err := m.client.ReadVillage(villageID)
	if err != nil {
		return err
	}
	have := building.Resources{Wood: float64(v.Wood), Stone: float64(v.Stone), Iron: float64(v.Iron)}
	production := building.Resources{Wood: v.WoodRate, Stone: v.StoneRate, Iron: v.IronRate}

	result, err := m.planner.Run(villageID, have, production)
	if err != nil {
		return err
	}
	m.lastResult = result
	if m.store != nil && result.Ordered {
		m.store.AddLog("info", "building "+result.BuildingName+" upgraded in village "+itoa(villageID))
	}
	return nil
}

// LastBuildResult implements pipeline.BuildResultProvider, handing the
// most recent planner pass's queue-finish timestamp and resource-wait
// seconds up to Pipeline.Run so the orchestrator's wake-up computation
// can sleep to queue completion or resource affordability instead of
// always falling back to the inactive-delay range.
func (m *BuildingManager) LastBuildResult() (time.Time, float64, string) {
	waitingFor := ""
	if m.lastResult.ResourceWait > 0 {
		waitingFor = m.lastResult.BuildingName
	}
	return m.lastResult.QueueFinishTS, m.lastResult.ResourceWait, waitingFor
}

// ScavengeManager adapts a scavenge.Planner into a pipeline.Manager for
// one village, dispatching idle troops across eligible tiers.
type ScavengeManager struct {
	client   *Client
	planner  *scavenge.Planner
	reserve  village.TroopCount
	excluded map[string]bool
	dryRun   bool
}

// NewScavengeManager constructs a ScavengeManager. reserve/excluded apply
// uniformly across every village it is run against.
func NewScavengeManager(client *Client, planner *scavenge.Planner, reserve village.TroopCount, excluded map[string]bool, dryRun bool) *ScavengeManager {
	return &ScavengeManager{client: client, planner: planner, reserve: reserve, excluded: excluded, dryRun: dryRun}
}

func (m *ScavengeManager) Feature() string { return "scavenging" }

func (m *ScavengeManager) Run(villageID int) error {
	html, err := m.client.navigate("place", villageID, map[string]string{"mode": "scavenge"})
	if err != nil {
		return err
	}
	idle, err := m.client.extract.TroopCounts(html)
	if err != nil {
		return err
	}
	_, err = m.planner.Run(idle, m.reserve, m.excluded, m.dryRun)
	return err
}

// ScavengeWaiter implements pipeline.ScavengeWaiter by consulting the
// tier statuses parsed from the scavenge screen.
type ScavengeWaiter struct {
	client *Client
}

// NewScavengeWaiter constructs a ScavengeWaiter.
func NewScavengeWaiter(client *Client) *ScavengeWaiter { return &ScavengeWaiter{client: client} }

func (w *ScavengeWaiter) SecondsUntilReturn(villageID int) (float64, bool) {
	html, err := w.client.navigate("place", villageID, map[string]string{"mode": "scavenge"})
	if err != nil {
		return 0, false
	}
	statuses, err := w.client.extract.ScavengeOptions(html)
	if err != nil {
		return 0, false
	}
	found := false
	var earliest time.Time
	for _, s := range statuses {
		if !s.Running {
			continue
		}
		if !found || s.ReturnTime.Before(earliest) {
			earliest = s.ReturnTime
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return time.Until(earliest).Seconds(), true
}

// FarmManager adapts a farm.Runner into a pipeline.Manager.
type FarmManager struct {
	client *Client
	runner *farm.Runner
	world  village.WorldParameters
	lcThreshold int
}

// NewFarmManager constructs a FarmManager.
func NewFarmManager(client *Client, runner *farm.Runner, world village.WorldParameters, lcThreshold int) *FarmManager {
	return &FarmManager{client: client, runner: runner, world: world, lcThreshold: lcThreshold}
}

func (m *FarmManager) Feature() string { return "farming" }

func (m *FarmManager) Run(villageID int) error {
	_, err := m.runner.Run(villageID, m.lcThreshold, m.world.CarryOf("light"))
	return err
}

// TroopsManager adapts a troops.Recruiter into a pipeline.Manager in
// target mode.
type TroopsManager struct {
	client    *Client
	recruiter *troops.Recruiter
	targets   []troops.UnitTarget
}

// NewTroopsManager constructs a TroopsManager.
func NewTroopsManager(client *Client, recruiter *troops.Recruiter, targets []troops.UnitTarget) *TroopsManager {
	return &TroopsManager{client: client, recruiter: recruiter, targets: targets}
}

func (m *TroopsManager) Feature() string { return "troops" }

func (m *TroopsManager) Run(villageID int) error {
	html, err := m.client.navigate("barracks", villageID, nil)
	if err != nil {
		return err
	}
	owned, err := m.client.extract.TroopCounts(html)
	if err != nil {
		return err
	}
	// No dedicated train-queue extraction exists; queued is treated as
	// empty, matching the original's barracks-only deficit formula
	// (stable's queue is not counted toward its own deficit either).
	queued := village.TroopCount{}
	return m.recruiter.RunTargets(villageID, m.targets, owned, queued)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
