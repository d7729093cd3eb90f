// Package pipeline implements the VillagePipeline: the per-village cycle
// composer that gates, shuffles, and runs the feature managers
// (building, scavenging, farming, troops), feeding the defense check and
// report intel loop that sits in front of them.
package pipeline

import (
	"fmt"
	"time"

	"github.com/villabot/villabot/internal/humanizer"
	"github.com/villabot/villabot/internal/logging"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/village"
)

// Manager is one feature runner (building/farming/scavenging/troops) the
// pipeline invokes for a village, gated by the matching PanelStateStore
// toggle. Feature must be one of "building", "farming", "scavenging",
// "troops" to line up with panelstate's toggle names.
type Manager interface {
	Feature() string
	Run(villageID int) error
}

// ReportRunner feeds intel (e.g. farm target wall levels, last-attacked
// timestamps) back into manager state. Only invoked when farming is
// enabled, mirroring the original's report-manager step.
type ReportRunner interface {
	Run(villageID int) error
}

// VillageReader fetches and parses the current overview snapshot for a
// village -- the composition of a BrowserDriver navigation and an
// Extractor parse, supplied by the wiring layer so this package stays
// free of either concern's concrete implementation.
type VillageReader interface {
	ReadVillage(villageID int) (village.Village, error)
}

// ScavengeWaiter reports how long until the next scavenge party returns,
// consulted after the manager pass so the orchestrator's wake-up
// computation can use it.
type ScavengeWaiter interface {
	SecondsUntilReturn(villageID int) (float64, bool)
}

// BuildResultProvider is optionally implemented by the "building"
// Manager to surface its last planner result -- the queue-finish
// timestamp and resource-wait seconds the orchestrator's wake-up
// computation needs, mirroring the original's BuildResult plumbing
// (village_manager.run_cycle extracting queue_finish_ts/resource_wait
// into the cycle result).
type BuildResultProvider interface {
	LastBuildResult() (queueFinishTS time.Time, resourceWait float64, waitingFor string)
}

// Result is the per-village outcome the orchestrator folds into its
// wake-up computation.
type Result struct {
	Village             village.Village
	BuildQueueFinishTS   time.Time
	BuildResourceWait    float64
	BuildWaitingFor      string
	ScavengeWaitSeconds  float64
	HasScavengeWait      bool
	ManagerResults       map[string]bool
	SkippedForDefense    bool
}

// Pipeline runs one village's cycle. attackNotified tracks, per village,
// whether the incoming-attack banner has already fired, so the
// notification stays idempotent until the attack clears.
type Pipeline struct {
	reader    VillageReader
	store     *panelstate.Store
	humanizer *humanizer.Humanizer
	waiter    ScavengeWaiter

	attackNotified map[int]bool
}

// New constructs a Pipeline.
func New(reader VillageReader, store *panelstate.Store, h *humanizer.Humanizer, waiter ScavengeWaiter) *Pipeline {
	return &Pipeline{
		reader:         reader,
		store:          store,
		humanizer:      h,
		waiter:         waiter,
		attackNotified: make(map[int]bool),
	}
}

// Run executes one full cycle for villageID: fetch overview, defense
// check, shuffle+run enabled managers, report feedback, scavenge wait
// collection.
func (p *Pipeline) Run(villageID int, managers []Manager, report ReportRunner) (Result, error) {
	log := logging.Get("pipeline")

	v, err := p.reader.ReadVillage(villageID)
	if err != nil {
		return Result{}, fmt.Errorf("reading village %d: %w", villageID, err)
	}
	p.store.SetVillageStatus(panelstate.VillageStatus{
		VillageID:     v.ID,
		Name:          v.Name,
		X:             v.X,
		Y:             v.Y,
		Points:        v.Points,
		Wood:          v.Wood,
		Stone:         v.Stone,
		Iron:          v.Iron,
		Storage:       v.Storage,
		Population:    v.Population,
		MaxPopulation: v.MaxPopulation,
		Incoming:      v.Incoming,
		WoodRate:      v.WoodRate,
		StoneRate:     v.StoneRate,
		IronRate:      v.IronRate,
	})
	p.store.SetLevels(villageID, v.Levels)

	result := Result{Village: v, ManagerResults: make(map[string]bool)}

	if v.HasIncomingAttack() {
		if !p.attackNotified[villageID] {
			log.Warn().Int("village", villageID).Int("incoming", v.Incoming).Msg("incoming_attack_detected")
			p.store.AddLog("warn", fmt.Sprintf("Village %s: incoming attack detected", v.Name))
			p.attackNotified[villageID] = true
		}
		result.SkippedForDefense = true
		if report != nil && p.store.IsEnabled(villageID, "farming") {
			if err := report.Run(villageID); err != nil {
				log.Warn().Err(err).Int("village", villageID).Msg("report_manager_failed")
			}
		}
		return result, nil
	}
	p.attackNotified[villageID] = false

	enabled := make([]Manager, 0, len(managers))
	for _, m := range managers {
		if p.store.IsEnabled(villageID, m.Feature()) {
			enabled = append(enabled, m)
		}
	}

	order := p.shuffleManagers(enabled)
	farmingRan := false
	for i, m := range order {
		err := m.Run(villageID)
		result.ManagerResults[m.Feature()] = err == nil
		if err != nil {
			log.Warn().Err(err).Int("village", villageID).Str("manager", m.Feature()).Msg("manager_run_failed")
		} else if bp, ok := m.(BuildResultProvider); ok {
			result.BuildQueueFinishTS, result.BuildResourceWait, result.BuildWaitingFor = bp.LastBuildResult()
		}
		if m.Feature() == "farming" {
			farmingRan = true
		}
		if i < len(order)-1 {
			p.humanizer.Wait(humanizer.Range{Low: 1.5, High: 4.0})
		}
	}

	if farmingRan && report != nil {
		if err := report.Run(villageID); err != nil {
			log.Warn().Err(err).Int("village", villageID).Msg("report_manager_failed")
		}
	}

	if p.waiter != nil {
		if wait, ok := p.waiter.SecondsUntilReturn(villageID); ok {
			result.ScavengeWaitSeconds = wait
			result.HasScavengeWait = true
		}
	}

	return result, nil
}

// shuffleManagers returns a freshly ordered copy; the input is never
// mutated.
func (p *Pipeline) shuffleManagers(managers []Manager) []Manager {
	if p.humanizer == nil || len(managers) < 2 {
		out := make([]Manager, len(managers))
		copy(out, managers)
		return out
	}
	idx := make([]int, len(managers))
	for i := range idx {
		idx[i] = i
	}
	shuffled := p.humanizer.Shuffle(idx)
	out := make([]Manager, len(managers))
	for i, j := range shuffled {
		out[i] = managers[j]
	}
	return out
}
