// Package action implements the ActionBus: a tagged-union command type
// plus exhaustive dispatch, fed from two transports (console-event
// listener in headed mode, WebSocket inbound messages in headless mode)
// that both convert into the same Command before dispatch.
package action

import "github.com/villabot/villabot/internal/panelstate"

// Kind tags which variant of Command is populated. Using a tagged union
// rather than a string-to-callback map keeps the dispatch switch
// exhaustive and lets the compiler flag a forgotten case.
type Kind string

const (
	KindStart                 Kind = "start"
	KindPause                 Kind = "pause"
	KindStop                  Kind = "stop"
	KindToggleBuilding        Kind = "toggle_building"
	KindToggleFarming         Kind = "toggle_farming"
	KindToggleScavenging      Kind = "toggle_scavenging"
	KindToggleTroops          Kind = "toggle_troops"
	KindTabSwitch             Kind = "tab_switch"
	KindLogFilter             Kind = "log_filter"
	KindSelectVillage         Kind = "select_village"
	KindVillageToggle         Kind = "village_toggle"
	KindFarmThreshold         Kind = "farm_threshold"
	KindBuildQueueAdd         Kind = "bq_add"
	KindBuildQueueRemove      Kind = "bq_remove"
	KindBuildQueueMove        Kind = "bq_move"
	KindBuildQueueClear       Kind = "bq_clear"
	KindScavTroop             Kind = "scav_troop"
	KindFillUnit              Kind = "fill_unit"
	KindBotProtectionResolved Kind = "bot_protection_resolved"
)

// Command is the single typed envelope every transport converts incoming
// operator input into. Only the fields relevant to Kind are populated;
// zero values for the rest are harmless since Dispatch only reads the
// fields its case needs.
type Command struct {
	Kind Kind

	Enabled bool // toggle_*, village_toggle

	Tab    string // tab_switch
	Filter string // log_filter

	VillageID int // select_village, village_toggle, bq_*
	Feature   string // village_toggle

	FarmThreshold int // farm_threshold

	Building string // bq_add
	Level    int    // bq_add
	Index    int    // bq_remove, bq_move (source position)
	ToIndex  int    // bq_move (destination position)

	ScavTier ScavTier // scav_troop
	Unit     string   // scav_troop, fill_unit
}

// ScavTier names the 4 scavenge difficulty levels a scav_troop command
// may target; kept distinct from village.ScavengeTier so this package
// does not need to import the full village model just to tag a command.
type ScavTier int

// Handlers is the set of callbacks Dispatch invokes for each recognized
// Kind. A nil handler silently drops the command; Dispatch still returns
// true for a recognized Kind, so the drop is not visible to its caller.
type Handlers struct {
	OnStart func()
	OnPause func()
	OnStop  func()

	OnToggleBuilding   func(enabled bool)
	OnToggleFarming    func(enabled bool)
	OnToggleScavenging func(enabled bool)
	OnToggleTroops     func(enabled bool)

	OnTabSwitch  func(tab string)
	OnLogFilter  func(filter string)

	OnSelectVillage func(villageID int)
	OnVillageToggle func(villageID int, feature string, enabled bool)

	OnFarmThreshold func(threshold int)

	OnBuildQueueAdd    func(villageID int, building string, level int)
	OnBuildQueueRemove func(villageID, index int)
	OnBuildQueueMove   func(villageID, from, to int)
	OnBuildQueueClear  func(villageID int)

	OnScavTroop func(tier ScavTier, unit string)
	OnFillUnit  func(unit string)

	OnBotProtectionResolved func()
}

// Bus dispatches Commands to Handlers and mirrors simple toggle/select
// state into the PanelStateStore so the panel reflects the operator's
// last action even before the pipeline confirms it took effect.
type Bus struct {
	handlers Handlers
	store    *panelstate.Store
}

// New constructs a Bus. store may be nil if no state mirroring is
// needed (e.g. in tests).
func New(handlers Handlers, store *panelstate.Store) *Bus {
	return &Bus{handlers: handlers, store: store}
}

// Dispatch routes cmd to its handler. Unknown or zero-value Kinds are
// dropped; the caller may log this via the returned bool.
func (b *Bus) Dispatch(cmd Command) (handled bool) {
	switch cmd.Kind {
	case KindStart:
		b.call(b.handlers.OnStart)
	case KindPause:
		b.call(b.handlers.OnPause)
	case KindStop:
		b.call(b.handlers.OnStop)
	case KindToggleBuilding:
		if b.handlers.OnToggleBuilding != nil {
			b.handlers.OnToggleBuilding(cmd.Enabled)
		}
	case KindToggleFarming:
		if b.handlers.OnToggleFarming != nil {
			b.handlers.OnToggleFarming(cmd.Enabled)
		}
	case KindToggleScavenging:
		if b.handlers.OnToggleScavenging != nil {
			b.handlers.OnToggleScavenging(cmd.Enabled)
		}
	case KindToggleTroops:
		if b.handlers.OnToggleTroops != nil {
			b.handlers.OnToggleTroops(cmd.Enabled)
		}
	case KindTabSwitch:
		if b.handlers.OnTabSwitch != nil {
			b.handlers.OnTabSwitch(cmd.Tab)
		}
	case KindLogFilter:
		if b.handlers.OnLogFilter != nil {
			b.handlers.OnLogFilter(cmd.Filter)
		}
	case KindSelectVillage:
		if b.handlers.OnSelectVillage != nil {
			b.handlers.OnSelectVillage(cmd.VillageID)
		}
	case KindVillageToggle:
		if b.store != nil {
			override := panelstate.No
			if cmd.Enabled {
				override = panelstate.Yes
			}
			b.store.SetVillageOverride(cmd.VillageID, cmd.Feature, override)
		}
		if b.handlers.OnVillageToggle != nil {
			b.handlers.OnVillageToggle(cmd.VillageID, cmd.Feature, cmd.Enabled)
		}
	case KindFarmThreshold:
		if b.handlers.OnFarmThreshold != nil {
			b.handlers.OnFarmThreshold(cmd.FarmThreshold)
		}
	case KindBuildQueueAdd:
		if b.handlers.OnBuildQueueAdd != nil {
			b.handlers.OnBuildQueueAdd(cmd.VillageID, cmd.Building, cmd.Level)
		}
	case KindBuildQueueRemove:
		if b.handlers.OnBuildQueueRemove != nil {
			b.handlers.OnBuildQueueRemove(cmd.VillageID, cmd.Index)
		}
	case KindBuildQueueMove:
		if b.handlers.OnBuildQueueMove != nil {
			b.handlers.OnBuildQueueMove(cmd.VillageID, cmd.Index, cmd.ToIndex)
		}
	case KindBuildQueueClear:
		if b.handlers.OnBuildQueueClear != nil {
			b.handlers.OnBuildQueueClear(cmd.VillageID)
		}
	case KindScavTroop:
		if b.handlers.OnScavTroop != nil {
			b.handlers.OnScavTroop(cmd.ScavTier, cmd.Unit)
		}
	case KindFillUnit:
		if b.store != nil {
			b.store.SetFillUnit(cmd.Unit, cmd.Enabled)
		}
		if b.handlers.OnFillUnit != nil {
			b.handlers.OnFillUnit(cmd.Unit)
		}
	case KindBotProtectionResolved:
		b.call(b.handlers.OnBotProtectionResolved)
	default:
		return false
	}
	return true
}

func (b *Bus) call(fn func()) {
	if fn != nil {
		fn()
	}
}
