// Package panelstate implements the PanelStateStore: the single
// mutable, authoritative projection of bot state that PanelProjection
// serializes to DOM hydration and WebSocket clients alike.
package panelstate

import (
	"sync"
	"time"
)

// Override is a three-valued per-village feature override: inherit the
// global toggle, or explicitly force on/off. Implemented as a sum type
// rather than a nullable bool per the no-ambiguity design note.
type Override int

const (
	Inherit Override = iota
	Yes
	No
)

// Resolve applies this override against the global toggle value.
func (o Override) Resolve(global bool) bool {
	switch o {
	case Yes:
		return true
	case No:
		return false
	default:
		return global
	}
}

// LogEntry is one bounded log-ring entry.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// Timer is a named countdown projected to clients while unexpired.
type Timer struct {
	ID     string
	Label  string
	EndsAt time.Time
}

// Expired reports whether this timer is in the past relative to now.
func (t Timer) Expired(now time.Time) bool {
	return !t.EndsAt.After(now)
}

// BotState is the lifecycle state of the Orchestrator.
type BotState string

const (
	StateInitializing BotState = "initializing"
	StateRunning      BotState = "running"
	StatePaused       BotState = "paused"
	StateStopped      BotState = "stopped"
)

// VillageStatus is a per-village snapshot pushed by the pipeline after
// each cycle.
type VillageStatus struct {
	VillageID     int
	Name          string
	X, Y          int
	Points        int
	Wood          int
	Stone         int
	Iron          int
	Storage       int
	Population    int
	MaxPopulation int
	Incoming      int
	WoodRate      float64
	StoneRate     float64
	IronRate      float64
}

// maxLogEntries bounds the log ring at 200 entries; older entries drop on
// insert.
const maxLogEntries = 200

// Store is the single mutable PanelState record. All mutation methods
// acquire mu for the duration of the mutation, including the Subscribe
// listeners they invoke -- a listener must not call back into any other
// Store method, or the process deadlocks. Once a mutation method returns, its
// effects are immediately visible to any subsequent call.
type Store struct {
	mu sync.RWMutex

	botState BotState

	villages    map[int]VillageStatus
	buildQueues map[int][]BuildQueueItem
	levels      map[int]map[string]int

	// overrides[villageID][feature] -- three-valued per-village toggle.
	overrides map[int]map[string]Override
	// globalToggles[feature] -- process-wide default.
	globalToggles map[string]bool

	timers map[string]Timer

	logs []LogEntry

	scavengeUnitPrefs map[string]bool

	protectionDetected   bool
	protectionPattern    string
	protectionLastAlerted time.Time

	// listeners are invoked (under mu, after the mutation that triggered
	// them) whenever state changes, so PanelProjection can push
	// incremental events. Registered once at wiring time.
	listeners []func(Event)
}

// BuildQueueItem is a persisted build-queue entry (building, target
// level) -- the planned queue, distinct from village.BuildQueueEntry
// which is an *observed* in-flight entry read from the game page.
type BuildQueueItem struct {
	Building string
	Level    int
}

// New constructs an empty Store in the initializing state.
func New() *Store {
	return &Store{
		botState:          StateInitializing,
		villages:          make(map[int]VillageStatus),
		buildQueues:       make(map[int][]BuildQueueItem),
		levels:            make(map[int]map[string]int),
		overrides:         make(map[int]map[string]Override),
		globalToggles:     make(map[string]bool),
		timers:            make(map[string]Timer),
		scavengeUnitPrefs: make(map[string]bool),
	}
}

// Subscribe registers a listener invoked synchronously (under the store's
// lock) after every mutation. Intended for PanelProjection's incremental
// push; must not call back into the Store.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emitLocked(ev Event) {
	for _, fn := range s.listeners {
		fn(ev)
	}
}

// SetBotState updates the lifecycle state and emits a bot_state event.
func (s *Store) SetBotState(state BotState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botState = state
	s.emitLocked(Event{Type: EventBotState, BotState: state})
}

// BotState returns the current lifecycle state.
func (s *Store) BotState() BotState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botState
}

// AddLog appends a log entry, trimming the ring to maxLogEntries (drop
// head) and emitting a log event.
func (s *Store) AddLog(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := LogEntry{Time: time.Now(), Level: level, Message: message}
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
	s.emitLocked(Event{Type: EventLog, Log: entry})
}

// SetTimer overwrites any prior timer sharing id and emits a timer event.
func (s *Store) SetTimer(id, label string, endsAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Timer{ID: id, Label: label, EndsAt: endsAt}
	s.timers[id] = t
	s.emitLocked(Event{Type: EventTimer, Timer: t})
}

// ClearTimer removes a timer by id.
func (s *Store) ClearTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
	s.emitLocked(Event{Type: EventTimer, Timer: Timer{ID: id}, Cleared: true})
}

// SetVillageStatus upserts a per-village status snapshot.
func (s *Store) SetVillageStatus(status VillageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.villages[status.VillageID] = status
	s.emitLocked(Event{Type: EventVillageStatus, VillageStatus: status})
}

// UpsertBuildQueue replaces the persisted build-queue plan for a village.
func (s *Store) UpsertBuildQueue(villageID int, items []BuildQueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]BuildQueueItem, len(items))
	copy(cp, items)
	s.buildQueues[villageID] = cp
	s.emitLocked(Event{Type: EventBuildQueue, VillageID: villageID, BuildQueue: cp})
}

// BuildQueue returns a copy of the persisted build-queue plan for a
// village.
func (s *Store) BuildQueue(villageID int) []BuildQueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.buildQueues[villageID]
	cp := make([]BuildQueueItem, len(items))
	copy(cp, items)
	return cp
}

// SetLevels records the latest observed building levels for a village,
// used by the auto-skip pass to elide satisfied BuildSteps.
func (s *Store) SetLevels(villageID int, levels map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]int, len(levels))
	for k, v := range levels {
		cp[k] = v
	}
	s.levels[villageID] = cp
}

// Levels returns a copy of the last-observed building levels for a
// village.
func (s *Store) Levels(villageID int) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]int, len(s.levels[villageID]))
	for k, v := range s.levels[villageID] {
		cp[k] = v
	}
	return cp
}

// SetGlobalToggle sets a process-wide feature default and emits a
// toggles event.
func (s *Store) SetGlobalToggle(feature string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalToggles[feature] = enabled
	s.emitLocked(Event{Type: EventToggles})
}

// SetVillageOverride sets a per-village three-valued override and emits a
// toggles event.
func (s *Store) SetVillageOverride(villageID int, feature string, value Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overrides[villageID] == nil {
		s.overrides[villageID] = make(map[string]Override)
	}
	s.overrides[villageID][feature] = value
	s.emitLocked(Event{Type: EventToggles})
}

// IsEnabled resolves a per-village feature flag: the explicit override if
// set, otherwise the global toggle.
func (s *Store) IsEnabled(villageID int, feature string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ov, ok := s.overrides[villageID]; ok {
		if v, ok := ov[feature]; ok {
			return v.Resolve(s.globalToggles[feature])
		}
	}
	return s.globalToggles[feature]
}

// SetFillUnit records the scavenge/fill-mode unit preference state.
func (s *Store) SetFillUnit(unit string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scavengeUnitPrefs[unit] = enabled
	s.emitLocked(Event{Type: EventFillUnit, Unit: unit, Enabled: enabled})
}

// SetProtection updates the protection banner state and emits a
// bot_protection event.
func (s *Store) SetProtection(detected bool, pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protectionDetected = detected
	s.protectionPattern = pattern
	if detected {
		s.protectionLastAlerted = time.Now()
	}
	s.emitLocked(Event{Type: EventBotProtection, Detected: detected, Pattern: pattern})
}

// Snapshot is the language-neutral projection of the whole store,
// suitable for DOM hydration or a WebSocket full-state message. Its
// output is deterministic given state: the single source of truth both
// transports share.
type Snapshot struct {
	BotState    BotState
	Villages    []VillageStatus
	BuildQueues map[int][]BuildQueueItem
	Timers      []Timer
	Logs        []LogEntry
	Toggles     map[string]bool
	ScavengeUnitPrefs map[string]bool
	Protection  struct {
		Detected bool
		Pattern  string
	}
}

// ToSnapshot produces a deterministic full-state snapshot. Only timers
// with EndsAt after now are included.
func (s *Store) ToSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	snap := Snapshot{
		BotState:    s.botState,
		BuildQueues: make(map[int][]BuildQueueItem, len(s.buildQueues)),
		Toggles:     make(map[string]bool, len(s.globalToggles)),
	}

	villageIDs := make([]int, 0, len(s.villages))
	for id := range s.villages {
		villageIDs = append(villageIDs, id)
	}
	sortInts(villageIDs)
	for _, id := range villageIDs {
		snap.Villages = append(snap.Villages, s.villages[id])
	}

	for id, items := range s.buildQueues {
		cp := make([]BuildQueueItem, len(items))
		copy(cp, items)
		snap.BuildQueues[id] = cp
	}

	timerIDs := make([]string, 0, len(s.timers))
	for id := range s.timers {
		timerIDs = append(timerIDs, id)
	}
	sortStrings(timerIDs)
	for _, id := range timerIDs {
		t := s.timers[id]
		if t.EndsAt.After(now) {
			snap.Timers = append(snap.Timers, t)
		}
	}

	snap.Logs = make([]LogEntry, len(s.logs))
	copy(snap.Logs, s.logs)

	for k, v := range s.globalToggles {
		snap.Toggles[k] = v
	}

	snap.ScavengeUnitPrefs = make(map[string]bool, len(s.scavengeUnitPrefs))
	for k, v := range s.scavengeUnitPrefs {
		snap.ScavengeUnitPrefs[k] = v
	}

	snap.Protection.Detected = s.protectionDetected
	snap.Protection.Pattern = s.protectionPattern

	return snap
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

func sortStrings(a []string) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
