package panelstate

// EventType names the narrow, targeted mutation that produced an Event.
// PanelProjection uses these to push incremental updates to DOM hydration
// pushers and WebSocket clients alike, avoiding full-state re-renders.
type EventType string

const (
	EventLog           EventType = "log"
	EventTimer         EventType = "timer"
	EventVillageStatus EventType = "village_status"
	EventBuildQueue    EventType = "build_queue"
	EventToggles       EventType = "toggles"
	EventFillUnit      EventType = "fill_unit"
	EventBotProtection EventType = "bot_protection"
	EventBotState      EventType = "bot_state"
)

// Event is the payload delivered to Store listeners on every mutation.
// Only the fields relevant to Type are populated.
type Event struct {
	Type EventType

	Log           LogEntry
	Timer         Timer
	Cleared       bool
	VillageStatus VillageStatus
	VillageID     int
	BuildQueue    []BuildQueueItem
	Unit          string
	Enabled       bool
	Detected      bool
	Pattern       string
	BotState      BotState
}
