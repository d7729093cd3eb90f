// Package projection implements PanelProjection: pushing PanelStateStore
// mutations to whichever surface the operator is watching. In headless
// mode that is a set of WebSocket clients (debounced delta + periodic
// snapshot, mirroring the teacher's session broadcaster); in headed mode
// it is direct DOM injection into the already-open game tab.
package projection

import "github.com/villabot/villabot/internal/panelstate"

// MessageType names the envelope kind carried over the WebSocket wire.
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"
	MsgError    MessageType = "error"
)

// WSMessage is the single typed envelope every outbound message uses,
// sequenced so a client can detect drops.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload mirrors the full panelstate.Snapshot for initial
// client hydration and the periodic full-refresh tick.
type SnapshotPayload struct {
	Snapshot panelstate.Snapshot `json:"snapshot"`
}

// DeltaPayload carries the narrow, targeted events accumulated since the
// last flush, letting clients patch incrementally instead of
// re-rendering the whole panel.
type DeltaPayload struct {
	Events []panelstate.Event `json:"events"`
}
