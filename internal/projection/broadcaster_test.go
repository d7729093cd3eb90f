package projection

import (
	"testing"
	"time"

	"github.com/villabot/villabot/internal/panelstate"
)

func TestQueueEventTriggersFlushAfterThrottle(t *testing.T) {
	store := panelstate.New()
	b := NewBroadcaster(store, 10*time.Millisecond, time.Hour)
	defer b.Stop()

	store.AddLog("info", "hello")

	b.pendingMu.Lock()
	pendingAtQueue := len(b.pending)
	b.pendingMu.Unlock()
	if pendingAtQueue != 1 {
		t.Fatalf("pending after AddLog = %d, want 1", pendingAtQueue)
	}

	time.Sleep(30 * time.Millisecond)

	b.pendingMu.Lock()
	pendingAfterFlush := len(b.pending)
	b.pendingMu.Unlock()
	if pendingAfterFlush != 0 {
		t.Errorf("pending after flush = %d, want 0", pendingAfterFlush)
	}
}

func TestClientCountTracksAddRemove(t *testing.T) {
	store := panelstate.New()
	b := NewBroadcaster(store, time.Millisecond, time.Hour)
	defer b.Stop()

	if b.ClientCount() != 0 {
		t.Fatalf("initial ClientCount = %d, want 0", b.ClientCount())
	}

	// Registered directly: AddClient needs a live websocket connection.
	c := &wsClient{send: make(chan []byte, 1)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	if b.ClientCount() != 1 {
		t.Fatalf("ClientCount after register = %d, want 1", b.ClientCount())
	}
	b.RemoveClient(c)
	if b.ClientCount() != 0 {
		t.Errorf("ClientCount after RemoveClient = %d, want 0", b.ClientCount())
	}
}

func TestSnapshotMessageReflectsStoreState(t *testing.T) {
	store := panelstate.New()
	store.SetBotState(panelstate.StateRunning)
	b := NewBroadcaster(store, time.Millisecond, time.Hour)
	defer b.Stop()

	msg := b.snapshotMessage()
	payload, ok := msg.Payload.(SnapshotPayload)
	if !ok {
		t.Fatalf("payload type = %T, want SnapshotPayload", msg.Payload)
	}
	if payload.Snapshot.BotState != panelstate.StateRunning {
		t.Errorf("snapshot BotState = %v, want %v", payload.Snapshot.BotState, panelstate.StateRunning)
	}
}
