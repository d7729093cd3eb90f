package projection

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/villabot/villabot/internal/logging"
	"github.com/villabot/villabot/internal/panelstate"
)

// wsClient wraps one connected WebSocket with a buffered outbound queue
// and its own write goroutine, so one slow reader never blocks the
// others.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, 64)}
	go c.writePump()
	return c
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *wsClient) close() {
	close(c.send)
}

// Broadcaster fans PanelStateStore events out to connected WebSocket
// clients: events are buffered and flushed as a single debounced delta
// message, with a periodic full snapshot as a resync backstop.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool

	store    *panelstate.Store
	throttle time.Duration

	pendingMu sync.Mutex
	pending   []panelstate.Event
	flushTmr  *time.Timer

	snapshotTicker *time.Ticker
	stopOnce       sync.Once
	stopCh         chan struct{}

	seq atomic.Uint64
}

// NewBroadcaster wires a Broadcaster to store, subscribing immediately
// so every mutation from this point on is queued for delivery.
func NewBroadcaster(store *panelstate.Store, throttle, snapshotInterval time.Duration) *Broadcaster {
	b := &Broadcaster{
		clients:        make(map[*wsClient]bool),
		store:          store,
		throttle:       throttle,
		snapshotTicker: time.NewTicker(snapshotInterval),
		stopCh:         make(chan struct{}),
	}
	store.Subscribe(b.queueEvent)
	go b.snapshotLoop()
	return b
}

func (b *Broadcaster) queueEvent(ev panelstate.Event) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	b.pending = append(b.pending, ev)
	if b.flushTmr == nil {
		b.flushTmr = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.pendingMu.Lock()
	events := b.pending
	b.pending = nil
	b.flushTmr = nil
	b.pendingMu.Unlock()

	if len(events) == 0 {
		return
	}
	b.send(WSMessage{Type: MsgDelta, Payload: DeltaPayload{Events: events}})
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.stopCh:
			return
		case <-b.snapshotTicker.C:
			b.send(b.snapshotMessage())
		}
	}
}

func (b *Broadcaster) snapshotMessage() WSMessage {
	return WSMessage{Type: MsgSnapshot, Payload: SnapshotPayload{Snapshot: b.store.ToSnapshot()}}
}

// AddClient registers a freshly upgraded connection, immediately pushing
// it a full snapshot so it starts hydrated.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *wsClient {
	c := newWSClient(conn)
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	b.sendTo(c, b.snapshotMessage())
	return c
}

// RemoveClient unregisters and closes a client's send channel.
func (b *Broadcaster) RemoveClient(c *wsClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
}

// ClientCount reports how many WebSocket clients are currently attached.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) send(msg WSMessage) {
	msg.Seq = b.seq.Add(1)
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Get("projection").Warn().Err(err).Msg("broadcast_marshal_failed")
		return
	}

	b.mu.RLock()
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			logging.Get("projection").Warn().Msg("ws_client_too_slow_disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) sendTo(c *wsClient, msg WSMessage) {
	msg.Seq = b.seq.Add(1)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Stop halts the periodic snapshot loop. The broadcaster remains usable
// for delta pushes until the process exits.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.snapshotTicker.Stop()
		close(b.stopCh)
	})
}
