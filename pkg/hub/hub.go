package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/state"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultClientBuffer is the per-client outbound buffer size
	DefaultClientBuffer = 64

	// DefaultHeartbeatInterval is how often ping frames are sent
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultHeartbeatMisses is how many consecutive missed heartbeats
	// disconnect a client
	DefaultHeartbeatMisses = 3

	// hubBuffer is the hub's own delta intake buffer
	hubBuffer = 256
)

// ClientState tracks the connection lifecycle of a handle.
// Disconnected is terminal: a reconnect is a brand-new handle.
type ClientState int32

const (
	StateConnecting ClientState = iota
	StateConnected
	StateDisconnected
)

// Client is one connected dashboard consumer. The hub owns registration
// and teardown; the transport (WebSocket write pump, or a test reader)
// drains Receive until it is closed. Only the hub goroutine ever sends
// into send; the read pump requests pongs through the separate pong
// channel, which is never closed.
type Client struct {
	id    string
	send  chan Message
	pong  chan struct{}
	since uint64 // snapshot sequence; deltas at or below it are skipped

	mu     sync.RWMutex
	filter Filter

	state atomic.Int32
	hub   *Hub
}

// ID returns the client's handle id
func (c *Client) ID() string {
	return c.id
}

// State returns the client's lifecycle state
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

// Receive returns the client's outbound message stream. The channel is
// closed when the client is disconnected.
func (c *Client) Receive() <-chan Message {
	return c.send
}

// Subscribe replaces the client's delta filter
func (c *Client) Subscribe(filter Filter) {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
}

// Close disconnects the client and releases its resources
func (c *Client) Close() {
	c.hub.unregister(c, "closed")
}

func (c *Client) matches(d *types.Delta) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Matches(d)
}

// Config holds hub tuning knobs
type Config struct {
	ClientBuffer      int
	HeartbeatInterval time.Duration
	HeartbeatMisses   int
}

func (cfg *Config) defaults() {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultClientBuffer
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.HeartbeatMisses <= 0 {
		cfg.HeartbeatMisses = DefaultHeartbeatMisses
	}
}

// Hub fans pipeline deltas out to connected clients. All registry
// mutation and delivery runs on the hub goroutine, so a publish racing a
// disconnect either completes delivery or observes the handle as gone;
// it can never hit a half-torn-down client. Actual socket I/O happens in
// per-client pumps, never under the registry.
type Hub struct {
	cache  *state.Cache
	cfg    Config
	logger zerolog.Logger

	clients      map[*Client]bool
	registerCh   chan *Client
	unregisterCh chan clientTeardown
	deltaCh      chan *types.Delta

	nextID      atomic.Uint64
	clientCount atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type clientTeardown struct {
	client *Client
	reason string
}

// NewHub creates a broadcast hub over the given state cache
func NewHub(cache *state.Cache, cfg Config) *Hub {
	cfg.defaults()
	return &Hub{
		cache:        cache,
		cfg:          cfg,
		logger:       log.WithComponent("hub"),
		clients:      make(map[*Client]bool),
		registerCh:   make(chan *Client),
		unregisterCh: make(chan clientTeardown),
		deltaCh:      make(chan *types.Delta, hubBuffer),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the hub's distribution loop
func (h *Hub) Start() {
	go h.run()
}

// Stop shuts the hub down, disconnecting every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		<-h.doneCh
	})
}

// HeartbeatInterval returns the configured ping cadence
func (h *Hub) HeartbeatInterval() time.Duration {
	return h.cfg.HeartbeatInterval
}

// PongWait returns how long a connection may go silent before it is
// considered dead
func (h *Hub) PongWait() time.Duration {
	return time.Duration(h.cfg.HeartbeatMisses) * h.cfg.HeartbeatInterval
}

// Connect registers a new client handle. The client's first message is
// always the initial_state snapshot; only deltas folded after that
// snapshot follow.
func (h *Hub) Connect(filter Filter) (*Client, error) {
	c := &Client{
		id:     fmt.Sprintf("c-%d", h.nextID.Add(1)),
		send:   make(chan Message, h.cfg.ClientBuffer),
		pong:   make(chan struct{}, 1),
		filter: filter,
		hub:    h,
	}
	c.state.Store(int32(StateConnecting))

	select {
	case h.registerCh <- c:
		return c, nil
	case <-h.stopCh:
		return nil, fmt.Errorf("hub is stopped")
	}
}

// Publish hands a delta to the hub for fan-out. Called by the ingestion
// consumer after every fold.
func (h *Hub) Publish(delta *types.Delta) {
	select {
	case h.deltaCh <- delta:
	case <-h.stopCh:
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) unregister(c *Client, reason string) {
	select {
	case h.unregisterCh <- clientTeardown{client: c, reason: reason}:
	case <-h.stopCh:
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)

	for {
		select {
		case c := <-h.registerCh:
			h.addClient(c)

		case td := <-h.unregisterCh:
			h.removeClient(td.client, td.reason)

		case delta := <-h.deltaCh:
			h.broadcast(delta)

		case <-h.stopCh:
			for c := range h.clients {
				h.removeClient(c, "shutdown")
			}
			return
		}
	}
}

// addClient synchronizes a fresh handle: register, snapshot, send. Both
// happen on the hub goroutine, so no delta can interleave between the
// snapshot and the client becoming visible to broadcast.
func (h *Hub) addClient(c *Client) {
	pipelines, seq := h.cache.SnapshotAll()
	c.since = seq

	h.clients[c] = true
	c.state.Store(int32(StateConnected))
	h.clientCount.Store(int64(len(h.clients)))
	metrics.ClientsConnected.Set(float64(len(h.clients)))

	// Buffer is at least 1, and the client cannot have queued messages
	// yet, so this never drops.
	c.send <- Message{
		Type: MessageInitialState,
		Data: InitialState{Seq: seq, Pipelines: pipelines},
	}

	h.logger.Debug().Str("client_id", c.id).Uint64("snapshot_seq", seq).Msg("client connected")
}

func (h *Hub) removeClient(c *Client, reason string) {
	if !h.clients[c] {
		return // already gone: publish racing a disconnect observes this
	}
	delete(h.clients, c)
	c.state.Store(int32(StateDisconnected))
	close(c.send)
	h.clientCount.Store(int64(len(h.clients)))
	metrics.ClientsConnected.Set(float64(len(h.clients)))
	metrics.ClientsDisconnected.WithLabelValues(reason).Inc()

	h.logger.Debug().Str("client_id", c.id).Str("reason", reason).Msg("client disconnected")
}

// broadcast fans one delta out to every matching client. Sends are
// non-blocking: a client that cannot keep up overflows only its own
// buffer and is disconnected, never stalling delivery to the others.
func (h *Hub) broadcast(delta *types.Delta) {
	var slow []*Client

	msgType := deltaMessageType(delta)
	for c := range h.clients {
		if delta.Seq <= c.since {
			continue // already reflected in the client's snapshot
		}
		if !c.matches(delta) {
			continue
		}
		select {
		case c.send <- Message{Type: msgType, Data: delta}:
			metrics.MessagesPublished.Inc()
		default:
			metrics.MessagesDropped.Inc()
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.logger.Warn().Str("client_id", c.id).Msg("client buffer full, disconnecting slow consumer")
		h.removeClient(c, "slow_consumer")
	}
}
