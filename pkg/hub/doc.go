/*
Package hub fans pipeline state deltas out to connected dashboard
clients over WebSocket.

# Architecture

	┌───────────────────── BROADCAST HUB ──────────────────────┐
	│                                                           │
	│  ingest consumer ──Publish(delta)──▶ delta channel        │
	│                                          │                │
	│                                     hub goroutine         │
	│                              (registry + fan-out, no I/O) │
	│                                          │                │
	│              ┌───────────────┬───────────┴─────────────┐  │
	│              ▼               ▼                         ▼  │
	│        client buffer   client buffer            client buffer
	│              │               │                         │  │
	│         write pump      write pump                write pump
	│              │               │                         │  │
	│          websocket       websocket                 websocket
	│                                                           │
	└───────────────────────────────────────────────────────────┘

The hub goroutine owns the client registry. Registration, teardown, and
fan-out are all serialized there, so a publish racing a disconnect either
delivers or sees the handle gone — never a half-torn-down client. Socket
I/O lives in per-connection pumps; the registry is never held across a
write.

# Late-Join Consistency

On connect the client's first frame is initial_state: a deep snapshot of
the whole state cache plus the fold sequence number it reflects. Deltas
carry the same sequence; the hub skips deltas at or below the client's
snapshot sequence, so a late joiner sees all prior state exactly once and
only genuinely new changes afterwards.

# Slow Consumers and Heartbeats

Sends into client buffers are non-blocking. A client whose buffer is
full is disconnected; it can never head-of-line block the others. The
write pump sends {type:"ping"} frames on the heartbeat interval; the
read pump requires some inbound frame (normally {type:"pong"}) within
miss-limit × interval or the connection times out. Reconnection is
client-driven with a fresh handle; the server keeps no reconnect state.

# Client State Machine

	Connecting → Connected → Disconnected (terminal)

Disconnected is reachable from anywhere via network failure, explicit
close, heartbeat timeout, shutdown, or slow-consumer eviction.
*/
package hub
