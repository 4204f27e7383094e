/*
Package ingest provides the bounded event ingestion queue between
processing workers and the persistence/broadcast consumer.

# Architecture

	┌──────────────────── EVENT INGESTION ─────────────────────┐
	│                                                           │
	│  Workers ──Submit()──▶ bounded channel (drop-oldest)      │
	│                              │                            │
	│                     consumer goroutine                    │
	│                   (single writer, in order)               │
	│                              │                            │
	│             ┌────────────────┼────────────────┐           │
	│             ▼                ▼                ▼           │
	│       store.Append()    cache.Fold()    publish(delta)    │
	│                                                           │
	└───────────────────────────────────────────────────────────┘

Submit is fire-and-forget: producers are document and query processing
workers whose own latency must never depend on monitoring I/O. Under
sustained overload the oldest queued event is evicted so the freshest
signal survives; every loss increments an observable counter. Events are
monitoring data, not transactional data.

The single consumer serializes all writes into the log store and the
state cache, eliminating write races by construction. Stop closes the
intake, drains what was already queued within a bounded window, and then
halts, so a clean shutdown loses no accepted events.
*/
package ingest
