/*
Package state maintains the live in-memory projection of pipeline runs.

The cache is a pure fold over the durable event log: applying the same
event sequence to a cold cache always reproduces the live view, which is
what makes restart recovery and the replay-equivalence property hold.

Write access is single-threaded by construction (only the ingestion
consumer calls Fold); reads take snapshots that are deep copies produced
under a read lock held only for the duration of the copy. A reader never
observes a torn run and never blocks the fold path on its own I/O.

Fold returns a Delta describing only the stage record and run-level
transition the event caused; the broadcast hub forwards that delta to
subscribed clients instead of re-sending full state.
*/
package state
