/*
Package monitor wires the monitoring subsystem together and owns its
lifecycle.

A Monitor is an explicitly constructed instance — there is no package
global and no import-time side effect. The owning process creates one,
starts it during startup (which replays the durable log into the state
cache before any live event is consumed), hands it to the components
that emit or read events, and stops it during shutdown (draining the
queue so a clean shutdown loses nothing).

RecordEvent is the entire contract processing workers see: construct an
event, enqueue it, return immediately. Nothing in here can fail a
worker's own processing.
*/
package monitor
