/*
Package metrics provides Prometheus metrics and health endpoints for
Pipesight.

All collectors are package-level and registered in init(); components
increment them directly. The package also hosts the health, readiness,
and liveness HTTP handlers mounted by the API server.

# Collectors

Ingestion:

	pipesight_events_submitted_total{kind}   events accepted into the queue
	pipesight_events_dropped_total           events dropped on queue overflow
	pipesight_events_folded_total            events applied to the state cache
	pipesight_queue_depth                    current queue backlog

Durable log:

	pipesight_store_appends_total            successful durable appends
	pipesight_store_append_failures_total    failed appends (event still folded)
	pipesight_malformed_records_total        corrupt records skipped by scans

Broadcast hub:

	pipesight_clients_connected              live dashboard connections
	pipesight_clients_disconnected_total{reason}
	pipesight_messages_published_total       deltas delivered
	pipesight_messages_dropped_total         deltas dropped on slow clients

The dropped-events and malformed-records counts also surface in the
StatsReport so dashboards can show them without scraping Prometheus.

# Health

RegisterComponent/UpdateComponent feed /health; /ready additionally
requires the store, ingest, and hub components to be healthy.
*/
package metrics
