/*
Package api exposes Pipesight's external interfaces over HTTP.

# Routes

Historical (request/response):

	GET  /api/pipelines              known pipeline ids from the log store
	GET  /api/pipelines/{id}         live folded run view from the cache
	GET  /api/pipelines/{id}/events  full event replay from the log store
	                                 (cache fallback if the store read fails)
	GET  /api/state                  full cache snapshot with fold sequence
	GET  /api/stats                  on-demand StatsReport

Ingestion (for out-of-process workers):

	POST /api/events                 fire-and-forget event submission (202)

Streaming:

	GET  /ws                         WebSocket upgrade; optional pipeline_id
	                                 and stage query params preset the filter

Operational:

	GET  /health, /ready, /livez     component health
	GET  /metrics                    Prometheus exposition
*/
package api
