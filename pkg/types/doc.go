/*
Package types defines the shared data model for Pipesight's pipeline
event monitoring.

The types package holds the event envelope emitted by processing workers,
the fixed stage taxonomies for document and query pipelines, the derived
pipeline run projection folded from event sequences, and the statistics
report produced by the aggregator. All other packages depend on types;
types depends on nothing.

# Event Flow

	Worker ──▶ Event ──▶ {Durable Log, State Cache} ──▶ Delta ──▶ Clients

An Event is immutable once emitted. Ordering is guaranteed only within a
single pipeline_id; there is no global cross-pipeline ordering.

# Stage Taxonomy

Stage identifiers form a fixed, closed vocabulary per pipeline kind:

	query:    query_input → embedding → vector_search → document_retrieval
	          → context_prep → llm_processing → response → history_log
	document: upload → text_extraction → chunking → embedding
	          → vector_store → indexing

The sentinel stage "Overall" carries run-level lifecycle events. A run
becomes terminal when an Overall event reports success or error; the first
terminal classification wins and is never reverted. Unknown stage names
are accepted and stored but rendered as opaque nodes by dashboards.
*/
package types
