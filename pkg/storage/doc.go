/*
Package storage provides the durable, append-only event log for Pipesight.

The storage package is the system of record: every ingested event is
persisted here before the in-memory projections are considered durable,
and the pipeline state cache is always reconstructible by replaying these
sequences. Records are never mutated or deleted by the core; retention is
an external housekeeping concern.

# Layout

One BoltDB database file holds one nested bucket per pipeline id under a
single root bucket:

	pipelines/
	├── 550e8400-e29b-41d4-a716-446655440000/
	│   ├── 0x0000000000000001 → {"pipeline_id":...,"stage":"embedding",...}
	│   ├── 0x0000000000000002 → {"pipeline_id":...,"stage":"Overall",...}
	│   └── ...
	└── 6ba7b810-9dad-11d1-80b4-00c04fd430c8/
	    └── ...

Keys are big-endian encoded bucket sequence numbers, so cursor iteration
order is append order. Values are JSON-encoded events.

# Durability

BoltDB fsyncs on every committed write transaction, so Append returning
nil means the record is on disk. Records are serialized in full before
the transaction opens; a crash mid-append leaves either the previous
content or the complete new record, never a torn write.

# Error Tolerance

ReadAll skips records that fail to decode, counting them via the
malformed-records metric, so one corrupt record cannot take down replay.
ReadAllRaw exposes the raw records for callers (the stats aggregator)
that do their own per-record decoding and accounting. Reading an unknown
pipeline id returns an empty sequence rather than an error.
*/
package storage
