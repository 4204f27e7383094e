/*
Package stats computes historical pipeline statistics from the durable
event log.

The aggregator is a pure read path over the log store: it enumerates
every pipeline id, reads each sequence exactly once, and reduces it to
per-kind totals, 24h/7d window counts, error counts, and the average
processing time of successful runs. It runs on demand (dashboard stats
endpoint) or on a timer, concurrently with ingestion and without taking
any lock on the write path; its view may lag by the events still in the
queue.

Two aggregation rules matter:

  - Error events count per event, at any stage — a run whose embedding
    stage failed twice before succeeding contributes two errors.
  - A run contributes at most one success/failure classification, taken
    from its most recent terminal Overall event, and completed runs are
    bucketed into the 24h/7d windows by that terminal event's own
    timestamp. Reprocessing a run therefore moves it, never double
    counts it.

Runs with no terminal event whose last observation predates the
staleness window are reported as orphaned; the aggregator flags them but
never fabricates a terminal status the producer did not report.

Corrupt records (undecodable JSON, zero timestamps) are skipped and
counted. Computing twice over an unchanged log yields identical reports.
*/
package stats
