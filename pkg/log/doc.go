/*
Package log provides structured logging for Pipesight using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include timestamps
and support filtering by severity level.

# Usage

Initialize once at process startup, then derive child loggers per
component:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("ingest")
	logger.Info().Str("pipeline_id", id).Msg("event folded")

Child logger helpers attach the fields used throughout Pipesight:

  - WithComponent("hub")        → {"component": "hub", ...}
  - WithPipelineID("a1b2...")   → {"pipeline_id": "a1b2...", ...}
  - WithClientID("c-42")        → {"client_id": "c-42", ...}

Console output (human-readable, RFC3339 timestamps) is the default for
interactive use; JSON output is intended for production log shipping.
*/
package log
