package storage

import (
	"github.com/pipesight/pipesight/pkg/types"
)

// Store defines the interface for the durable event log.
// Each pipeline id maps to one independently append-only record sequence.
type Store interface {
	// Append durably writes one event to the sequence for pipelineID.
	// The record is flushed before Append returns success.
	Append(pipelineID string, event *types.Event) error

	// ReadAll returns the decoded event sequence for pipelineID in append
	// order. A nonexistent pipeline id yields an empty slice, not an error.
	// Records that fail to decode are skipped and counted.
	ReadAll(pipelineID string) ([]*types.Event, error)

	// ReadAllRaw returns the raw serialized records for pipelineID in
	// append order, leaving malformed-record handling to the caller.
	ReadAllRaw(pipelineID string) ([][]byte, error)

	// ListPipelineIDs returns every pipeline id with at least one record
	ListPipelineIDs() ([]string, error)

	// Close releases the underlying database
	Close() error
}
