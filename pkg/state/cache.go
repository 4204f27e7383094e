package state

import (
	"sync"

	"github.com/pipesight/pipesight/pkg/types"
)

// Cache is the in-memory projection of all pipeline runs, derived by
// folding events in arrival order. It is written by exactly one goroutine
// (the ingestion consumer) and read concurrently by the broadcast hub,
// the API, and the stats aggregator. It is never a source of truth: the
// same view is always reconstructible by replaying the durable log.
type Cache struct {
	mu   sync.RWMutex
	runs map[string]*types.PipelineRun
	seq  uint64 // incremented on every fold, stamped onto deltas and snapshots
}

// NewCache creates an empty pipeline state cache
func NewCache() *Cache {
	return &Cache{
		runs: make(map[string]*types.PipelineRun),
	}
}

// Fold applies one event to the cache and returns the delta describing
// what changed. A run is created implicitly on the first event for a new
// pipeline id. The first terminal Overall event fixes the run's terminal
// classification; later Overall events update the stage record (audit)
// but never revert it.
func (c *Cache) Fold(event *types.Event) *types.Delta {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.runs[event.PipelineID]
	if !ok {
		run = &types.PipelineRun{
			ID:        event.PipelineID,
			Kind:      event.Kind,
			Status:    types.RunInProgress,
			StartedAt: event.Timestamp,
		}
		c.runs[event.PipelineID] = run
	}

	// Upsert the stage record, preserving first-arrival stage order
	rec := run.Stage(event.Stage)
	if rec == nil {
		rec = &types.StageRecord{Stage: event.Stage}
		run.Stages = append(run.Stages, rec)
	}
	rec.Status = event.Data.Status
	rec.UpdatedAt = event.Timestamp
	if event.Data.ErrorMessage != "" {
		rec.ErrorMessage = event.Data.ErrorMessage
	}
	if event.Data.Metrics != nil {
		if rec.Metrics == nil {
			rec.Metrics = make(map[string]float64, len(event.Data.Metrics))
		}
		for k, v := range event.Data.Metrics {
			rec.Metrics[k] = v
		}
	}

	terminal := false
	if event.Stage == types.StageOverall && event.Data.Status.Terminal() && run.Status == types.RunInProgress {
		if event.Data.Status == types.StatusSuccess {
			run.Status = types.RunSuccess
		} else {
			run.Status = types.RunError
		}
		run.CompletedAt = event.Timestamp
		if ms, ok := event.Data.Metrics[types.MetricTotalProcessingTime]; ok {
			run.TotalProcessingTimeMS = ms
		}
		terminal = true
	}

	stage := *rec
	if rec.Metrics != nil {
		stage.Metrics = make(map[string]float64, len(rec.Metrics))
		for k, v := range rec.Metrics {
			stage.Metrics[k] = v
		}
	}

	c.seq++

	return &types.Delta{
		Seq:        c.seq,
		PipelineID: run.ID,
		Kind:       run.Kind,
		Stage:      &stage,
		RunStatus:  run.Status,
		Terminal:   terminal,
		Timestamp:  event.Timestamp,
	}
}

// Replay folds a sequence of events from the durable log, discarding the
// deltas. Used to rebuild the cache on startup.
func (c *Cache) Replay(events []*types.Event) {
	for _, event := range events {
		c.Fold(event)
	}
}

// Snapshot returns a deep copy of one run, or nil if the pipeline id is
// unknown
func (c *Cache) Snapshot(pipelineID string) *types.PipelineRun {
	c.mu.RLock()
	defer c.mu.RUnlock()

	run, ok := c.runs[pipelineID]
	if !ok {
		return nil
	}
	return run.Clone()
}

// SnapshotAll returns a deep copy of every run, keyed by pipeline id,
// plus the fold sequence number the snapshot reflects. The lock is held
// only for the copy, never across I/O.
func (c *Cache) SnapshotAll() (map[string]*types.PipelineRun, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make(map[string]*types.PipelineRun, len(c.runs))
	for id, run := range c.runs {
		all[id] = run.Clone()
	}
	return all, c.seq
}

// Len returns the number of runs currently cached
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}
