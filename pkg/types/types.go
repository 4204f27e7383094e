package types

import (
	"fmt"
	"time"
)

// Kind identifies which class of pipeline a run belongs to
type Kind string

const (
	KindDocument Kind = "document"
	KindQuery    Kind = "query"
)

// Valid reports whether the kind is one of the known pipeline kinds
func (k Kind) Valid() bool {
	return k == KindDocument || k == KindQuery
}

// Status represents the status reported by a single event
type Status string

const (
	StatusStarted    Status = "started"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Valid reports whether the status is part of the event vocabulary
func (s Status) Valid() bool {
	switch s {
	case StatusStarted, StatusProcessing, StatusSuccess, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the status concludes a run when reported
// on the Overall stage
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// StageOverall is the sentinel stage carrying run-level lifecycle events,
// as opposed to the named processing stages of the pipeline itself.
const StageOverall = "Overall"

// MetricTotalProcessingTime is the metrics key carrying the run's total
// processing time on the terminal Overall event.
const MetricTotalProcessingTime = "total_processing_time_ms"

// QueryStages is the fixed stage topology of a query pipeline, in
// execution order.
var QueryStages = []string{
	"query_input",
	"embedding",
	"vector_search",
	"document_retrieval",
	"context_prep",
	"llm_processing",
	"response",
	"history_log",
}

// DocumentStages is the fixed stage topology of a document ingestion
// pipeline, in execution order.
var DocumentStages = []string{
	"upload",
	"text_extraction",
	"chunking",
	"embedding",
	"vector_store",
	"indexing",
}

// StagesFor returns the fixed stage topology for a pipeline kind
func StagesFor(kind Kind) []string {
	if kind == KindDocument {
		return DocumentStages
	}
	return QueryStages
}

// KnownStage reports whether a stage belongs to the fixed topology of the
// given kind. Unknown stages are still accepted and stored; dashboards
// render them as opaque nodes outside the fixed layout.
func KnownStage(kind Kind, stage string) bool {
	if stage == StageOverall {
		return true
	}
	for _, s := range StagesFor(kind) {
		if s == stage {
			return true
		}
	}
	return false
}

// EventData is the status payload of an event. Metrics is an open
// string-keyed numeric map so workers can attach stage-specific
// measurements without schema changes.
type EventData struct {
	Status       Status             `json:"status"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

// Event is one lifecycle observation emitted by a processing worker.
// Events are immutable once emitted; they are the unit of the durable log.
type Event struct {
	PipelineID string    `json:"pipeline_id"`
	Kind       Kind      `json:"kind"`
	Stage      string    `json:"stage"`
	Timestamp  time.Time `json:"timestamp"`
	Data       EventData `json:"data"`
}

// Validate checks the fixed fields of an event envelope
func (e *Event) Validate() error {
	if e.PipelineID == "" {
		return fmt.Errorf("event missing pipeline_id")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("invalid pipeline kind: %q", e.Kind)
	}
	if e.Stage == "" {
		return fmt.Errorf("event missing stage")
	}
	if !e.Data.Status.Valid() {
		return fmt.Errorf("invalid event status: %q", e.Data.Status)
	}
	return nil
}

// RunStatus classifies a pipeline run as a whole
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunSuccess    RunStatus = "success"
	RunError      RunStatus = "error"
)

// StageRecord is the latest observation for one stage of a run
type StageRecord struct {
	Stage        string             `json:"stage"`
	Status       Status             `json:"status"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// PipelineRun is the derived view of one pipeline run, folded from its
// event sequence. Stages preserves first-arrival order.
type PipelineRun struct {
	ID                    string         `json:"pipeline_id"`
	Kind                  Kind           `json:"kind"`
	Status                RunStatus      `json:"status"`
	Stages                []*StageRecord `json:"stages"`
	StartedAt             time.Time      `json:"started_at"`
	CompletedAt           time.Time      `json:"completed_at,omitzero"`
	TotalProcessingTimeMS float64        `json:"total_processing_time_ms,omitempty"`
}

// Stage returns the stage record with the given name, or nil
func (r *PipelineRun) Stage(name string) *StageRecord {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s
		}
	}
	return nil
}

// Clone returns a deep copy of the run, safe to hand to readers while
// the original keeps being folded.
func (r *PipelineRun) Clone() *PipelineRun {
	cp := *r
	cp.Stages = make([]*StageRecord, len(r.Stages))
	for i, s := range r.Stages {
		sc := *s
		if s.Metrics != nil {
			sc.Metrics = make(map[string]float64, len(s.Metrics))
			for k, v := range s.Metrics {
				sc.Metrics[k] = v
			}
		}
		cp.Stages[i] = &sc
	}
	return &cp
}

// Delta describes the single change produced by folding one event:
// the stage record that was updated plus any run-level transition.
// It is what the broadcast hub sends to connected clients.
type Delta struct {
	// Seq is the global fold sequence number; clients compare it against
	// their snapshot's sequence to discard deltas already reflected there.
	Seq        uint64       `json:"seq"`
	PipelineID string       `json:"pipeline_id"`
	Kind       Kind         `json:"kind"`
	Stage      *StageRecord `json:"stage,omitempty"`
	RunStatus  RunStatus    `json:"run_status"`
	Terminal   bool         `json:"terminal,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// ErrorCounts buckets per-event error counts over the reporting windows
type ErrorCounts struct {
	Total   int `json:"total"`
	Last24h int `json:"last_24h"`
	Last7d  int `json:"last_7d"`
}

// KindStats aggregates completed-run and error statistics for one
// pipeline kind
type KindStats struct {
	Total               int         `json:"total"`
	Last24h             int         `json:"last_24h"`
	Last7d              int         `json:"last_7d"`
	Succeeded           int         `json:"succeeded"`
	Failed              int         `json:"failed"`
	AvgProcessingTimeMS float64     `json:"avg_processing_time_ms"`
	Errors              ErrorCounts `json:"errors"`
}

// StatsReport is the aggregator output, derived solely from the durable
// log store plus operational counters.
type StatsReport struct {
	Documents        KindStats `json:"documents"`
	Queries          KindStats `json:"queries"`
	DroppedEvents    uint64    `json:"dropped_events"`
	MalformedRecords int       `json:"malformed_records"`
	OrphanedRuns     []string  `json:"orphaned_runs,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}
