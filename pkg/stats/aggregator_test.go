package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pipesight/pipesight/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawStore is an in-memory Store serving hand-built raw records,
// including deliberately corrupt ones
type rawStore struct {
	records map[string][][]byte
}

func newRawStore() *rawStore {
	return &rawStore{records: make(map[string][][]byte)}
}

func (s *rawStore) add(pipelineID string, raw []byte) {
	s.records[pipelineID] = append(s.records[pipelineID], raw)
}

func (s *rawStore) addEvent(pipelineID string, ev *types.Event) {
	data, _ := json.Marshal(ev)
	s.add(pipelineID, data)
}

func (s *rawStore) Append(pipelineID string, ev *types.Event) error {
	s.addEvent(pipelineID, ev)
	return nil
}

func (s *rawStore) ReadAll(pipelineID string) ([]*types.Event, error) {
	var events []*types.Event
	for _, raw := range s.records[pipelineID] {
		var ev types.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		events = append(events, &ev)
	}
	return events, nil
}

func (s *rawStore) ReadAllRaw(pipelineID string) ([][]byte, error) {
	return s.records[pipelineID], nil
}

func (s *rawStore) ListPipelineIDs() ([]string, error) {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *rawStore) Close() error { return nil }

func event(id string, kind types.Kind, stage string, status types.Status, at time.Time, metrics map[string]float64) *types.Event {
	return &types.Event{
		PipelineID: id,
		Kind:       kind,
		Stage:      stage,
		Timestamp:  at,
		Data:       types.EventData{Status: status, Metrics: metrics},
	}
}

// TestTwoPipelineScenario: one successful run contributing to the
// average, one failed run counted once in the error totals and never in
// the average.
func TestTwoPipelineScenario(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	store.addEvent("p1", event("p1", types.KindQuery, "embedding", types.StatusSuccess, now.Add(-time.Hour), nil))
	store.addEvent("p1", event("p1", types.KindQuery, types.StageOverall, types.StatusSuccess, now.Add(-time.Hour),
		map[string]float64{types.MetricTotalProcessingTime: 500}))

	store.addEvent("p2", event("p2", types.KindQuery, "vector_search", types.StatusError, now.Add(-time.Hour), nil))
	store.addEvent("p2", event("p2", types.KindQuery, types.StageOverall, types.StatusError, now.Add(-time.Hour), nil))

	agg := NewAggregator(store, 0)
	report, err := agg.Compute(now)
	require.NoError(t, err)

	q := report.Queries
	assert.Equal(t, 2, q.Total)
	assert.Equal(t, 1, q.Succeeded)
	assert.Equal(t, 1, q.Failed)
	assert.Equal(t, float64(500), q.AvgProcessingTimeMS)
	// Both the stage error and the terminal error event count per-event
	assert.Equal(t, 2, q.Errors.Total)

	assert.Zero(t, report.Documents.Total)
}

// TestIdempotentAggregation: two computations over an unchanged log set
// yield identical reports.
func TestIdempotentAggregation(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	store.addEvent("p1", event("p1", types.KindDocument, "upload", types.StatusSuccess, now.Add(-2*time.Hour), nil))
	store.addEvent("p1", event("p1", types.KindDocument, types.StageOverall, types.StatusSuccess, now.Add(-2*time.Hour),
		map[string]float64{types.MetricTotalProcessingTime: 1200}))
	store.addEvent("p2", event("p2", types.KindQuery, "embedding", types.StatusError, now.Add(-30*time.Hour), nil))

	agg := NewAggregator(store, 0)
	first, err := agg.Compute(now)
	require.NoError(t, err)
	second, err := agg.Compute(now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMalformedRecordsSkipped(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	store.add("p1", []byte("{corrupt"))
	store.addEvent("p1", event("p1", types.KindQuery, types.StageOverall, types.StatusSuccess, now,
		map[string]float64{types.MetricTotalProcessingTime: 100}))
	// Zero timestamp counts as malformed too
	store.addEvent("p1", &types.Event{PipelineID: "p1", Kind: types.KindQuery, Stage: "x",
		Data: types.EventData{Status: types.StatusProcessing}})

	agg := NewAggregator(store, 0)
	report, err := agg.Compute(now)
	require.NoError(t, err)

	assert.Equal(t, 2, report.MalformedRecords)
	assert.Equal(t, 1, report.Queries.Total)
	assert.Equal(t, 1, report.Queries.Succeeded)
}

// TestReprocessingDedupe: a log with multiple terminal attempts
// contributes exactly one classification, taken from the most recent
// terminal event and bucketed by that event's own timestamp.
func TestReprocessingDedupe(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	// Failed ten days ago, reprocessed successfully an hour ago
	store.addEvent("p1", event("p1", types.KindDocument, types.StageOverall, types.StatusError, now.Add(-10*24*time.Hour), nil))
	store.addEvent("p1", event("p1", types.KindDocument, types.StageOverall, types.StatusSuccess, now.Add(-time.Hour),
		map[string]float64{types.MetricTotalProcessingTime: 800}))

	agg := NewAggregator(store, 0)
	report, err := agg.Compute(now)
	require.NoError(t, err)

	d := report.Documents
	assert.Equal(t, 1, d.Total)
	assert.Equal(t, 1, d.Succeeded)
	assert.Equal(t, 0, d.Failed)
	assert.Equal(t, 1, d.Last24h, "recency bucketed by the latest terminal timestamp")
	assert.Equal(t, 1, d.Last7d)
}

func TestWindowBucketing(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	// Completed two days ago: inside 7d, outside 24h
	store.addEvent("p1", event("p1", types.KindQuery, types.StageOverall, types.StatusSuccess, now.Add(-48*time.Hour),
		map[string]float64{types.MetricTotalProcessingTime: 250}))
	// Completed thirty days ago: only in the all-time total
	store.addEvent("p2", event("p2", types.KindQuery, types.StageOverall, types.StatusSuccess, now.Add(-30*24*time.Hour),
		map[string]float64{types.MetricTotalProcessingTime: 450}))

	agg := NewAggregator(store, 0)
	report, err := agg.Compute(now)
	require.NoError(t, err)

	q := report.Queries
	assert.Equal(t, 2, q.Total)
	assert.Equal(t, 0, q.Last24h)
	assert.Equal(t, 1, q.Last7d)
	assert.Equal(t, float64(350), q.AvgProcessingTimeMS)
}

func TestAverageExcludesZeroAndAbsent(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	store.addEvent("p1", event("p1", types.KindQuery, types.StageOverall, types.StatusSuccess, now,
		map[string]float64{types.MetricTotalProcessingTime: 600}))
	store.addEvent("p2", event("p2", types.KindQuery, types.StageOverall, types.StatusSuccess, now, nil))
	store.addEvent("p3", event("p3", types.KindQuery, types.StageOverall, types.StatusSuccess, now,
		map[string]float64{types.MetricTotalProcessingTime: 0}))

	agg := NewAggregator(store, 0)
	report, err := agg.Compute(now)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Queries.Succeeded)
	assert.Equal(t, float64(600), report.Queries.AvgProcessingTimeMS)
}

func TestOrphanDetection(t *testing.T) {
	store := newRawStore()
	now := time.Now().UTC()

	// No terminal event, last seen two days ago
	store.addEvent("stale", event("stale", types.KindQuery, "embedding", types.StatusProcessing, now.Add(-48*time.Hour), nil))
	// No terminal event, but still fresh
	store.addEvent("fresh", event("fresh", types.KindQuery, "embedding", types.StatusProcessing, now.Add(-time.Hour), nil))
	// Terminated: never orphaned
	store.addEvent("done", event("done", types.KindQuery, types.StageOverall, types.StatusSuccess, now.Add(-48*time.Hour), nil))

	agg := NewAggregator(store, 24*time.Hour)
	report, err := agg.Compute(now)
	require.NoError(t, err)

	assert.Equal(t, []string{"stale"}, report.OrphanedRuns)
}

func TestDroppedEventsSurfaced(t *testing.T) {
	agg := NewAggregator(newRawStore(), 0)
	agg.Dropped = func() uint64 { return 7 }

	report, err := agg.Compute(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), report.DroppedEvents)
}
