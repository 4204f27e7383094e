package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pipesight/pipesight/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorded is one captured RecordEvent call
type recorded struct {
	pipelineID string
	kind       types.Kind
	stage      string
	status     types.Status
	metrics    map[string]float64
	errMsg     string
}

type captureRecorder struct {
	mu     sync.Mutex
	events []recorded
}

func (c *captureRecorder) RecordEvent(pipelineID string, kind types.Kind, stage string, status types.Status, metrics map[string]float64, errorMessage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, recorded{pipelineID, kind, stage, status, metrics, errorMessage})
}

func (c *captureRecorder) seenKinds() map[types.Kind]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := map[types.Kind]bool{}
	for _, ev := range c.events {
		kinds[ev.kind] = true
	}
	return kinds
}

func TestRunPipelineSuccess(t *testing.T) {
	rec := &captureRecorder{}
	r := NewRunner(rec, Config{StageDelay: time.Millisecond, Seed: 1})

	id := r.RunPipeline(types.KindQuery)
	require.NotEmpty(t, id)

	// Overall started, processing+success per stage, Overall success
	stages := types.QueryStages
	require.Len(t, rec.events, 2+2*len(stages))

	first := rec.events[0]
	assert.Equal(t, types.StageOverall, first.stage)
	assert.Equal(t, types.StatusStarted, first.status)

	for i, stage := range stages {
		processing := rec.events[1+2*i]
		success := rec.events[2+2*i]
		assert.Equal(t, stage, processing.stage)
		assert.Equal(t, types.StatusProcessing, processing.status)
		assert.Equal(t, stage, success.stage)
		assert.Equal(t, types.StatusSuccess, success.status)
		assert.Contains(t, success.metrics, "avg_time_ms")
	}

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, types.StageOverall, last.stage)
	assert.Equal(t, types.StatusSuccess, last.status)
	assert.Contains(t, last.metrics, types.MetricTotalProcessingTime)

	// Every event belongs to the same run
	for _, ev := range rec.events {
		assert.Equal(t, id, ev.pipelineID)
		assert.Equal(t, types.KindQuery, ev.kind)
	}
}

func TestRunPipelineFailure(t *testing.T) {
	rec := &captureRecorder{}
	r := NewRunner(rec, Config{StageDelay: time.Millisecond, FailureRate: 1, Seed: 7})

	r.RunPipeline(types.KindDocument)
	require.NotEmpty(t, rec.events)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, types.StageOverall, last.stage)
	assert.Equal(t, types.StatusError, last.status)
	assert.NotEmpty(t, last.errMsg)
	assert.Contains(t, last.metrics, types.MetricTotalProcessingTime)

	// The failing stage itself reported an error right before the terminal
	stageErr := rec.events[len(rec.events)-2]
	assert.Equal(t, types.StatusError, stageErr.status)
	assert.NotEqual(t, types.StageOverall, stageErr.stage)
	assert.Contains(t, types.DocumentStages, stageErr.stage)
}

func TestRunPipelineDistinctIDs(t *testing.T) {
	rec := &captureRecorder{}
	r := NewRunner(rec, Config{StageDelay: time.Millisecond, Seed: 3})

	id1 := r.RunPipeline(types.KindQuery)
	id2 := r.RunPipeline(types.KindQuery)
	assert.NotEqual(t, id1, id2, "each attempt is its own run")
}

func TestRunAlternatesKindsUntilCancelled(t *testing.T) {
	rec := &captureRecorder{}
	r := NewRunner(rec, Config{StageDelay: time.Millisecond, Seed: 5})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		kinds := rec.seenKinds()
		return kinds[types.KindQuery] && kinds[types.KindDocument]
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on context cancellation")
	}
}
