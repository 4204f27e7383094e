package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	valid := Event{
		PipelineID: "p1",
		Kind:       KindQuery,
		Stage:      "embedding",
		Timestamp:  time.Now(),
		Data:       EventData{Status: StatusProcessing},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"empty pipeline id", func(e *Event) { e.PipelineID = "" }},
		{"invalid kind", func(e *Event) { e.Kind = "batch" }},
		{"empty stage", func(e *Event) { e.Stage = "" }},
		{"invalid status", func(e *Event) { e.Data.Status = "exploded" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := valid
			tt.mutate(&ev)
			assert.Error(t, ev.Validate())
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusStarted.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}

func TestKnownStage(t *testing.T) {
	assert.True(t, KnownStage(KindQuery, "embedding"))
	assert.True(t, KnownStage(KindDocument, "embedding"))
	assert.True(t, KnownStage(KindQuery, StageOverall))
	assert.True(t, KnownStage(KindDocument, StageOverall))

	assert.False(t, KnownStage(KindQuery, "upload"))
	assert.False(t, KnownStage(KindDocument, "vector_search"))
	assert.False(t, KnownStage(KindQuery, "custom_rerank"))
}

func TestCloneIsDeep(t *testing.T) {
	run := &PipelineRun{
		ID:     "p1",
		Kind:   KindQuery,
		Status: RunInProgress,
		Stages: []*StageRecord{
			{Stage: "embedding", Status: StatusSuccess, Metrics: map[string]float64{"avg_time_ms": 10}},
		},
	}

	cp := run.Clone()
	cp.Status = RunError
	cp.Stages[0].Status = StatusError
	cp.Stages[0].Metrics["avg_time_ms"] = 999

	assert.Equal(t, RunInProgress, run.Status)
	assert.Equal(t, StatusSuccess, run.Stages[0].Status)
	assert.Equal(t, float64(10), run.Stages[0].Metrics["avg_time_ms"])
}

func TestStageLookup(t *testing.T) {
	run := &PipelineRun{
		Stages: []*StageRecord{{Stage: "upload"}, {Stage: "chunking"}},
	}
	require.NotNil(t, run.Stage("chunking"))
	assert.Nil(t, run.Stage("embedding"))
}
