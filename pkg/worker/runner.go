package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/rs/zerolog"
)

// Recorder is the only contract a processing worker has with the
// monitoring core: emit lifecycle events, fire-and-forget. Implemented
// by monitor.Monitor.
type Recorder interface {
	RecordEvent(pipelineID string, kind types.Kind, stage string, status types.Status, metrics map[string]float64, errorMessage string)
}

// Config tunes the simulated workload
type Config struct {
	// StageDelay is the simulated processing time per stage
	StageDelay time.Duration
	// FailureRate is the probability (0..1) that a run fails at a
	// random stage
	FailureRate float64
	// Seed makes runs reproducible; zero uses the current time
	Seed int64
}

// Runner simulates document and query processing workers, walking each
// pipeline through its stage taxonomy and emitting the same lifecycle
// events a real worker would: started/processing/success per stage,
// plus the terminal Overall event that concludes the run.
type Runner struct {
	recorder Recorder
	cfg      Config
	rand     *rand.Rand
	logger   zerolog.Logger
}

// NewRunner creates a workload simulator against a recorder
func NewRunner(recorder Recorder, cfg Config) *Runner {
	if cfg.StageDelay <= 0 {
		cfg.StageDelay = 50 * time.Millisecond
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		recorder: recorder,
		cfg:      cfg,
		rand:     rand.New(rand.NewSource(seed)),
		logger:   log.WithComponent("worker"),
	}
}

// RunPipeline executes one simulated run of the given kind and returns
// its pipeline id. The worker chooses the id, one per logical attempt.
func (r *Runner) RunPipeline(kind types.Kind) string {
	pipelineID := uuid.New().String()
	stages := types.StagesFor(kind)

	failAt := -1
	if r.cfg.FailureRate > 0 && r.rand.Float64() < r.cfg.FailureRate {
		failAt = r.rand.Intn(len(stages))
	}

	start := time.Now()
	r.recorder.RecordEvent(pipelineID, kind, types.StageOverall, types.StatusStarted, nil, "")

	for i, stage := range stages {
		r.recorder.RecordEvent(pipelineID, kind, stage, types.StatusProcessing, nil, "")
		time.Sleep(r.jitter(r.cfg.StageDelay))

		if i == failAt {
			r.recorder.RecordEvent(pipelineID, kind, stage, types.StatusError, nil, "simulated processing failure")
			r.recorder.RecordEvent(pipelineID, kind, types.StageOverall, types.StatusError,
				map[string]float64{types.MetricTotalProcessingTime: float64(time.Since(start).Milliseconds())},
				"simulated processing failure at "+stage)
			r.logger.Debug().Str("pipeline_id", pipelineID).Str("stage", stage).Msg("simulated run failed")
			return pipelineID
		}

		r.recorder.RecordEvent(pipelineID, kind, stage, types.StatusSuccess,
			map[string]float64{"avg_time_ms": float64(r.jitter(r.cfg.StageDelay).Milliseconds())}, "")
	}

	r.recorder.RecordEvent(pipelineID, kind, types.StageOverall, types.StatusSuccess,
		map[string]float64{types.MetricTotalProcessingTime: float64(time.Since(start).Milliseconds())}, "")
	r.logger.Debug().Str("pipeline_id", pipelineID).Str("kind", string(kind)).Msg("simulated run completed")
	return pipelineID
}

// Run emits simulated runs, alternating kinds, until the context is
// cancelled
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	kinds := []types.Kind{types.KindQuery, types.KindDocument}
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunPipeline(kinds[i%len(kinds)])
		}
	}
}

func (r *Runner) jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(r.rand.Int63n(int64(d)))
}
