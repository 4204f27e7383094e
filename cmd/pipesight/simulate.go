package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pipesight/pipesight/pkg/client"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/pipesight/pipesight/pkg/worker"
	"github.com/spf13/cobra"
)

// remoteRecorder emits events to a running server's ingestion endpoint,
// the same boundary an out-of-process worker would use
type remoteRecorder struct {
	api *client.Client
}

func (r *remoteRecorder) RecordEvent(pipelineID string, kind types.Kind, stage string, status types.Status, metrics map[string]float64, errorMessage string) {
	event := &types.Event{
		PipelineID: pipelineID,
		Kind:       kind,
		Stage:      stage,
		Timestamp:  time.Now().UTC(),
		Data: types.EventData{
			Status:       status,
			Metrics:      metrics,
			ErrorMessage: errorMessage,
		},
	}

	if err := r.api.SubmitEvent(context.Background(), event); err != nil {
		// Fire-and-forget: a worker never fails because monitoring did
		fmt.Fprintf(os.Stderr, "warning: failed to emit event: %v\n", err)
	}
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emit simulated pipeline runs against a running server",
	Long: `Continuously run simulated document and query pipelines against a
Pipesight server's ingestion endpoint, for demos and load exercises.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		interval, _ := cmd.Flags().GetDuration("interval")
		failureRate, _ := cmd.Flags().GetFloat64("failure-rate")
		count, _ := cmd.Flags().GetInt("count")

		recorder := &remoteRecorder{api: client.NewClient(server)}
		runner := worker.NewRunner(recorder, worker.Config{
			FailureRate: failureRate,
			StageDelay:  20 * time.Millisecond,
		})

		if count > 0 {
			kinds := []types.Kind{types.KindQuery, types.KindDocument}
			for i := 0; i < count; i++ {
				id := runner.RunPipeline(kinds[i%len(kinds)])
				fmt.Printf("completed run %s\n", id)
			}
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		fmt.Printf("simulating pipeline runs against %s every %s, Ctrl+C to stop\n", server, interval)
		runner.Run(ctx, interval)
		return nil
	},
}

func init() {
	simulateCmd.Flags().String("server", "http://127.0.0.1:8090", "Pipesight server base URL")
	simulateCmd.Flags().Duration("interval", time.Second, "Delay between simulated runs")
	simulateCmd.Flags().Float64("failure-rate", 0.1, "Probability a run fails at a random stage")
	simulateCmd.Flags().Int("count", 0, "Run a fixed number of pipelines and exit (0 = run until interrupted)")
}
