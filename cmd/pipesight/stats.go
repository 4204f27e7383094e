package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pipesight/pipesight/pkg/client"
	"github.com/pipesight/pipesight/pkg/types"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch and print the current stats report from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		asJSON, _ := cmd.Flags().GetBool("json")

		report, err := client.NewClient(server).GetStats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}

		if asJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		printKind := func(name string, ks types.KindStats) {
			fmt.Printf("%s pipelines:\n", name)
			fmt.Printf("  total: %d (24h: %d, 7d: %d)\n", ks.Total, ks.Last24h, ks.Last7d)
			fmt.Printf("  succeeded: %d  failed: %d\n", ks.Succeeded, ks.Failed)
			fmt.Printf("  avg processing time: %.1f ms\n", ks.AvgProcessingTimeMS)
			fmt.Printf("  errors: %d (24h: %d, 7d: %d)\n", ks.Errors.Total, ks.Errors.Last24h, ks.Errors.Last7d)
		}

		printKind("Document", report.Documents)
		printKind("Query", report.Queries)
		fmt.Printf("dropped events: %d\n", report.DroppedEvents)
		fmt.Printf("malformed records: %d\n", report.MalformedRecords)
		if len(report.OrphanedRuns) > 0 {
			fmt.Printf("orphaned runs: %v\n", report.OrphanedRuns)
		}
		fmt.Printf("generated at: %s\n", report.GeneratedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	statsCmd.Flags().String("server", "http://127.0.0.1:8090", "Pipesight server base URL")
	statsCmd.Flags().Bool("json", false, "Print the raw JSON report")
}
