package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show server runtime statistics: request timings, store and LLM calls,
and token usage for cost monitoring.

Examples:
  fieldlog stats
  fieldlog stats --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	health, err := apiClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	stats, err := apiClient.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}
	if statsJSON {
		return printJSON(stats)
	}

	fmt.Printf("Server: %s (storage: %s)\n", health.Message, health.Storage)
	printServerStats(stats)
	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(stats *metrics.Snapshot) {
	fmt.Printf("Uptime: %.0fs\n", stats.UptimeSeconds)

	ops := []struct {
		title string
		op    *metrics.OperationSnapshot
	}{
		{"HTTP Requests", stats.HTTPRequest},
		{"Store Query", stats.StoreQuery},
		{"Store Search", stats.StoreSearch},
		{"Extraction", stats.Extraction},
		{"LLM Generate", stats.LLMGenerate},
		{"Tool Calls", stats.ToolCall},
	}
	for _, o := range ops {
		if o.op == nil {
			continue
		}
		fmt.Printf("\n%s:\n", o.title)
		printOpStats(o.op)
		printTokenStats(o.op)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
	if op.Count > 0 {
		fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
			op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
}

// printTokenStats displays token statistics if available.
func printTokenStats(op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Printf("  Tokens: %d in, %d out\n", *op.TotalInputTokens, *op.TotalOutputTokens)
}
