package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/chattree-go/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long:  `Rebuild the graph and print node, conversation and timing statistics.`,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := indexer.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild graph: %w", err)
	}

	stats := indexer.GraphStats()
	fmt.Println("Index")
	fmt.Printf("  Conversations:  %d\n", stats.Conversations)
	fmt.Printf("  Messages:       %d\n", stats.Nodes)
	fmt.Printf("  Shared:         %d\n", stats.SharedNodes)
	fmt.Printf("  Edit groups:    %d\n", stats.EditGroups)

	snap := indexer.Metrics().Snapshot()
	fmt.Println("\nTimings (avg ms / calls)")
	printOp := func(name string, op *metrics.OperationSnapshot) {
		if op == nil {
			return
		}
		fmt.Printf("  %-12s %8.2f / %d\n", name, op.AvgTimeMs, op.Count)
	}
	printOp("normalize", snap.Normalize)
	printOp("graph", snap.GraphBuild)
	printOp("flatten", snap.Flatten)
	printOp("annotate", snap.Annotate)
	printOp("validate", snap.Validate)
	printOp("store get", snap.StoreGet)
	printOp("store put", snap.StorePut)

	return nil
}
