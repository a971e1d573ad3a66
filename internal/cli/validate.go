package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check graph integrity",
	Long: `Rebuild the conversation graph from the cache and report integrity
errors: orphaned nodes, inconsistent parent/child links, circular
references and broken edit groups.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := indexer.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild graph: %w", err)
	}

	errs := indexer.Validate()
	if len(errs) == 0 {
		fmt.Printf("✓ Graph is consistent (%d nodes)\n", indexer.GraphStats().Nodes)
		return nil
	}

	fmt.Printf("Found %d integrity error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("  [%s] node %s: %s\n", e.Kind, e.NodeID, e.Detail)
	}
	return fmt.Errorf("graph validation failed")
}
