package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

var (
	branchParent       string
	branchChild        string
	branchTitle        string
	branchMessageID    string
	branchFirstMessage string
)

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List and record conversation branches",
	Long: `List externally recorded branch relationships, or record a new one
with the add subcommand. A branch relationship marks a conversation as
having been spawned ("branch in new chat") from a message in another
conversation.`,
	RunE: runBranchesList,
}

var branchesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a branch relationship",
	Long: `Record that one conversation was branched off a message in another.

Example:
  chattree branches add --parent 67a1... --child 9f3b... \
    --message msg-12 --title "Side quest"`,
	RunE: runBranchesAdd,
}

func init() {
	branchesAddCmd.Flags().StringVar(&branchParent, "parent", "", "parent conversation id (required)")
	branchesAddCmd.Flags().StringVar(&branchChild, "child", "", "child conversation id (required)")
	branchesAddCmd.Flags().StringVar(&branchTitle, "title", "", "child conversation title")
	branchesAddCmd.Flags().StringVar(&branchMessageID, "message", "", "parent message the branch was taken from")
	branchesAddCmd.Flags().StringVar(&branchFirstMessage, "first-message", "", "first message text of the child")
	_ = branchesAddCmd.MarkFlagRequired("parent")
	_ = branchesAddCmd.MarkFlagRequired("child")

	branchesCmd.AddCommand(branchesAddCmd)
}

func runBranchesList(cmd *cobra.Command, args []string) error {
	data, err := indexer.BranchData()
	if err != nil {
		return fmt.Errorf("load branch data: %w", err)
	}

	if len(data.Branches) == 0 {
		fmt.Println("No branch relationships recorded.")
		return nil
	}

	for parent, records := range data.Branches {
		title := data.Titles[parent]
		if title == "" {
			title = parent
		}
		fmt.Printf("%s\n", title)
		for _, rec := range records {
			childTitle := rec.Title
			if childTitle == "" {
				childTitle = data.Titles[rec.ChildID]
			}
			if childTitle == "" {
				childTitle = rec.ChildID
			}
			fmt.Printf("  └─ %s", childTitle)
			if rec.ParentMessageID != "" {
				fmt.Printf(" (from message %s)", rec.ParentMessageID)
			}
			fmt.Println()
		}
	}
	return nil
}

func runBranchesAdd(cmd *cobra.Command, args []string) error {
	rec := models.BranchRecord{
		ChildID:         branchChild,
		Title:           branchTitle,
		FirstMessage:    branchFirstMessage,
		ParentMessageID: branchMessageID,
	}
	if err := indexer.AddBranch(branchParent, rec); err != nil {
		return fmt.Errorf("record branch: %w", err)
	}
	fmt.Printf("Recorded branch %s → %s\n", branchParent, branchChild)
	return nil
}
