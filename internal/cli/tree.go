package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/chattree-go/internal/models"
	"github.com/raphaelgruber/chattree-go/internal/tree"
)

var treeExpanded bool

var treeCmd = &cobra.Command{
	Use:   "tree <conversation-id>",
	Short: "Render a conversation's tree",
	Long: `Render the flattened tree for a conversation: its message path,
edit-version markers and any branched-off conversations.

Examples:
  chattree tree 67a1c2...
  chattree tree 67a1c2... --expanded`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&treeExpanded, "expanded", false, "treat branch markers as expanded")
}

func runTree(cmd *cobra.Command, args []string) error {
	conversationID := args[0]

	expanded := treeExpanded
	if !cmd.Flags().Changed("expanded") {
		if settings, err := st.LoadSettings(); err == nil {
			expanded = settings.TreeExpanded
		}
	}

	if err := indexer.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild graph: %w", err)
	}

	nodes, err := indexer.BuildTree(conversationID)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	if len(nodes) == 0 {
		fmt.Println("No indexed messages for this conversation. Run 'chattree import' first.")
		return nil
	}

	if expanded {
		// Terminal marking depends on the expansion state, so flip the
		// markers first and annotate again.
		for _, n := range nodes {
			if n.Type == models.NodeBranch {
				n.Expanded = true
			}
		}
		tree.MarkTerminalNodes(nodes)
		tree.AnnotateContextContinuations(nodes)
	}

	width := terminalWidth()
	for _, node := range nodes {
		fmt.Println(renderNode(node, width))
	}
	return nil
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	branchStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7"))
	editBranchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	viewingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D787"))
	markerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C")).Italic(true)
)

// renderNode draws one display node as a single line with connector
// glyphs derived from the annotator's output.
func renderNode(node *models.DisplayNode, width int) string {
	switch node.Type {
	case models.NodeTitle, models.NodeAncestorTitle, models.NodeCurrentTitle:
		return titleStyle.Render(oneLine(node.Text, width))
	case models.NodeBranchRoot:
		return markerStyle.Render(node.Text)
	case models.NodePreBranchIndicator:
		return markerStyle.Render("  ⎇")
	}

	indent := strings.Repeat("  ", node.Depth)
	glyph := connector(node)
	budget := width - len(indent) - 4

	switch node.Type {
	case models.NodeBranch:
		line := indent + glyph + " " + branchStyle.Render(oneLine(node.Text, budget))
		if node.IsViewing {
			line += " " + viewingStyle.Render("← viewing")
		}
		return line
	case models.NodeEditBranch:
		label := node.VersionLabel
		if node.DescendantCount > 0 {
			label += fmt.Sprintf(" (%d replies)", node.DescendantCount)
		}
		return indent + glyph + " " + editBranchStyle.Render(label+" "+oneLine(node.Text, budget))
	default:
		return indent + glyph + " " + oneLine(node.Text, budget)
	}
}

// connector picks the glyph that continues or ends the node's chain.
func connector(node *models.DisplayNode) string {
	if node.IsTerminal && !node.HasNextContext {
		return "└─"
	}
	return "├─"
}

// oneLine collapses whitespace and truncates to width. Truncation
// counts runes, not bytes, so multi-byte text is never cut
// mid-character.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-3]) + "..."
	}
	return s
}

// terminalWidth returns the stdout width, defaulting to 80 when stdout
// is not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	return 80
}
