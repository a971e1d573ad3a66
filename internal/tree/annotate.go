package tree

import "github.com/raphaelgruber/chattree-go/internal/models"

// MarkTerminalNodes sets IsTerminal on every node in the sequence. A
// terminal node is one with no subsequent node continuing its visual
// chain; connector lines stop there.
//
// The rules, evaluated per node against its immediate successor:
//
//   - last node in the sequence: terminal.
//   - collapsed branch: terminal unless a later main-line node exists
//     (scanning forward past other collapsed branches and past nodes
//     already inside some branch subtree, i.e. nodes carrying a color
//     index).
//   - expanded branch: never terminal; it connects into its children.
//   - edit branch: always terminal; edit branches render as leaves.
//   - successor is a branch marker: terminal only if no same-context
//     node exists anywhere later. The scan must keep going past
//     differing-context nodes: an intervening branch marker does not
//     terminate the parent chain.
//   - otherwise: terminal when the successor belongs to a different
//     context.
//
// Two nodes are same-context when their color indexes are equal, where
// "no color index" is its own value matching only itself.
func MarkTerminalNodes(nodes []*models.DisplayNode) []*models.DisplayNode {
	for i, node := range nodes {
		if i == len(nodes)-1 {
			node.IsTerminal = true
			continue
		}

		switch {
		case node.Type == models.NodeBranch && !node.Expanded:
			node.IsTerminal = !hasMainLineAfter(nodes, i)
		case node.Type == models.NodeBranch && node.Expanded:
			node.IsTerminal = false
		case node.Type == models.NodeEditBranch:
			node.IsTerminal = true
		case nodes[i+1].Type == models.NodeBranch:
			node.IsTerminal = !hasSameContextAfter(nodes, i)
		default:
			node.IsTerminal = !sameContext(node.ColorIndex, nodes[i+1].ColorIndex)
		}
	}
	return nodes
}

// hasMainLineAfter reports whether a main-line node follows position i.
// Collapsed branches and nodes inside another branch's subtree (those
// carrying a color index) are skipped; the first node with neither skip
// condition confirms continuation.
func hasMainLineAfter(nodes []*models.DisplayNode, i int) bool {
	for j := i + 1; j < len(nodes); j++ {
		n := nodes[j]
		if n.Type == models.NodeBranch && !n.Expanded {
			continue
		}
		if n.ColorIndex != nil {
			continue
		}
		return true
	}
	return false
}

// hasSameContextAfter reports whether any later non-branch node shares
// the context of nodes[i]. Differing-context nodes do not stop the scan.
func hasSameContextAfter(nodes []*models.DisplayNode, i int) bool {
	for j := i + 1; j < len(nodes); j++ {
		if nodes[j].Type == models.NodeBranch {
			continue
		}
		if sameContext(nodes[i].ColorIndex, nodes[j].ColorIndex) {
			return true
		}
	}
	return false
}

func sameContext(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// contextKey identifies a visual chain by depth plus color index.
type contextKey struct {
	depth    int
	color    int
	hasColor bool
}

func keyOf(n *models.DisplayNode) contextKey {
	key := contextKey{depth: n.Depth}
	if n.ColorIndex != nil {
		key.color = *n.ColorIndex
		key.hasColor = true
	}
	return key
}

// AnnotateContextContinuations sets HasPrevContext and HasNextContext on
// every node: whether an earlier/later node shares the same (depth,
// color index) key. Branch markers never count as context-chain members.
//
// HasPrevContext is a single forward pass over a running seen set.
// HasNextContext rescans forward from each node, because whether a later
// match exists depends on nodes not yet visited; the scan tolerates gaps
// and skips branch markers. Worst case O(n²), acceptable for sequences
// bounded by conversation length.
func AnnotateContextContinuations(nodes []*models.DisplayNode) []*models.DisplayNode {
	seen := make(map[contextKey]struct{})
	for _, node := range nodes {
		key := keyOf(node)
		_, node.HasPrevContext = seen[key]
		if node.Type != models.NodeBranch {
			seen[key] = struct{}{}
		}
	}

	for i, node := range nodes {
		key := keyOf(node)
		for j := i + 1; j < len(nodes); j++ {
			if nodes[j].Type == models.NodeBranch {
				continue
			}
			if keyOf(nodes[j]) == key {
				node.HasNextContext = true
				break
			}
		}
	}
	return nodes
}
