package graph

import "fmt"

// Validation error kinds. Every kind is checked independently on each
// Validate call so a single pass surfaces all error classes present.
const (
	ErrOrphanedNode            = "orphaned_node"
	ErrInconsistentParentChild = "inconsistent_parent_child"
	ErrCircularReference       = "circular_reference"
	ErrMissingEditSibling      = "missing_edit_sibling"
	ErrEditGroupMismatch       = "edit_group_mismatch"
	ErrOrphanedEditGroup       = "orphaned_edit_group"
)

// ValidationError describes one integrity problem found in the graph.
// Validation errors are reportable conditions, never fatal: a graph with
// errors is still usable for flattening.
type ValidationError struct {
	Kind   string `json:"kind"`
	NodeID string `json:"node_id"`
	Detail string `json:"detail"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: node %s: %s", e.Kind, e.NodeID, e.Detail)
}

// Validate checks graph integrity and returns every error found. It never
// fails and never mutates the graph.
//
// Checks:
//   - orphaned_node: ParentID references a node that does not exist.
//   - inconsistent_parent_child: the parent exists but its ChildIDs does
//     not include this node.
//   - circular_reference: the ParentID chain revisits a node.
//   - missing_edit_sibling: an edit group lists an id with no node.
//   - edit_group_mismatch: a node's EditGroupID differs from the group
//     that lists it.
//   - orphaned_edit_group: a node references a group that does not exist.
func (g *ConversationGraph) Validate() []ValidationError {
	var errs []ValidationError

	ids := g.NodeIDs()

	// Parent/child symmetry.
	for _, id := range ids {
		node := g.nodes[id]
		if node.ParentID == "" {
			continue
		}
		parent, ok := g.nodes[node.ParentID]
		if !ok {
			errs = append(errs, ValidationError{
				Kind:   ErrOrphanedNode,
				NodeID: id,
				Detail: fmt.Sprintf("parent %s does not exist", node.ParentID),
			})
			continue
		}
		if _, ok := parent.ChildIDs[id]; !ok {
			errs = append(errs, ValidationError{
				Kind:   ErrInconsistentParentChild,
				NodeID: id,
				Detail: fmt.Sprintf("parent %s does not list this node as child", node.ParentID),
			})
		}
	}

	// Cycle detection over parent chains. A shared visited set across all
	// starting nodes keeps total work O(n): once a node's chain is known
	// to terminate (or its cycle has been reported), it is never walked
	// again from another starting point. Hitting a node already on the
	// current chain, as opposed to the global set, signals a cycle.
	visited := make(map[string]struct{}, len(g.nodes))
	for _, start := range ids {
		if _, done := visited[start]; done {
			continue
		}
		onChain := make(map[string]struct{})
		var chain []string
		id := start
		for id != "" {
			if _, done := visited[id]; done {
				break
			}
			if _, cycling := onChain[id]; cycling {
				errs = append(errs, ValidationError{
					Kind:   ErrCircularReference,
					NodeID: id,
					Detail: "parent chain revisits this node",
				})
				break
			}
			onChain[id] = struct{}{}
			chain = append(chain, id)
			node, ok := g.nodes[id]
			if !ok {
				break
			}
			id = node.ParentID
		}
		for _, walked := range chain {
			visited[walked] = struct{}{}
		}
	}

	// Forward consistency: every id a group lists must resolve to a node
	// tagged with that group.
	for _, groupID := range sortedKeys(asSet(g.editGroups)) {
		for _, memberID := range sortedKeys(g.editGroups[groupID]) {
			node, ok := g.nodes[memberID]
			if !ok {
				errs = append(errs, ValidationError{
					Kind:   ErrMissingEditSibling,
					NodeID: memberID,
					Detail: fmt.Sprintf("listed in edit group %s but has no node", groupID),
				})
				continue
			}
			if node.EditGroupID != groupID {
				errs = append(errs, ValidationError{
					Kind:   ErrEditGroupMismatch,
					NodeID: memberID,
					Detail: fmt.Sprintf("node group %q differs from listing group %q", node.EditGroupID, groupID),
				})
			}
		}
	}

	// Reverse consistency: every node claiming a group must reference an
	// existing one. Checked independently of the forward direction since
	// the two can desync under partial updates.
	for _, id := range ids {
		node := g.nodes[id]
		if node.EditGroupID == "" {
			continue
		}
		if _, ok := g.editGroups[node.EditGroupID]; !ok {
			errs = append(errs, ValidationError{
				Kind:   ErrOrphanedEditGroup,
				NodeID: id,
				Detail: fmt.Sprintf("references edit group %s which does not exist", node.EditGroupID),
			})
		}
	}

	return errs
}

func asSet(groups map[string]map[string]struct{}) map[string]struct{} {
	set := make(map[string]struct{}, len(groups))
	for id := range groups {
		set[id] = struct{}{}
	}
	return set
}
