// Package graph implements the deduplicated conversation graph: a DAG of
// chat messages keyed by message id across conversations, with
// edit-sibling grouping, per-conversation path metadata, divergence-point
// computation and integrity validation.
//
// The graph is a plain in-memory structure with no locking. It is meant
// to be owned by a single index session at a time; callers that trigger
// overlapping rebuilds must serialize them (the service layer does this
// with a single-flight group).
package graph

import (
	"log/slog"
	"sort"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

// ConversationMeta carries per-conversation metadata stored alongside the
// resolved path.
type ConversationMeta struct {
	Title    string
	Platform string
}

type conversationEntry struct {
	path []string
	meta ConversationMeta
}

// ConversationGraph owns all message nodes. Construct one per index
// session with New and pass it by reference; there is no package-level
// instance.
type ConversationGraph struct {
	nodes         map[string]*MessageNode
	conversations map[string]*conversationEntry
	editGroups    map[string]map[string]struct{}
	logger        *slog.Logger
}

// New creates an empty conversation graph. A nil logger falls back to
// slog.Default.
func New(logger *slog.Logger) *ConversationGraph {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationGraph{
		nodes:         make(map[string]*MessageNode),
		conversations: make(map[string]*conversationEntry),
		editGroups:    make(map[string]map[string]struct{}),
		logger:        logger,
	}
}

// AddMessage registers a message under a conversation and returns its
// node. Malformed input (empty message id or conversation id) returns nil
// rather than an error: bad records are an expected condition in a
// scraping pipeline and the caller is meant to log and continue.
//
// Re-inserting a known id merges by adding the conversation id and
// returns the existing node otherwise unchanged; text, role and create
// time are first-write-wins even when the incoming copy differs.
//
// Callers must insert parent before child: the parent/child link is
// established only when the parent already exists. A parent arriving
// after its children never has ChildIDs backfilled. This asymmetry is
// intentional; see Validate for how the resulting inconsistencies are
// surfaced.
func (g *ConversationGraph) AddMessage(msg models.Message, conversationID string) *MessageNode {
	if msg.ID == "" || conversationID == "" {
		g.logger.Debug("skipping malformed message", "id", msg.ID, "conversation", conversationID)
		return nil
	}

	if existing, ok := g.nodes[msg.ID]; ok {
		existing.ConversationIDs[conversationID] = struct{}{}
		return existing
	}

	node := newMessageNode(msg.ID, msg.Text, msg.Role, msg.CreateTime, msg.ParentID)
	node.ConversationIDs[conversationID] = struct{}{}
	g.nodes[msg.ID] = node

	if msg.ParentID != "" {
		if parent, ok := g.nodes[msg.ParentID]; ok {
			parent.ChildIDs[msg.ID] = struct{}{}
		}
	}
	return node
}

// Node returns the node for id, or nil if unknown.
func (g *ConversationGraph) Node(id string) *MessageNode {
	return g.nodes[id]
}

// NodeCount returns the number of distinct messages in the graph.
func (g *ConversationGraph) NodeCount() int {
	return len(g.nodes)
}

// NodeIDs returns all node ids in sorted order.
func (g *ConversationGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SharedCount returns the number of nodes contained in more than one
// conversation.
func (g *ConversationGraph) SharedCount() int {
	count := 0
	for _, n := range g.nodes {
		if n.IsShared() {
			count++
		}
	}
	return count
}

// ProcessEditVersions detects edit-sibling groups among the given
// messages and annotates the corresponding nodes. Any parent with two or
// more children in the slice forms a group; the canonical group id is the
// lexicographically smallest member id, so the grouping is deterministic
// regardless of insertion order or clock skew.
//
// The platform hint selects how candidate groups are collected:
//
//   - "chatgpt": explicit SiblingIDs hints from the normalizer take
//     precedence; messages without hints fall back to parent grouping.
//   - "gemini": parent grouping restricted to same-role siblings.
//   - anything else: plain shared-parent grouping.
//
// Each group is processed at most once per call. Repeated calls are safe:
// the computation is pure given the same siblings.
func (g *ConversationGraph) ProcessEditVersions(messages []models.Message, platform string) {
	var groups [][]string
	switch platform {
	case "chatgpt":
		groups = groupsFromHints(messages)
	case "gemini":
		groups = groupsByParent(messages, true)
	default:
		groups = groupsByParent(messages, false)
	}

	seen := make(map[string]struct{})
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		groupID := members[0]
		if _, done := seen[groupID]; done {
			continue
		}
		seen[groupID] = struct{}{}

		memberSet := make(map[string]struct{}, len(members))
		for _, id := range members {
			memberSet[id] = struct{}{}
		}
		g.editGroups[groupID] = memberSet

		for _, id := range members {
			node, ok := g.nodes[id]
			if !ok {
				// Listed sibling without a node; Validate reports it.
				continue
			}
			node.IsEditVersion = true
			node.EditGroupID = groupID
			node.EditSiblingIDs = make(map[string]struct{}, len(members)-1)
			for _, other := range members {
				if other != id {
					node.EditSiblingIDs[other] = struct{}{}
				}
			}
		}
		g.logger.Debug("edit group detected", "group", groupID, "members", len(members))
	}
}

// groupsByParent collects candidate sibling groups by shared non-empty
// parent id. When sameRole is set, siblings are additionally partitioned
// by role.
func groupsByParent(messages []models.Message, sameRole bool) [][]string {
	byKey := make(map[string][]string)
	var order []string
	for _, msg := range messages {
		if msg.ID == "" || msg.ParentID == "" {
			continue
		}
		key := msg.ParentID
		if sameRole {
			key = msg.ParentID + "\x00" + msg.Role
		}
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], msg.ID)
	}
	groups := make([][]string, 0, len(order))
	for _, key := range order {
		groups = append(groups, byKey[key])
	}
	return groups
}

// groupsFromHints builds groups from explicit sibling hints, falling back
// to parent grouping for messages without hints.
func groupsFromHints(messages []models.Message) [][]string {
	var groups [][]string
	var unhinted []models.Message
	for _, msg := range messages {
		if msg.ID == "" {
			continue
		}
		if len(msg.SiblingIDs) == 0 {
			unhinted = append(unhinted, msg)
			continue
		}
		members := append([]string{msg.ID}, msg.SiblingIDs...)
		groups = append(groups, dedupe(members))
	}
	return append(groups, groupsByParent(unhinted, false)...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// EditSiblings returns the full edit group containing id, including id
// itself, in sorted order. Unknown ids and nodes without an edit group
// yield {id}: the result is never empty and the call never fails.
func (g *ConversationGraph) EditSiblings(id string) []string {
	node, ok := g.nodes[id]
	if !ok || node.EditGroupID == "" {
		return []string{id}
	}
	group, ok := g.editGroups[node.EditGroupID]
	if !ok {
		return []string{id}
	}
	return sortedKeys(group)
}

// SetConversationPath stores the resolved root-to-leaf path for a
// conversation. Paths are set explicitly by the caller, never derived
// from node relationships.
func (g *ConversationGraph) SetConversationPath(conversationID string, orderedIDs []string, meta ConversationMeta) {
	path := make([]string, len(orderedIDs))
	copy(path, orderedIDs)
	g.conversations[conversationID] = &conversationEntry{path: path, meta: meta}
}

// ConversationPath returns the stored path for a conversation. Unknown
// conversations yield an empty, non-nil slice.
func (g *ConversationGraph) ConversationPath(conversationID string) []string {
	entry, ok := g.conversations[conversationID]
	if !ok {
		return []string{}
	}
	path := make([]string, len(entry.path))
	copy(path, entry.path)
	return path
}

// ConversationMetadata returns the stored metadata for a conversation.
func (g *ConversationGraph) ConversationMetadata(conversationID string) (ConversationMeta, bool) {
	entry, ok := g.conversations[conversationID]
	if !ok {
		return ConversationMeta{}, false
	}
	return entry.meta, true
}

// ConversationIDs returns all conversation ids with stored paths, sorted.
func (g *ConversationGraph) ConversationIDs() []string {
	ids := make([]string, 0, len(g.conversations))
	for id := range g.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EditGroupCount returns the number of detected edit groups.
func (g *ConversationGraph) EditGroupCount() int {
	return len(g.editGroups)
}

// FindDivergencePoint returns the last message id the two conversations'
// paths have in common, comparing position by position from the start.
// Returns "" if either path is empty or the paths differ already at
// index 0.
//
// This is a longest-common-prefix comparison, not an LCS: it assumes
// conversation histories are strictly linear-then-forking and cannot
// detect paths that reconverge after diverging.
func (g *ConversationGraph) FindDivergencePoint(conversationA, conversationB string) string {
	pathA := g.ConversationPath(conversationA)
	pathB := g.ConversationPath(conversationB)
	if len(pathA) == 0 || len(pathB) == 0 {
		return ""
	}

	last := ""
	for i := 0; i < len(pathA) && i < len(pathB); i++ {
		if pathA[i] != pathB[i] {
			break
		}
		last = pathA[i]
	}
	return last
}

// UniquePathAfter returns the suffix of the conversation's path strictly
// after divergenceID. If divergenceID does not appear on the path the
// entire path is returned unchanged; the caller may legitimately be
// asking about an unrelated conversation, so this is a fallback rather
// than an error.
func (g *ConversationGraph) UniquePathAfter(divergenceID, conversationID string) []string {
	path := g.ConversationPath(conversationID)
	for i, id := range path {
		if id == divergenceID {
			return path[i+1:]
		}
	}
	return path
}

// DescendantCount returns the number of role-classified descendants of
// id: every transitively reachable child whose node carries a non-empty
// role. The starting node itself is not counted.
func (g *ConversationGraph) DescendantCount(id string) int {
	start, ok := g.nodes[id]
	if !ok {
		return 0
	}

	count := 0
	visited := map[string]struct{}{id: {}}
	queue := start.Children()
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := visited[next]; ok {
			continue
		}
		visited[next] = struct{}{}
		node, ok := g.nodes[next]
		if !ok {
			continue
		}
		if node.Role != "" {
			count++
		}
		queue = append(queue, node.Children()...)
	}
	return count
}
