package graph

import "sort"

// MessageNode is a message as owned by the conversation graph. A message
// shared by several conversations (the common prefix before a branch
// point) has exactly one node; ConversationIDs records every conversation
// that contains it.
//
// ID, Text, Role, CreateTime and ParentID are copied from the first
// insertion and never overwritten by later inserts of the same id.
type MessageNode struct {
	ID         string
	Text       string
	Role       string
	CreateTime float64

	// ParentID is the primary ancestor, set once at creation. Empty
	// means root.
	ParentID string

	// ChildIDs collects every later-inserted node that declared this
	// node as parent.
	ChildIDs map[string]struct{}

	// EditSiblingIDs holds the other members of this node's edit group
	// (alternate versions sharing the same semantic slot). Excludes the
	// node itself.
	EditSiblingIDs map[string]struct{}

	// ConversationIDs is every conversation containing this message.
	ConversationIDs map[string]struct{}

	// Set by edit-group detection, not at construction.
	IsEditVersion bool
	EditGroupID   string
}

func newMessageNode(id, text, role string, createTime float64, parentID string) *MessageNode {
	return &MessageNode{
		ID:              id,
		Text:            text,
		Role:            role,
		CreateTime:      createTime,
		ParentID:        parentID,
		ChildIDs:        make(map[string]struct{}),
		EditSiblingIDs:  make(map[string]struct{}),
		ConversationIDs: make(map[string]struct{}),
	}
}

// IsShared reports whether the node belongs to more than one conversation.
func (n *MessageNode) IsShared() bool {
	return len(n.ConversationIDs) > 1
}

// Children returns the node's child ids in sorted order.
func (n *MessageNode) Children() []string {
	return sortedKeys(n.ChildIDs)
}

// EditSiblings returns the node's edit sibling ids (excluding itself) in
// sorted order.
func (n *MessageNode) EditSiblings() []string {
	return sortedKeys(n.EditSiblingIDs)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
