// Package tree flattens conversation data into the ordered display-node
// sequence consumed by the presentation layer, and annotates it with the
// terminal/continuation metadata that drives connector rendering.
package tree

import (
	"fmt"
	"sort"

	"github.com/raphaelgruber/chattree-go/internal/graph"
	"github.com/raphaelgruber/chattree-go/internal/models"
)

// millisThreshold separates second and millisecond timestamps. Values
// above it (~ the millisecond epoch around 2001) are treated as
// milliseconds. Callers throughout depend on this exact threshold.
const millisThreshold = 1e12

// ToSeconds normalizes a timestamp that may be in seconds or
// milliseconds to unix seconds. Non-positive values normalize to 0.
func ToSeconds(ts float64) float64 {
	if ts <= 0 {
		return 0
	}
	if ts > millisThreshold {
		return ts / 1000
	}
	return ts
}

// BuildOptions configures BuildDisplayList.
type BuildOptions struct {
	// Title, when non-empty, prepends a title node at depth 0.
	Title string

	// ConversationID selects which branch records in BranchData apply.
	ConversationID string

	// BranchData supplies external branch records to interleave. May be
	// nil.
	BranchData *models.BranchData
}

// BuildDisplayList flattens a single conversation's message list into
// display nodes: user messages sorted by create time, with external
// branch markers interleaved chronologically and an optional title node
// pinned at position 0.
func BuildDisplayList(messages []models.Message, opts BuildOptions) []*models.DisplayNode {
	var nodes []*models.DisplayNode
	for _, msg := range messages {
		if msg.Role != models.RoleUser {
			continue
		}
		nodes = append(nodes, &models.DisplayNode{
			ID:         msg.ID,
			Type:       models.NodeMessage,
			Text:       msg.Text,
			Role:       msg.Role,
			Depth:      0,
			CreateTime: ToSeconds(msg.CreateTime),
		})
	}

	if opts.BranchData != nil {
		for _, rec := range opts.BranchData.Branches[opts.ConversationID] {
			nodes = append(nodes, branchNode(rec, opts.ConversationID))
		}
	}

	// Stable sort keeps the original relative order for equal times,
	// both among messages and between a message and a branch created at
	// the same moment.
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].CreateTime < nodes[j].CreateTime
	})

	if opts.Title != "" {
		title := &models.DisplayNode{
			Type:  models.NodeTitle,
			Text:  opts.Title,
			Depth: 0,
		}
		nodes = append([]*models.DisplayNode{title}, nodes...)
	}
	return nodes
}

// branchNode builds the depth-1 marker for an external branch record.
func branchNode(rec models.BranchRecord, currentConversationID string) *models.DisplayNode {
	text := rec.FirstMessage
	if text == "" {
		text = rec.Title
	}
	return &models.DisplayNode{
		ID:                   rec.ChildID,
		Type:                 models.NodeBranch,
		Text:                 text,
		Depth:                1,
		CreateTime:           ToSeconds(rec.CreatedAt),
		TargetConversationID: rec.ChildID,
		IsViewing:            rec.ChildID == currentConversationID,
	}
}

// BuildTreeFromGraph flattens the stored path of the current conversation
// into display nodes, emitting edit-branch markers for alternate message
// versions and branch markers for external branches anchored on path
// messages.
//
// When the current conversation is itself a recorded branch of a parent
// conversation, the sequence is prefixed with the ancestor context: the
// parent's title, a branch-root marker, a pre-branch indicator, the
// parent's branch markers (one of them marked as being viewed) and then a
// current-title node. Ancestor context always precedes current content
// regardless of timestamps.
func BuildTreeFromGraph(g *graph.ConversationGraph, currentConversationID string, data *models.BranchData) []*models.DisplayNode {
	var out []*models.DisplayNode

	if parentID, records, ok := data.ParentOf(currentConversationID); ok {
		out = append(out, ancestorContext(parentID, currentConversationID, records, data)...)
		title := data.TitleOf(currentConversationID)
		if title == "" {
			if meta, ok := g.ConversationMetadata(currentConversationID); ok {
				title = meta.Title
			}
		}
		out = append(out, &models.DisplayNode{
			Type:  models.NodeCurrentTitle,
			Text:  title,
			Depth: 0,
		})
	}

	var branchesByMessage map[string][]models.BranchRecord
	if data != nil {
		branchesByMessage = indexByParentMessage(data.Branches[currentConversationID])
	}

	for _, id := range g.ConversationPath(currentConversationID) {
		node := g.Node(id)
		if node == nil {
			// Path entries without nodes degrade to a less connected
			// view; Validate reports the underlying problem.
			continue
		}

		out = append(out, &models.DisplayNode{
			ID:         node.ID,
			Type:       models.NodeMessage,
			Text:       node.Text,
			Role:       node.Role,
			Depth:      0,
			CreateTime: ToSeconds(node.CreateTime),
		})

		out = append(out, editBranches(g, id)...)

		for _, rec := range branchesByMessage[id] {
			out = append(out, branchNode(rec, currentConversationID))
		}
	}

	return out
}

// editBranches emits one editBranch node per alternate version of the
// path message, labeled with its 1-based position among all siblings
// sorted by creation time.
func editBranches(g *graph.ConversationGraph, pathID string) []*models.DisplayNode {
	siblings := g.EditSiblings(pathID)
	if len(siblings) < 2 {
		return nil
	}

	// Sort the full group by creation time so version labels are stable
	// across conversations. Unresolvable ids sort first with time 0.
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblingTime(g, siblings[i]) < siblingTime(g, siblings[j])
	})

	total := len(siblings)
	var out []*models.DisplayNode
	for i, sibID := range siblings {
		if sibID == pathID {
			continue
		}
		text := ""
		createTime := 0.0
		if node := g.Node(sibID); node != nil {
			text = node.Text
			createTime = ToSeconds(node.CreateTime)
		}
		out = append(out, &models.DisplayNode{
			ID:              sibID,
			Type:            models.NodeEditBranch,
			Text:            text,
			Depth:           1,
			CreateTime:      createTime,
			VersionLabel:    fmt.Sprintf("v%d/%d", i+1, total),
			DescendantCount: g.DescendantCount(sibID),
		})
	}
	return out
}

func siblingTime(g *graph.ConversationGraph, id string) float64 {
	if node := g.Node(id); node != nil {
		return ToSeconds(node.CreateTime)
	}
	return 0
}

// ancestorContext builds the prefix shown when viewing a conversation
// that was branched off a parent: ancestor title, branch-root marker,
// pre-branch indicator, then every branch of the parent.
func ancestorContext(parentID, currentID string, records []models.BranchRecord, data *models.BranchData) []*models.DisplayNode {
	out := []*models.DisplayNode{
		{
			Type:  models.NodeAncestorTitle,
			Text:  data.TitleOf(parentID),
			Depth: 0,
		},
		{
			Type:  models.NodeBranchRoot,
			Text:  "From",
			Depth: 0,
		},
		{
			Type:  models.NodePreBranchIndicator,
			Depth: 1,
		},
	}
	for _, rec := range records {
		out = append(out, branchNode(rec, currentID))
	}
	return out
}

// indexByParentMessage groups branch records by the message they were
// spawned from. Records without an anchoring message id are dropped here;
// they still appear in the simple chronological view.
func indexByParentMessage(records []models.BranchRecord) map[string][]models.BranchRecord {
	if len(records) == 0 {
		return nil
	}
	byMessage := make(map[string][]models.BranchRecord)
	for _, rec := range records {
		if rec.ParentMessageID == "" {
			continue
		}
		byMessage[rec.ParentMessageID] = append(byMessage[rec.ParentMessageID], rec)
	}
	return byMessage
}
