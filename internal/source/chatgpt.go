package source

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

// ChatGPT normalizes ChatGPT conversation exports. The export carries a
// "mapping" of node id to {message, parent, children}; edits and
// regenerations appear as multiple children under one parent, which is
// exactly the shape the graph's edit-group detection expects.
type ChatGPT struct{}

// NewChatGPT returns the ChatGPT adapter.
func NewChatGPT() *ChatGPT { return &ChatGPT{} }

func (c *ChatGPT) Platform() string { return "chatgpt" }

func (c *ChatGPT) MatchURL(url string) bool {
	return strings.Contains(url, "chatgpt.com") || strings.Contains(url, "chat.openai.com")
}

func (c *ChatGPT) ConversationID(url string) string {
	return pathSegmentAfter(url, "/c/")
}

func (c *ChatGPT) SupportsEditVersions() bool { return true }
func (c *ChatGPT) SupportsBranching() bool    { return true }

type chatgptExport struct {
	Title          string                 `json:"title"`
	ConversationID string                 `json:"conversation_id"`
	Mapping        map[string]chatgptNode `json:"mapping"`
}

type chatgptNode struct {
	ID       string          `json:"id"`
	Message  *chatgptMessage `json:"message"`
	Parent   string          `json:"parent"`
	Children []string        `json:"children"`
}

type chatgptMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content struct {
		ContentType string   `json:"content_type"`
		Parts       []string `json:"parts"`
	} `json:"content"`
	CreateTime float64 `json:"create_time"`
}

// Normalize walks the mapping from its roots, depth first, emitting
// messages parent before child. A node's normalized parent is its
// nearest ancestor that itself carries a message, so structural-only
// mapping nodes (the synthetic root, tool stubs) drop out without
// breaking the chain. Children of one parent become sibling hints.
func (c *ChatGPT) Normalize(raw []byte) ([]models.Message, error) {
	var export chatgptExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("parse chatgpt export: %w", err)
	}
	if len(export.Mapping) == 0 {
		return nil, fmt.Errorf("chatgpt export has no mapping")
	}

	// Roots: nodes whose parent is empty or absent from the mapping.
	var roots []string
	for id, node := range export.Mapping {
		if node.Parent == "" {
			roots = append(roots, id)
			continue
		}
		if _, ok := export.Mapping[node.Parent]; !ok {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)

	var out []models.Message
	visited := make(map[string]struct{}, len(export.Mapping))

	// stack entries carry the nearest message-bearing ancestor id.
	type frame struct {
		nodeID   string
		parentID string
	}
	var stack []frame
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{nodeID: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[f.nodeID]; ok {
			continue
		}
		visited[f.nodeID] = struct{}{}

		node, ok := export.Mapping[f.nodeID]
		if !ok {
			continue
		}

		parentForChildren := f.parentID
		if msg := node.Message; msg != nil && msg.ID != "" {
			siblings := messageSiblings(export.Mapping, node, f.nodeID)
			out = append(out, models.Message{
				ID:         msg.ID,
				Role:       normalizeRole(msg.Author.Role),
				Text:       strings.Join(msg.Content.Parts, "\n"),
				CreateTime: msg.CreateTime,
				ParentID:   f.parentID,
				SiblingIDs: siblings,
			})
			parentForChildren = msg.ID
		}

		// Push children in reverse so the first child is walked first.
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{nodeID: node.Children[i], parentID: parentForChildren})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("chatgpt export has no messages")
	}
	return out, nil
}

// messageSiblings returns the message ids of the other children of this
// node's mapping parent, i.e. the alternate versions occupying the same
// slot. Empty when the node is an only child.
func messageSiblings(mapping map[string]chatgptNode, node chatgptNode, nodeID string) []string {
	parent, ok := mapping[node.Parent]
	if !ok || len(parent.Children) < 2 {
		return nil
	}
	var siblings []string
	for _, childID := range parent.Children {
		if childID == nodeID {
			continue
		}
		child, ok := mapping[childID]
		if !ok || child.Message == nil || child.Message.ID == "" {
			continue
		}
		siblings = append(siblings, child.Message.ID)
	}
	return siblings
}

func normalizeRole(role string) string {
	switch role {
	case "user", "system":
		return role
	case "assistant", "tool", "model":
		return models.RoleAssistant
	default:
		return role
	}
}

// pathSegmentAfter returns the path segment following marker in a URL,
// stripped of any trailing path, query or fragment.
func pathSegmentAfter(url, marker string) string {
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	rest := url[idx+len(marker):]
	for _, sep := range []string{"/", "?", "#"} {
		if cut := strings.Index(rest, sep); cut >= 0 {
			rest = rest[:cut]
		}
	}
	return rest
}
