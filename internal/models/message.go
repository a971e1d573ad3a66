// Package models defines data structures for the chattree conversation indexer.
package models

// Message roles as reported by the chat platforms.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a normalized chat message produced by a platform adapter.
// CreateTime is unix seconds; adapters are responsible for converting
// whatever the platform reports (milliseconds, RFC3339) before handing
// messages to the graph.
type Message struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Text       string   `json:"text"`
	CreateTime float64  `json:"create_time"`
	ParentID   string   `json:"parent_id,omitempty"`
	SiblingIDs []string `json:"sibling_ids,omitempty"`
}
