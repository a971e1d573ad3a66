package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

// Claude normalizes Claude conversation exports. The export is a linear
// chat_messages array; parent links are synthesized from sequence order
// since the payload carries no tree structure.
type Claude struct{}

// NewClaude returns the Claude adapter.
func NewClaude() *Claude { return &Claude{} }

func (c *Claude) Platform() string { return "claude" }

func (c *Claude) MatchURL(url string) bool {
	return strings.Contains(url, "claude.ai")
}

func (c *Claude) ConversationID(url string) string {
	return pathSegmentAfter(url, "/chat/")
}

func (c *Claude) SupportsEditVersions() bool { return false }
func (c *Claude) SupportsBranching() bool    { return true }

type claudeExport struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID      string `json:"uuid"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	CreatedAt string `json:"created_at"`
}

// Normalize converts the linear message list, mapping sender "human" to
// the user role and chaining each message to its predecessor.
func (c *Claude) Normalize(raw []byte) ([]models.Message, error) {
	var export claudeExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("parse claude export: %w", err)
	}
	if len(export.ChatMessages) == 0 {
		return nil, fmt.Errorf("claude export has no messages")
	}

	out := make([]models.Message, 0, len(export.ChatMessages))
	prevID := ""
	for _, msg := range export.ChatMessages {
		if msg.UUID == "" {
			continue
		}
		role := models.RoleAssistant
		if msg.Sender == "human" {
			role = models.RoleUser
		}
		out = append(out, models.Message{
			ID:         msg.UUID,
			Role:       role,
			Text:       msg.Text,
			CreateTime: parseClaudeTime(msg.CreatedAt),
			ParentID:   prevID,
		})
		prevID = msg.UUID
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("claude export has no usable messages")
	}
	return out, nil
}

// parseClaudeTime converts the RFC3339 created_at to unix seconds,
// returning 0 for unparseable values.
func parseClaudeTime(s string) float64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
