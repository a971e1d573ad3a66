package source

import (
	"testing"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

const claudeExportJSON = `{
  "uuid": "conv-uuid",
  "name": "Test conversation",
  "chat_messages": [
    {"uuid": "u1", "text": "hello", "sender": "human", "created_at": "2024-01-15T10:00:00Z"},
    {"uuid": "a1", "text": "hi there", "sender": "assistant", "created_at": "2024-01-15T10:00:05Z"},
    {"uuid": "u2", "text": "thanks", "sender": "human", "created_at": "2024-01-15T10:01:00Z"}
  ]
}`

func TestClaude_Normalize(t *testing.T) {
	msgs, err := NewClaude().Normalize([]byte(claudeExportJSON))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}

	if msgs[0].Role != models.RoleUser {
		t.Errorf("msgs[0].Role = %q, want user (sender human)", msgs[0].Role)
	}
	if msgs[1].Role != models.RoleAssistant {
		t.Errorf("msgs[1].Role = %q, want assistant", msgs[1].Role)
	}

	// Linear chaining.
	if msgs[0].ParentID != "" {
		t.Errorf("msgs[0].ParentID = %q, want empty", msgs[0].ParentID)
	}
	if msgs[1].ParentID != "u1" {
		t.Errorf("msgs[1].ParentID = %q, want u1", msgs[1].ParentID)
	}
	if msgs[2].ParentID != "a1" {
		t.Errorf("msgs[2].ParentID = %q, want a1", msgs[2].ParentID)
	}

	// 2024-01-15T10:00:00Z
	if msgs[0].CreateTime != 1705312800 {
		t.Errorf("msgs[0].CreateTime = %v, want 1705312800", msgs[0].CreateTime)
	}
}

func TestClaude_SkipsMessagesWithoutID(t *testing.T) {
	raw := `{"chat_messages": [
		{"uuid": "", "text": "ghost", "sender": "human"},
		{"uuid": "u1", "text": "real", "sender": "human"}
	]}`
	msgs, err := NewClaude().Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "u1" {
		t.Errorf("got %v, want single u1 message", msgs)
	}
}

func TestClaude_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `[`},
		{"no messages", `{"chat_messages": []}`},
		{"all unusable", `{"chat_messages": [{"uuid": "", "text": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClaude().Normalize([]byte(tt.raw)); err == nil {
				t.Error("Normalize() error = nil, want error")
			}
		})
	}
}

func TestParseClaudeTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"rfc3339", "2024-01-15T10:00:00Z", 1705312800},
		{"empty", "", 0},
		{"garbage", "yesterday", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseClaudeTime(tt.in); got != tt.want {
				t.Errorf("parseClaudeTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClaude_URLs(t *testing.T) {
	c := NewClaude()
	if !c.MatchURL("https://claude.ai/chat/9f3b") {
		t.Error("MatchURL(claude.ai) = false")
	}
	if got := c.ConversationID("https://claude.ai/chat/9f3b?x=1"); got != "9f3b" {
		t.Errorf("ConversationID = %q, want 9f3b", got)
	}
}
