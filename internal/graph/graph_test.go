package graph

import (
	"reflect"
	"testing"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

func msg(id, parent, role, text string, t float64) models.Message {
	return models.Message{ID: id, ParentID: parent, Role: role, Text: text, CreateTime: t}
}

func TestAddMessage_MalformedInput(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		conversation string
	}{
		{"empty message id", "", "conv-1"},
		{"empty conversation id", "m1", ""},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(nil)
			node := g.AddMessage(msg(tt.id, "", models.RoleUser, "hi", 1), tt.conversation)
			if node != nil {
				t.Errorf("AddMessage() = %v, want nil", node)
			}
			if g.NodeCount() != 0 {
				t.Errorf("NodeCount() = %d, want 0", g.NodeCount())
			}
		})
	}
}

func TestAddMessage_Idempotent(t *testing.T) {
	g := New(nil)
	first := g.AddMessage(msg("m1", "", models.RoleUser, "hello", 10), "conv-1")
	second := g.AddMessage(msg("m1", "", models.RoleUser, "hello", 10), "conv-1")

	if first == nil || second == nil {
		t.Fatal("AddMessage() returned nil for valid input")
	}
	if first != second {
		t.Error("re-insert did not return the existing node")
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", g.NodeCount())
	}
	if len(second.ConversationIDs) != 1 {
		t.Errorf("ConversationIDs size = %d, want 1", len(second.ConversationIDs))
	}
}

func TestAddMessage_FirstWriteWins(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("m1", "", models.RoleUser, "original", 10), "conv-1")
	node := g.AddMessage(msg("m1", "", models.RoleAssistant, "changed", 99), "conv-2")

	if node.Text != "original" {
		t.Errorf("Text = %q, want %q", node.Text, "original")
	}
	if node.Role != models.RoleUser {
		t.Errorf("Role = %q, want %q", node.Role, models.RoleUser)
	}
	if node.CreateTime != 10 {
		t.Errorf("CreateTime = %v, want 10", node.CreateTime)
	}
}

func TestAddMessage_DedupAcrossConversations(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("m1", "", models.RoleUser, "shared", 10), "conv-a")
	node := g.AddMessage(msg("m1", "", models.RoleUser, "shared", 10), "conv-b")

	if len(node.ConversationIDs) != 2 {
		t.Fatalf("ConversationIDs size = %d, want 2", len(node.ConversationIDs))
	}
	if !node.IsShared() {
		t.Error("IsShared() = false, want true")
	}
	if g.SharedCount() != 1 {
		t.Errorf("SharedCount() = %d, want 1", g.SharedCount())
	}
}

func TestAddMessage_ParentFirstLinking(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("p", "", models.RoleUser, "parent", 1), "c")
	g.AddMessage(msg("m", "p", models.RoleAssistant, "child", 2), "c")

	parent := g.Node("p")
	if _, ok := parent.ChildIDs["m"]; !ok {
		t.Error("parent does not list child inserted after it")
	}
}

func TestAddMessage_NoBackfill(t *testing.T) {
	// Child arrives before its parent: the parent's ChildIDs are never
	// backfilled, the link stays one-way.
	g := New(nil)
	g.AddMessage(msg("m", "p", models.RoleAssistant, "child", 2), "c")
	g.AddMessage(msg("p", "", models.RoleUser, "parent", 1), "c")

	parent := g.Node("p")
	if len(parent.ChildIDs) != 0 {
		t.Errorf("ChildIDs backfilled: %v, want empty", parent.ChildIDs)
	}
	child := g.Node("m")
	if child.ParentID != "p" {
		t.Errorf("child ParentID = %q, want %q", child.ParentID, "p")
	}
}

func TestProcessEditVersions_CanonicalGroupID(t *testing.T) {
	// Group id must be the lexicographically smallest member regardless
	// of insertion order.
	tests := []struct {
		name  string
		order []string
	}{
		{"ascending", []string{"aaa", "bbb", "ccc"}},
		{"descending", []string{"ccc", "bbb", "aaa"}},
		{"mixed", []string{"bbb", "ccc", "aaa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(nil)
			g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
			var msgs []models.Message
			for i, id := range tt.order {
				m := msg(id, "root", models.RoleUser, "v", float64(i+2))
				g.AddMessage(m, "c")
				msgs = append(msgs, m)
			}

			g.ProcessEditVersions(msgs, "")

			for _, id := range tt.order {
				node := g.Node(id)
				if node.EditGroupID != "aaa" {
					t.Errorf("node %s EditGroupID = %q, want %q", id, node.EditGroupID, "aaa")
				}
				if !node.IsEditVersion {
					t.Errorf("node %s IsEditVersion = false", id)
				}
			}
			if g.EditGroupCount() != 1 {
				t.Errorf("EditGroupCount() = %d, want 1", g.EditGroupCount())
			}
		})
	}
}

func TestProcessEditVersions_Symmetry(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	msgs := []models.Message{
		msg("v1", "root", models.RoleUser, "a", 2),
		msg("v2", "root", models.RoleUser, "b", 3),
	}
	for _, m := range msgs {
		g.AddMessage(m, "c")
	}
	g.ProcessEditVersions(msgs, "")

	v1 := g.Node("v1")
	v2 := g.Node("v2")
	if _, ok := v1.EditSiblingIDs["v2"]; !ok {
		t.Error("v1 does not list v2 as edit sibling")
	}
	if _, ok := v2.EditSiblingIDs["v1"]; !ok {
		t.Error("v2 does not list v1 as edit sibling")
	}
	if _, ok := v1.EditSiblingIDs["v1"]; ok {
		t.Error("v1 lists itself as edit sibling")
	}
}

func TestProcessEditVersions_SingleChildNoGroup(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	msgs := []models.Message{msg("only", "root", models.RoleAssistant, "a", 2)}
	g.AddMessage(msgs[0], "c")

	g.ProcessEditVersions(msgs, "")

	if g.EditGroupCount() != 0 {
		t.Errorf("EditGroupCount() = %d, want 0", g.EditGroupCount())
	}
	if g.Node("only").IsEditVersion {
		t.Error("single child marked as edit version")
	}
}

func TestProcessEditVersions_GeminiSameRoleOnly(t *testing.T) {
	// Under the gemini strategy a user and an assistant message sharing
	// a parent are a conversational turn, not an edit group.
	g := New(nil)
	g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	msgs := []models.Message{
		msg("u1", "root", models.RoleUser, "a", 2),
		msg("a1", "root", models.RoleAssistant, "b", 3),
	}
	for _, m := range msgs {
		g.AddMessage(m, "c")
	}

	g.ProcessEditVersions(msgs, "gemini")
	if g.EditGroupCount() != 0 {
		t.Errorf("EditGroupCount() = %d, want 0", g.EditGroupCount())
	}

	// Default strategy groups them regardless of role.
	g2 := New(nil)
	g2.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	for _, m := range msgs {
		g2.AddMessage(m, "c")
	}
	g2.ProcessEditVersions(msgs, "")
	if g2.EditGroupCount() != 1 {
		t.Errorf("default EditGroupCount() = %d, want 1", g2.EditGroupCount())
	}
}

func TestProcessEditVersions_ChatGPTHints(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	hinted := models.Message{
		ID: "v2", ParentID: "root", Role: models.RoleUser, Text: "b",
		CreateTime: 3, SiblingIDs: []string{"v1"},
	}
	msgs := []models.Message{
		msg("v1", "root", models.RoleUser, "a", 2),
		hinted,
	}
	for _, m := range msgs {
		g.AddMessage(m, "c")
	}

	g.ProcessEditVersions([]models.Message{hinted}, "chatgpt")

	if got := g.EditSiblings("v1"); !reflect.DeepEqual(got, []string{"v1", "v2"}) {
		t.Errorf("EditSiblings(v1) = %v, want [v1 v2]", got)
	}
}

func TestEditSiblings_Fallbacks(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("solo", "", models.RoleUser, "hi", 1), "c")

	tests := []struct {
		name string
		id   string
		want []string
	}{
		{"unknown id", "ghost", []string{"ghost"}},
		{"node without group", "solo", []string{"solo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.EditSiblings(tt.id); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EditSiblings(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestConversationPath_CopySemantics(t *testing.T) {
	g := New(nil)
	original := []string{"m1", "m2"}
	g.SetConversationPath("c", original, ConversationMeta{Title: "t"})

	original[0] = "mutated"
	path := g.ConversationPath("c")
	if path[0] != "m1" {
		t.Error("stored path aliases the caller's slice")
	}

	path[1] = "mutated"
	if g.ConversationPath("c")[1] != "m2" {
		t.Error("returned path aliases the stored slice")
	}
}

func TestConversationPath_Unknown(t *testing.T) {
	g := New(nil)
	path := g.ConversationPath("nope")
	if path == nil {
		t.Fatal("ConversationPath() = nil, want empty slice")
	}
	if len(path) != 0 {
		t.Errorf("len = %d, want 0", len(path))
	}
}

func TestFindDivergencePoint(t *testing.T) {
	tests := []struct {
		name  string
		pathA []string
		pathB []string
		want  string
	}{
		{
			name:  "diverge mid path",
			pathA: []string{"m1", "m2", "m3", "m4"},
			pathB: []string{"m1", "m2", "m5"},
			want:  "m2",
		},
		{
			name:  "identical paths",
			pathA: []string{"m1", "m2"},
			pathB: []string{"m1", "m2"},
			want:  "m2",
		},
		{
			name:  "one path is prefix",
			pathA: []string{"m1", "m2", "m3"},
			pathB: []string{"m1", "m2"},
			want:  "m2",
		},
		{
			name:  "diverge at root",
			pathA: []string{"m1", "m2"},
			pathB: []string{"x1", "x2"},
			want:  "",
		},
		{
			name:  "empty path",
			pathA: nil,
			pathB: []string{"m1"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(nil)
			g.SetConversationPath("a", tt.pathA, ConversationMeta{})
			g.SetConversationPath("b", tt.pathB, ConversationMeta{})
			if got := g.FindDivergencePoint("a", "b"); got != tt.want {
				t.Errorf("FindDivergencePoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniquePathAfter(t *testing.T) {
	g := New(nil)
	g.SetConversationPath("a", []string{"m1", "m2", "m3", "m4"}, ConversationMeta{})

	tests := []struct {
		name       string
		divergence string
		want       []string
	}{
		{"mid path", "m2", []string{"m3", "m4"}},
		{"at leaf", "m4", []string{}},
		{"not on path", "ghost", []string{"m1", "m2", "m3", "m4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.UniquePathAfter(tt.divergence, "a")
			if len(got) != len(tt.want) {
				t.Fatalf("UniquePathAfter() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("UniquePathAfter()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDescendantCount(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	g.AddMessage(msg("a", "root", models.RoleAssistant, "x", 2), "c")
	g.AddMessage(msg("b", "a", models.RoleUser, "y", 3), "c")
	g.AddMessage(msg("meta", "a", "", "system glue", 3), "c")

	tests := []struct {
		id   string
		want int
	}{
		{"root", 2}, // a and b; meta has no role
		{"a", 1},
		{"b", 0},
		{"ghost", 0},
	}

	for _, tt := range tests {
		if got := g.DescendantCount(tt.id); got != tt.want {
			t.Errorf("DescendantCount(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}
