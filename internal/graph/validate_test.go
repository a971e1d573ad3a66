package graph

import (
	"testing"

	"github.com/raphaelgruber/chattree-go/internal/models"
)

func countKind(errs []ValidationError, kind string) int {
	n := 0
	for _, e := range errs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestValidate_CleanGraph(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("m1", "", models.RoleUser, "q", 1), "c")
	g.AddMessage(msg("m2", "m1", models.RoleAssistant, "a", 2), "c")
	g.AddMessage(msg("m3", "m2", models.RoleUser, "q2", 3), "c")

	if errs := g.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidate_OrphanedNode(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("m1", "ghost", models.RoleUser, "q", 1), "c")

	errs := g.Validate()
	if countKind(errs, ErrOrphanedNode) != 1 {
		t.Errorf("orphaned_node count = %d, want 1 (errs: %v)", countKind(errs, ErrOrphanedNode), errs)
	}
}

func TestValidate_InconsistentParentChild(t *testing.T) {
	// Child inserted before parent: link never backfilled, so the parent
	// does not list the child.
	g := New(nil)
	g.AddMessage(msg("m2", "m1", models.RoleAssistant, "a", 2), "c")
	g.AddMessage(msg("m1", "", models.RoleUser, "q", 1), "c")

	errs := g.Validate()
	if countKind(errs, ErrInconsistentParentChild) != 1 {
		t.Errorf("inconsistent_parent_child count = %d, want 1 (errs: %v)",
			countKind(errs, ErrInconsistentParentChild), errs)
	}
}

func TestValidate_CycleReportedOnce(t *testing.T) {
	// A -> B -> C -> A. Walking from each of the three nodes would
	// report the cycle three times without the shared visited set; the
	// contract is exactly one error.
	g := New(nil)
	g.nodes["a"] = newMessageNode("a", "x", models.RoleUser, 1, "c")
	g.nodes["b"] = newMessageNode("b", "y", models.RoleUser, 2, "a")
	g.nodes["c"] = newMessageNode("c", "z", models.RoleUser, 3, "b")
	g.nodes["a"].ChildIDs["b"] = struct{}{}
	g.nodes["b"].ChildIDs["c"] = struct{}{}
	g.nodes["c"].ChildIDs["a"] = struct{}{}

	errs := g.Validate()
	if got := countKind(errs, ErrCircularReference); got != 1 {
		t.Errorf("circular_reference count = %d, want 1 (errs: %v)", got, errs)
	}
}

func TestValidate_LongChainNoCycle(t *testing.T) {
	g := New(nil)
	parent := ""
	for _, id := range []string{"n1", "n2", "n3", "n4", "n5", "n6", "n7", "n8"} {
		g.AddMessage(msg(id, parent, models.RoleUser, "t", 1), "c")
		parent = id
	}

	errs := g.Validate()
	if got := countKind(errs, ErrCircularReference); got != 0 {
		t.Errorf("circular_reference count = %d, want 0 (errs: %v)", got, errs)
	}
}

func TestValidate_MissingEditSibling(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("root", "", models.RoleUser, "q", 1), "c")
	v1 := msg("v1", "root", models.RoleUser, "a", 2)
	g.AddMessage(v1, "c")

	// v2 listed via hint but never inserted.
	hinted := v1
	hinted.SiblingIDs = []string{"v2"}
	g.ProcessEditVersions([]models.Message{hinted}, "chatgpt")

	errs := g.Validate()
	if got := countKind(errs, ErrMissingEditSibling); got != 1 {
		t.Errorf("missing_edit_sibling count = %d, want 1 (errs: %v)", got, errs)
	}
}

func TestValidate_EditGroupMismatch(t *testing.T) {
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

	// Desync one member's back-reference.
	g.nodes["v2"].EditGroupID = "other"

	errs := g.Validate()
	if got := countKind(errs, ErrEditGroupMismatch); got != 1 {
		t.Errorf("edit_group_mismatch count = %d, want 1 (errs: %v)", got, errs)
	}
	// "other" does not exist as a group either.
	if got := countKind(errs, ErrOrphanedEditGroup); got != 1 {
		t.Errorf("orphaned_edit_group count = %d, want 1 (errs: %v)", got, errs)
	}
}

func TestValidate_OrphanedEditGroup(t *testing.T) {
	g := New(nil)
	g.AddMessage(msg("m1", "", models.RoleUser, "q", 1), "c")
	g.nodes["m1"].EditGroupID = "gone"

	errs := g.Validate()
	if got := countKind(errs, ErrOrphanedEditGroup); got != 1 {
		t.Errorf("orphaned_edit_group count = %d, want 1 (errs: %v)", got, errs)
	}
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Kind: ErrOrphanedNode, NodeID: "m1", Detail: "parent x does not exist"}
	want := "orphaned_node: node m1: parent x does not exist"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
